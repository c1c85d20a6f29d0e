package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context for query")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOutOfStock          = errors.New("product out of stock")
	ErrRateUnavailable     = errors.New("currency rate unavailable")

	// Remote panel failures. Workers match these with errors.Is, log, and
	// skip the server for the current tick.
	ErrPanelAuth        = errors.New("panel authentication failed")
	ErrPanelUnreachable = errors.New("panel unreachable")
	ErrPanelBadPayload  = errors.New("panel returned malformed response")

	// Returned by RemoveClient when the account is already gone. Callers
	// treat it as success.
	ErrClientNotFound = errors.New("client not present on panel")
)
