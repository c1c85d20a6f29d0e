package adapter

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

// ClientCounter is one remote account's live byte counters as reported by the
// panel.
type ClientCounter struct {
	Email string
	Up    int64
	Down  int64
}

// PanelClient wraps one remote proxy server's management API. Every call
// establishes a session first; failures surface as the typed errors
// domain.ErrPanelAuth / ErrPanelUnreachable / ErrPanelBadPayload and must
// never crash the caller; workers log and skip the server for the tick.
type PanelClient interface {
	// ListClients enumerates account counters on the server's inbound.
	ListClients(ctx context.Context, server *model.Server) ([]ClientCounter, error)
	// AddClients pushes accounts in one batch. Adding an account that already
	// exists is a no-op on the panel side.
	AddClients(ctx context.Context, server *model.Server, accounts []model.ClientAccount) error
	// RemoveClient deletes one account. Returns domain.ErrClientNotFound when
	// the account is already gone; callers treat that as success.
	RemoveClient(ctx context.Context, server *model.Server, accountID string) error
	// ResetCounters zeroes all per-client byte counters on the inbound.
	ResetCounters(ctx context.Context, server *model.Server) error
}
