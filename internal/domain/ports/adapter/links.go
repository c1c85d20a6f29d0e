package adapter

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

// LinkSource builds the client connection URI for one account on one server,
// reading the listener's protocol and transport settings from the panel.
type LinkSource interface {
	ClientLink(ctx context.Context, server *model.Server, clientID, remark string) (string, error)
}
