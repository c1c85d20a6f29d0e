package adapter

import "context"

// Notifier delivers a queued notification to one user. The core never talks
// to the chat surface except through this port.
type Notifier interface {
	Send(ctx context.Context, userID int64, text string) error
}
