// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase enqueues outbound messages; delivery happens in the
// notification worker.
type NotificationUseCase interface {
	Enqueue(ctx context.Context, userID int64, text string) error
	// EnqueueAdmins fans the text out to every configured admin.
	EnqueueAdmins(ctx context.Context, text string) error
}

type notificationUC struct {
	queue    repository.NotificationQueue
	adminIDs []int64
	log      *zerolog.Logger
}

func NewNotificationUseCase(queue repository.NotificationQueue, adminIDs []int64, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUseCase").Logger()
	return &notificationUC{queue: queue, adminIDs: adminIDs, log: &l}
}

func (n *notificationUC) Enqueue(ctx context.Context, userID int64, text string) error {
	return n.queue.Enqueue(ctx, model.NotificationJob{UserID: userID, Text: text})
}

func (n *notificationUC) EnqueueAdmins(ctx context.Context, text string) error {
	for _, id := range n.adminIDs {
		if err := n.queue.Enqueue(ctx, model.NotificationJob{UserID: id, Text: text}); err != nil {
			n.log.Error().Int64("admin_id", id).Err(err).Msg("admin notification enqueue failed")
			return err
		}
	}
	return nil
}
