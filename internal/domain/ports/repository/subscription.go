package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"telegram-proxy-subscription/internal/domain/model"
)

// UsageDelta is the result of one atomic usage increment. Before/After are
// the total usage (GB) around the increment; CrossedQuotaWarn is true exactly
// once per subscription, when the increment carried usage across the warning
// threshold and the durable warned flag flipped in the same statement.
type UsageDelta struct {
	UserID           int64
	Name             string
	Before           float64
	After            float64
	Traffic          float64
	CrossedQuotaWarn bool
}

// SubscriptionRepository is the port for subscriptions and their per-server
// entries.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id uuid.UUID) (*model.Subscription, error)
	FindByUser(ctx context.Context, tx Tx, userID int64) ([]*model.Subscription, error)

	// IncrementUsage atomically adds deltaGB to both the total usage and the
	// per-server accumulator of the subscription owning (serverID, email).
	// Returns ErrNotFound when no active subscription matches.
	IncrementUsage(ctx context.Context, tx Tx, serverID, email string, deltaGB, warnFraction float64) (*UsageDelta, error)

	// FindExpiredOrOverQuota returns active subscriptions whose expiry time
	// has passed or whose usage exceeds the traffic quota.
	FindExpiredOrOverQuota(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)

	// Deactivate clears the active flag. Deactivated subscriptions are
	// excluded from scans and metering attribution.
	Deactivate(ctx context.Context, tx Tx, id uuid.UUID) error

	// EmailInUse reports whether a remote email is already assigned on the
	// given server (unique email generation).
	EmailInUse(ctx context.Context, tx Tx, serverID, email string) (bool, error)
}
