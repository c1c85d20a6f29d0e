package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, product_id, name, active, pause, expiry_time, traffic, usage, quota_warned, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  name=$4, active=$5, pause=$6, expiry_time=$7, traffic=$8, quota_warned=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.ProductID, s.Name, s.Active, s.Pause, s.ExpiryTime, s.Traffic, s.Usage, s.QuotaWarned, s.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}

	const qe = `
INSERT INTO subscription_servers (subscription_id, server_id, remote_email, usage)
VALUES ($1,$2,$3,$4)
ON CONFLICT (subscription_id, server_id) DO UPDATE SET remote_email=$3;`
	for serverID, entry := range s.Servers {
		if _, err := execSQL(ctx, r.pool, tx, qe, s.ID, serverID, entry.RemoteEmail, entry.Usage); err != nil {
			return domain.ErrOperationFailed
		}
	}
	return nil
}

const subColumns = `id, user_id, product_id, name, active, pause, expiry_time, traffic, usage, quota_warned, created_at`

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id uuid.UUID) (*model.Subscription, error) {
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s, err := scanSub(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadServers(ctx, tx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Subscription, error) {
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE user_id=$1 ORDER BY active DESC, created_at DESC;`
	return r.queryMany(ctx, tx, q, userID)
}

// IncrementUsage attributes deltaGB to the subscription owning the
// (server, email) account. One statement updates both the per-server
// accumulator and the total, flips the durable warned flag when the increment
// crosses warnFraction of the quota, and reports old/new usage. Concurrent
// ticks cannot lose updates and the warning fires exactly once.
func (r *subscriptionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, serverID, email string, deltaGB, warnFraction float64) (*repository.UsageDelta, error) {
	const q = `
WITH entry AS (
  UPDATE subscription_servers ss
     SET usage = ss.usage + $3
    FROM subscriptions s
   WHERE ss.server_id = $1
     AND ss.remote_email = $2
     AND s.id = ss.subscription_id
     AND s.active
  RETURNING ss.subscription_id
)
UPDATE subscriptions s
   SET usage = s.usage + $3,
       quota_warned = s.quota_warned OR (s.usage + $3 >= s.traffic * $4)
  FROM entry e, subscriptions old
 WHERE s.id = e.subscription_id AND old.id = s.id
RETURNING s.user_id, s.name, old.usage, s.usage, s.traffic, (s.quota_warned AND NOT old.quota_warned);`

	row, err := pickRow(ctx, r.pool, tx, q, serverID, email, deltaGB, warnFraction)
	if err != nil {
		return nil, err
	}
	d := &repository.UsageDelta{}
	if err := row.Scan(&d.UserID, &d.Name, &d.Before, &d.After, &d.Traffic, &d.CrossedQuotaWarn); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}

func (r *subscriptionRepo) FindExpiredOrOverQuota(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE active AND (expiry_time <= $1 OR usage > traffic);`
	return r.queryMany(ctx, tx, q, now)
}

func (r *subscriptionRepo) Deactivate(ctx context.Context, tx repository.Tx, id uuid.UUID) error {
	const q = `UPDATE subscriptions SET active=false WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) EmailInUse(ctx context.Context, tx repository.Tx, serverID, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM subscription_servers WHERE server_id=$1 AND remote_email=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, serverID, email)
	if err != nil {
		return false, err
	}
	var used bool
	if err := row.Scan(&used); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return used, nil
}

func (r *subscriptionRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	for _, s := range out {
		if err := r.loadServers(ctx, tx, s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *subscriptionRepo) loadServers(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `SELECT server_id, remote_email, usage FROM subscription_servers WHERE subscription_id=$1;`
	rows, err := queryRows(ctx, r.pool, tx, q, s.ID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	defer rows.Close()
	s.Servers = make(map[string]model.ServerEntry)
	for rows.Next() {
		var serverID string
		var entry model.ServerEntry
		if err := rows.Scan(&serverID, &entry.RemoteEmail, &entry.Usage); err != nil {
			return domain.ErrReadDatabaseRow
		}
		s.Servers[serverID] = entry
	}
	if err := rows.Err(); err != nil {
		return domain.ErrReadDatabaseRow
	}
	return nil
}

func scanSub(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.ProductID, &s.Name, &s.Active, &s.Pause, &s.ExpiryTime, &s.Traffic, &s.Usage, &s.QuotaWarned, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
