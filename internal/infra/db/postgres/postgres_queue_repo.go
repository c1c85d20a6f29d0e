package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// Queue table names. Each queue is its own table with an identical shape.
const (
	AddQueueTable          = "add_queue"
	DeleteQueueTable       = "delete_queue"
	NotificationQueueTable = "notification_queue"
)

// jobQueue is the durable at-least-once queue over one table:
// (id CHAR(26) PK, payload JSONB, created_at TIMESTAMPTZ). ULID ids make the
// drain order creation order without a separate sequence.
type jobQueue[T any] struct {
	pool  *pgxpool.Pool
	table string
}

func NewJobQueue[T any](pool *pgxpool.Pool, table string) repository.JobQueue[T] {
	return &jobQueue[T]{pool: pool, table: table}
}

// Typed constructors for the three queues the workers consume.
func NewAddQueue(pool *pgxpool.Pool) repository.AddQueue {
	return NewJobQueue[model.AddClientJob](pool, AddQueueTable)
}

func NewDeleteQueue(pool *pgxpool.Pool) repository.DeleteQueue {
	return NewJobQueue[model.DeleteClientJob](pool, DeleteQueueTable)
}

func NewNotificationQueue(pool *pgxpool.Pool) repository.NotificationQueue {
	return NewJobQueue[model.NotificationJob](pool, NotificationQueueTable)
}

func (q *jobQueue[T]) Enqueue(ctx context.Context, payload T) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	sql := `INSERT INTO ` + q.table + ` (id, payload, created_at) VALUES ($1, $2, NOW());`
	if _, err := execSQL(ctx, q.pool, nil, sql, ulid.Make().String(), b); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (q *jobQueue[T]) Drain(ctx context.Context, limit int) ([]repository.Job[T], error) {
	sql := `SELECT id, payload FROM ` + q.table + ` ORDER BY id ASC LIMIT $1;`
	rows, err := queryRows(ctx, q.pool, nil, sql, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []repository.Job[T]
	for rows.Next() {
		var (
			job repository.Job[T]
			raw []byte
		)
		if err := rows.Scan(&job.ID, &raw); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if err := json.Unmarshal(raw, &job.Payload); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (q *jobQueue[T]) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	sql := `DELETE FROM ` + q.table + ` WHERE id = ANY($1);`
	if _, err := execSQL(ctx, q.pool, nil, sql, ids); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}
