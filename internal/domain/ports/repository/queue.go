package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

// Job is one persisted queue record. The payload carries everything needed to
// process the job independently; no job references another job.
type Job[T any] struct {
	ID      string // ULID, assigned on enqueue
	Payload T
}

// JobQueue is a named, unordered multiset of jobs with at-least-once
// semantics: Enqueue is a pure insert whose failure surfaces to the caller;
// Drain reads a snapshot of pending jobs (bounded by limit); Delete removes a
// job only after its remote side effect is confirmed. A crash between the
// remote success and Delete re-delivers the job, which callers tolerate via
// idempotent remote operations.
type JobQueue[T any] interface {
	Enqueue(ctx context.Context, payload T) error
	Drain(ctx context.Context, limit int) ([]Job[T], error)
	Delete(ctx context.Context, ids ...string) error
}

// Queue aliases for the three job kinds the workers consume.
type (
	AddQueue          = JobQueue[model.AddClientJob]
	DeleteQueue       = JobQueue[model.DeleteClientJob]
	NotificationQueue = JobQueue[model.NotificationJob]
)
