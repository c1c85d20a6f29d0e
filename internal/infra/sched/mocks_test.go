// File: internal/infra/sched/mocks_test.go
package sched_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memQueue is an in-memory JobQueue used by worker tests.
type memQueue[T any] struct {
	mu         sync.Mutex
	jobs       []repository.Job[T]
	seq        int
	enqueueErr error
	deleteErr  error
}

func newMemQueue[T any]() *memQueue[T] { return &memQueue[T]{} }

func (q *memQueue[T]) Enqueue(ctx context.Context, payload T) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.jobs = append(q.jobs, repository.Job[T]{ID: fmt.Sprintf("%026d", q.seq), Payload: payload})
	return nil
}

func (q *memQueue[T]) Drain(ctx context.Context, limit int) ([]repository.Job[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	if limit < n {
		n = limit
	}
	out := make([]repository.Job[T], n)
	copy(out, q.jobs[:n])
	return out, nil
}

func (q *memQueue[T]) Delete(ctx context.Context, ids ...string) error {
	if q.deleteErr != nil {
		return q.deleteErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if !drop[j.ID] {
			kept = append(kept, j)
		}
	}
	q.jobs = kept
	return nil
}

func (q *memQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *memQueue[T]) payloads() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Payload
	}
	return out
}

// memServerRepo serves servers from a map.
type memServerRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Server
}

func newMemServerRepo(servers ...*model.Server) *memServerRepo {
	m := &memServerRepo{store: make(map[string]*model.Server)}
	for _, s := range servers {
		m.store[s.ID] = s
	}
	return m
}

func (m *memServerRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = s
	return nil
}

func (m *memServerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *memServerRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Server, error) {
	var out []*model.Server
	for _, id := range ids {
		if s, err := m.FindByID(ctx, tx, id); err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memServerRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Server, 0, len(m.store))
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, nil
}

// mockPanel records calls and delegates to overridable funcs.
type mockPanel struct {
	mu sync.Mutex

	ListFn   func(ctx context.Context, server *model.Server) ([]adapter.ClientCounter, error)
	AddFn    func(ctx context.Context, server *model.Server, accounts []model.ClientAccount) error
	RemoveFn func(ctx context.Context, server *model.Server, accountID string) error
	ResetFn  func(ctx context.Context, server *model.Server) error

	added   map[string][]model.ClientAccount // server id -> accounts
	removed map[string][]string              // server id -> account ids
	resets  []string                         // server ids
}

func newMockPanel() *mockPanel {
	return &mockPanel{
		added:   make(map[string][]model.ClientAccount),
		removed: make(map[string][]string),
	}
}

func (p *mockPanel) ListClients(ctx context.Context, server *model.Server) ([]adapter.ClientCounter, error) {
	if p.ListFn != nil {
		return p.ListFn(ctx, server)
	}
	return nil, nil
}

func (p *mockPanel) AddClients(ctx context.Context, server *model.Server, accounts []model.ClientAccount) error {
	if p.AddFn != nil {
		if err := p.AddFn(ctx, server, accounts); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added[server.ID] = append(p.added[server.ID], accounts...)
	return nil
}

func (p *mockPanel) RemoveClient(ctx context.Context, server *model.Server, accountID string) error {
	if p.RemoveFn != nil {
		if err := p.RemoveFn(ctx, server, accountID); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed[server.ID] = append(p.removed[server.ID], accountID)
	return nil
}

func (p *mockPanel) ResetCounters(ctx context.Context, server *model.Server) error {
	if p.ResetFn != nil {
		if err := p.ResetFn(ctx, server); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, server.ID)
	return nil
}

// mockSubRepo implements SubscriptionRepository with overridable funcs.
type mockSubRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*model.Subscription

	IncrementUsageFn func(ctx context.Context, tx repository.Tx, serverID, email string, deltaGB, warnFraction float64) (*repository.UsageDelta, error)

	deactivated []uuid.UUID
}

func newMockSubRepo() *mockSubRepo {
	return &mockSubRepo{store: make(map[uuid.UUID]*model.Subscription)}
}

func (m *mockSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = s
	return nil
}

func (m *mockSubRepo) FindByID(ctx context.Context, tx repository.Tx, id uuid.UUID) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockSubRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubRepo) IncrementUsage(ctx context.Context, tx repository.Tx, serverID, email string, deltaGB, warnFraction float64) (*repository.UsageDelta, error) {
	if m.IncrementUsageFn != nil {
		return m.IncrementUsageFn(ctx, tx, serverID, email, deltaGB, warnFraction)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		entry, ok := s.Servers[serverID]
		if !ok || entry.RemoteEmail != email || !s.Active {
			continue
		}
		before := s.Usage
		entry.Usage += deltaGB
		s.Servers[serverID] = entry
		s.Usage += deltaGB
		crossed := false
		if s.Usage >= s.Traffic*warnFraction && !s.QuotaWarned {
			s.QuotaWarned = true
			crossed = true
		}
		return &repository.UsageDelta{
			UserID:           s.UserID,
			Name:             s.Name,
			Before:           before,
			After:            s.Usage,
			Traffic:          s.Traffic,
			CrossedQuotaWarn: crossed,
		}, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockSubRepo) FindExpiredOrOverQuota(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Active && (s.Expired(now) || s.OverQuota()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubRepo) Deactivate(ctx context.Context, tx repository.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = false
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockSubRepo) EmailInUse(ctx context.Context, tx repository.Tx, serverID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if entry, ok := s.Servers[serverID]; ok && entry.RemoteEmail == email {
			return true, nil
		}
	}
	return false, nil
}

// mockNotifyUC records enqueued notifications.
type mockNotifyUC struct {
	mu    sync.Mutex
	sent  []model.NotificationJob
	admin []string
}

func (m *mockNotifyUC) Enqueue(ctx context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, model.NotificationJob{UserID: userID, Text: text})
	return nil
}

func (m *mockNotifyUC) EnqueueAdmins(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = append(m.admin, text)
	return nil
}

func testServer(id string) *model.Server {
	return &model.Server{
		ID:            id,
		Name:          "srv-" + id,
		Scheme:        "http",
		Address:       "panel.example",
		PanelPort:     8080,
		PanelUsername: "admin",
		PanelPassword: "secret",
		InboundID:     1,
	}
}
