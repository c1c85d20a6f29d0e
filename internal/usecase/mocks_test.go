// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
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

// mockTxManager runs the callback without a real transaction.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type memUserRepo struct {
	mu    sync.Mutex
	store map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.TelegramID] = &cp
	return nil
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) AddBalance(ctx context.Context, tx repository.Tx, id int64, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.Balance+delta < 0 {
		return 0, domain.ErrInsufficientBalance
	}
	u.Balance += delta
	return u.Balance, nil
}

func (m *memUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

type memProductRepo struct {
	mu    sync.Mutex
	store map[string]*model.Product
}

func newMemProductRepo(products ...*model.Product) *memProductRepo {
	m := &memProductRepo{store: make(map[string]*model.Product)}
	for _, p := range products {
		m.store[p.ID] = p
	}
	return m
}

func (m *memProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[p.ID] = p
	return nil
}

func (m *memProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Product
	for _, p := range m.store {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProductRepo) DecrementStock(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Stock <= 0 {
		return domain.ErrOutOfStock
	}
	p.Stock--
	return nil
}

type memSubRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[uuid.UUID]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = s
	return nil
}

func (m *memSubRepo) FindByID(ctx context.Context, tx repository.Tx, id uuid.UUID) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSubRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Subscription, error) {
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

func (m *memSubRepo) IncrementUsage(ctx context.Context, tx repository.Tx, serverID, email string, deltaGB, warnFraction float64) (*repository.UsageDelta, error) {
	return nil, domain.ErrNotFound
}

func (m *memSubRepo) FindExpiredOrOverQuota(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	return nil, nil
}

func (m *memSubRepo) Deactivate(ctx context.Context, tx repository.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Active = false
	return nil
}

func (m *memSubRepo) EmailInUse(ctx context.Context, tx repository.Tx, serverID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if e, ok := s.Servers[serverID]; ok && e.RemoteEmail == email {
			return true, nil
		}
	}
	return false, nil
}

type memServerRepo struct {
	mu    sync.Mutex
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
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Server
	for _, s := range m.store {
		out = append(out, s)
	}
	return out, nil
}

type memQueue[T any] struct {
	mu   sync.Mutex
	jobs []repository.Job[T]
	seq  int
}

func newMemQueue[T any]() *memQueue[T] { return &memQueue[T]{} }

func (q *memQueue[T]) Enqueue(ctx context.Context, payload T) error {
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

func (q *memQueue[T]) payloads() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Payload
	}
	return out
}

type memRateRepo struct {
	mu    sync.Mutex
	store map[string]*model.CurrencyRate
}

func newMemRateRepo() *memRateRepo {
	return &memRateRepo{store: make(map[string]*model.CurrencyRate)}
}

func (m *memRateRepo) Upsert(ctx context.Context, rate *model.CurrencyRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[rate.Code] = rate
	return nil
}

func (m *memRateRepo) Get(ctx context.Context, code string) (*model.CurrencyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[code]
	if !ok {
		return nil, domain.ErrRateUnavailable
	}
	return r, nil
}

type memInvoiceRepo struct {
	mu    sync.Mutex
	store map[string]*model.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{store: make(map[string]*model.Invoice)}
}

func (m *memInvoiceRepo) SaveIfAbsent(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[inv.OrderID]; ok {
		return nil
	}
	cp := *inv
	m.store[inv.OrderID] = &cp
	return nil
}

func (m *memInvoiceRepo) Update(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.store[inv.OrderID] = &cp
	return nil
}

func (m *memInvoiceRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoiceRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range m.store {
		if !inv.IsFinal {
			cp := *inv
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for orderID := range m.store {
		if id, err := model.UserIDFromOrderID(orderID); err == nil && id == userID {
			n++
		}
	}
	return n, nil
}

type memPendingRepo struct {
	mu    sync.Mutex
	store map[string]*model.PendingCredit
}

func newMemPendingRepo() *memPendingRepo {
	return &memPendingRepo{store: make(map[string]*model.PendingCredit)}
}

func (m *memPendingRepo) Save(ctx context.Context, tx repository.Tx, pc *model.PendingCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[pc.OrderID]; ok {
		return nil
	}
	cp := *pc
	m.store[pc.OrderID] = &cp
	return nil
}

func (m *memPendingRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PendingCredit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pc
	return &cp, nil
}

func (m *memPendingRepo) Delete(ctx context.Context, tx repository.Tx, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, orderID)
	return nil
}

// mockGateway returns scripted invoices per order id.
type mockGateway struct {
	mu       sync.Mutex
	statuses map[string]*model.Invoice

	createErr error
	created   []adapter.CreateInvoiceRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{statuses: make(map[string]*model.Invoice)}
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateInvoice(ctx context.Context, req adapter.CreateInvoiceRequest) (*model.Invoice, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	inv := &model.Invoice{
		OrderID:        req.OrderID,
		GatewayUUID:    "gw-" + req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Network:        req.Network,
		PaymentStatus:  model.PaymentStatusProcess,
		AdditionalData: req.AdditionalData,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	g.statuses[req.OrderID] = inv
	return inv, nil
}

func (g *mockGateway) PaymentInfo(ctx context.Context, orderID string) (*model.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inv, ok := g.statuses[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

// setStatus scripts the gateway's next answer for an order.
func (g *mockGateway) setStatus(orderID, status string, final bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	inv, ok := g.statuses[orderID]
	if !ok {
		inv = &model.Invoice{OrderID: orderID}
		g.statuses[orderID] = inv
	}
	inv.PaymentStatus = status
	inv.IsFinal = final
}

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

// stubLinks returns a deterministic fake connection URI.
type stubLinks struct{}

func (stubLinks) ClientLink(ctx context.Context, server *model.Server, clientID, remark string) (string, error) {
	return fmt.Sprintf("vless://%s@%s#%s", clientID, server.Address, remark), nil
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

func usdRate(irtPerUSD float64) *model.CurrencyRate {
	return &model.CurrencyRate{
		Code:      model.CurrencyUSD,
		Price:     map[string]float64{model.CurrencyUSD: 1, model.CurrencyIRT: irtPerUSD},
		UpdatedAt: time.Now(),
	}
}
