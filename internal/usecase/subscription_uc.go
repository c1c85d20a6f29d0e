// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

const emailAttempts = 5

// SubscriptionUseCase implements subscription business operations.
//
// Purchase rules:
//   - the product must be sellable and in stock;
//   - the price is debited atomically, rejecting overdrafts;
//   - each server in the product gets its own unique remote email;
//   - provisioning is asynchronous: one add job per server, consumed by the
//     provisioning worker.
type SubscriptionUseCase interface {
	Purchase(ctx context.Context, userID int64, productID, name string, trafficGB float64, duration time.Duration) (*model.Subscription, error)
	// IssueTest grants the free trial product once per user.
	IssueTest(ctx context.Context, userID int64) (*model.Subscription, error)
	// Renew extends quota and expiry and re-enqueues the remote accounts so the
	// panels pick up the new limits.
	Renew(ctx context.Context, subID uuid.UUID, trafficGB float64, duration time.Duration) error
	ListByUser(ctx context.Context, userID int64) ([]*model.Subscription, error)
	FindByToken(ctx context.Context, token string) (*model.Subscription, error)
	// Links returns one connection URI per server of the subscription.
	Links(ctx context.Context, subID uuid.UUID) ([]string, error)
}

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	servers  repository.ServerRepository
	products repository.ProductRepository
	users    repository.UserRepository
	addQueue repository.AddQueue
	pricing  PricingUseCase
	links    adapter.LinkSource
	txm      repository.TransactionManager

	testTrafficGB float64
	testDuration  time.Duration

	log *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	servers repository.ServerRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	addQueue repository.AddQueue,
	pricing PricingUseCase,
	links adapter.LinkSource,
	txm repository.TransactionManager,
	testTrafficGB float64,
	testDuration time.Duration,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUseCase").Logger()
	return &subscriptionUC{
		subs:          subs,
		servers:       servers,
		products:      products,
		users:         users,
		addQueue:      addQueue,
		pricing:       pricing,
		links:         links,
		txm:           txm,
		testTrafficGB: testTrafficGB,
		testDuration:  testDuration,
		log:           &l,
	}
}

// uniqueEmail derives a remote email unused on the given server.
func (uc *subscriptionUC) uniqueEmail(ctx context.Context, tx repository.Tx, serverID, name string) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if base == "" {
		base = "sub"
	}
	for i := 0; i < emailAttempts; i++ {
		candidate := fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		used, err := uc.subs.EmailInUse(ctx, tx, serverID, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
	return "", domain.ErrOperationFailed
}

// create builds, persists and enqueues a subscription for the given product.
// charge <= 0 means free of charge (trial issuance).
func (uc *subscriptionUC) create(ctx context.Context, userID int64, product *model.Product, name string, trafficGB float64, duration time.Duration, charge int64) (*model.Subscription, error) {
	sub, err := model.NewSubscription(userID, product.ID, name, trafficGB, duration)
	if err != nil {
		return nil, err
	}

	err = uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if charge > 0 {
			if _, err := uc.users.AddBalance(ctx, tx, userID, -charge); err != nil {
				return err
			}
		}
		if err := uc.products.DecrementStock(ctx, tx, product.ID); err != nil {
			return err
		}
		for _, serverID := range product.ServerIDs {
			email, err := uc.uniqueEmail(ctx, tx, serverID, name)
			if err != nil {
				return err
			}
			sub.Servers[serverID] = model.ServerEntry{RemoteEmail: email}
		}
		return uc.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}

	if err := uc.enqueueAccounts(ctx, sub); err != nil {
		return nil, err
	}
	uc.log.Info().Str("sub_id", sub.ID.String()).Int64("user_id", userID).Str("product_id", product.ID).Msg("subscription created")
	return sub, nil
}

// enqueueAccounts pushes one add job per server entry. Duplicate enqueues are
// harmless; the panel dedups accounts by client id.
func (uc *subscriptionUC) enqueueAccounts(ctx context.Context, sub *model.Subscription) error {
	for serverID, entry := range sub.Servers {
		account := model.NewClientAccount(sub.ID.String(), entry.RemoteEmail, sub.Traffic, time.Until(sub.ExpiryTime))
		account.TelegramID = fmt.Sprint(sub.UserID)
		account.SubID = sub.Token()
		if err := uc.addQueue.Enqueue(ctx, model.AddClientJob{Account: account, ServerID: serverID}); err != nil {
			return err
		}
	}
	return nil
}

func (uc *subscriptionUC) Purchase(ctx context.Context, userID int64, productID, name string, trafficGB float64, duration time.Duration) (*model.Subscription, error) {
	product, err := uc.products.FindByID(ctx, repository.NoTX, productID)
	if err != nil {
		return nil, err
	}
	if !product.Sellable() {
		return nil, domain.ErrInvalidArgument
	}
	if !product.InStock() {
		return nil, domain.ErrOutOfStock
	}
	price, err := uc.pricing.SubscriptionPriceIRT(ctx, trafficGB, product.PriceMultiplier)
	if err != nil {
		return nil, err
	}
	return uc.create(ctx, userID, product, name, trafficGB, duration, price)
}

func (uc *subscriptionUC) IssueTest(ctx context.Context, userID int64) (*model.Subscription, error) {
	products, err := uc.products.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	var product *model.Product
	for _, p := range products {
		if p.TestEligible() && p.InStock() {
			product = p
			break
		}
	}
	if product == nil {
		return nil, domain.ErrOutOfStock
	}

	existing, err := uc.subs.FindByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	for _, s := range existing {
		if s.ProductID == product.ID {
			return nil, domain.ErrAlreadyExists
		}
	}
	return uc.create(ctx, userID, product, "test", uc.testTrafficGB, uc.testDuration, 0)
}

func (uc *subscriptionUC) Renew(ctx context.Context, subID uuid.UUID, trafficGB float64, duration time.Duration) error {
	if trafficGB <= 0 || duration <= 0 {
		return domain.ErrInvalidArgument
	}
	sub, err := uc.subs.FindByID(ctx, repository.NoTX, subID)
	if err != nil {
		return err
	}

	base := time.Now()
	if sub.ExpiryTime.After(base) {
		base = sub.ExpiryTime
	}
	sub.Traffic += trafficGB
	sub.ExpiryTime = base.Add(duration)
	sub.Active = true
	if sub.Usage < 0.9*sub.Traffic {
		sub.QuotaWarned = false
	}
	if err := uc.subs.Save(ctx, repository.NoTX, sub); err != nil {
		return err
	}
	return uc.enqueueAccounts(ctx, sub)
}

func (uc *subscriptionUC) ListByUser(ctx context.Context, userID int64) ([]*model.Subscription, error) {
	return uc.subs.FindByUser(ctx, repository.NoTX, userID)
}

func (uc *subscriptionUC) FindByToken(ctx context.Context, token string) (*model.Subscription, error) {
	id, err := model.SubscriptionIDFromToken(token)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return uc.subs.FindByID(ctx, repository.NoTX, id)
}

func (uc *subscriptionUC) Links(ctx context.Context, subID uuid.UUID) ([]string, error) {
	sub, err := uc.subs.FindByID(ctx, repository.NoTX, subID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sub.Servers))
	for serverID := range sub.Servers {
		server, err := uc.servers.FindByID(ctx, repository.NoTX, serverID)
		if err != nil {
			uc.log.Warn().Str("server_id", serverID).Err(err).Msg("link skipped, server missing")
			continue
		}
		remark := fmt.Sprintf("%s-%s", sub.Name, server.Name)
		link, err := uc.links.ClientLink(ctx, server, sub.ID.String(), remark)
		if err != nil {
			uc.log.Warn().Str("server_id", serverID).Err(err).Msg("link skipped, panel error")
			continue
		}
		out = append(out, link)
	}
	return out, nil
}
