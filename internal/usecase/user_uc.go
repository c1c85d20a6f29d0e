// File: internal/usecase/user_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// UserUseCase covers user registration and balance reads. Balance mutations
// go through purchases and the invoice reconciliation worker, never here.
type UserUseCase interface {
	// Register returns the existing user or creates a member record.
	Register(ctx context.Context, telegramID int64) (*model.User, error)
	Get(ctx context.Context, telegramID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

var _ UserUseCase = (*userUC)(nil)

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "UserUseCase").Logger()
	return &userUC{users: users, log: &l}
}

func (u *userUC) Register(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := u.users.FindByTelegramID(ctx, repository.NoTX, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	user = model.NewUser(telegramID)
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}
	u.log.Info().Int64("user_id", telegramID).Msg("registered user")
	return user, nil
}

func (u *userUC) Get(ctx context.Context, telegramID int64) (*model.User, error) {
	return u.users.FindByTelegramID(ctx, repository.NoTX, telegramID)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.users.CountUsers(ctx, repository.NoTX)
}
