package model

import "time"

type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

// User is keyed by Telegram id. Balance is whole IRT; credited atomically by
// the invoice reconciliation worker and debited on purchase.
type User struct {
	TelegramID   int64
	Role         UserRole
	Balance      int64
	RegisteredAt time.Time
}

func NewUser(telegramID int64) *User {
	return &User{
		TelegramID:   telegramID,
		Role:         UserRoleMember,
		RegisteredAt: time.Now(),
	}
}
