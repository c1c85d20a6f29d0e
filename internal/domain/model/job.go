package model

import "time"

// ClientAccount is the payload pushed to a panel when provisioning. The ID is
// the subscription id, so duplicate adds are deduplicated by the panel itself.
type ClientAccount struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Enable     bool   `json:"enable"`
	TotalBytes int64  `json:"totalGB"`     // panel field name, value is bytes
	ExpiryMs   int64  `json:"expiryTime"`  // unix millis
	TelegramID string `json:"tgId"`
	SubID      string `json:"subId"`
}

func NewClientAccount(id, email string, trafficGB float64, remaining time.Duration) ClientAccount {
	return ClientAccount{
		ID:         id,
		Email:      email,
		Enable:     true,
		TotalBytes: GBToBytes(trafficGB),
		ExpiryMs:   time.Now().Add(remaining).UnixMilli(),
	}
}

// AddClientJob asks the provisioning worker to push one account to one server.
type AddClientJob struct {
	Account  ClientAccount `json:"account"`
	ServerID string        `json:"server_id"`
}

// DeleteClientJob asks the deprovisioning worker to remove one account from
// one server. AccountID is the subscription id string.
type DeleteClientJob struct {
	AccountID string `json:"account_id"`
	ServerID  string `json:"server_id"`
}

// NotificationJob is consumed by the notification worker and delivered
// through the Telegram adapter.
type NotificationJob struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}
