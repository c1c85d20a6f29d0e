package model

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"telegram-proxy-subscription/internal/domain"
)

// gigabyte is the unit every traffic figure in the system is stored in.
const gigabyte = float64(1 << 30)

func BytesToGB(n int64) float64 { return float64(n) / gigabyte }

func GBToBytes(gb float64) int64 { return int64(gb * gigabyte) }

// ServerEntry is a subscription's footprint on one remote server: the email
// identifying the client account on the panel and the usage (GB) attributed
// to that server so far.
type ServerEntry struct {
	RemoteEmail string
	Usage       float64
}

// Subscription is a provisioned, metered, time- and traffic-bounded access
// grant tied to one or more remote servers. The subscription id doubles as
// the client account id on every panel it is provisioned to.
//
// Usage is monotonically non-decreasing while Active; the per-server entries
// track it but may lag by at most one metering interval. Subscriptions are
// never deleted, only deactivated.
type Subscription struct {
	ID          uuid.UUID
	UserID      int64
	ProductID   string
	Name        string
	Active      bool
	Pause       bool
	ExpiryTime  time.Time
	Traffic     float64 // quota, GB
	Usage       float64 // consumed, GB
	QuotaWarned bool    // low-balance notification already sent
	CreatedAt   time.Time

	Servers map[string]ServerEntry // server id -> entry
}

func NewSubscription(userID int64, productID, name string, trafficGB float64, duration time.Duration) (*Subscription, error) {
	if userID == 0 || productID == "" || trafficGB <= 0 || duration <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:         uuid.New(),
		UserID:     userID,
		ProductID:  productID,
		Name:       name,
		Active:     true,
		ExpiryTime: now.Add(duration),
		Traffic:    trafficGB,
		CreatedAt:  now,
		Servers:    make(map[string]ServerEntry),
	}, nil
}

func (s *Subscription) RemainingSeconds() float64 {
	rem := time.Until(s.ExpiryTime).Seconds()
	if rem < 0 {
		return 0
	}
	return rem
}

func (s *Subscription) RemainingTraffic() float64 {
	rem := s.Traffic - s.Usage
	if rem < 0 {
		return 0
	}
	return rem
}

func (s *Subscription) Expired(now time.Time) bool { return !s.ExpiryTime.After(now) }

func (s *Subscription) OverQuota() bool { return s.Usage > s.Traffic }

// Token is the URL-safe form of the subscription id used in config links.
func (s *Subscription) Token() string {
	return base64.RawURLEncoding.EncodeToString(s.ID[:])
}

// SubscriptionIDFromToken reverses Token.
func SubscriptionIDFromToken(token string) (uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) != 16 {
		return uuid.Nil, domain.ErrInvalidArgument
	}
	return uuid.FromBytes(b)
}
