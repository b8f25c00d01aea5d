package referral

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("referral: account not found")
	ErrAlreadyRewarded = errors.New("referral: already rewarded")
)

// Account links a referred guest to their referrer. The reward fires once,
// on the guest's first paid booking.
type Account struct {
	GuestID    string
	ReferrerID string
	Rewarded   bool
	PromoCode  string
	RewardedAt time.Time
	CreatedAt  time.Time
}

type Repository interface {
	ByGuest(ctx context.Context, guestID string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}

// GrantReward is the check-and-set half of the exactly-once reward; callers
// persist the account in the same unit of work as the payment transition.
func (a *Account) GrantReward(promoCode string, now time.Time) error {
	if a.Rewarded {
		return ErrAlreadyRewarded
	}
	a.Rewarded = true
	a.PromoCode = promoCode
	a.RewardedAt = now.UTC()
	return nil
}
