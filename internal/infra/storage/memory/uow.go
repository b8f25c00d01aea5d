package memory

import (
	"context"
	"errors"

	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	domainreferral "stayride/internal/domain/referral"
	domaintrip "stayride/internal/domain/trip"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo  domainlistings.Repository
	BookingsRepo  domainbooking.Repository
	TripsRepo     domaintrip.Repository
	PayoutsRepo   domainpayout.Repository
	ReferralsRepo domainreferral.Repository
}

// NewFactory builds a fully wired in-memory factory.
func NewFactory() Factory {
	return Factory{
		ListingsRepo:  NewListingRepository(),
		BookingsRepo:  NewBookingRepository(),
		TripsRepo:     NewTripRepository(),
		PayoutsRepo:   NewPayoutRepository(),
		ReferralsRepo: NewReferralRepository(),
	}
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided but
// the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingsRepo == nil || f.TripsRepo == nil || f.PayoutsRepo == nil || f.ReferralsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		listings:  f.ListingsRepo,
		bookings:  f.BookingsRepo,
		trips:     f.TripsRepo,
		payouts:   f.PayoutsRepo,
		referrals: f.ReferralsRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	listings  domainlistings.Repository
	bookings  domainbooking.Repository
	trips     domaintrip.Repository
	payouts   domainpayout.Repository
	referrals domainreferral.Repository
}

func (u *Unit) Listings() domainlistings.Repository {
	return u.listings
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Trips() domaintrip.Repository {
	return u.trips
}

func (u *Unit) Payouts() domainpayout.Repository {
	return u.payouts
}

func (u *Unit) Referrals() domainreferral.Repository {
	return u.referrals
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
