package uow

import (
	"context"

	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	domainreferral "stayride/internal/domain/referral"
	domaintrip "stayride/internal/domain/trip"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Every
// booking mutation runs through one so the availability check and the write
// land in the same transaction.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Bookings() domainbooking.Repository
	Trips() domaintrip.Repository
	Payouts() domainpayout.Repository
	Referrals() domainreferral.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
