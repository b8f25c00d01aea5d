package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	domainreferral "stayride/internal/domain/referral"
	domaintrip "stayride/internal/domain/trip"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ListingsRepo  domainlistings.Repository
	BookingsRepo  domainbooking.Repository
	TripsRepo     domaintrip.Repository
	PayoutsRepo   domainpayout.Repository
	ReferralsRepo domainreferral.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:        f.DB,
		session:   session,
		listings:  f.ListingsRepo,
		bookings:  f.BookingsRepo,
		trips:     f.TripsRepo,
		payouts:   f.PayoutsRepo,
		referrals: f.ReferralsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
