package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/outbox"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/fees"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	domainreferral "stayride/internal/domain/referral"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
	domaintrip "stayride/internal/domain/trip"
	"stayride/internal/infra/storage/memory"
)

type settlementWorld struct {
	factory memory.Factory
	handler *PaymentSuccessHandler
	booking *domainbooking.Booking
}

func newSettlementWorld(t *testing.T, withTrip, withReferral bool) *settlementWorld {
	t.Helper()
	ctx := context.Background()
	factory := memory.NewFactory()
	now := time.Now().UTC()

	listing, err := domainlistings.New("lst-1", "host-1", "River house", money.Must(100000, "BDT"), 4, now)
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(ctx, listing))

	dr, err := daterange.New(now.Add(72*time.Hour), now.Add(144*time.Hour))
	require.NoError(t, err)

	params := domainbooking.CreateParams{
		ID:        "bkg-1",
		Listing:   listing,
		GuestID:   "guest-1",
		Range:     dr,
		Guests:    2,
		CreatedAt: now,
	}
	if withTrip {
		params.TripID = "trp-1"
		trip := &domaintrip.Trip{
			ID:          "trp-1",
			DriverID:    "driver-1",
			Origin:      "Dhaka",
			Destination: "Cox's Bazar",
			DepartsAt:   now.Add(72 * time.Hour),
			TotalSeats:  4,
			FarePerSeat: money.Must(50000, "BDT"),
			CreatedAt:   now,
		}
		require.NoError(t, trip.ReserveSeats("guest-1", "bkg-1", 2, now))
		trip.ClearEvents()
		require.NoError(t, factory.TripsRepo.Save(ctx, trip))
	}

	b, err := domainbooking.NewBooking(params)
	require.NoError(t, err)
	require.NoError(t, b.BeginPayment("tx-1", now))
	b.ClearEvents()
	require.NoError(t, factory.BookingsRepo.Save(ctx, b))

	if withReferral {
		require.NoError(t, factory.ReferralsRepo.Save(ctx, &domainreferral.Account{
			GuestID:    "guest-1",
			ReferrerID: "guest-0",
			CreatedAt:  now,
		}))
	}

	handler := &PaymentSuccessHandler{
		UoWFactory: factory,
		Fees:       fees.DefaultPolicy(),
		Outbox:     memory.NewOutbox(),
		Encoder:    outbox.JSONEventEncoder{},
	}
	return &settlementWorld{factory: factory, handler: handler, booking: b}
}

func TestPaymentSuccessSettlesAndIssuesHostPayout(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ctx := context.Background()

	res, err := w.handler.Handle(ctx, PaymentSuccessCommand{
		TransactionID: "tx-1",
		Amount:        w.booking.Total,
		ValidationID:  "val-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, string(domainbooking.StatusConfirmed), res.Status)
	assert.Equal(t, string(domainbooking.PaymentPaid), res.PaymentStatus)

	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.True(t, stored.PayoutIssued)
	assert.Equal(t, stored.Total.Amount, stored.PaidAmount.Amount)

	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	// 10/115 guest fee off the gross, 5% host fee on the remainder
	assert.Equal(t, int64(286304), payouts[0].Net.Amount)
	assert.Equal(t, "host-1", payouts[0].PayeeID)
}

func TestPaymentSuccessDuplicateCallbackIsHarmless(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ctx := context.Background()
	cmd := PaymentSuccessCommand{TransactionID: "tx-1", Amount: w.booking.Total, ValidationID: "val-1"}

	_, err := w.handler.Handle(ctx, cmd)
	require.NoError(t, err)

	res, err := w.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

func TestPaymentSuccessSplitsOverReportedGross(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ctx := context.Background()

	// gateway reports 2300.00 against a 3000.00 quote
	res, err := w.handler.Handle(ctx, PaymentSuccessCommand{
		TransactionID: "tx-1",
		Amount:        money.Must(230000, "BDT"),
		ValidationID:  "val-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(230000), payouts[0].Gross.Amount)
	assert.Equal(t, int64(219500), payouts[0].Net.Amount)
}

func TestWeakIPNSettlesQuotedTotalAndKeepsRealCallbackHarmless(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ipn := &GatewayIPNHandler{UoWFactory: w.factory, Success: w.handler}
	ctx := context.Background()

	// server notification arrives first and carries no amount
	res, err := ipn.Handle(ctx, GatewayIPNCommand{TransactionID: "tx-1", Status: "VALID", ValidationID: "val-1"})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, stored.Total.Amount, stored.PaidAmount.Amount)

	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, stored.Total.Amount, payouts[0].Gross.Amount)

	// the browser redirect with the full amount is a clean duplicate
	full, err := w.handler.Handle(ctx, PaymentSuccessCommand{TransactionID: "tx-1", Amount: stored.Total, ValidationID: "val-1"})
	require.NoError(t, err)
	assert.True(t, full.Duplicate)

	payouts, err = w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

func TestPaymentSuccessConfirmsLinkedTripAndPaysDriver(t *testing.T) {
	w := newSettlementWorld(t, true, false)
	ctx := context.Background()

	_, err := w.handler.Handle(ctx, PaymentSuccessCommand{TransactionID: "tx-1", Amount: w.booking.Total})
	require.NoError(t, err)

	trip, err := w.factory.TripsRepo.ByID(ctx, "trp-1")
	require.NoError(t, err)
	require.Len(t, trip.Passengers, 1)
	assert.Equal(t, domaintrip.PassengerConfirmed, trip.Passengers[0].Status)

	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleDriver)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	// 2 seats at 500.00 minus the 10% service fee
	assert.Equal(t, int64(90000), payouts[0].Net.Amount)
	assert.Equal(t, "driver-1", payouts[0].PayeeID)
}

func TestPaymentSuccessRewardsReferralOnce(t *testing.T) {
	w := newSettlementWorld(t, false, true)
	ctx := context.Background()
	cmd := PaymentSuccessCommand{TransactionID: "tx-1", Amount: w.booking.Total}

	_, err := w.handler.Handle(ctx, cmd)
	require.NoError(t, err)

	account, err := w.factory.ReferralsRepo.ByGuest(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, account.Rewarded)
	firstCode := account.PromoCode
	assert.NotEmpty(t, firstCode)

	_, err = w.handler.Handle(ctx, cmd)
	require.NoError(t, err)

	account, err = w.factory.ReferralsRepo.ByGuest(ctx, "guest-1")
	require.NoError(t, err)
	assert.Equal(t, firstCode, account.PromoCode)
}

func TestPaymentSuccessWithoutReferralAccount(t *testing.T) {
	w := newSettlementWorld(t, false, false)

	_, err := w.handler.Handle(context.Background(), PaymentSuccessCommand{TransactionID: "tx-1", Amount: w.booking.Total})
	require.NoError(t, err)
}

func TestPaymentSuccessUnknownTransaction(t *testing.T) {
	w := newSettlementWorld(t, false, false)

	_, err := w.handler.Handle(context.Background(), PaymentSuccessCommand{TransactionID: "tx-nope", Amount: w.booking.Total})
	assert.Error(t, err)
}

func TestIPNIgnoresFailedStatus(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ipn := &GatewayIPNHandler{UoWFactory: w.factory, Success: w.handler}
	ctx := context.Background()

	res, err := ipn.Handle(ctx, GatewayIPNCommand{TransactionID: "tx-1", Status: "FAILED"})
	require.NoError(t, err)
	assert.False(t, res.Applied)

	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PaymentPending, stored.PaymentStatus)
}

func TestIPNValidSettlesAndRetrysReportDuplicate(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ipn := &GatewayIPNHandler{UoWFactory: w.factory, Success: w.handler}
	ctx := context.Background()
	cmd := GatewayIPNCommand{TransactionID: "tx-1", Status: "VALID", Amount: w.booking.Total, ValidationID: "val-1"}

	res, err := ipn.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = ipn.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "already settled", res.Reason)
}

func TestExtraPaymentSettlementRoutesByTransaction(t *testing.T) {
	w := newSettlementWorld(t, false, false)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := w.handler.Handle(ctx, PaymentSuccessCommand{TransactionID: "tx-1", Amount: w.booking.Total})
	require.NoError(t, err)

	// guest extends the stay, host accepts, a top-up becomes due
	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	longer, err := daterange.New(stored.Range.CheckIn, stored.Range.CheckOut.Add(48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, stored.RequestModification("guest-1", longer, now))
	extra, err := stored.AcceptModification(now)
	require.NoError(t, err)
	require.NoError(t, stored.BeginExtraPayment("tx-2", now))
	stored.ClearEvents()
	require.NoError(t, w.factory.BookingsRepo.Save(ctx, stored))

	res, err := w.handler.Handle(ctx, PaymentSuccessCommand{TransactionID: "tx-2", Amount: extra.Amount})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, string(domainbooking.PaymentPaid), res.PaymentStatus)

	settled, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.ExtraPaid, settled.Extra.Status)
	assert.Equal(t, settled.Total.Amount, settled.PaidAmount.Amount)

	// the extra settlement never duplicates the host payout
	payouts, err := w.factory.PayoutsRepo.ListPending(ctx, domainpayout.RoleHost)
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}
