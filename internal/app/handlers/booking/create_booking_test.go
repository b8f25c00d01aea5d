package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/outbox"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	"stayride/internal/domain/shared/fault"
	"stayride/internal/domain/shared/money"
	domaintrip "stayride/internal/domain/trip"
	"stayride/internal/infra/storage/memory"
)

func newBookingWorld(t *testing.T) (memory.Factory, *RequestBookingHandler) {
	t.Helper()
	factory := memory.NewFactory()
	now := time.Now().UTC()

	listing, err := domainlistings.New("lst-1", "host-1", "Hilltop cabin", money.Must(120000, "BDT"), 4, now)
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(context.Background(), listing))

	handler := &RequestBookingHandler{
		UoWFactory: factory,
		Outbox:     memory.NewOutbox(),
		Encoder:    outbox.JSONEventEncoder{},
	}
	return factory, handler
}

func TestRequestBookingQuotesTotal(t *testing.T) {
	_, handler := newBookingWorld(t)
	now := time.Now().UTC()

	res, err := handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bkg-1",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   now.Add(72 * time.Hour),
		CheckOut:  now.Add(120 * time.Hour),
		Guests:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, "bkg-1", res.BookingID)
	assert.Equal(t, 2, res.Nights)
	assert.Equal(t, int64(240000), res.Total)
	assert.Equal(t, "BDT", res.Currency)
}

func TestRequestBookingRejectsOverlap(t *testing.T) {
	_, handler := newBookingWorld(t)
	now := time.Now().UTC()
	ctx := context.Background()

	first := RequestBookingCommand{
		CommandID: "bkg-1",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   now.Add(72 * time.Hour),
		CheckOut:  now.Add(168 * time.Hour),
		Guests:    2,
	}
	_, err := handler.Handle(ctx, first)
	require.NoError(t, err)

	second := first
	second.CommandID = "bkg-2"
	second.GuestID = "guest-2"
	second.CheckIn = now.Add(120 * time.Hour)
	second.CheckOut = now.Add(216 * time.Hour)
	_, err = handler.Handle(ctx, second)
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	// back-to-back with the first stay is allowed
	third := first
	third.CommandID = "bkg-3"
	third.GuestID = "guest-3"
	third.CheckIn = now.Add(168 * time.Hour)
	third.CheckOut = now.Add(216 * time.Hour)
	_, err = handler.Handle(ctx, third)
	assert.NoError(t, err)
}

func TestRequestBookingTakesCalendarLock(t *testing.T) {
	factory, handler := newBookingWorld(t)
	now := time.Now().UTC()
	ctx := context.Background()

	cmd := RequestBookingCommand{
		CommandID: "bkg-1",
		ListingID: "lst-1",
		GuestID:   "guest-1",
		CheckIn:   now.Add(72 * time.Hour),
		CheckOut:  now.Add(120 * time.Hour),
		Guests:    2,
	}
	_, err := handler.Handle(ctx, cmd)
	require.NoError(t, err)

	// every create serializes on the listing's calendar lock before the
	// overlap check, so concurrent transactions collide instead of both
	// committing against a stale snapshot
	repo := factory.BookingsRepo.(*memory.BookingRepository)
	assert.Equal(t, int64(1), repo.CalendarLockVersion("lst-1"))

	cmd.CommandID = "bkg-2"
	cmd.GuestID = "guest-2"
	cmd.CheckIn = now.Add(120 * time.Hour)
	cmd.CheckOut = now.Add(168 * time.Hour)
	_, err = handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.CalendarLockVersion("lst-1"))
}

func TestRequestBookingUnknownListing(t *testing.T) {
	_, handler := newBookingWorld(t)
	now := time.Now().UTC()

	_, err := handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bkg-1",
		ListingID: "lst-missing",
		GuestID:   "guest-1",
		CheckIn:   now.Add(72 * time.Hour),
		CheckOut:  now.Add(120 * time.Hour),
		Guests:    2,
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestRequestBookingReservesTripSeats(t *testing.T) {
	factory, handler := newBookingWorld(t)
	now := time.Now().UTC()
	ctx := context.Background()

	trip := &domaintrip.Trip{
		ID:          "trp-1",
		DriverID:    "driver-1",
		TotalSeats:  4,
		FarePerSeat: money.Must(50000, "BDT"),
		CreatedAt:   now,
	}
	require.NoError(t, trip.ReserveSeats("guest-0", "bkg-0", 3, now))
	trip.ClearEvents()
	require.NoError(t, factory.TripsRepo.Save(ctx, trip))

	cmd := RequestBookingCommand{
		CommandID: "bkg-1",
		ListingID: "lst-1",
		TripID:    "trp-1",
		GuestID:   "guest-1",
		CheckIn:   now.Add(72 * time.Hour),
		CheckOut:  now.Add(120 * time.Hour),
		Guests:    2,
	}
	_, err := handler.Handle(ctx, cmd)
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))

	cmd.Guests = 1
	_, err = handler.Handle(ctx, cmd)
	require.NoError(t, err)

	stored, err := factory.TripsRepo.ByID(ctx, "trp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.SeatsAvailable())

	b, err := factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, b.Status)
	assert.Equal(t, domaintrip.TripID("trp-1"), b.TripID)
}
