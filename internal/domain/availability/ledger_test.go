package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/trip"
)

var now = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(day(in), day(out))
	require.NoError(t, err)
	return dr
}

func fixtureListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.New("lst-1", "host-1", "City loft", money.Must(80000, "BDT"), 3, now)
	require.NoError(t, err)
	return l
}

func fixtureBooking(t *testing.T, id string, in, out int) *booking.Booking {
	t.Helper()
	b, err := booking.NewBooking(booking.CreateParams{
		ID:        booking.BookingID(id),
		Listing:   fixtureListing(t),
		GuestID:   "guest-1",
		Range:     mustRange(t, in, out),
		Guests:    2,
		CreatedAt: now,
	})
	require.NoError(t, err)
	return b
}

func TestCanBookRejectsOverlap(t *testing.T) {
	ledger := Ledger{}
	l := fixtureListing(t)
	active := []*booking.Booking{fixtureBooking(t, "bkg-1", 10, 14)}

	assert.ErrorIs(t, ledger.CanBook(l, active, mustRange(t, 12, 16), ""), ErrDatesTaken)
	assert.NoError(t, ledger.CanBook(l, active, mustRange(t, 14, 16), ""))
	assert.NoError(t, ledger.CanBook(l, active, mustRange(t, 5, 10), ""))
}

func TestCanBookSkipsExcludedAndInactive(t *testing.T) {
	ledger := Ledger{}
	l := fixtureListing(t)
	own := fixtureBooking(t, "bkg-1", 10, 14)
	cancelled := fixtureBooking(t, "bkg-2", 11, 13)
	require.NoError(t, cancelled.Cancel("guest-1", "", now))
	active := []*booking.Booking{own, cancelled}

	// re-checking its own dates during a modification must not self-conflict
	assert.NoError(t, ledger.CanBook(l, active, mustRange(t, 11, 15), "bkg-1"))
	assert.ErrorIs(t, ledger.CanBook(l, active, mustRange(t, 11, 15), ""), ErrDatesTaken)
}

func TestCanBookHonorsHostBlocks(t *testing.T) {
	ledger := Ledger{}
	l := fixtureListing(t)
	require.NoError(t, l.BlockRange(mustRange(t, 20, 25), now))

	assert.ErrorIs(t, ledger.CanBook(l, nil, mustRange(t, 22, 24), ""), ErrDatesBlocked)
	assert.NoError(t, ledger.CanBook(l, nil, mustRange(t, 25, 27), ""))
}

func TestCheckSeats(t *testing.T) {
	ledger := Ledger{}
	tr := &trip.Trip{
		ID:          "trp-1",
		DriverID:    "driver-1",
		TotalSeats:  4,
		FarePerSeat: money.Must(50000, "BDT"),
	}
	require.NoError(t, tr.ReserveSeats("guest-9", "bkg-9", 3, now))

	assert.NoError(t, ledger.CheckSeats(tr, 1))
	assert.ErrorIs(t, ledger.CheckSeats(tr, 2), ErrNotEnoughSeat)
	assert.ErrorIs(t, ledger.CheckSeats(tr, 0), trip.ErrInvalidSeats)
}
