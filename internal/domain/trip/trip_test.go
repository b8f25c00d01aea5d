package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/shared/money"
)

var now = time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)

func fixtureTrip() *Trip {
	return &Trip{
		ID:          "trp-1",
		DriverID:    "driver-1",
		Origin:      "Dhaka",
		Destination: "Sylhet",
		DepartsAt:   now.Add(48 * time.Hour),
		TotalSeats:  4,
		FarePerSeat: money.Must(50000, "BDT"),
		CreatedAt:   now,
	}
}

func TestReserveSeatsEnforcesCapacity(t *testing.T) {
	tr := fixtureTrip()

	require.NoError(t, tr.ReserveSeats("guest-1", "bkg-1", 3, now))
	assert.Equal(t, 1, tr.SeatsAvailable())

	err := tr.ReserveSeats("guest-2", "bkg-2", 2, now)
	assert.ErrorIs(t, err, ErrNotEnoughSeats)
	assert.Equal(t, 1, tr.SeatsAvailable())

	require.NoError(t, tr.ReserveSeats("guest-2", "bkg-2", 1, now))
	assert.Equal(t, 0, tr.SeatsAvailable())
}

func TestReserveSeatsRejectsNonPositive(t *testing.T) {
	tr := fixtureTrip()
	assert.ErrorIs(t, tr.ReserveSeats("guest-1", "bkg-1", 0, now), ErrInvalidSeats)
}

func TestConfirmPassengerIdempotent(t *testing.T) {
	tr := fixtureTrip()
	require.NoError(t, tr.ReserveSeats("guest-1", "bkg-1", 2, now))

	require.NoError(t, tr.ConfirmPassenger("bkg-1", now))
	assert.Equal(t, PassengerConfirmed, tr.Passengers[0].Status)

	// payment callback retry
	require.NoError(t, tr.ConfirmPassenger("bkg-1", now))
	assert.ErrorIs(t, tr.ConfirmPassenger("bkg-9", now), ErrPassengerNotFound)
}

func TestCancelPassengerFreesSeats(t *testing.T) {
	tr := fixtureTrip()
	require.NoError(t, tr.ReserveSeats("guest-1", "bkg-1", 3, now))
	assert.Equal(t, 1, tr.SeatsAvailable())

	require.NoError(t, tr.CancelPassenger("bkg-1", now))
	assert.Equal(t, 4, tr.SeatsAvailable())

	// cancelling again is a no-op
	require.NoError(t, tr.CancelPassenger("bkg-1", now))
}

func TestConfirmCancelledPassengerFails(t *testing.T) {
	tr := fixtureTrip()
	require.NoError(t, tr.ReserveSeats("guest-1", "bkg-1", 1, now))
	require.NoError(t, tr.CancelPassenger("bkg-1", now))
	assert.ErrorIs(t, tr.ConfirmPassenger("bkg-1", now), ErrPassengerFinalized)
}
