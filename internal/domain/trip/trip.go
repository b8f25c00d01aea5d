package trip

import (
	"context"
	"errors"
	"time"

	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/money"
)

var (
	ErrTripNotFound       = errors.New("trip: not found")
	ErrNotEnoughSeats     = errors.New("trip: not enough seats available")
	ErrInvalidSeats       = errors.New("trip: seats must be positive")
	ErrPassengerNotFound  = errors.New("trip: passenger not found")
	ErrPassengerFinalized = errors.New("trip: passenger already finalized")
)

type TripID string

type PassengerStatus string

const (
	PassengerReserved  PassengerStatus = "RESERVED"
	PassengerConfirmed PassengerStatus = "CONFIRMED"
	PassengerCancelled PassengerStatus = "CANCELLED"
)

type Passenger struct {
	UserID    string
	BookingID string
	Seats     int
	Status    PassengerStatus
	JoinedAt  time.Time
}

// Trip is a ride offering with fixed seat capacity, optionally linked to
// stay bookings for combined orders.
type Trip struct {
	ID          TripID
	DriverID    string
	Origin      string
	Destination string
	DepartsAt   time.Time
	TotalSeats  int
	FarePerSeat money.Money
	Passengers  []Passenger
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id TripID) (*Trip, error)
	Save(ctx context.Context, trip *Trip) error
}

// SeatsAvailable counts capacity left after non-cancelled passengers.
func (t *Trip) SeatsAvailable() int {
	taken := 0
	for _, p := range t.Passengers {
		if p.Status != PassengerCancelled {
			taken += p.Seats
		}
	}
	return t.TotalSeats - taken
}

// ReserveSeats allocates seats for a booking. The sum of active seats can
// never exceed TotalSeats.
func (t *Trip) ReserveSeats(userID, bookingID string, seats int, now time.Time) error {
	if seats <= 0 {
		return ErrInvalidSeats
	}
	if seats > t.SeatsAvailable() {
		return ErrNotEnoughSeats
	}
	t.Passengers = append(t.Passengers, Passenger{
		UserID:    userID,
		BookingID: bookingID,
		Seats:     seats,
		Status:    PassengerReserved,
		JoinedAt:  now.UTC(),
	})
	t.UpdatedAt = now.UTC()
	t.Record(SeatsReserved{TripID: t.ID, BookingID: bookingID, Seats: seats, At: t.UpdatedAt})
	return nil
}

// ConfirmPassenger marks the reservation paid-for.
func (t *Trip) ConfirmPassenger(bookingID string, now time.Time) error {
	p := t.passenger(bookingID)
	if p == nil {
		return ErrPassengerNotFound
	}
	if p.Status == PassengerConfirmed {
		return nil // payment callback retry
	}
	if p.Status == PassengerCancelled {
		return ErrPassengerFinalized
	}
	p.Status = PassengerConfirmed
	t.UpdatedAt = now.UTC()
	t.Record(PassengerConfirmedEvent{TripID: t.ID, BookingID: bookingID, At: t.UpdatedAt})
	return nil
}

// CancelPassenger frees the seats held by a booking.
func (t *Trip) CancelPassenger(bookingID string, now time.Time) error {
	p := t.passenger(bookingID)
	if p == nil {
		return ErrPassengerNotFound
	}
	if p.Status == PassengerCancelled {
		return nil
	}
	p.Status = PassengerCancelled
	t.UpdatedAt = now.UTC()
	t.Record(PassengerCancelledEvent{TripID: t.ID, BookingID: bookingID, Seats: p.Seats, At: t.UpdatedAt})
	return nil
}

func (t *Trip) passenger(bookingID string) *Passenger {
	for i := range t.Passengers {
		if t.Passengers[i].BookingID == bookingID {
			return &t.Passengers[i]
		}
	}
	return nil
}
