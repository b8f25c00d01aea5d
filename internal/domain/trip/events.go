package trip

import "time"

type SeatsReserved struct {
	TripID    TripID
	BookingID string
	Seats     int
	At        time.Time
}

func (e SeatsReserved) EventName() string     { return "trip.seats_reserved" }
func (e SeatsReserved) AggregateID() string   { return string(e.TripID) }
func (e SeatsReserved) OccurredAt() time.Time { return e.At }

type PassengerConfirmedEvent struct {
	TripID    TripID
	BookingID string
	At        time.Time
}

func (e PassengerConfirmedEvent) EventName() string     { return "trip.passenger_confirmed" }
func (e PassengerConfirmedEvent) AggregateID() string   { return string(e.TripID) }
func (e PassengerConfirmedEvent) OccurredAt() time.Time { return e.At }

type PassengerCancelledEvent struct {
	TripID    TripID
	BookingID string
	Seats     int
	At        time.Time
}

func (e PassengerCancelledEvent) EventName() string     { return "trip.passenger_cancelled" }
func (e PassengerCancelledEvent) AggregateID() string   { return string(e.TripID) }
func (e PassengerCancelledEvent) OccurredAt() time.Time { return e.At }
