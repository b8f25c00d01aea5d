package booking

import (
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   BookingID
	ListingID   listings.ListingID
	GuestID     string
	Range       daterange.DateRange
	GuestsCount int
	QuotedTotal money.Money
	At          time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingAccepted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingAccepted) EventName() string     { return "booking.accepted" }
func (e BookingAccepted) AggregateID() string   { return string(e.BookingID) }
func (e BookingAccepted) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID   BookingID
	ListingID   listings.ListingID
	CancelledBy string
	Reason      string
	At          time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingExpired struct {
	BookingID BookingID
	GuestID   string
	HostID    string
	At        time.Time
}

func (e BookingExpired) EventName() string     { return "booking.expired" }
func (e BookingExpired) AggregateID() string   { return string(e.BookingID) }
func (e BookingExpired) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID     BookingID
	ListingID     listings.ListingID
	GuestID       string
	Amount        money.Money
	TransactionID string
	At            time.Time
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

type ExtraPaymentSettled struct {
	BookingID     BookingID
	Amount        money.Money
	TransactionID string
	At            time.Time
}

func (e ExtraPaymentSettled) EventName() string     { return "booking.extra_payment_settled" }
func (e ExtraPaymentSettled) AggregateID() string   { return string(e.BookingID) }
func (e ExtraPaymentSettled) OccurredAt() time.Time { return e.At }

type CheckInCompleted struct {
	BookingID BookingID
	At        time.Time
}

func (e CheckInCompleted) EventName() string     { return "booking.checkin_completed" }
func (e CheckInCompleted) AggregateID() string   { return string(e.BookingID) }
func (e CheckInCompleted) OccurredAt() time.Time { return e.At }

type CheckOutCompleted struct {
	BookingID BookingID
	HostID    string
	At        time.Time
}

func (e CheckOutCompleted) EventName() string     { return "booking.checkout_completed" }
func (e CheckOutCompleted) AggregateID() string   { return string(e.BookingID) }
func (e CheckOutCompleted) OccurredAt() time.Time { return e.At }

type DateChangeRequested struct {
	BookingID BookingID
	HostID    string
	Requested daterange.DateRange
	At        time.Time
}

func (e DateChangeRequested) EventName() string     { return "booking.date_change_requested" }
func (e DateChangeRequested) AggregateID() string   { return string(e.BookingID) }
func (e DateChangeRequested) OccurredAt() time.Time { return e.At }

type DateChangeAccepted struct {
	BookingID   BookingID
	GuestID     string
	Range       daterange.DateRange
	NewTotal    money.Money
	ExtraAmount money.Money
	ExtraStatus ExtraPaymentStatus
	At          time.Time
}

func (e DateChangeAccepted) EventName() string     { return "booking.date_change_accepted" }
func (e DateChangeAccepted) AggregateID() string   { return string(e.BookingID) }
func (e DateChangeAccepted) OccurredAt() time.Time { return e.At }

type DateChangeRejected struct {
	BookingID BookingID
	GuestID   string
	At        time.Time
}

func (e DateChangeRejected) EventName() string     { return "booking.date_change_rejected" }
func (e DateChangeRejected) AggregateID() string   { return string(e.BookingID) }
func (e DateChangeRejected) OccurredAt() time.Time { return e.At }

type RefundRequested struct {
	BookingID BookingID
	GuestID   string
	Amount    money.Money
	At        time.Time
}

func (e RefundRequested) EventName() string     { return "booking.refund_requested" }
func (e RefundRequested) AggregateID() string   { return string(e.BookingID) }
func (e RefundRequested) OccurredAt() time.Time { return e.At }
