package booking

import (
	"context"
	"errors"
	"time"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/events"
	"stayride/internal/domain/shared/money"
	"stayride/internal/domain/trip"
)

var (
	ErrInvalidGuests         = errors.New("booking: guests count must be positive")
	ErrTooManyGuests         = errors.New("booking: guests exceed listing capacity")
	ErrInvalidState          = errors.New("booking: invalid state transition")
	ErrBookingNotFound       = errors.New("booking: not found")
	ErrCheckInInPast         = errors.New("booking: check-in date is in the past")
	ErrCheckInTooEarly       = errors.New("booking: stay has not started yet")
	ErrCheckOutTooEarly      = errors.New("booking: stay has not ended yet")
	ErrAlreadyCheckedIn      = errors.New("booking: already checked in")
	ErrNotCheckedIn          = errors.New("booking: guest has not checked in")
	ErrAlreadyCheckedOut     = errors.New("booking: already checked out")
	ErrModificationOpen      = errors.New("booking: a modification request is already open")
	ErrNoModificationOpen    = errors.New("booking: no modification request open")
	ErrModificationForbidden = errors.New("booking: booking not eligible for modification")
	ErrRefundNotPending      = errors.New("booking: no refund pending")
	ErrRefundAlreadyClaimed  = errors.New("booking: refund already claimed")
	ErrNoTransaction         = errors.New("booking: no transaction initiated")
)

// PendingExpiry is how long an unpaid pending booking survives before the
// sweep marks it expired.
const PendingExpiry = 72 * time.Hour

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// PaymentStatus is an independent axis from the lifecycle status: a booking
// can be CONFIRMED and PARTIAL at the same time.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

type ExtraPaymentStatus string

const (
	ExtraNotRequired     ExtraPaymentStatus = "NOT_REQUIRED"
	ExtraPending         ExtraPaymentStatus = "PENDING"
	ExtraPaid            ExtraPaymentStatus = "PAID"
	ExtraRefundPending   ExtraPaymentStatus = "REFUND_PENDING"
	ExtraRefundRequested ExtraPaymentStatus = "REFUND_REQUESTED"
)

// ExtraPayment tracks money movement caused by an accepted date change.
// A negative Amount means a refund is owed to the guest.
type ExtraPayment struct {
	Required      bool
	Amount        money.Money
	Status        ExtraPaymentStatus
	TransactionID string
	Claimed       bool
}

type ModificationStatus string

const (
	ModificationNone      ModificationStatus = "NONE"
	ModificationRequested ModificationStatus = "REQUESTED"
	ModificationAccepted  ModificationStatus = "ACCEPTED"
	ModificationRejected  ModificationStatus = "REJECTED"
)

type ModificationRequest struct {
	Status      ModificationStatus
	Requested   daterange.DateRange
	RequestedBy string
	RequestedAt time.Time
}

type Booking struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	HostID    string
	TripID    trip.TripID
	Range     daterange.DateRange
	Guests    int

	Nightly    money.Money
	Total      money.Money
	PaidAmount money.Money

	Status        Status
	PaymentStatus PaymentStatus
	TransactionID string
	ValidationID  string
	PaidAt        time.Time

	Extra        ExtraPayment
	Modification ModificationRequest

	CheckInAt        time.Time
	CheckOutAt       time.Time
	PayoutIssued     bool
	ReferralRewarded bool

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// ByTransactionID matches the primary transaction id or the extra
	// payment one; gateway callbacks carry no booking id.
	ByTransactionID(ctx context.Context, transactionID string) (*Booking, error)
	// ActiveOverlapping returns non-cancelled bookings on the listing whose
	// range overlaps r, excluding the given booking id when set.
	ActiveOverlapping(ctx context.Context, listingID listings.ListingID, r daterange.DateRange, exclude BookingID) ([]*Booking, error)
	// LockCalendar serializes calendar writes on one listing within the
	// caller's unit of work. Concurrent units touching the same listing
	// conflict on the lock, so at most one check-then-insert commits.
	LockCalendar(ctx context.Context, listingID listings.ListingID) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*Booking, error)
	ListRefundPending(ctx context.Context) ([]*Booking, error)
	Save(ctx context.Context, booking *Booking) error
}

type CreateParams struct {
	ID        BookingID
	Listing   *listings.Listing
	GuestID   string
	TripID    trip.TripID
	Range     daterange.DateRange
	Guests    int
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, errors.New("booking: guest id required")
	}
	if params.Listing == nil {
		return nil, listings.ErrListingNotFound
	}
	if params.Guests > params.Listing.MaxGuests {
		return nil, ErrTooManyGuests
	}
	now := params.CreatedAt.UTC()
	if err := validateCheckInNotPast(params.Range, now); err != nil {
		return nil, err
	}
	nights := params.Range.Nights()
	total := params.Listing.NightlyRate.Multiply(int64(nights))
	b := &Booking{
		ID:            params.ID,
		ListingID:     params.Listing.ID,
		GuestID:       params.GuestID,
		HostID:        params.Listing.HostID,
		TripID:        params.TripID,
		Range:         params.Range,
		Guests:        params.Guests,
		Nightly:       params.Listing.NightlyRate,
		Total:         total,
		PaidAmount:    money.Money{Amount: 0, Currency: total.Currency},
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Extra:         ExtraPayment{Status: ExtraNotRequired},
		Modification:  ModificationRequest{Status: ModificationNone},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, GuestsCount: b.Guests, QuotedTotal: b.Total, At: now})
	return b, nil
}

func validateCheckInNotPast(dr daterange.DateRange, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(dr.CheckIn.Year(), dr.CheckIn.Month(), dr.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	if checkIn.Before(today) {
		return ErrCheckInInPast
	}
	return nil
}

// Accept moves a pending booking to confirmed without touching the payment axis.
func (b *Booking) Accept(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.touch(now)
	b.Record(BookingAccepted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// Cancel is allowed from any non-terminal state.
func (b *Booking) Cancel(by, reason string, now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.touch(now)
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, CancelledBy: by, Reason: reason, At: b.UpdatedAt})
	return nil
}

// CanExpire reports whether the expiry sweep should pick this booking up.
func (b *Booking) CanExpire(now time.Time) bool {
	return b.Status == StatusPending &&
		b.PaymentStatus == PaymentUnpaid &&
		now.UTC().Sub(b.CreatedAt) >= PendingExpiry
}

func (b *Booking) Expire(now time.Time) error {
	if !b.CanExpire(now) {
		return ErrInvalidState
	}
	b.Status = StatusExpired
	b.touch(now)
	b.Record(BookingExpired{BookingID: b.ID, GuestID: b.GuestID, HostID: b.HostID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) CheckIn(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if !b.CheckInAt.IsZero() {
		return ErrAlreadyCheckedIn
	}
	if now.UTC().Before(b.Range.CheckIn) {
		return ErrCheckInTooEarly
	}
	b.CheckInAt = now.UTC()
	b.touch(now)
	b.Record(CheckInCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) CheckOut(now time.Time) error {
	if b.CheckInAt.IsZero() {
		return ErrNotCheckedIn
	}
	if !b.CheckOutAt.IsZero() {
		return ErrAlreadyCheckedOut
	}
	if now.UTC().Before(b.Range.CheckOut) {
		return ErrCheckOutTooEarly
	}
	b.CheckOutAt = now.UTC()
	b.touch(now)
	b.Record(CheckOutCompleted{BookingID: b.ID, HostID: b.HostID, At: b.UpdatedAt})
	return nil
}

// BeginPayment stamps the booking with a transaction id before the gateway
// redirect. Calling it again replaces a still-pending transaction instead of
// creating a parallel one.
func (b *Booking) BeginPayment(transactionID string, now time.Time) error {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	switch b.PaymentStatus {
	case PaymentUnpaid, PaymentPending:
	default:
		return ErrInvalidState
	}
	b.TransactionID = transactionID
	b.PaymentStatus = PaymentPending
	b.touch(now)
	return nil
}

// ApplyPaymentSuccess settles the primary charge. The boolean result is false
// when the callback is a duplicate and nothing changed.
func (b *Booking) ApplyPaymentSuccess(amount money.Money, validationID string, now time.Time) (bool, error) {
	if b.Status == StatusCancelled || b.Status == StatusExpired {
		return false, ErrInvalidState
	}
	if amount.Amount <= 0 {
		// The server-to-server notification does not always carry the
		// amount; settle against the quoted total rather than recording a
		// zero payment.
		amount = b.Total
	}
	if b.PaymentStatus == PaymentPaid {
		if b.PaidAmount.Amount > 0 {
			// Gateway retried the callback; keep the stronger record.
			return false, nil
		}
		// An earlier delivery settled without an amount; adopt the real one
		// so reconciliation has the gross actually paid.
		b.PaidAmount = amount
		if validationID != "" {
			b.ValidationID = validationID
		}
		b.touch(now)
		return true, nil
	}
	b.PaidAmount = amount
	b.PaymentStatus = PaymentPaid
	b.Status = StatusConfirmed
	if validationID != "" {
		b.ValidationID = validationID
	}
	b.PaidAt = now.UTC()
	b.touch(now)
	b.Record(BookingPaid{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Amount: amount, TransactionID: b.TransactionID, At: b.UpdatedAt})
	return true, nil
}

// BeginExtraPayment stamps the extra-payment transaction id.
func (b *Booking) BeginExtraPayment(transactionID string, now time.Time) error {
	if b.Extra.Status != ExtraPending {
		return ErrInvalidState
	}
	b.Extra.TransactionID = transactionID
	b.touch(now)
	return nil
}

// ApplyExtraPaymentSuccess settles the top-up charge after an accepted
// modification. Idempotent on retry.
func (b *Booking) ApplyExtraPaymentSuccess(amount money.Money, now time.Time) (bool, error) {
	if b.Extra.Status == ExtraPaid {
		return false, nil
	}
	if b.Extra.Status != ExtraPending {
		return false, ErrInvalidState
	}
	if amount.Amount <= 0 {
		// Same weak-notification rule as the primary charge: fall back to
		// the delta the modification computed.
		amount = b.Extra.Amount
	}
	paid, err := b.PaidAmount.Add(amount)
	if err != nil {
		return false, err
	}
	b.PaidAmount = paid
	b.Extra.Status = ExtraPaid
	b.PaymentStatus = PaymentPaid
	b.touch(now)
	b.Record(ExtraPaymentSettled{BookingID: b.ID, Amount: amount, TransactionID: b.Extra.TransactionID, At: b.UpdatedAt})
	return true, nil
}

// RequestModification opens a date-change request. Only confirmed bookings
// with money already moved and no started stay qualify.
func (b *Booking) RequestModification(by string, r daterange.DateRange, now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrModificationForbidden
	}
	if b.PaymentStatus != PaymentPaid && b.PaymentStatus != PaymentPartial {
		return ErrModificationForbidden
	}
	if !b.CheckInAt.IsZero() {
		return ErrModificationForbidden
	}
	if b.Modification.Status == ModificationRequested {
		return ErrModificationOpen
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b.Modification = ModificationRequest{
		Status:      ModificationRequested,
		Requested:   r,
		RequestedBy: by,
		RequestedAt: now.UTC(),
	}
	b.touch(now)
	b.Record(DateChangeRequested{BookingID: b.ID, HostID: b.HostID, Requested: r, At: b.UpdatedAt})
	return nil
}

func (b *Booking) RejectModification(now time.Time) error {
	if b.Modification.Status != ModificationRequested {
		return ErrNoModificationOpen
	}
	b.Modification.Status = ModificationRejected
	b.touch(now)
	b.Record(DateChangeRejected{BookingID: b.ID, GuestID: b.GuestID, At: b.UpdatedAt})
	return nil
}

// AcceptModification overwrites the stay dates and reconciles the already
// paid amount against the recomputed total. Availability must have been
// re-checked by the caller inside the same unit of work.
func (b *Booking) AcceptModification(now time.Time) (ExtraPayment, error) {
	if b.Modification.Status != ModificationRequested {
		return ExtraPayment{}, ErrNoModificationOpen
	}
	newRange := b.Modification.Requested
	newTotal := b.Nightly.Multiply(int64(newRange.Nights()))
	delta, err := newTotal.Sub(b.PaidAmount)
	if err != nil {
		return ExtraPayment{}, err
	}

	b.Range = newRange
	b.Total = newTotal
	b.Modification.Status = ModificationAccepted

	switch {
	case delta.Amount > 0:
		b.Extra = ExtraPayment{Required: true, Amount: delta, Status: ExtraPending}
		b.PaymentStatus = PaymentPartial
	case delta.Amount < 0:
		b.Extra = ExtraPayment{Required: false, Amount: delta, Status: ExtraRefundPending}
	default:
		b.Extra = ExtraPayment{Required: false, Amount: delta, Status: ExtraNotRequired}
	}
	b.touch(now)
	b.Record(DateChangeAccepted{BookingID: b.ID, GuestID: b.GuestID, Range: newRange, NewTotal: newTotal, ExtraAmount: delta, ExtraStatus: b.Extra.Status, At: b.UpdatedAt})
	return b.Extra, nil
}

// ClaimRefund flags a pending refund for manual transfer. An operator
// resolves it outside the engine.
func (b *Booking) ClaimRefund(now time.Time) error {
	if b.Extra.Status != ExtraRefundPending {
		return ErrRefundNotPending
	}
	if b.Extra.Claimed {
		return ErrRefundAlreadyClaimed
	}
	b.Extra.Status = ExtraRefundRequested
	b.Extra.Claimed = true
	b.touch(now)
	b.Record(RefundRequested{BookingID: b.ID, GuestID: b.GuestID, Amount: b.Extra.Amount, At: b.UpdatedAt})
	return nil
}

// MarkPayoutIssued is a check-and-set guard so retried payment callbacks
// cannot create a second payout. Returns false when already issued.
func (b *Booking) MarkPayoutIssued() bool {
	if b.PayoutIssued {
		return false
	}
	b.PayoutIssued = true
	return true
}

// MarkReferralRewarded guards the one-off referrer reward the same way.
func (b *Booking) MarkReferralRewarded() bool {
	if b.ReferralRewarded {
		return false
	}
	b.ReferralRewarded = true
	return true
}

func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled && b.Status != StatusExpired
}

func (b *Booking) touch(now time.Time) {
	b.UpdatedAt = now.UTC()
}
