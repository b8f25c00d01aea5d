package modification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/fault"
)

const (
	requestDateChangeKey = "modification.request"
	respondDateChangeKey = "modification.respond"
)

type RequestDateChangeCommand struct {
	BookingID string
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
}

func (c RequestDateChangeCommand) Key() string { return requestDateChangeKey }

func (c RequestDateChangeCommand) Validate() error {
	if c.BookingID == "" || c.GuestID == "" {
		return fault.Validation("date change request requires booking and guest ids")
	}
	return nil
}

type RequestDateChangeResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"modification_status"`
}

// RequestDateChangeHandler opens a date-change request on a paid booking.
// The new range is checked against availability right away so the guest
// learns about an obvious conflict before the host ever sees the request;
// the authoritative check re-runs when the host accepts.
type RequestDateChangeHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     domainavailability.Ledger
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *RequestDateChangeHandler) Handle(ctx context.Context, cmd RequestDateChangeCommand) (*RequestDateChangeResult, error) {
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.AsValidation(err)
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	execCtx := unit.Ctx

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, fault.AsNotFound(err)
	}
	if b.GuestID != cmd.GuestID {
		return nil, fault.Authorization("only the booking guest can request a date change")
	}

	if err := checkAvailability(execCtx, unit, h.Ledger, b, dr); err != nil {
		return nil, err
	}

	if err := b.RequestModification(cmd.GuestID, dr, time.Now()); err != nil {
		return nil, fault.AsConflict(err)
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Notifier != nil {
		data := map[string]any{"booking_id": b.ID, "check_in": dr.CheckIn, "check_out": dr.CheckOut}
		if err := h.Notifier.Send(ctx, b.HostID, "date_change_requested", data); err != nil && h.Logger != nil {
			h.Logger.Warn("date change notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &RequestDateChangeResult{BookingID: string(b.ID), Status: string(b.Modification.Status)}, nil
}

type RespondDateChangeCommand struct {
	BookingID string
	HostID    string
	Accept    bool
}

func (c RespondDateChangeCommand) Key() string { return respondDateChangeKey }

type RespondDateChangeResult struct {
	BookingID   string `json:"booking_id"`
	Status      string `json:"modification_status"`
	ExtraStatus string `json:"extra_payment_status"`
	ExtraAmount int64  `json:"extra_amount"`
	Currency    string `json:"currency,omitempty"`
}

// RespondDateChangeHandler records the host's decision. Acceptance re-checks
// availability inside the same unit of work before moving the dates: if a
// conflicting booking slipped in since the request, the response fails and
// the request stays open for the host to retry or reject.
type RespondDateChangeHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     domainavailability.Ledger
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *RespondDateChangeHandler) Handle(ctx context.Context, cmd RespondDateChangeCommand) (*RespondDateChangeResult, error) {
	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	execCtx := unit.Ctx

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, fault.AsNotFound(err)
	}
	if b.HostID != cmd.HostID {
		return nil, fault.Authorization("only the listing host can respond to a date change")
	}

	now := time.Now()
	var extra domainbooking.ExtraPayment
	if cmd.Accept {
		if b.Modification.Status != domainbooking.ModificationRequested {
			return nil, fault.AsConflict(domainbooking.ErrNoModificationOpen)
		}
		if err := checkAvailability(execCtx, unit, h.Ledger, b, b.Modification.Requested); err != nil {
			return nil, err
		}
		if extra, err = b.AcceptModification(now); err != nil {
			return nil, fault.AsConflict(err)
		}
	} else {
		if err := b.RejectModification(now); err != nil {
			return nil, fault.AsConflict(err)
		}
	}

	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Notifier != nil {
		template := "date_change_rejected"
		if cmd.Accept {
			template = "date_change_accepted"
		}
		data := map[string]any{"booking_id": b.ID, "extra_status": extra.Status, "extra_amount": extra.Amount.Amount}
		if err := h.Notifier.Send(ctx, b.GuestID, template, data); err != nil && h.Logger != nil {
			h.Logger.Warn("date change response notification failed", "booking_id", b.ID, "error", err)
		}
	}

	res := &RespondDateChangeResult{
		BookingID:   string(b.ID),
		Status:      string(b.Modification.Status),
		ExtraStatus: string(extra.Status),
		ExtraAmount: extra.Amount.Amount,
		Currency:    extra.Amount.Currency,
	}
	return res, nil
}

// checkAvailability runs the ledger rule for the candidate range excluding
// the booking itself: a stay may always shrink or shift within its own slot.
func checkAvailability(ctx context.Context, unit *handlersupport.Unit, ledger domainavailability.Ledger, b *domainbooking.Booking, dr daterange.DateRange) error {
	listing, err := unit.Listings().ByID(ctx, b.ListingID)
	if err != nil {
		return fault.AsNotFound(err)
	}
	// Same serialization point as booking creation: date moves race against
	// concurrent creates on the listing.
	if err := unit.Bookings().LockCalendar(ctx, b.ListingID); err != nil {
		return err
	}
	active, err := unit.Bookings().ActiveOverlapping(ctx, b.ListingID, dr, b.ID)
	if err != nil {
		return err
	}
	if err := ledger.CanBook(listing, active, dr, b.ID); err != nil {
		if errors.Is(err, domainavailability.ErrDatesTaken) || errors.Is(err, domainavailability.ErrDatesBlocked) {
			return fault.AsConflict(err)
		}
		return fault.AsValidation(err)
	}
	return nil
}

var _ commands.Handler[RequestDateChangeCommand, *RequestDateChangeResult] = (*RequestDateChangeHandler)(nil)
var _ commands.Handler[RespondDateChangeCommand, *RespondDateChangeResult] = (*RespondDateChangeHandler)(nil)
