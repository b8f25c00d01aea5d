package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/middleware"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainavailability "stayride/internal/domain/availability"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/fault"
	domaintrip "stayride/internal/domain/trip"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	CommandID       string
	ListingID       string
	TripID          string
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) Validate() error {
	if c.CommandID == "" || c.ListingID == "" || c.GuestID == "" {
		return fault.Validation("booking request requires command, listing and guest ids")
	}
	if c.Guests < 1 {
		return fault.Validation("guest count must be at least 1")
	}
	return nil
}

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID string `json:"booking_id"`
	Nights    int    `json:"nights"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
}

type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Ledger     domainavailability.Ledger
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
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

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, fault.AsNotFound(err)
	}

	// The calendar lock makes concurrent creates on this listing write the
	// same document, so the transaction that loses the race aborts instead
	// of double-booking past a stale overlap snapshot.
	if err := unit.Bookings().LockCalendar(execCtx, listing.ID); err != nil {
		return nil, err
	}
	active, err := unit.Bookings().ActiveOverlapping(execCtx, listing.ID, dr, "")
	if err != nil {
		return nil, err
	}
	if err := h.Ledger.CanBook(listing, active, dr, ""); err != nil {
		return nil, fault.AsConflict(err)
	}

	var linkedTrip *domaintrip.Trip
	if cmd.TripID != "" {
		linkedTrip, err = unit.Trips().ByID(execCtx, domaintrip.TripID(cmd.TripID))
		if err != nil {
			return nil, fault.AsNotFound(err)
		}
		if err := h.Ledger.CheckSeats(linkedTrip, cmd.Guests); err != nil {
			return nil, fault.AsConflict(err)
		}
	}

	now := time.Now().UTC()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(cmd.CommandID),
		Listing:   listing,
		GuestID:   cmd.GuestID,
		TripID:    domaintrip.TripID(cmd.TripID),
		Range:     dr,
		Guests:    cmd.Guests,
		CreatedAt: now,
	})
	if err != nil {
		if errors.Is(err, domainlistings.ErrListingNotFound) {
			return nil, fault.AsNotFound(err)
		}
		return nil, fault.AsValidation(err)
	}

	if linkedTrip != nil {
		if err := linkedTrip.ReserveSeats(cmd.GuestID, string(b.ID), cmd.Guests, now); err != nil {
			return nil, fault.AsConflict(err)
		}
		if err := unit.Trips().Save(execCtx, linkedTrip); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}

	if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if linkedTrip != nil {
		if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, linkedTrip); err != nil {
			return nil, err
		}
	}

	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Notifier != nil {
		if err := h.Notifier.Send(ctx, listing.HostID, "booking_requested", map[string]any{"booking_id": b.ID, "listing_id": listing.ID}); err != nil && h.Logger != nil {
			h.Logger.Warn("host notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &RequestBookingResult{
		BookingID: string(b.ID),
		Nights:    b.Range.Nights(),
		Total:     b.Total.Amount,
		Currency:  b.Total.Currency,
	}, nil
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
