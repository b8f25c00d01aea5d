package booking

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
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/shared/fault"
	domaintrip "stayride/internal/domain/trip"
)

const (
	acceptBookingKey = "booking.accept"
	cancelBookingKey = "booking.cancel"
)

type AcceptBookingCommand struct {
	BookingID string
	HostID    string
}

func (c AcceptBookingCommand) Key() string { return acceptBookingKey }

type AcceptBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type AcceptBookingHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *AcceptBookingHandler) Handle(ctx context.Context, cmd AcceptBookingCommand) (*AcceptBookingResult, error) {
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
		return nil, fault.Authorization("only the listing host can accept booking %s", cmd.BookingID)
	}

	now := time.Now().UTC()
	if err := b.Accept(now); err != nil {
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
		if err := h.Notifier.Send(ctx, b.GuestID, "booking_accepted", map[string]any{"booking_id": b.ID}); err != nil && h.Logger != nil {
			h.Logger.Warn("guest notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &AcceptBookingResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

type CancelBookingCommand struct {
	BookingID string
	ActorID   string
	Reason    string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
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
	if cmd.ActorID != b.GuestID && cmd.ActorID != b.HostID {
		return nil, fault.Authorization("actor %s is neither guest nor host of booking %s", cmd.ActorID, cmd.BookingID)
	}

	now := time.Now().UTC()
	if err := b.Cancel(cmd.ActorID, cmd.Reason, now); err != nil {
		return nil, fault.AsConflict(err)
	}

	// A linked trip gets its seats back in the same transaction.
	if b.TripID != "" {
		t, err := unit.Trips().ByID(execCtx, b.TripID)
		if err == nil {
			if err := t.CancelPassenger(string(b.ID), now); err != nil && !errors.Is(err, domaintrip.ErrPassengerNotFound) {
				return nil, err
			}
			if err := unit.Trips().Save(execCtx, t); err != nil {
				return nil, err
			}
			if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, t); err != nil {
				return nil, err
			}
		} else if h.Logger != nil {
			h.Logger.Warn("linked trip missing on cancel", "booking_id", b.ID, "trip_id", b.TripID, "error", err)
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
		counterparty := b.GuestID
		if cmd.ActorID == b.GuestID {
			counterparty = b.HostID
		}
		if err := h.Notifier.Send(ctx, counterparty, "booking_cancelled", map[string]any{"booking_id": b.ID, "reason": cmd.Reason}); err != nil && h.Logger != nil {
			h.Logger.Warn("cancellation notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &CancelBookingResult{BookingID: string(b.ID), Status: string(b.Status)}, nil
}

var _ commands.Handler[AcceptBookingCommand, *AcceptBookingResult] = (*AcceptBookingHandler)(nil)
var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
