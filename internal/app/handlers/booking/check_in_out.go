package booking

import (
	"context"
	"log/slog"
	"time"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/shared/fault"
)

const (
	checkInKey  = "booking.check_in"
	checkOutKey = "booking.check_out"
)

type CheckInCommand struct {
	BookingID string
	GuestID   string
}

func (c CheckInCommand) Key() string { return checkInKey }

type CheckOutCommand struct {
	BookingID string
	GuestID   string
}

func (c CheckOutCommand) Key() string { return checkOutKey }

type CheckResult struct {
	BookingID string    `json:"booking_id"`
	At        time.Time `json:"at"`
}

type CheckInHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*CheckResult, error) {
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
		return nil, fault.Authorization("only the booking guest can check in")
	}
	if err := b.CheckIn(time.Now()); err != nil {
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
	return &CheckResult{BookingID: string(b.ID), At: b.CheckInAt}, nil
}

type CheckOutHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*CheckResult, error) {
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
		return nil, fault.Authorization("only the booking guest can check out")
	}
	if err := b.CheckOut(time.Now()); err != nil {
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

	// Payout entries already exist from payment success; this only tells
	// operations the stay completed.
	if h.Notifier != nil {
		if err := h.Notifier.Send(ctx, b.HostID, "stay_completed", map[string]any{"booking_id": b.ID}); err != nil && h.Logger != nil {
			h.Logger.Warn("checkout notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &CheckResult{BookingID: string(b.ID), At: b.CheckOutAt}, nil
}

var _ commands.Handler[CheckInCommand, *CheckResult] = (*CheckInHandler)(nil)
var _ commands.Handler[CheckOutCommand, *CheckResult] = (*CheckOutHandler)(nil)
