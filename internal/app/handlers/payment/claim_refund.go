package payment

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

const claimRefundKey = "payment.claim_refund"

type ClaimRefundCommand struct {
	BookingID string
	GuestID   string
}

func (c ClaimRefundCommand) Key() string { return claimRefundKey }

type ClaimRefundResult struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// ClaimRefundHandler lets the guest request the refund owed after a date
// change shrank the booking. The payout itself is manual; claiming flips the
// extra payment into REFUND_REQUESTED and tells operations to settle it.
type ClaimRefundHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ClaimRefundHandler) Handle(ctx context.Context, cmd ClaimRefundCommand) (*ClaimRefundResult, error) {
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
		return nil, fault.Authorization("only the booking guest can claim the refund")
	}

	if err := b.ClaimRefund(time.Now().UTC()); err != nil {
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

	owed := b.Extra.Amount.Neg()
	if h.Notifier != nil {
		data := map[string]any{"booking_id": b.ID, "amount": owed.Amount, "currency": owed.Currency}
		if err := h.Notifier.Send(ctx, b.HostID, "refund_claimed", data); err != nil && h.Logger != nil {
			h.Logger.Warn("refund claim notification failed", "booking_id", b.ID, "error", err)
		}
	}

	return &ClaimRefundResult{BookingID: string(b.ID), Amount: owed.Amount, Currency: owed.Currency}, nil
}

var _ commands.Handler[ClaimRefundCommand, *ClaimRefundResult] = (*ClaimRefundHandler)(nil)
