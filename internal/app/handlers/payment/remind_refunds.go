package payment

import (
	"context"
	"log/slog"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
)

const remindRefundsKey = "payment.remind_refunds"

// RemindRefundsCommand is dispatched on a schedule. It nudges guests who
// are owed a refund after a date change but have not claimed it yet.
type RemindRefundsCommand struct{}

func (c RemindRefundsCommand) Key() string { return remindRefundsKey }

type RemindRefundsResult struct {
	Reminded int `json:"reminded"`
}

type RemindRefundsHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Logger     *slog.Logger
}

func (h *RemindRefundsHandler) Handle(ctx context.Context, _ RemindRefundsCommand) (*RemindRefundsResult, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	pending, err := unit.Bookings().ListRefundPending(execCtx)
	if err != nil {
		return nil, err
	}

	reminded := 0
	for _, b := range pending {
		if h.Notifier == nil {
			break
		}
		owed := b.Extra.Amount.Neg()
		data := map[string]any{"booking_id": b.ID, "amount": owed.Amount, "currency": owed.Currency}
		if err := h.Notifier.Send(ctx, b.GuestID, "refund_reminder", data); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("refund reminder failed", "booking_id", b.ID, "error", err)
			}
			continue
		}
		reminded++
	}

	if h.Logger != nil {
		h.Logger.Info("refund reminders dispatched", "pending", len(pending), "reminded", reminded)
	}
	return &RemindRefundsResult{Reminded: reminded}, nil
}

var _ commands.Handler[RemindRefundsCommand, *RemindRefundsResult] = (*RemindRefundsHandler)(nil)
