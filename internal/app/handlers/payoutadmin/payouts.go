package payoutadmin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/policies"
	"stayride/internal/app/queries"
	"stayride/internal/app/uow"
	domainpayout "stayride/internal/domain/payout"
	"stayride/internal/domain/shared/fault"
)

const (
	listPendingPayoutsKey = "payouts.pending.list"
	markPayoutPaidKey     = "payouts.mark_paid"
)

type ListPendingPayoutsQuery struct {
	// Role filters to HOST or DRIVER entries; empty lists both.
	Role string
}

func (q ListPendingPayoutsQuery) Key() string { return listPendingPayoutsKey }

type ListPendingPayoutsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPendingPayoutsHandler) Handle(ctx context.Context, q ListPendingPayoutsQuery) (dto.PayoutCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PayoutCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	role := domainpayout.PayeeRole(strings.ToUpper(strings.TrimSpace(q.Role)))
	switch role {
	case "", domainpayout.RoleHost, domainpayout.RoleDriver:
	default:
		return dto.PayoutCollection{}, fault.Validation("unknown payee role %q", q.Role)
	}

	pending, err := unit.Payouts().ListPending(execCtx, role)
	if err != nil {
		return dto.PayoutCollection{}, err
	}

	items := make([]dto.PayoutSummary, 0, len(pending))
	for _, p := range pending {
		items = append(items, dto.MapPayoutSummary(p))
	}
	return dto.PayoutCollection{Items: items}, nil
}

type MarkPayoutPaidCommand struct {
	PayoutID string
	Method   string
}

func (c MarkPayoutPaidCommand) Key() string { return markPayoutPaidKey }

type MarkPayoutPaidResult struct {
	PayoutID string `json:"payout_id"`
	Status   string `json:"status"`
}

// MarkPayoutPaidHandler records a manual transfer. Marking twice fails with
// a conflict so two operators cannot both claim the same entry.
type MarkPayoutPaidHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Logger     *slog.Logger
}

func (h *MarkPayoutPaidHandler) Handle(ctx context.Context, cmd MarkPayoutPaidCommand) (*MarkPayoutPaidResult, error) {
	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	execCtx := unit.Ctx

	p, err := unit.Payouts().ByID(execCtx, domainpayout.PayoutID(cmd.PayoutID))
	if err != nil {
		return nil, fault.AsNotFound(err)
	}
	if err := p.MarkPaid(cmd.Method, time.Now()); err != nil {
		return nil, fault.AsConflict(err)
	}
	if err := unit.Payouts().Update(execCtx, p); err != nil {
		return nil, err
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Notifier != nil {
		data := map[string]any{"payout_id": p.ID, "amount": p.Net.Amount, "currency": p.Net.Currency, "method": p.Method}
		if err := h.Notifier.Send(ctx, p.PayeeID, "payout_sent", data); err != nil && h.Logger != nil {
			h.Logger.Warn("payout notification failed", "payout_id", p.ID, "error", err)
		}
	}

	return &MarkPayoutPaidResult{PayoutID: string(p.ID), Status: string(p.Status)}, nil
}

var _ queries.Handler[ListPendingPayoutsQuery, dto.PayoutCollection] = (*ListPendingPayoutsHandler)(nil)
var _ commands.Handler[MarkPayoutPaidCommand, *MarkPayoutPaidResult] = (*MarkPayoutPaidHandler)(nil)
