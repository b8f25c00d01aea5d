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
)

const expirePendingKey = "booking.expire_pending"

// ExpirePendingCommand is dispatched by the scheduled sweep. Re-running it
// is harmless: already-expired bookings are filtered out by the repository
// query and CanExpire.
type ExpirePendingCommand struct {
	Now time.Time
}

func (c ExpirePendingCommand) Key() string { return expirePendingKey }

type ExpirePendingResult struct {
	Expired []string `json:"expired"`
}

type ExpirePendingHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *ExpirePendingHandler) Handle(ctx context.Context, cmd ExpirePendingCommand) (*ExpirePendingResult, error) {
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	execCtx := unit.Ctx

	cutoff := now.Add(-domainbooking.PendingExpiry)
	stale, err := unit.Bookings().ListPendingCreatedBefore(execCtx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &ExpirePendingResult{Expired: make([]string, 0, len(stale))}
	for _, b := range stale {
		if !b.CanExpire(now) {
			continue
		}
		if err := b.Expire(now); err != nil {
			continue
		}
		if err := unit.Bookings().Save(execCtx, b); err != nil {
			return nil, err
		}
		if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, b); err != nil {
			return nil, err
		}
		result.Expired = append(result.Expired, string(b.ID))
	}

	if err := unit.Finish(); err != nil {
		return nil, err
	}

	if h.Notifier != nil {
		for _, b := range stale {
			if b.Status != domainbooking.StatusExpired {
				continue
			}
			for _, recipient := range []string{b.GuestID, b.HostID} {
				if err := h.Notifier.Send(ctx, recipient, "booking_expired", map[string]any{"booking_id": b.ID}); err != nil && h.Logger != nil {
					h.Logger.Warn("expiry notification failed", "booking_id", b.ID, "recipient", recipient, "error", err)
				}
			}
		}
	}

	return result, nil
}

var _ commands.Handler[ExpirePendingCommand, *ExpirePendingResult] = (*ExpirePendingHandler)(nil)
