package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/outbox"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/fees"
	"stayride/internal/domain/payout"
	"stayride/internal/domain/referral"
	"stayride/internal/domain/shared/fault"
	"stayride/internal/domain/shared/money"
	domaintrip "stayride/internal/domain/trip"
)

const paymentSuccessKey = "payment.success"

// PaymentSuccessCommand carries the gateway success callback. The gateway
// only knows the transaction id, so routing back to the booking happens
// through the transaction index.
type PaymentSuccessCommand struct {
	TransactionID string
	Amount        money.Money
	ValidationID  string
}

func (c PaymentSuccessCommand) Key() string { return paymentSuccessKey }

type PaymentSuccessResult struct {
	BookingID     string `json:"booking_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Duplicate     bool   `json:"duplicate"`
}

// PaymentSuccessHandler settles a charge reported by the gateway. All
// consequences of a settled primary charge — confirmation, the host payout,
// the driver payout for a linked trip, the referral reward — commit in one
// unit of work, each behind its own check-and-set flag so a replayed
// callback changes nothing.
type PaymentSuccessHandler struct {
	UoWFactory uow.UoWFactory
	Fees       fees.Policy
	Notifier   policies.Notifier
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *PaymentSuccessHandler) Handle(ctx context.Context, cmd PaymentSuccessCommand) (*PaymentSuccessResult, error) {
	if strings.TrimSpace(cmd.TransactionID) == "" {
		return nil, fault.Validation("transaction id is required")
	}

	unit, err := handlersupport.BeginUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Close()
	execCtx := unit.Ctx

	b, err := unit.Bookings().ByTransactionID(execCtx, cmd.TransactionID)
	if err != nil {
		return nil, fault.AsNotFound(err)
	}

	now := time.Now().UTC()
	var changed bool
	extra := b.Extra.TransactionID != "" && b.Extra.TransactionID == cmd.TransactionID && b.TransactionID != cmd.TransactionID
	if extra {
		changed, err = b.ApplyExtraPaymentSuccess(cmd.Amount, now)
	} else {
		changed, err = b.ApplyPaymentSuccess(cmd.Amount, cmd.ValidationID, now)
	}
	if err != nil {
		return nil, fault.AsConflict(err)
	}
	if !changed {
		// Replayed callback; the first delivery already did the work.
		return &PaymentSuccessResult{
			BookingID:     string(b.ID),
			Status:        string(b.Status),
			PaymentStatus: string(b.PaymentStatus),
			Duplicate:     true,
		}, nil
	}

	var linkedTrip *domaintrip.Trip
	if !extra {
		if linkedTrip, err = h.settlePrimary(execCtx, unit, b, now); err != nil {
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
		if err := unit.Trips().Save(execCtx, linkedTrip); err != nil {
			return nil, err
		}
		if err := handlersupport.DrainEvents(execCtx, h.Outbox, h.Encoder, linkedTrip); err != nil {
			return nil, err
		}
	}
	if err := unit.Finish(); err != nil {
		return nil, err
	}

	h.notifySettled(ctx, b, extra)

	return &PaymentSuccessResult{
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
	}, nil
}

// settlePrimary runs the once-per-booking consequences of the first full
// payment: host payout, linked trip confirmation with the driver payout,
// and the referral reward.
func (h *PaymentSuccessHandler) settlePrimary(ctx context.Context, unit *handlersupport.Unit, b *domainbooking.Booking, now time.Time) (*domaintrip.Trip, error) {
	var linkedTrip *domaintrip.Trip

	if b.MarkPayoutIssued() {
		// The split base is the gross the guest actually paid, which the
		// callback may report differently from the quote.
		split, err := h.Fees.StayPayoutSplit(b.PaidAmount)
		if err != nil {
			return nil, err
		}
		host := payout.NewHostPayout(payout.PayoutID(uuid.NewString()), string(b.ID), b.HostID, split, now)
		if err := unit.Payouts().Add(ctx, host); err != nil {
			return nil, err
		}

		if b.TripID != "" {
			t, err := unit.Trips().ByID(ctx, b.TripID)
			if err != nil {
				return nil, err
			}
			if err := t.ConfirmPassenger(string(b.ID), now); err != nil && !errors.Is(err, domaintrip.ErrPassengerNotFound) {
				return nil, err
			}
			rideSplit, err := h.Fees.RidePayoutSplit(t.FarePerSeat, b.Guests)
			if err != nil {
				return nil, err
			}
			driver := payout.NewDriverPayout(payout.PayoutID(uuid.NewString()), string(t.ID), string(b.ID), t.DriverID, rideSplit, now)
			if err := unit.Payouts().Add(ctx, driver); err != nil {
				return nil, err
			}
			linkedTrip = t
		}
	}

	if b.MarkReferralRewarded() {
		account, err := unit.Referrals().ByGuest(ctx, b.GuestID)
		switch {
		case errors.Is(err, referral.ErrAccountNotFound):
			// Guest was not referred; the flag still flips so the lookup
			// never repeats on later payments.
		case err != nil:
			return nil, err
		default:
			code := "REF-" + strings.ToUpper(uuid.NewString()[:8])
			if err := account.GrantReward(code, now); err != nil && !errors.Is(err, referral.ErrAlreadyRewarded) {
				return nil, err
			}
			if err := unit.Referrals().Save(ctx, account); err != nil {
				return nil, err
			}
		}
	}

	return linkedTrip, nil
}

func (h *PaymentSuccessHandler) notifySettled(ctx context.Context, b *domainbooking.Booking, extra bool) {
	if h.Notifier == nil {
		return
	}
	template := "payment_received"
	if extra {
		template = "extra_payment_received"
	}
	data := map[string]any{"booking_id": b.ID, "amount": b.PaidAmount.Amount, "currency": b.PaidAmount.Currency}
	if err := h.Notifier.Send(ctx, b.GuestID, template, data); err != nil && h.Logger != nil {
		h.Logger.Warn("guest payment notification failed", "booking_id", b.ID, "error", err)
	}
	if err := h.Notifier.Send(ctx, b.HostID, "booking_paid", data); err != nil && h.Logger != nil {
		h.Logger.Warn("host payment notification failed", "booking_id", b.ID, "error", err)
	}
}

var _ commands.Handler[PaymentSuccessCommand, *PaymentSuccessResult] = (*PaymentSuccessHandler)(nil)
