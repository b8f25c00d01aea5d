package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stayride/internal/app/commands"
	handlersupport "stayride/internal/app/handlers/support"
	"stayride/internal/app/policies"
	"stayride/internal/app/uow"
	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/shared/fault"
)

const (
	initiateChargeKey = "payment.initiate"
	initiateExtraKey  = "payment.initiate_extra"
)

type InitiateChargeCommand struct {
	BookingID     string
	GuestID       string
	CustomerName  string
	CustomerEmail string
}

func (c InitiateChargeCommand) Key() string { return initiateChargeKey }

type InitiateChargeResult struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// InitiateChargeHandler stamps the booking with a transaction id and asks
// the gateway for a redirect URL. Calling it twice for the same booking
// replaces the still-pending transaction id instead of forking a parallel
// one, so a retried initiate stays idempotent.
type InitiateChargeHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.GatewayPort
}

func (h *InitiateChargeHandler) Handle(ctx context.Context, cmd InitiateChargeCommand) (*InitiateChargeResult, error) {
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
		return nil, fault.Authorization("only the booking guest can pay for booking %s", cmd.BookingID)
	}

	amount, err := b.Total.Sub(b.PaidAmount)
	if err != nil {
		return nil, err
	}
	if amount.Amount <= 0 {
		return nil, fault.Conflict("booking %s has nothing left to pay", cmd.BookingID)
	}

	txID := b.TransactionID
	if txID == "" || b.PaymentStatus == domainbooking.PaymentUnpaid {
		txID = uuid.NewString()
	}
	if err := b.BeginPayment(txID, time.Now()); err != nil {
		return nil, fault.AsConflict(err)
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}

	redirectURL, err := h.Gateway.InitiateCharge(execCtx, policies.ChargeRequest{
		TransactionID: txID,
		BookingID:     string(b.ID),
		Amount:        amount,
		CustomerID:    cmd.GuestID,
		CustomerName:  cmd.CustomerName,
		CustomerEmail: cmd.CustomerEmail,
		Purpose:       "booking",
	})
	if err != nil {
		// Surfaced as retryable; the rollback leaves the booking unchanged.
		return nil, fault.Upstream(err)
	}

	if err := unit.Finish(); err != nil {
		return nil, err
	}
	return &InitiateChargeResult{TransactionID: txID, RedirectURL: redirectURL}, nil
}

type InitiateExtraChargeCommand struct {
	BookingID     string
	GuestID       string
	CustomerName  string
	CustomerEmail string
}

func (c InitiateExtraChargeCommand) Key() string { return initiateExtraKey }

// InitiateExtraChargeHandler starts the top-up charge owed after an
// accepted date change.
type InitiateExtraChargeHandler struct {
	UoWFactory uow.UoWFactory
	Gateway    policies.GatewayPort
}

func (h *InitiateExtraChargeHandler) Handle(ctx context.Context, cmd InitiateExtraChargeCommand) (*InitiateChargeResult, error) {
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
		return nil, fault.Authorization("only the booking guest can pay the extra charge")
	}
	if b.Extra.Status != domainbooking.ExtraPending {
		return nil, fault.Conflict("booking %s has no extra payment due", cmd.BookingID)
	}

	txID := b.Extra.TransactionID
	if txID == "" {
		txID = uuid.NewString()
	}
	if err := b.BeginExtraPayment(txID, time.Now()); err != nil {
		return nil, fault.AsConflict(err)
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}

	redirectURL, err := h.Gateway.InitiateCharge(execCtx, policies.ChargeRequest{
		TransactionID: txID,
		BookingID:     string(b.ID),
		Amount:        b.Extra.Amount,
		CustomerID:    cmd.GuestID,
		CustomerName:  cmd.CustomerName,
		CustomerEmail: cmd.CustomerEmail,
		Purpose:       "extra_payment",
	})
	if err != nil {
		return nil, fault.Upstream(err)
	}

	if err := unit.Finish(); err != nil {
		return nil, err
	}
	return &InitiateChargeResult{TransactionID: txID, RedirectURL: redirectURL}, nil
}

var _ commands.Handler[InitiateChargeCommand, *InitiateChargeResult] = (*InitiateChargeHandler)(nil)
var _ commands.Handler[InitiateExtraChargeCommand, *InitiateChargeResult] = (*InitiateExtraChargeHandler)(nil)
