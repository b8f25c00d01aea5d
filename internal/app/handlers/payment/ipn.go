package payment

import (
	"context"
	"log/slog"
	"strings"

	"stayride/internal/app/commands"
	"stayride/internal/app/uow"
	"stayride/internal/domain/shared/fault"
	"stayride/internal/domain/shared/money"
)

const gatewayIPNKey = "payment.ipn"

// GatewayIPNCommand is the server-to-server instant payment notification.
// It may arrive before, after, or instead of the browser success redirect,
// and the gateway retries it, so settlement must converge to the same state
// no matter the delivery order.
type GatewayIPNCommand struct {
	TransactionID string
	Status        string
	Amount        money.Money
	ValidationID  string
}

func (c GatewayIPNCommand) Key() string { return gatewayIPNKey }

type GatewayIPNResult struct {
	BookingID string `json:"booking_id,omitempty"`
	Applied   bool   `json:"applied"`
	Reason    string `json:"reason,omitempty"`
}

type GatewayIPNHandler struct {
	UoWFactory uow.UoWFactory
	Success    *PaymentSuccessHandler
	Logger     *slog.Logger
}

func (h *GatewayIPNHandler) Handle(ctx context.Context, cmd GatewayIPNCommand) (*GatewayIPNResult, error) {
	if strings.TrimSpace(cmd.TransactionID) == "" {
		return nil, fault.Validation("transaction id is required")
	}

	switch strings.ToUpper(cmd.Status) {
	case "VALID", "VALIDATED":
		res, err := h.Success.Handle(ctx, PaymentSuccessCommand{
			TransactionID: cmd.TransactionID,
			Amount:        cmd.Amount,
			ValidationID:  cmd.ValidationID,
		})
		if err != nil {
			return nil, err
		}
		if res.Duplicate {
			return &GatewayIPNResult{BookingID: res.BookingID, Applied: false, Reason: "already settled"}, nil
		}
		return &GatewayIPNResult{BookingID: res.BookingID, Applied: true}, nil
	default:
		// FAILED, CANCELLED and anything unknown never roll back a settled
		// payment; the booking stays where the last valid event left it.
		if h.Logger != nil {
			h.Logger.Info("ignoring non-valid payment notification",
				"transaction_id", cmd.TransactionID, "status", cmd.Status)
		}
		return &GatewayIPNResult{Applied: false, Reason: "status " + cmd.Status + " ignored"}, nil
	}
}

var _ commands.Handler[GatewayIPNCommand, *GatewayIPNResult] = (*GatewayIPNHandler)(nil)
