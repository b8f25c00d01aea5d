package policies

import (
	"context"

	"stayride/internal/domain/shared/money"
)

// ChargeRequest is the closed schema sent to the payment gateway. Unknown
// fields from callers are never copied through.
type ChargeRequest struct {
	TransactionID string
	BookingID     string
	Amount        money.Money
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Purpose       string
}

// GatewayPort is the opaque charge interface. The concrete gateway protocol
// lives behind it; callbacks come back through the payment handlers.
type GatewayPort interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (redirectURL string, err error)
}
