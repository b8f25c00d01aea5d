package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	paymentapp "stayride/internal/app/handlers/payment"
	"stayride/internal/domain/shared/money"
)

type PaymentHandler struct {
	Commands commands.Bus
	// Currency of amounts reported by the gateway, which sends major
	// units without a currency code on some callback variants.
	Currency string
	Logger   *slog.Logger
}

func (h PaymentHandler) Initiate(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := paymentapp.InitiateChargeCommand{
		BookingID:     c.Param("id"),
		GuestID:       user.ID,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
	}
	result, err := commands.Dispatch[paymentapp.InitiateChargeCommand, *paymentapp.InitiateChargeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) InitiateExtra(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := paymentapp.InitiateExtraChargeCommand{
		BookingID:     c.Param("id"),
		GuestID:       user.ID,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
	}
	result, err := commands.Dispatch[paymentapp.InitiateExtraChargeCommand, *paymentapp.InitiateChargeResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Success is the browser redirect callback from the hosted checkout. The
// gateway posts the outcome as a form; settlement is idempotent so racing
// with the IPN is harmless. The gateway retries non-200 answers forever, so
// callbacks that cannot be applied are logged and acknowledged, never
// rejected.
func (h PaymentHandler) Success(c *gin.Context) {
	amount, err := h.parseAmount(c.PostForm("amount"), c.PostForm("currency"))
	if err != nil {
		h.acknowledgeUnapplied(c, "success", err)
		return
	}
	cmd := paymentapp.PaymentSuccessCommand{
		TransactionID: c.PostForm("tran_id"),
		Amount:        amount,
		ValidationID:  c.PostForm("val_id"),
	}
	result, err := commands.Dispatch[paymentapp.PaymentSuccessCommand, *paymentapp.PaymentSuccessResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.acknowledgeUnapplied(c, "success", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IPN is the server-to-server notification endpoint.
func (h PaymentHandler) IPN(c *gin.Context) {
	amount, err := h.parseAmount(c.PostForm("amount"), c.PostForm("currency"))
	if err != nil {
		h.acknowledgeUnapplied(c, "ipn", err)
		return
	}
	cmd := paymentapp.GatewayIPNCommand{
		TransactionID: c.PostForm("tran_id"),
		Status:        c.PostForm("status"),
		Amount:        amount,
		ValidationID:  c.PostForm("val_id"),
	}
	result, err := commands.Dispatch[paymentapp.GatewayIPNCommand, *paymentapp.GatewayIPNResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.acknowledgeUnapplied(c, "ipn", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// acknowledgeUnapplied answers a gateway callback that changed nothing with
// the 200 the gateway expects, keeping the failure in the logs instead of
// the retry loop.
func (h PaymentHandler) acknowledgeUnapplied(c *gin.Context, callback string, err error) {
	if h.Logger != nil {
		h.Logger.Warn("gateway callback not applied",
			"callback", callback,
			"transaction_id", c.PostForm("tran_id"),
			"error", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "not applied"})
}

// Failed handles the fail/cancel redirects. Nothing to record: the booking
// stays payment-pending and the guest can retry.
func (h PaymentHandler) Failed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transaction_id": c.PostForm("tran_id"), "status": "not settled"})
}

func (h PaymentHandler) ClaimRefund(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := paymentapp.ClaimRefundCommand{BookingID: c.Param("id"), GuestID: user.ID}
	result, err := commands.Dispatch[paymentapp.ClaimRefundCommand, *paymentapp.ClaimRefundResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseAmount converts the gateway's decimal major-unit amount to minor
// units without going through floats.
func (h PaymentHandler) parseAmount(raw, currency string) (money.Money, error) {
	if currency == "" {
		currency = h.Currency
	}
	raw = strings.TrimSpace(raw)
	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return money.Money{}, err
	}
	minor := major * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return money.Money{}, err
		}
		if minor < 0 {
			minor -= cents
		} else {
			minor += cents
		}
	}
	return money.New(minor, currency)
}

var _ PaymentHTTP = PaymentHandler{}
