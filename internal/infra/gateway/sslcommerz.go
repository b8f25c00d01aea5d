package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"stayride/internal/app/policies"
)

// Client talks to an SSLCommerz-compatible hosted checkout. InitiateCharge
// registers the transaction and returns the page the guest is redirected to;
// the verdict comes back later through the success/IPN callbacks.
type Client struct {
	HTTP        *http.Client
	BaseURL     string
	StoreID     string
	StorePass   string
	CallbackURL string
	Logger      *slog.Logger
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (c *Client) InitiateCharge(ctx context.Context, req policies.ChargeRequest) (string, error) {
	if c == nil || c.HTTP == nil {
		return "", errors.New("gateway: http client not configured")
	}
	if c.BaseURL == "" || c.StoreID == "" {
		return "", errors.New("gateway: store credentials not configured")
	}

	form := url.Values{}
	form.Set("store_id", c.StoreID)
	form.Set("store_passwd", c.StorePass)
	form.Set("tran_id", req.TransactionID)
	// The gateway wants major units with two decimals; amounts are carried
	// internally in minor units.
	form.Set("total_amount", strconv.FormatFloat(float64(req.Amount.Amount)/100, 'f', 2, 64))
	form.Set("currency", req.Amount.Currency)
	form.Set("value_a", req.BookingID)
	form.Set("value_b", req.Purpose)
	form.Set("cus_id", req.CustomerID)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("success_url", c.CallbackURL+"/v1/payments/success")
	form.Set("fail_url", c.CallbackURL+"/v1/payments/fail")
	form.Set("cancel_url", c.CallbackURL+"/v1/payments/cancel")
	form.Set("ipn_url", c.CallbackURL+"/v1/payments/ipn")
	form.Set("product_name", req.Purpose)
	form.Set("product_category", "reservation")
	form.Set("shipping_method", "NO")

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/gwprocess/v4/api.php"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gateway: session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gateway: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("gateway: malformed session response: %w", err)
	}
	if !strings.EqualFold(session.Status, "SUCCESS") || session.GatewayPageURL == "" {
		return "", fmt.Errorf("gateway: session rejected: %s", session.FailedReason)
	}

	if c.Logger != nil {
		c.Logger.Debug("gateway session opened", "transaction_id", req.TransactionID, "session_key", session.SessionKey)
	}
	return session.GatewayPageURL, nil
}

var _ policies.GatewayPort = (*Client)(nil)
