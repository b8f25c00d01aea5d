package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/policies"
	"stayride/internal/domain/shared/money"
)

func chargeRequest() policies.ChargeRequest {
	return policies.ChargeRequest{
		TransactionID: "tx-1",
		BookingID:     "bkg-1",
		Amount:        money.Must(230050, "BDT"),
		CustomerID:    "guest-1",
		CustomerName:  "Guest One",
		CustomerEmail: "guest@example.com",
		Purpose:       "booking",
	}
}

func TestInitiateChargeOpensSession(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gwprocess/v4/api.php", r.URL.Path)
		require.NoError(t, r.ParseForm())
		got = map[string]string{}
		for k := range r.PostForm {
			got[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","sessionkey":"sess-1","GatewayPageURL":"https://pay.example.com/sess-1"}`))
	}))
	defer srv.Close()

	client := &Client{
		HTTP:        srv.Client(),
		BaseURL:     srv.URL,
		StoreID:     "store-1",
		StorePass:   "secret",
		CallbackURL: "https://api.example.com",
	}
	redirect, err := client.InitiateCharge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/sess-1", redirect)

	assert.Equal(t, "store-1", got["store_id"])
	assert.Equal(t, "tx-1", got["tran_id"])
	// minor units rendered as major with two decimals
	assert.Equal(t, "2300.50", got["total_amount"])
	assert.Equal(t, "BDT", got["currency"])
	assert.Equal(t, "bkg-1", got["value_a"])
	assert.Equal(t, "https://api.example.com/v1/payments/success", got["success_url"])
	assert.Equal(t, "https://api.example.com/v1/payments/ipn", got["ipn_url"])
}

func TestInitiateChargeRejectedSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"FAILED","failedreason":"store credential invalid"}`))
	}))
	defer srv.Close()

	client := &Client{HTTP: srv.Client(), BaseURL: srv.URL, StoreID: "store-1"}
	_, err := client.InitiateCharge(context.Background(), chargeRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store credential invalid")
}

func TestInitiateChargeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := &Client{HTTP: srv.Client(), BaseURL: srv.URL, StoreID: "store-1"}
	_, err := client.InitiateCharge(context.Background(), chargeRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestInitiateChargeRequiresCredentials(t *testing.T) {
	client := &Client{HTTP: http.DefaultClient}
	_, err := client.InitiateCharge(context.Background(), chargeRequest())
	assert.Error(t, err)
}
