package ginserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/commands"
	"stayride/internal/domain/shared/fault"
)

func TestParseAmountMajorToMinor(t *testing.T) {
	h := PaymentHandler{Currency: "BDT"}

	cases := []struct {
		raw  string
		want int64
	}{
		{"2300.00", 230000},
		{"2300.5", 230050},
		{"2300.50", 230050},
		{"2300", 230000},
		{"0.05", 5},
		{".75", 75},
		{"1999.999", 199999},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := h.parseAmount(tc.raw, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, "BDT", got.Currency)
		})
	}
}

func TestParseAmountCurrencyOverride(t *testing.T) {
	h := PaymentHandler{Currency: "BDT"}
	got, err := h.parseAmount("10.00", "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	h := PaymentHandler{Currency: "BDT"}
	_, err := h.parseAmount("12,30", "")
	assert.Error(t, err)
	_, err = h.parseAmount("abc", "")
	assert.Error(t, err)
}

type stubBus struct {
	err error
}

func (b stubBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return nil, b.err
}

func postCallback(t *testing.T, handle func(*gin.Context), form string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/payments/x", strings.NewReader(form))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	handle(c)
	return w
}

// The gateway retries any non-200 answer, so callback endpoints acknowledge
// even what they cannot apply.
func TestGatewayCallbacksAlwaysAcknowledge(t *testing.T) {
	h := PaymentHandler{
		Commands: stubBus{err: fault.NotFound("unknown transaction")},
		Currency: "BDT",
	}

	t.Run("malformed amount", func(t *testing.T) {
		w := postCallback(t, h.Success, "tran_id=tx-1&amount=abc")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "not applied")
	})

	t.Run("unknown transaction on success", func(t *testing.T) {
		w := postCallback(t, h.Success, "tran_id=tx-nope&amount=2300.00&val_id=val-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "not applied")
	})

	t.Run("unknown transaction on ipn", func(t *testing.T) {
		w := postCallback(t, h.IPN, "tran_id=tx-nope&status=VALID&amount=2300.00")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "not applied")
	})
}
