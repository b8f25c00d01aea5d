package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/shared/money"
)

func TestStayPayoutSplit(t *testing.T) {
	p := DefaultPolicy()

	// 2300.00 gross: the guest fee is the embedded 10% (10/115), the host
	// fee is 5% of the remainder, VAT is 15% of both fees together.
	split, err := p.StayPayoutSplit(money.Must(230000, "BDT"))
	require.NoError(t, err)

	assert.Equal(t, int64(20000), split.GuestFee.Amount)
	assert.Equal(t, int64(10500), split.HostFee.Amount)
	assert.Equal(t, int64(4575), split.VAT.Amount)
	assert.Equal(t, int64(219500), split.HostPayout.Amount)

	// payout plus host fee reconstructs the gross
	sum, err := split.HostPayout.Add(split.HostFee)
	require.NoError(t, err)
	assert.Equal(t, split.Gross.Amount, sum.Amount)
}

func TestStayPayoutSplitRejectsNonPositive(t *testing.T) {
	p := DefaultPolicy()
	_, err := p.StayPayoutSplit(money.Must(0, "BDT"))
	assert.ErrorIs(t, err, ErrNonPositiveGross)
	_, err = p.StayPayoutSplit(money.Must(-100, "BDT"))
	assert.ErrorIs(t, err, ErrNonPositiveGross)
}

func TestRidePayoutSplit(t *testing.T) {
	p := DefaultPolicy()

	// 500.00 per seat, 2 seats: 10% service fee, 15% VAT on the fee.
	split, err := p.RidePayoutSplit(money.Must(50000, "BDT"), 2)
	require.NoError(t, err)

	assert.Equal(t, int64(100000), split.Subtotal.Amount)
	assert.Equal(t, int64(10000), split.ServiceFee.Amount)
	assert.Equal(t, int64(1500), split.VAT.Amount)
	assert.Equal(t, int64(90000), split.DriverPayout.Amount)
}

func TestRidePayoutSplitRejectsZeroSeats(t *testing.T) {
	_, err := DefaultPolicy().RidePayoutSplit(money.Must(50000, "BDT"), 0)
	assert.ErrorIs(t, err, ErrInvalidSeats)
}

func TestStayTotal(t *testing.T) {
	total, err := DefaultPolicy().StayTotal(money.Must(57500, "BDT"), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(230000), total.Amount)

	_, err = DefaultPolicy().StayTotal(money.Must(57500, "BDT"), 0)
	assert.ErrorIs(t, err, ErrInvalidNights)
}

func TestCombinedOrderTotal(t *testing.T) {
	p := DefaultPolicy()
	got, err := p.CombinedOrderTotal(money.Must(200000, "BDT"), money.Must(100000, "BDT"), money.Must(5000, "BDT"))
	require.NoError(t, err)

	assert.Equal(t, int64(30000), got.ServiceFee.Amount)
	assert.Equal(t, int64(4500), got.Tax.Amount)
	assert.Equal(t, int64(329500), got.Total.Amount)
}
