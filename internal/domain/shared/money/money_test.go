package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1500, "bdt")
	require.NoError(t, err)
	assert.Equal(t, "BDT", m.Currency)

	_, err = New(100, "taka")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddSubCurrencyMismatch(t *testing.T) {
	a := Must(100, "BDT")
	b := Must(50, "USD")

	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Sub(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMulDivRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name     string
		amount   int64
		num, den int64
		want     int64
	}{
		{"exact division", 23000000, 10, 115, 2000000},
		{"rounds up at half", 25, 1, 2, 13},
		{"rounds down below half", 70, 1, 3, 23},
		{"rounds up above half", 200, 1, 3, 67},
		{"negative rounds away from zero", -25, 1, 2, -13},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Must(tc.amount, "BDT").MulDiv(tc.num, tc.den)
			assert.Equal(t, tc.want, got.Amount)
		})
	}
}

func TestPercentIsBasisPoints(t *testing.T) {
	m := Must(21000000, "BDT")
	assert.Equal(t, int64(1050000), m.Percent(500).Amount)
	assert.Equal(t, int64(3150000), m.Percent(1500).Amount)
}

func TestNegPreservesCurrency(t *testing.T) {
	m := Must(-100000, "BDT").Neg()
	assert.Equal(t, int64(100000), m.Amount)
	assert.Equal(t, "BDT", m.Currency)
}

func TestString(t *testing.T) {
	assert.Equal(t, "1500.05 BDT", Must(150005, "BDT").String())
}
