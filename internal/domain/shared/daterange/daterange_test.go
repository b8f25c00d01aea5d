package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out int) DateRange {
	t.Helper()
	dr, err := New(day(in), day(out))
	require.NoError(t, err)
	return dr
}

func TestNewRejectsInvertedRange(t *testing.T) {
	_, err := New(day(10), day(10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(day(10), day(5))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNights(t *testing.T) {
	assert.Equal(t, 4, mustRange(t, 10, 14).Nights())
	assert.Equal(t, 1, mustRange(t, 10, 11).Nights())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := mustRange(t, 10, 14)

	// back-to-back stays share a turnover day without colliding
	assert.False(t, base.Overlaps(mustRange(t, 14, 18)))
	assert.False(t, base.Overlaps(mustRange(t, 5, 10)))

	assert.True(t, base.Overlaps(mustRange(t, 13, 15)))
	assert.True(t, base.Overlaps(mustRange(t, 9, 11)))
	assert.True(t, base.Overlaps(mustRange(t, 11, 12)))
	assert.True(t, base.Overlaps(mustRange(t, 1, 30)))
}

func TestContainsDate(t *testing.T) {
	dr := mustRange(t, 10, 14)
	assert.True(t, dr.ContainsDate(day(10)))
	assert.True(t, dr.ContainsDate(day(13)))
	assert.False(t, dr.ContainsDate(day(14)))
	assert.False(t, dr.ContainsDate(day(9)))
}
