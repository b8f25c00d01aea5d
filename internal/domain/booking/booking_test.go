package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
)

var now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func fixtureListing(t *testing.T) *listings.Listing {
	t.Helper()
	l, err := listings.New("lst-1", "host-1", "Lakeview flat", money.Must(100000, "BDT"), 4, now)
	require.NoError(t, err)
	return l
}

func fixtureBooking(t *testing.T) *Booking {
	t.Helper()
	dr, err := daterange.New(day(10), day(13))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:        "bkg-1",
		Listing:   fixtureListing(t),
		GuestID:   "guest-1",
		Range:     dr,
		Guests:    2,
		CreatedAt: now,
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingQuotesTotal(t *testing.T) {
	b := fixtureBooking(t)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, int64(300000), b.Total.Amount)
	assert.Equal(t, "host-1", b.HostID)
	assert.Len(t, b.PendingEvents(), 1)
}

func TestNewBookingValidation(t *testing.T) {
	l := fixtureListing(t)
	dr, err := daterange.New(day(10), day(12))
	require.NoError(t, err)

	_, err = NewBooking(CreateParams{ID: "b", Listing: l, GuestID: "g", Range: dr, Guests: 0, CreatedAt: now})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = NewBooking(CreateParams{ID: "b", Listing: l, GuestID: "g", Range: dr, Guests: 5, CreatedAt: now})
	assert.ErrorIs(t, err, ErrTooManyGuests)

	past, err := daterange.New(day(10), day(12))
	require.NoError(t, err)
	_, err = NewBooking(CreateParams{ID: "b", Listing: l, GuestID: "g", Range: past, Guests: 2, CreatedAt: day(20)})
	assert.ErrorIs(t, err, ErrCheckInInPast)
}

func TestAcceptOnlyFromPending(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.Accept(now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.ErrorIs(t, b.Accept(now), ErrInvalidState)
}

func TestCancelFromTerminalStateFails(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.Cancel("guest-1", "plans changed", now))
	assert.Equal(t, StatusCancelled, b.Status)
	assert.ErrorIs(t, b.Cancel("guest-1", "again", now), ErrInvalidState)
}

func TestExpireRequiresUnpaidPendingPastCutoff(t *testing.T) {
	b := fixtureBooking(t)

	assert.False(t, b.CanExpire(now.Add(time.Hour)))
	assert.True(t, b.CanExpire(now.Add(PendingExpiry)))

	require.NoError(t, b.BeginPayment("tx-1", now))
	_, err := b.ApplyPaymentSuccess(b.Total, "val-1", now)
	require.NoError(t, err)
	assert.False(t, b.CanExpire(now.Add(PendingExpiry)))
	assert.ErrorIs(t, b.Expire(now.Add(PendingExpiry)), ErrInvalidState)
}

func TestApplyPaymentSuccessIsIdempotent(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.BeginPayment("tx-1", now))
	assert.Equal(t, PaymentPending, b.PaymentStatus)

	changed, err := b.ApplyPaymentSuccess(b.Total, "val-1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
	assert.Equal(t, b.Total.Amount, b.PaidAmount.Amount)

	changed, err = b.ApplyPaymentSuccess(b.Total, "val-1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyPaymentSuccessWithoutAmountSettlesQuotedTotal(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.BeginPayment("tx-1", now))

	changed, err := b.ApplyPaymentSuccess(money.Money{}, "", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
	assert.Equal(t, b.Total.Amount, b.PaidAmount.Amount)
	assert.Equal(t, b.Total.Currency, b.PaidAmount.Currency)
}

func TestApplyPaymentSuccessUpgradesZeroAmountRecord(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.BeginPayment("tx-1", now))
	// a record settled before the weak-notification fallback existed
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.PaidAmount = money.Money{Amount: 0, Currency: "BDT"}

	changed, err := b.ApplyPaymentSuccess(money.Must(230000, "BDT"), "val-9", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(230000), b.PaidAmount.Amount)
	assert.Equal(t, "val-9", b.ValidationID)

	changed, err = b.ApplyPaymentSuccess(money.Must(230000, "BDT"), "val-9", now)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyExtraPaymentSuccessWithoutAmountUsesDelta(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.BeginPayment("tx-1", now))
	_, err := b.ApplyPaymentSuccess(b.Total, "val-1", now)
	require.NoError(t, err)
	longer, err := daterange.New(day(10), day(15))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", longer, now))
	extra, err := b.AcceptModification(now)
	require.NoError(t, err)
	require.NoError(t, b.BeginExtraPayment("tx-2", now))

	changed, err := b.ApplyExtraPaymentSuccess(money.Money{}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, b.Total.Amount, b.PaidAmount.Amount)
	assert.Equal(t, int64(200000), extra.Amount.Amount)
}

func TestApplyPaymentSuccessRejectedOnCancelled(t *testing.T) {
	b := fixtureBooking(t)
	require.NoError(t, b.Cancel("guest-1", "", now))
	_, err := b.ApplyPaymentSuccess(b.Total, "val-1", now)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func paidBooking(t *testing.T) *Booking {
	t.Helper()
	b := fixtureBooking(t)
	require.NoError(t, b.BeginPayment("tx-1", now))
	_, err := b.ApplyPaymentSuccess(b.Total, "val-1", now)
	require.NoError(t, err)
	return b
}

func TestModificationExtendingStayOwesExtra(t *testing.T) {
	b := paidBooking(t) // paid 3000.00 for 3 nights

	longer, err := daterange.New(day(10), day(15))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", longer, now))

	extra, err := b.AcceptModification(now)
	require.NoError(t, err)

	assert.Equal(t, int64(500000), b.Total.Amount)
	assert.Equal(t, int64(200000), extra.Amount.Amount)
	assert.Equal(t, ExtraPending, extra.Status)
	assert.True(t, extra.Required)
	assert.Equal(t, PaymentPartial, b.PaymentStatus)
	assert.True(t, longer.Equal(b.Range))
}

func TestModificationShorteningStayOwesRefund(t *testing.T) {
	b := paidBooking(t)

	shorter, err := daterange.New(day(10), day(12))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", shorter, now))

	extra, err := b.AcceptModification(now)
	require.NoError(t, err)

	assert.Equal(t, int64(200000), b.Total.Amount)
	assert.Equal(t, int64(-100000), extra.Amount.Amount)
	assert.Equal(t, ExtraRefundPending, extra.Status)
	assert.False(t, extra.Required)
	// the paid amount still covers the new total, booking stays paid
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
}

func TestModificationSameTotalNeedsNothing(t *testing.T) {
	b := paidBooking(t)

	shifted, err := daterange.New(day(11), day(14))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", shifted, now))

	extra, err := b.AcceptModification(now)
	require.NoError(t, err)
	assert.Equal(t, ExtraNotRequired, extra.Status)
	assert.True(t, extra.Amount.IsZero())
}

func TestModificationGuards(t *testing.T) {
	dr, err := daterange.New(day(20), day(22))
	require.NoError(t, err)

	unpaid := fixtureBooking(t)
	require.NoError(t, unpaid.Accept(now))
	assert.ErrorIs(t, unpaid.RequestModification("guest-1", dr, now), ErrModificationForbidden)

	b := paidBooking(t)
	require.NoError(t, b.RequestModification("guest-1", dr, now))
	assert.ErrorIs(t, b.RequestModification("guest-1", dr, now), ErrModificationOpen)

	require.NoError(t, b.RejectModification(now))
	assert.Equal(t, ModificationRejected, b.Modification.Status)
	assert.ErrorIs(t, b.RejectModification(now), ErrNoModificationOpen)
}

func TestExtraPaymentSettlesOnce(t *testing.T) {
	b := paidBooking(t)
	longer, err := daterange.New(day(10), day(15))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", longer, now))
	extra, err := b.AcceptModification(now)
	require.NoError(t, err)

	require.NoError(t, b.BeginExtraPayment("tx-2", now))

	changed, err := b.ApplyExtraPaymentSuccess(extra.Amount, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(500000), b.PaidAmount.Amount)
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
	assert.Equal(t, ExtraPaid, b.Extra.Status)

	changed, err = b.ApplyExtraPaymentSuccess(extra.Amount, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(500000), b.PaidAmount.Amount)
}

func TestClaimRefundOnce(t *testing.T) {
	b := paidBooking(t)
	shorter, err := daterange.New(day(10), day(12))
	require.NoError(t, err)
	require.NoError(t, b.RequestModification("guest-1", shorter, now))
	_, err = b.AcceptModification(now)
	require.NoError(t, err)

	require.NoError(t, b.ClaimRefund(now))
	assert.Equal(t, ExtraRefundRequested, b.Extra.Status)
	assert.True(t, b.Extra.Claimed)
	assert.ErrorIs(t, b.ClaimRefund(now), ErrRefundAlreadyClaimed)
}

func TestClaimRefundRequiresPendingRefund(t *testing.T) {
	b := paidBooking(t)
	assert.ErrorIs(t, b.ClaimRefund(now), ErrRefundNotPending)
}

func TestCheckInOutWindow(t *testing.T) {
	b := paidBooking(t)

	assert.ErrorIs(t, b.CheckIn(day(9)), ErrCheckInTooEarly)
	require.NoError(t, b.CheckIn(day(10)))
	assert.ErrorIs(t, b.CheckIn(day(10)), ErrAlreadyCheckedIn)

	assert.ErrorIs(t, b.CheckOut(day(12)), ErrCheckOutTooEarly)
	require.NoError(t, b.CheckOut(day(13)))
	assert.ErrorIs(t, b.CheckOut(day(13)), ErrAlreadyCheckedOut)
}

func TestCheckOutRequiresCheckIn(t *testing.T) {
	b := paidBooking(t)
	assert.ErrorIs(t, b.CheckOut(day(13)), ErrNotCheckedIn)
}

func TestSettlementFlagsFlipOnce(t *testing.T) {
	b := fixtureBooking(t)

	assert.True(t, b.MarkPayoutIssued())
	assert.False(t, b.MarkPayoutIssued())
	assert.True(t, b.MarkReferralRewarded())
	assert.False(t, b.MarkReferralRewarded())
}
