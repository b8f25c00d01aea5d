package modification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/outbox"
	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/fault"
	"stayride/internal/domain/shared/money"
	"stayride/internal/infra/storage/memory"
)

type modificationWorld struct {
	factory memory.Factory
	request *RequestDateChangeHandler
	respond *RespondDateChangeHandler
	now     time.Time
}

func newModificationWorld(t *testing.T) *modificationWorld {
	t.Helper()
	ctx := context.Background()
	factory := memory.NewFactory()
	now := time.Now().UTC()

	listing, err := domainlistings.New("lst-1", "host-1", "Garden house", money.Must(100000, "BDT"), 4, now)
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(ctx, listing))

	dr, err := daterange.New(now.Add(72*time.Hour), now.Add(144*time.Hour))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        "bkg-1",
		Listing:   listing,
		GuestID:   "guest-1",
		Range:     dr,
		Guests:    2,
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, b.BeginPayment("tx-1", now))
	_, err = b.ApplyPaymentSuccess(b.Total, "val-1", now)
	require.NoError(t, err)
	b.ClearEvents()
	require.NoError(t, factory.BookingsRepo.Save(ctx, b))

	box := memory.NewOutbox()
	enc := outbox.JSONEventEncoder{}
	return &modificationWorld{
		factory: factory,
		request: &RequestDateChangeHandler{UoWFactory: factory, Outbox: box, Encoder: enc},
		respond: &RespondDateChangeHandler{UoWFactory: factory, Outbox: box, Encoder: enc},
		now:     now,
	}
}

func TestDateChangeAcceptComputesExtraDue(t *testing.T) {
	w := newModificationWorld(t)
	ctx := context.Background()

	res, err := w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		CheckIn:   w.now.Add(72 * time.Hour),
		CheckOut:  w.now.Add(192 * time.Hour), // 3 -> 5 nights
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.ModificationRequested), res.Status)

	out, err := w.respond.Handle(ctx, RespondDateChangeCommand{BookingID: "bkg-1", HostID: "host-1", Accept: true})
	require.NoError(t, err)

	assert.Equal(t, string(domainbooking.ModificationAccepted), out.Status)
	assert.Equal(t, string(domainbooking.ExtraPending), out.ExtraStatus)
	assert.Equal(t, int64(200000), out.ExtraAmount)

	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500000), stored.Total.Amount)
	assert.Equal(t, domainbooking.PaymentPartial, stored.PaymentStatus)

	// request and accept both hold the calendar lock while re-checking
	repo := w.factory.BookingsRepo.(*memory.BookingRepository)
	assert.Equal(t, int64(2), repo.CalendarLockVersion("lst-1"))
}

func TestDateChangeShrinkLeavesRefundPending(t *testing.T) {
	w := newModificationWorld(t)
	ctx := context.Background()

	_, err := w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		CheckIn:   w.now.Add(72 * time.Hour),
		CheckOut:  w.now.Add(120 * time.Hour), // 3 -> 2 nights
	})
	require.NoError(t, err)

	out, err := w.respond.Handle(ctx, RespondDateChangeCommand{BookingID: "bkg-1", HostID: "host-1", Accept: true})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.ExtraRefundPending), out.ExtraStatus)
	assert.Equal(t, int64(-100000), out.ExtraAmount)
}

func TestDateChangeReject(t *testing.T) {
	w := newModificationWorld(t)
	ctx := context.Background()

	_, err := w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		CheckIn:   w.now.Add(96 * time.Hour),
		CheckOut:  w.now.Add(168 * time.Hour),
	})
	require.NoError(t, err)

	out, err := w.respond.Handle(ctx, RespondDateChangeCommand{BookingID: "bkg-1", HostID: "host-1", Accept: false})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.ModificationRejected), out.Status)

	stored, err := w.factory.BookingsRepo.ByID(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), stored.Total.Amount)
}

func TestDateChangeRequestRejectsConflictingDates(t *testing.T) {
	w := newModificationWorld(t)
	ctx := context.Background()

	// another guest holds the week after
	listing, err := w.factory.ListingsRepo.ByID(ctx, "lst-1")
	require.NoError(t, err)
	dr, err := daterange.New(w.now.Add(144*time.Hour), w.now.Add(216*time.Hour))
	require.NoError(t, err)
	other, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        "bkg-2",
		Listing:   listing,
		GuestID:   "guest-2",
		Range:     dr,
		Guests:    1,
		CreatedAt: w.now,
	})
	require.NoError(t, err)
	other.ClearEvents()
	require.NoError(t, w.factory.BookingsRepo.Save(ctx, other))

	_, err = w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		CheckIn:   w.now.Add(72 * time.Hour),
		CheckOut:  w.now.Add(192 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))
}

func TestDateChangeAuthorization(t *testing.T) {
	w := newModificationWorld(t)
	ctx := context.Background()

	_, err := w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-9",
		CheckIn:   w.now.Add(96 * time.Hour),
		CheckOut:  w.now.Add(168 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, fault.KindAuthorization, fault.KindOf(err))

	_, err = w.request.Handle(ctx, RequestDateChangeCommand{
		BookingID: "bkg-1",
		GuestID:   "guest-1",
		CheckIn:   w.now.Add(96 * time.Hour),
		CheckOut:  w.now.Add(168 * time.Hour),
	})
	require.NoError(t, err)

	_, err = w.respond.Handle(ctx, RespondDateChangeCommand{BookingID: "bkg-1", HostID: "host-9", Accept: true})
	require.Error(t, err)
	assert.Equal(t, fault.KindAuthorization, fault.KindOf(err))
}
