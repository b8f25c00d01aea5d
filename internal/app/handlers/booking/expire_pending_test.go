package booking

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
	"stayride/internal/domain/shared/money"
	"stayride/internal/infra/storage/memory"
)

func seedPendingBooking(t *testing.T, factory memory.Factory, id string, createdAt time.Time, pay bool) {
	t.Helper()
	ctx := context.Background()

	listing, err := factory.ListingsRepo.ByID(ctx, "lst-1")
	require.NoError(t, err)
	dr, err := daterange.New(createdAt.Add(30*24*time.Hour), createdAt.Add(33*24*time.Hour))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		Listing:   listing,
		GuestID:   "guest-" + id,
		Range:     dr,
		Guests:    1,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	if pay {
		require.NoError(t, b.BeginPayment("tx-"+id, createdAt))
		_, err = b.ApplyPaymentSuccess(b.Total, "val-"+id, createdAt)
		require.NoError(t, err)
	}
	b.ClearEvents()
	require.NoError(t, factory.BookingsRepo.Save(ctx, b))
}

func TestExpirePendingSweep(t *testing.T) {
	factory := memory.NewFactory()
	now := time.Now().UTC()

	listing, err := domainlistings.New("lst-1", "host-1", "Beach hut", money.Must(90000, "BDT"), 2, now.Add(-100*time.Hour))
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(context.Background(), listing))

	seedPendingBooking(t, factory, "stale", now.Add(-80*time.Hour), false)
	seedPendingBooking(t, factory, "fresh", now.Add(-10*time.Hour), false)
	seedPendingBooking(t, factory, "paid", now.Add(-80*time.Hour), true)

	handler := &ExpirePendingHandler{
		UoWFactory: factory,
		Outbox:     memory.NewOutbox(),
		Encoder:    outbox.JSONEventEncoder{},
	}
	res, err := handler.Handle(context.Background(), ExpirePendingCommand{Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, res.Expired)

	ctx := context.Background()
	stale, err := factory.BookingsRepo.ByID(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusExpired, stale.Status)

	fresh, err := factory.BookingsRepo.ByID(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, fresh.Status)

	paid, err := factory.BookingsRepo.ByID(ctx, "paid")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, paid.Status)
}

func TestExpirePendingSweepIsRepeatable(t *testing.T) {
	factory := memory.NewFactory()
	now := time.Now().UTC()

	listing, err := domainlistings.New("lst-1", "host-1", "Beach hut", money.Must(90000, "BDT"), 2, now.Add(-100*time.Hour))
	require.NoError(t, err)
	require.NoError(t, factory.ListingsRepo.Save(context.Background(), listing))
	seedPendingBooking(t, factory, "stale", now.Add(-80*time.Hour), false)

	handler := &ExpirePendingHandler{
		UoWFactory: factory,
		Outbox:     memory.NewOutbox(),
		Encoder:    outbox.JSONEventEncoder{},
	}
	res, err := handler.Handle(context.Background(), ExpirePendingCommand{Now: now})
	require.NoError(t, err)
	require.Len(t, res.Expired, 1)

	res, err = handler.Handle(context.Background(), ExpirePendingCommand{Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Expired)
}
