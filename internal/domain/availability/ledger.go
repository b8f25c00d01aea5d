package availability

import (
	"errors"
	"fmt"

	"stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/trip"
)

var (
	ErrDatesTaken    = errors.New("availability: listing already booked for those dates")
	ErrDatesBlocked  = errors.New("availability: host blocked those dates")
	ErrNotEnoughSeat = errors.New("availability: not enough seats available")
)

// Ledger decides whether a candidate reservation fits. It is a pure read:
// callers must re-run the check against fresh state inside the same unit of
// work that performs the write, because availability can change between
// check and commit.
type Ledger struct{}

// CanBook verifies the candidate range against host blocks and every
// non-cancelled booking on the listing. The active slice usually comes from
// Repository.ActiveOverlapping; cancelled and excluded entries are skipped
// here as well so the rule holds regardless of how the slice was built.
func (Ledger) CanBook(listing *listings.Listing, active []*booking.Booking, r daterange.DateRange, exclude booking.BookingID) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if listing.IsBlocked(r) {
		return ErrDatesBlocked
	}
	for _, b := range active {
		if b.ID == exclude || !b.IsActive() {
			continue
		}
		if b.Range.Overlaps(r) {
			return ErrDatesTaken
		}
	}
	return nil
}

// CheckSeats rejects a combined order when the linked trip cannot carry the
// whole party.
func (Ledger) CheckSeats(t *trip.Trip, guests int) error {
	if guests <= 0 {
		return trip.ErrInvalidSeats
	}
	if available := t.SeatsAvailable(); guests > available {
		return fmt.Errorf("%w: requested %d, available %d", ErrNotEnoughSeat, guests, available)
	}
	return nil
}
