package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	domainreferral "stayride/internal/domain/referral"
	domainrange "stayride/internal/domain/shared/daterange"
	domaintrip "stayride/internal/domain/trip"
)

// ListingRepository is an in-memory implementation for tests and demos.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = listing
	return nil
}

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
	locks map[domainlistings.ListingID]int64
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items: make(map[domainbooking.BookingID]*domainbooking.Booking),
		locks: make(map[domainlistings.ListingID]int64),
	}
}

// LockCalendar mirrors the per-listing write-conflict point of the real
// store. The in-memory version just counts acquisitions; the map mutex
// already serializes writers.
func (r *BookingRepository) LockCalendar(ctx context.Context, listingID domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks[listingID]++
	return nil
}

// CalendarLockVersion reports how often the listing's calendar lock was
// taken.
func (r *BookingRepository) CalendarLockVersion(listingID domainlistings.ListingID) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locks[listingID]
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	booking, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return booking, nil
}

func (r *BookingRepository) ByTransactionID(ctx context.Context, transactionID string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if transactionID == "" {
		return nil, domainbooking.ErrBookingNotFound
	}
	for _, booking := range r.items {
		if booking.TransactionID == transactionID || booking.Extra.TransactionID == transactionID {
			return booking, nil
		}
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r *BookingRepository) ActiveOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if booking.ListingID != listingID || booking.ID == exclude {
			continue
		}
		if !booking.IsActive() {
			continue
		}
		if booking.Range.Overlaps(dr) {
			matches = append(matches, booking)
		}
	}
	return matches, nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(guestID)
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if booking.GuestID == id {
			matches = append(matches, booking)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if booking.Status != domainbooking.StatusPending {
			continue
		}
		if booking.PaymentStatus == domainbooking.PaymentPaid {
			continue
		}
		if booking.CreatedAt.Before(cutoff) {
			matches = append(matches, booking)
		}
	}
	return matches, nil
}

func (r *BookingRepository) ListRefundPending(ctx context.Context) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0)
	for _, booking := range r.items {
		if booking.Extra.Status == domainbooking.ExtraRefundPending {
			matches = append(matches, booking)
		}
	}
	return matches, nil
}

func (r *BookingRepository) Save(ctx context.Context, booking *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking.Version++
	r.items[booking.ID] = booking
	return nil
}

// TripRepository stores trips in memory.
type TripRepository struct {
	mu    sync.RWMutex
	items map[domaintrip.TripID]*domaintrip.Trip
}

func NewTripRepository() *TripRepository {
	return &TripRepository{items: make(map[domaintrip.TripID]*domaintrip.Trip)}
}

func (r *TripRepository) ByID(ctx context.Context, id domaintrip.TripID) (*domaintrip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trip, ok := r.items[id]
	if !ok {
		return nil, domaintrip.ErrTripNotFound
	}
	return trip, nil
}

func (r *TripRepository) Save(ctx context.Context, trip *domaintrip.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip.Version++
	r.items[trip.ID] = trip
	return nil
}

// PayoutRepository keeps the settlement ledger in memory. Add never
// overwrites an existing entry for the same booking and role.
type PayoutRepository struct {
	mu    sync.RWMutex
	items map[domainpayout.PayoutID]*domainpayout.Payout
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{items: make(map[domainpayout.PayoutID]*domainpayout.Payout)}
}

func (r *PayoutRepository) Add(ctx context.Context, entry *domainpayout.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.BookingID == entry.BookingID && existing.Role == entry.Role {
			return domainpayout.ErrAlreadyPaid
		}
	}
	r.items[entry.ID] = entry
	return nil
}

func (r *PayoutRepository) ByID(ctx context.Context, id domainpayout.PayoutID) (*domainpayout.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.items[id]
	if !ok {
		return nil, domainpayout.ErrPayoutNotFound
	}
	return entry, nil
}

func (r *PayoutRepository) ListPending(ctx context.Context, role domainpayout.PayeeRole) ([]*domainpayout.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainpayout.Payout, 0)
	for _, entry := range r.items {
		if entry.Status != domainpayout.StatusPending {
			continue
		}
		if role != "" && entry.Role != role {
			continue
		}
		matches = append(matches, entry)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *PayoutRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domainpayout.Payout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainpayout.Payout, 0)
	for _, entry := range r.items {
		if entry.BookingID == bookingID {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func (r *PayoutRepository) Update(ctx context.Context, entry *domainpayout.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[entry.ID]; !ok {
		return domainpayout.ErrPayoutNotFound
	}
	r.items[entry.ID] = entry
	return nil
}

// ReferralRepository keeps referral accounts keyed by the referred guest.
type ReferralRepository struct {
	mu    sync.RWMutex
	items map[string]*domainreferral.Account
}

func NewReferralRepository() *ReferralRepository {
	return &ReferralRepository{items: make(map[string]*domainreferral.Account)}
}

func (r *ReferralRepository) ByGuest(ctx context.Context, guestID string) (*domainreferral.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.items[guestID]
	if !ok {
		return nil, domainreferral.ErrAccountNotFound
	}
	return account, nil
}

func (r *ReferralRepository) Save(ctx context.Context, account *domainreferral.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[account.GuestID] = account
	return nil
}
