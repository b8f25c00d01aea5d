package listings

import (
	"context"
	"errors"
	"time"

	"stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
)

var (
	ErrListingNotFound = errors.New("listings: not found")
	ErrGuestsLimit     = errors.New("listings: guests limit must be at least 1")
	ErrNightlyRate     = errors.New("listings: nightly rate must be positive")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrBlockOverlap    = errors.New("listings: blocked range overlaps an existing one")
)

type ListingID string

// Listing is the read-side snapshot the booking engine needs from the
// catalog collaborator: owner, price, capacity and host-declared blocks.
type Listing struct {
	ID          ListingID
	HostID      string
	Title       string
	City        string
	NightlyRate money.Money
	MaxGuests   int
	Blocked     []daterange.DateRange
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

func New(id ListingID, hostID, title string, nightly money.Money, maxGuests int, now time.Time) (*Listing, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}
	if maxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if nightly.Amount <= 0 || nightly.Currency == "" {
		return nil, ErrNightlyRate
	}
	return &Listing{
		ID:          id,
		HostID:      hostID,
		Title:       title,
		NightlyRate: nightly,
		MaxGuests:   maxGuests,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// BlockRange marks dates the host keeps off the market.
func (l *Listing) BlockRange(r daterange.DateRange, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, existing := range l.Blocked {
		if existing.Overlaps(r) {
			return ErrBlockOverlap
		}
	}
	l.Blocked = append(l.Blocked, r)
	l.UpdatedAt = now.UTC()
	return nil
}

// IsBlocked reports whether r touches any host-declared blocked range.
func (l *Listing) IsBlocked(r daterange.DateRange) bool {
	for _, blocked := range l.Blocked {
		if blocked.Overlaps(r) {
			return true
		}
	}
	return false
}
