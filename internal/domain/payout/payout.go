package payout

import (
	"context"
	"errors"
	"time"

	"stayride/internal/domain/fees"
	"stayride/internal/domain/shared/money"
)

var (
	ErrPayoutNotFound = errors.New("payout: not found")
	ErrAlreadyPaid    = errors.New("payout: already marked paid")
)

type PayoutID string

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

type PayeeRole string

const (
	RoleHost   PayeeRole = "HOST"
	RoleDriver PayeeRole = "DRIVER"
)

// Payout is an append-only ledger entry: money owed to a host or driver
// after a successful payment, pending manual transfer by an operator.
// Nothing but Status/Method/PaidAt is ever mutated.
type Payout struct {
	ID        PayoutID
	BookingID string
	TripID    string
	PayeeID   string
	Role      PayeeRole
	Gross     money.Money
	Fee       money.Money
	VAT       money.Money
	Net       money.Money
	Status    Status
	Method    string
	CreatedAt time.Time
	PaidAt    time.Time
}

type Repository interface {
	Add(ctx context.Context, entry *Payout) error
	ByID(ctx context.Context, id PayoutID) (*Payout, error)
	ListPending(ctx context.Context, role PayeeRole) ([]*Payout, error)
	ListByBooking(ctx context.Context, bookingID string) ([]*Payout, error)
	Update(ctx context.Context, entry *Payout) error
}

// NewHostPayout builds the host entry from a stay settlement split.
func NewHostPayout(id PayoutID, bookingID, hostID string, split fees.StaySplit, now time.Time) *Payout {
	return &Payout{
		ID:        id,
		BookingID: bookingID,
		PayeeID:   hostID,
		Role:      RoleHost,
		Gross:     split.Gross,
		Fee:       split.HostFee,
		VAT:       split.VAT,
		Net:       split.HostPayout,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
}

// NewDriverPayout builds the driver entry from a ride settlement split.
func NewDriverPayout(id PayoutID, tripID, bookingID, driverID string, split fees.RideSplit, now time.Time) *Payout {
	return &Payout{
		ID:        id,
		BookingID: bookingID,
		TripID:    tripID,
		PayeeID:   driverID,
		Role:      RoleDriver,
		Gross:     split.Subtotal,
		Fee:       split.ServiceFee,
		VAT:       split.VAT,
		Net:       split.DriverPayout,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
}

// MarkPaid records the operator-confirmed transfer.
func (p *Payout) MarkPaid(method string, now time.Time) error {
	if p.Status == StatusPaid {
		return ErrAlreadyPaid
	}
	p.Status = StatusPaid
	p.Method = method
	p.PaidAt = now.UTC()
	return nil
}
