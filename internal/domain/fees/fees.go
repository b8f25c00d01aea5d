package fees

import (
	"errors"

	"stayride/internal/domain/shared/money"
)

var (
	ErrNonPositiveGross = errors.New("fees: gross amount must be positive")
	ErrInvalidNights    = errors.New("fees: nights must be positive")
	ErrInvalidSeats     = errors.New("fees: seats must be positive")
)

// Policy carries the marketplace percentages. It is injected wherever fees
// are computed; nothing reads it from global state. The guest-side fee is
// embedded in the gross the guest already paid, hence the fractional form:
// guestFee = gross * GuestFeeNum / GuestFeeDen.
type Policy struct {
	GuestFeeNum        int64
	GuestFeeDen        int64
	HostFeeBps         int64
	VATBps             int64
	RideServiceBps     int64
	CombinedServiceBps int64
}

// DefaultPolicy returns the production percentages: 10% guest fee embedded
// (10/115 of gross), 5% host fee, 15% VAT on fees, 10% ride service fee,
// 10% combined-order service fee.
func DefaultPolicy() Policy {
	return Policy{
		GuestFeeNum:        10,
		GuestFeeDen:        115,
		HostFeeBps:         500,
		VATBps:             1500,
		RideServiceBps:     1000,
		CombinedServiceBps: 1000,
	}
}

// StayTotal is the guest-facing subtotal for a stay.
func (p Policy) StayTotal(nightly money.Money, nights int) (money.Money, error) {
	if nights <= 0 {
		return money.Money{}, ErrInvalidNights
	}
	return nightly.Multiply(int64(nights)), nil
}

// StaySplit is the settlement breakdown of a paid stay. The identities
// hostPayout + hostFee == gross and vat == 15% of (guestFee + hostFee) hold
// to the minor unit.
type StaySplit struct {
	Gross      money.Money
	GuestFee   money.Money
	HostFee    money.Money
	VAT        money.Money
	HostPayout money.Money
}

// StayPayoutSplit derives fee, tax and host net from the gross amount the
// guest actually paid.
func (p Policy) StayPayoutSplit(gross money.Money) (StaySplit, error) {
	if gross.Amount <= 0 {
		return StaySplit{}, ErrNonPositiveGross
	}
	guestFee := gross.MulDiv(p.GuestFeeNum, p.GuestFeeDen)
	hostBase, err := gross.Sub(guestFee)
	if err != nil {
		return StaySplit{}, err
	}
	hostFee := hostBase.Percent(p.HostFeeBps)
	feeSum, err := guestFee.Add(hostFee)
	if err != nil {
		return StaySplit{}, err
	}
	vat := feeSum.Percent(p.VATBps)
	hostPayout, err := gross.Sub(hostFee)
	if err != nil {
		return StaySplit{}, err
	}
	return StaySplit{
		Gross:      gross,
		GuestFee:   guestFee,
		HostFee:    hostFee,
		VAT:        vat,
		HostPayout: hostPayout,
	}, nil
}

// RideSplit is the settlement breakdown of a paid ride.
type RideSplit struct {
	Subtotal     money.Money
	ServiceFee   money.Money
	VAT          money.Money
	DriverPayout money.Money
}

// RidePayoutSplit computes the driver settlement for seats on a trip.
func (p Policy) RidePayoutSplit(farePerSeat money.Money, seats int) (RideSplit, error) {
	if seats <= 0 {
		return RideSplit{}, ErrInvalidSeats
	}
	subtotal := farePerSeat.Multiply(int64(seats))
	serviceFee := subtotal.Percent(p.RideServiceBps)
	vat := serviceFee.Percent(p.VATBps)
	driverPayout, err := subtotal.Sub(serviceFee)
	if err != nil {
		return RideSplit{}, err
	}
	return RideSplit{
		Subtotal:     subtotal,
		ServiceFee:   serviceFee,
		VAT:          vat,
		DriverPayout: driverPayout,
	}, nil
}

// CombinedTotal is what the guest owes for a stay+ride order.
type CombinedTotal struct {
	ServiceFee money.Money
	Tax        money.Money
	Total      money.Money
}

// CombinedOrderTotal prices a combined stay+ride order: service fee over the
// joint subtotal, tax on the fee, discount subtracted last.
func (p Policy) CombinedOrderTotal(staySubtotal, tripFare, discount money.Money) (CombinedTotal, error) {
	base, err := staySubtotal.Add(tripFare)
	if err != nil {
		return CombinedTotal{}, err
	}
	serviceFee := base.Percent(p.CombinedServiceBps)
	tax := serviceFee.Percent(p.VATBps)
	total := base
	for _, part := range []money.Money{serviceFee, tax} {
		total, err = total.Add(part)
		if err != nil {
			return CombinedTotal{}, err
		}
	}
	if !discount.IsZero() {
		total, err = total.Sub(discount)
		if err != nil {
			return CombinedTotal{}, err
		}
	}
	return CombinedTotal{ServiceFee: serviceFee, Tax: tax, Total: total}, nil
}
