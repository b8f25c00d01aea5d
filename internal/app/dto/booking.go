package dto

import (
	"time"

	domainbooking "stayride/internal/domain/booking"
	domainlistings "stayride/internal/domain/listings"
	domainpayout "stayride/internal/domain/payout"
	"stayride/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func mapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

type BookingListingSnapshot struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	City  string `json:"city"`
}

type ExtraPaymentDTO struct {
	Required bool     `json:"required"`
	Amount   MoneyDTO `json:"amount"`
	Status   string   `json:"status"`
}

type GuestBookingSummary struct {
	ID            string                 `json:"id"`
	Listing       BookingListingSnapshot `json:"listing"`
	TripID        string                 `json:"trip_id,omitempty"`
	CheckIn       time.Time              `json:"check_in"`
	CheckOut      time.Time              `json:"check_out"`
	Nights        int                    `json:"nights"`
	Guests        int                    `json:"guests"`
	Status        string                 `json:"status"`
	PaymentStatus string                 `json:"payment_status"`
	Total         MoneyDTO               `json:"total"`
	PaidAmount    MoneyDTO               `json:"paid_amount"`
	Extra         *ExtraPaymentDTO       `json:"extra_payment,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type GuestBookingCollection struct {
	Items []GuestBookingSummary `json:"items"`
}

func MapGuestBookingSummary(b *domainbooking.Booking, listing *domainlistings.Listing) GuestBookingSummary {
	summary := GuestBookingSummary{
		ID:            string(b.ID),
		TripID:        string(b.TripID),
		CheckIn:       b.Range.CheckIn,
		CheckOut:      b.Range.CheckOut,
		Nights:        b.Range.Nights(),
		Guests:        b.Guests,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Total:         mapMoney(b.Total),
		PaidAmount:    mapMoney(b.PaidAmount),
		CreatedAt:     b.CreatedAt,
	}
	if b.Extra.Status != domainbooking.ExtraNotRequired {
		summary.Extra = &ExtraPaymentDTO{
			Required: b.Extra.Required,
			Amount:   mapMoney(b.Extra.Amount),
			Status:   string(b.Extra.Status),
		}
	}
	if listing != nil {
		summary.Listing = BookingListingSnapshot{
			ID:    string(listing.ID),
			Title: listing.Title,
			City:  listing.City,
		}
	} else {
		summary.Listing = BookingListingSnapshot{ID: string(b.ListingID)}
	}
	return summary
}

type PayoutSummary struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	TripID    string    `json:"trip_id,omitempty"`
	PayeeID   string    `json:"payee_id"`
	Role      string    `json:"role"`
	Gross     MoneyDTO  `json:"gross"`
	Fee       MoneyDTO  `json:"fee"`
	VAT       MoneyDTO  `json:"vat"`
	Net       MoneyDTO  `json:"net"`
	Status    string    `json:"status"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PayoutCollection struct {
	Items []PayoutSummary `json:"items"`
}

func MapPayoutSummary(p *domainpayout.Payout) PayoutSummary {
	return PayoutSummary{
		ID:        string(p.ID),
		BookingID: p.BookingID,
		TripID:    p.TripID,
		PayeeID:   p.PayeeID,
		Role:      string(p.Role),
		Gross:     mapMoney(p.Gross),
		Fee:       mapMoney(p.Fee),
		VAT:       mapMoney(p.VAT),
		Net:       mapMoney(p.Net),
		Status:    string(p.Status),
		Method:    p.Method,
		CreatedAt: p.CreatedAt,
	}
}
