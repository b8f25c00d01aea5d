package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"stayride/internal/app/policies"
	"stayride/internal/infra/inbox"
)

// InvoiceConsumer listens to the booking event stream and mails an invoice
// when a booking settles. Deliveries are deduplicated through the inbox so a
// replayed partition never duplicates an invoice.
type InvoiceConsumer struct {
	Inbox    *inbox.Store
	Notifier policies.Notifier
	Logger   *slog.Logger
}

type cloudEventEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// bookingPaidData mirrors the BookingPaid domain event, which is published
// with Go field names.
type bookingPaidData struct {
	BookingID string
	GuestID   string
	Amount    struct {
		Amount   int64
		Currency string
	}
	TransactionID string
}

func (c *InvoiceConsumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var envelope cloudEventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		// Malformed payloads are dropped, not retried.
		if c.Logger != nil {
			c.Logger.Warn("skipping malformed event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		return nil
	}
	if envelope.Type != "booking.paid.v1" {
		return nil
	}
	if c.Inbox != nil {
		seen, err := c.Inbox.Seen(ctx, envelope.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	var data bookingPaidData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		if c.Logger != nil {
			c.Logger.Warn("skipping malformed booking.paid data", "event_id", envelope.ID, "error", err)
		}
		return nil
	}

	invoice := map[string]any{
		"booking_id":     data.BookingID,
		"transaction_id": data.TransactionID,
		"amount":         data.Amount.Amount,
		"currency":       data.Amount.Currency,
		"reference":      fmt.Sprintf("INV-%s", data.BookingID),
	}
	if err := c.Notifier.Send(ctx, data.GuestID, "invoice", invoice); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Info("invoice sent", "booking_id", data.BookingID, "event_id", envelope.ID)
	}
	return nil
}
