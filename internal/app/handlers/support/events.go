package support

import (
	"context"

	"stayride/internal/app/outbox"
	"stayride/internal/domain/shared/events"
)

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// DrainEvents moves pending domain events from aggregates into the outbox.
func DrainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}
