package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker drains the outbox on a ticker: claim one pending event, wrap it in
// a CloudEvents envelope and publish it, then mark it sent. Publish or
// format failures schedule a retry per the backoff ladder instead of
// stopping the loop.
type Worker struct {
	Store       *Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	workerID := w.ID
	if workerID == "" {
		workerID = uuid.NewString()
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOne(ctx, workerID); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) drainOne(ctx context.Context, workerID string) error {
	doc, err := w.Store.Claim(ctx, workerID)
	if err != nil || doc == nil {
		return err
	}
	payload, headers, err := w.envelope(doc)
	if err != nil {
		return w.Store.MarkFailed(ctx, doc.ID, w.retryAt(doc.Attempts), err.Error())
	}
	if err := w.Producer.Publish(ctx, w.topicFor(doc.Name), doc.Aggregate, payload, headers); err != nil {
		return w.Store.MarkFailed(ctx, doc.ID, w.retryAt(doc.Attempts), err.Error())
	}
	return w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) envelope(doc *EventDocument) ([]byte, map[string]string, error) {
	var data map[string]any
	if err := json.Unmarshal(doc.Payload, &data); err != nil {
		return nil, nil, err
	}
	source := w.Source
	if source == "" {
		source = "app://stayride"
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            doc.Name + ".v1",
		"source":          source,
		"time":            doc.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := doc.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps an event name to its family topic: "booking.paid" publishes
// on "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	family, _, found := strings.Cut(name, ".")
	if !found || family == "" {
		family = name
	}
	return w.TopicPrefix + family + ".events.v1"
}

func (w *Worker) retryAt(attempts int) time.Time {
	switch {
	case attempts < len(w.Backoff):
		return time.Now().Add(w.Backoff[attempts])
	case len(w.Backoff) > 0:
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	default:
		return time.Now().Add(5 * time.Second)
	}
}
