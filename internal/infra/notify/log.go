package notify

import (
	"context"
	"log/slog"

	"stayride/internal/app/policies"
)

// LogNotifier writes notifications to the structured log. Used in dev and
// as the fallback when no SendGrid key is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, template string, data any) error {
	if n.Logger != nil {
		n.Logger.Info("notification", "to", to, "template", template, "data", data)
	}
	return nil
}

var _ policies.Notifier = LogNotifier{}
