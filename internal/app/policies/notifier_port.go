package policies

import "context"

// Notifier delivers a templated message to a user. Implementations are
// best-effort: callers log failures and never roll back on them.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
