package commands

import (
	"context"
	"fmt"
)

type rawHandler func(ctx context.Context, cmd Command) (any, error)

// InMemoryBus routes commands to handlers by command key. Registration
// happens once at startup; Dispatch is then read-only, so no locking.
type InMemoryBus struct {
	routes map[string]rawHandler
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]rawHandler)}
}

// RegisterRaw binds an untyped handler to a command key, replacing any
// previous binding for that key.
func (b *InMemoryBus) RegisterRaw(key string, handler rawHandler) {
	if key == "" {
		panic("commands: empty key registration")
	}
	b.routes[key] = handler
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	route, ok := b.routes[cmd.Key()]
	if !ok {
		return nil, ErrHandlerNotFound
	}
	return route(ctx, cmd)
}

// RegisterHandler adapts a typed Handler onto the bus, failing dispatch with
// ErrInvalidCommand when the key resolves to a command of another type.
func RegisterHandler[C Command, R any](bus *InMemoryBus, key string, handler Handler[C, R]) {
	if bus == nil {
		panic("commands: nil bus")
	}
	bus.RegisterRaw(key, func(ctx context.Context, raw Command) (any, error) {
		typed, ok := any(raw).(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, typed)
	})
}
