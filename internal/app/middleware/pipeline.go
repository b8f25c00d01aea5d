package middleware

import (
	"context"

	"stayride/internal/app/commands"
	"stayride/internal/app/queries"
)

// CommandMiddleware decorates a command bus. Middleware listed first in a
// chain runs first on dispatch.
type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands applies the middleware around base, outermost first.
func ChainCommands(base commands.Bus, chain ...CommandMiddleware) commands.Bus {
	bus := base
	for i := len(chain) - 1; i >= 0; i-- {
		bus = chain[i](bus)
	}
	return bus
}

func ChainQueries(base queries.Bus, chain ...QueryMiddleware) queries.Bus {
	bus := base
	for i := len(chain) - 1; i >= 0; i-- {
		bus = chain[i](bus)
	}
	return bus
}

// commandFunc and queryFunc let middleware be written as plain closures
// instead of one-off wrapper structs.
type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return next.Dispatch
}

type queryFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

func wrapQuery(next queries.Bus) queryFunc {
	return next.Ask
}
