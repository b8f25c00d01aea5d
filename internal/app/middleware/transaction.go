package middleware

import (
	"context"
	"errors"

	"stayride/internal/app/commands"
	"stayride/internal/app/uow"
)

var ErrUnitOfWorkMissing = errors.New("middleware: unit of work not found")

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction opens a unit of work per dispatch, exposes it through the
// context and commits only when the handler succeeds. A nil options provider
// means default transaction options for every command.
func Transaction(factory uow.UoWFactory, optsFor TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var opts uow.TxOptions
			if optsFor != nil {
				opts = optsFor(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := unitContext(ctx, unit)

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				_ = unit.Rollback(execCtx)
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				_ = unit.Rollback(execCtx)
				return nil, err
			}
			return res, nil
		})
	}
}

// unitContext lets session-backed units (mongo) bind their session to the
// context before the unit itself is attached.
func unitContext(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}
