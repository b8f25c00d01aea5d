package support

import (
	"context"

	"stayride/internal/app/uow"
)

// BeginReadOnlyUnit reuses a unit of work from context or opens a throwaway
// read-only one. The returned cleanup (when non-nil) must be deferred.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := injectContext(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// Unit wraps a unit of work with ownership bookkeeping: when the unit came
// from the transaction middleware, Finish is a no-op and the middleware
// commits; when the handler had to open its own, Finish commits on success
// and rolls back otherwise.
type Unit struct {
	uow.UnitOfWork
	Ctx     context.Context
	managed bool
	done    bool
}

// BeginUnit reuses a unit of work from context or opens a managed one.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (*Unit, error) {
	if existing, ok := uow.FromContext(ctx); ok {
		return &Unit{UnitOfWork: existing, Ctx: ctx}, nil
	}
	if factory == nil {
		return nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &Unit{UnitOfWork: unit, Ctx: injectContext(ctx, unit), managed: true}, nil
}

// Finish commits a managed unit. Must be called on the success path only.
func (u *Unit) Finish() error {
	if !u.managed {
		return nil
	}
	if err := u.Commit(u.Ctx); err != nil {
		return err
	}
	u.done = true
	return nil
}

// Close rolls back a managed unit that was not finished. Safe to defer.
func (u *Unit) Close() {
	if u.managed && !u.done {
		_ = u.Rollback(u.Ctx)
	}
}

func injectContext(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}
