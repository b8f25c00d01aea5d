package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping. Handlers return kinded
// errors so the HTTP layer can pick a status without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuthorization
	KindUpstream
)

type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

func Validation(format string, args ...any) error {
	return wrap(KindValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) error {
	return wrap(KindNotFound, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) error {
	return wrap(KindConflict, fmt.Errorf(format, args...))
}

func Authorization(format string, args ...any) error {
	return wrap(KindAuthorization, fmt.Errorf(format, args...))
}

func Upstream(err error) error {
	return wrap(KindUpstream, err)
}

// AsValidation wraps an existing error keeping it unwrappable.
func AsValidation(err error) error { return wrap(KindValidation, err) }

func AsNotFound(err error) error { return wrap(KindNotFound, err) }

func AsConflict(err error) error { return wrap(KindConflict, err) }

// KindOf extracts the kind from anywhere in the chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
