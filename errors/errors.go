package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is an error with a [Kind] and a customizable message. It may wrap
// the lower-level error that caused it, e.g. the error returned by the image
// stream on a failed read.
type DriverError interface {
	error
	Kind() Kind
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
	Unwrap() error
}

type driverError struct {
	kind          Kind
	message       string
	originalError error
}

// New creates a new [DriverError] whose message is the default message of the
// given kind.
func New(kind Kind) DriverError {
	return driverError{
		kind:    kind,
		message: kind.String(),
	}
}

// NewWithMessage creates a new DriverError of the given kind with a custom
// message appended to the default one.
func NewWithMessage(kind Kind, message string) DriverError {
	return driverError{
		kind:    kind,
		message: fmt.Sprintf("%s: %s", kind.String(), message),
	}
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e driverError) Error() string {
	return e.message
}

func (e driverError) Kind() Kind {
	return e.kind
}

// WithMessage returns a copy of this error with `message` appended to its
// message. The new error still matches this one with [errors.Is].
func (e driverError) WithMessage(message string) DriverError {
	return driverError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

// Wrap returns a copy of this error that also carries `err` as a cause. Both
// this error and `err` can be matched by [errors.Is] and [errors.As].
func (e driverError) Wrap(err error) DriverError {
	return driverError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e driverError) Unwrap() error {
	return e.originalError
}

// Is reports whether `target` is a bare error of the same kind as this one,
// such as [ErrCorruptChain]. Errors derived through WithMessage or Wrap are
// not valid targets; compare against the sentinels instead.
func (e driverError) Is(target error) bool {
	other, ok := target.(driverError)
	if !ok {
		return false
	}
	return other.originalError == nil && other.message == other.kind.String() && other.kind == e.kind
}

// KindOf returns the kind of the first DriverError in the chain of `err`. It
// returns KindOK for nil, and KindUnknown for errors that didn't come from this
// package.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var drvErr DriverError
	if stderrors.As(err, &drvErr) {
		return drvErr.Kind()
	}
	return KindUnknown
}
