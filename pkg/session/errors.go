package session

import (
	"errors"
	"fmt"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/wire"
)

// Session errors. They are wrapped in *Error.
var (
	ErrNotInitialized  = errors.New("session not initialized")
	ErrIndexOutOfRange = errors.New("device index out of range")
	ErrDeviceClosed    = errors.New("device closed")
	ErrNotActivated    = errors.New("device not activated")
	ErrNoMeasurement   = errors.New("no measurement taken")
)

// Error is returned by every failing Manager operation.
type Error struct {
	// Op is the library call that failed.
	Op wire.Operation

	// Index is the device index, or -1 for session-wide calls.
	Index int

	// Kind classifies the failure using the vendor status codes.
	Kind wire.Status

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session: %s device %d: %v", e.Op, e.Index, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err. It returns StatusSuccess for nil
// and StatusUnknown for errors that carry no kind.
func KindOf(err error) wire.Status {
	if err == nil {
		return wire.StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if st, ok := device.StatusOf(err); ok {
		return st
	}
	return wire.StatusUnknown
}

// newError classifies a transport or validation error.
func newError(op wire.Operation, index int, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind, ok := device.StatusOf(err)
	if !ok {
		kind = wire.StatusUnknown
	}
	return &Error{Op: op, Index: index, Kind: kind, Err: err}
}

// invalid builds a local rejection of the given kind.
func invalid(kind wire.Status, format string, args ...any) error {
	return device.NewStatusError(kind, format, args...)
}
