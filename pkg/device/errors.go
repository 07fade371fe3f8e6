package device

import (
	"errors"
	"fmt"

	"github.com/spvis/spvis-go/pkg/wire"
)

// StatusError is a failure reported by the spectrometer library.
type StatusError struct {
	Status  wire.Status
	Message string
}

// NewStatusError creates a StatusError with an optional message.
func NewStatusError(status wire.Status, format string, args ...any) *StatusError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &StatusError{Status: status, Message: msg}
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}

// StatusOf extracts the vendor status from err. It returns false if err
// is not (and does not wrap) a StatusError.
func StatusOf(err error) (wire.Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return wire.StatusUnknown, false
}
