package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

var (
	ErrConfigRequired       = sterrors.New("lambdaloop: config is required")
	ErrLoggerRequired       = sterrors.New("lambdaloop: logger is required")
	ErrCatalogRequired      = sterrors.New("lambdaloop: function catalog is required")
	ErrFunctionRequired     = sterrors.New("lambdaloop: function is required")
	ErrFunctionNameRequired = sterrors.New("lambdaloop: function name is required")
	ErrHandlerRequired      = sterrors.New("lambdaloop: handler function is required")
	ErrPayloadPointerNeeded = sterrors.New("lambdaloop: payload type must be a pointer")
	ErrRequestIDMissing     = sterrors.New("lambdaloop: event is missing a request id")
)

// ResolutionError reports that no registered function matched any of the
// identifiers in the lookup fallback chain. Tried holds every identifier
// attempted in order, Known the full name listing of the registry.
type ResolutionError struct {
	Tried []string
	Known []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf(
		"lambdaloop: failed to locate function: tried %s; functions available in registry: [%s]",
		strings.Join(e.Tried, ", "),
		strings.Join(e.Known, ", "),
	)
}

// PanicError wraps a panic raised inside a function invocation together with
// the goroutine stack captured at recovery time.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("lambdaloop: function panicked: %v", e.Value)
}

// FatalTransportError marks a socket-level failure talking to the control
// endpoint. The event loop stops permanently when it sees one.
type FatalTransportError struct {
	Op  string
	Err error
}

func (e *FatalTransportError) Error() string {
	return fmt.Sprintf("lambdaloop: fatal transport failure during %s: %v", e.Op, e.Err)
}

func (e *FatalTransportError) Unwrap() error { return e.Err }

// ReportDeliveryError means the error POST itself failed. The runtime has
// lost its only channel to communicate failures upstream, so callers must
// treat this as unrecoverable.
type ReportDeliveryError struct {
	RequestID string
	Err       error
}

func (e *ReportDeliveryError) Error() string {
	return fmt.Sprintf("lambdaloop: failed to report invocation error for request %s: %v", e.RequestID, e.Err)
}

func (e *ReportDeliveryError) Unwrap() error { return e.Err }

// IsFatalTransport reports whether err carries a FatalTransportError anywhere
// in its chain.
func IsFatalTransport(err error) bool {
	var fatal *FatalTransportError
	return sterrors.As(err, &fatal)
}
