package runtime

import (
	"context"
	sterrors "errors"
	"reflect"
	"strings"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	"github.com/drblury/lambdaloop/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
)

// ErrorReport is the structured error document POSTed to the control
// endpoint when an invocation fails. All three fields are always present.
type ErrorReport struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
	StackTrace   string `json:"stackTrace"`
}

// NewErrorReport builds the report for an invocation failure.
func NewErrorReport(cause error) ErrorReport {
	return ErrorReport{
		ErrorMessage: cause.Error(),
		ErrorType:    errorTypeOf(cause),
		StackTrace:   formatTrace(cause),
	}
}

// errorTypeOf derives a type label from the concrete error. Anonymous
// stdlib wrappers would leak implementation detail, so they collapse to
// the generic InvocationError.
func errorTypeOf(cause error) string {
	t := reflect.TypeOf(cause)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "InvocationError"
	}
	name := t.Name()
	switch name {
	case "", "errorString", "wrapError", "joinError":
		return "InvocationError"
	}
	return name
}

// formatTrace renders the unwrap chain one frame per line, innermost last.
// Panics additionally carry the goroutine stack captured at recovery.
func formatTrace(cause error) string {
	var b strings.Builder
	for err := cause; err != nil; err = sterrors.Unwrap(err) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(err.Error())
		var panicErr *errspkg.PanicError
		if sterrors.As(err, &panicErr) && len(panicErr.Stack) > 0 {
			b.WriteString("\n")
			b.WriteString(strings.TrimRight(string(panicErr.Stack), "\n"))
			break
		}
	}
	return b.String()
}

// reporter delivers invocation failures upstream. A delivery failure is
// escalated as a *errspkg.ReportDeliveryError, which terminates the loop.
type reporter struct {
	client  Transport
	logger  loggingpkg.ServiceLogger
	metrics *loopMetrics
	stats   *LoopStats
}

func (r *reporter) Report(ctx context.Context, requestID string, cause error) error {
	report := NewErrorReport(cause)
	body, err := jsoncodec.Marshal(report)
	if err != nil {
		return &errspkg.ReportDeliveryError{RequestID: requestID, Err: err}
	}
	r.logger.Debug("reporting invocation error", loggingpkg.LogFields{
		"request_id": requestID,
		"error_type": report.ErrorType,
	})
	if err := r.client.ReportError(ctx, requestID, body); err != nil {
		return &errspkg.ReportDeliveryError{RequestID: requestID, Err: err}
	}
	r.stats.recordErrorReport()
	r.metrics.errorReport()
	return nil
}
