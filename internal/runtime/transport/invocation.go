package transport

import (
	"strconv"
	"time"

	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
)

// Invocation is one polled event: the raw body plus the control headers
// extracted from the poll response. Created per poll, consumed within one
// loop iteration.
type Invocation struct {
	// RequestID correlates the response or error POST with this event.
	RequestID string
	// TraceID is the optional distributed-trace identifier.
	TraceID string
	// ContentType is the declared media type of the payload.
	ContentType string
	// Headers carries every response header, canonical-keyed.
	Headers metadatapkg.Metadata
	// Payload is the raw event body.
	Payload []byte
}

// Deadline returns the invocation deadline when the platform supplied one.
func (i *Invocation) Deadline() (time.Time, bool) {
	raw := i.Headers.Get(HeaderDeadlineMS)
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// InvokedFunctionARN returns the ARN header when present.
func (i *Invocation) InvokedFunctionARN() string {
	return i.Headers.Get(HeaderInvokedFunctionARN)
}
