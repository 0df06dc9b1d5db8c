// Package tracing propagates the platform's distributed-trace identifier to
// downstream integrations. This is a best-effort, process-wide side channel:
// failures here never affect invocation processing.
package tracing

import (
	"os"
	"sync/atomic"
)

// TraceEnvVar is the process environment variable downstream X-Ray
// integrations read the current trace header from.
const TraceEnvVar = "_X_AMZN_TRACE_ID"

var current atomic.Value // string

// Propagate publishes the trace identifier of the current invocation.
func Propagate(traceID string) {
	if traceID == "" {
		return
	}
	current.Store(traceID)
	_ = os.Setenv(TraceEnvVar, traceID)
}

// Current returns the most recently propagated trace identifier.
func Current() string {
	v, _ := current.Load().(string)
	return v
}
