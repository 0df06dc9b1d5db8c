// Package transport speaks the control protocol: long-poll for the next
// invocation event, POST the function result, POST a structured error.
package transport

import "fmt"

// Control protocol headers. Header names are matched case-insensitively by
// net/http; these are the documented spellings.
const (
	HeaderRequestID          = "Lambda-Runtime-Aws-Request-Id"
	HeaderTraceID            = "Lambda-Runtime-Trace-Id"
	HeaderDeadlineMS         = "Lambda-Runtime-Deadline-Ms"
	HeaderInvokedFunctionARN = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderContentType        = "Content-Type"
	HeaderFunctionDefinition = "function.definition"
)

const (
	nextURLTemplate     = "http://%s/%s/runtime/invocation/next"
	responseURLTemplate = "http://%s/%s/runtime/invocation/%s/response"
	errorURLTemplate    = "http://%s/%s/runtime/invocation/%s/error"
)

// Endpoint composes the three control protocol URLs from the runtime API
// host:port and the protocol version segment. Immutable after construction;
// the loop derives one per start.
type Endpoint struct {
	runtimeAPI string
	version    string
}

// NewEndpoint builds an Endpoint for the given host:port and version tag.
func NewEndpoint(runtimeAPI, version string) Endpoint {
	return Endpoint{runtimeAPI: runtimeAPI, version: version}
}

// NextURL is the long-poll URL for the next pending event.
func (e Endpoint) NextURL() string {
	return fmt.Sprintf(nextURLTemplate, e.runtimeAPI, e.version)
}

// ResponseURL is the success-response URL for one request.
func (e Endpoint) ResponseURL(requestID string) string {
	return fmt.Sprintf(responseURLTemplate, e.runtimeAPI, e.version, requestID)
}

// ErrorURL is the error-response URL for one request.
func (e Endpoint) ErrorURL(requestID string) string {
	return fmt.Sprintf(errorURLTemplate, e.runtimeAPI, e.version, requestID)
}
