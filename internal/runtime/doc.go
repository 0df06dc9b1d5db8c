// Package runtime implements the custom-runtime event loop: it polls the
// control endpoint for invocation events, resolves the target function
// through the handler fallback chain, invokes it through the configured
// middleware stack and posts the response or a structured error report
// back to the endpoint.
package runtime
