// Package handlers adapts strongly typed application functions into the
// registry's Function interface, taking care of payload (de)serialization
// and metadata plumbing.
package handlers

import (
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// FunctionContextBase provides common functionality for typed function
// contexts: the control headers of the current invocation and a logger.
type FunctionContextBase struct {
	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
}

// CloneMetadata returns a copy of the current metadata map so functions can
// safely derive headers for the result without touching the original.
func (b FunctionContextBase) CloneMetadata() metadatapkg.Metadata {
	return b.Metadata.Clone()
}

// Get retrieves a metadata value by key.
func (b FunctionContextBase) Get(key string) string {
	return b.Metadata.Get(key)
}

// RequestID returns the platform request identifier of this invocation.
func (b FunctionContextBase) RequestID() string {
	return b.Metadata.Get(transportpkg.HeaderRequestID)
}

// TraceID returns the distributed-trace identifier, if the platform sent one.
func (b FunctionContextBase) TraceID() string {
	return b.Metadata.Get(transportpkg.HeaderTraceID)
}
