// Package emulator provides an in-process implementation of the runtime
// control protocol for local development and tests. It serves the same
// three routes the hosted control endpoint exposes: a long poll for the
// next invocation event and the per-request response and error sinks.
package emulator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// Outcome is the terminal state of one emulated invocation.
type Outcome struct {
	RequestID string
	Body      []byte
	IsError   bool
}

// Pending tracks an enqueued invocation until the runtime posts its
// response or error report.
type Pending struct {
	RequestID string
	done      chan Outcome
}

// Await blocks until the invocation completes or the context is cancelled.
func (p *Pending) Await(ctx context.Context) (Outcome, error) {
	select {
	case outcome := <-p.done:
		return outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

type queuedEvent struct {
	pending     *Pending
	payload     []byte
	contentType string
	traceID     string
	headers     map[string]string
	deadline    time.Time
}

// Option customizes an enqueued invocation event.
type Option func(*queuedEvent)

// WithContentType sets the declared media type of the event payload.
func WithContentType(contentType string) Option {
	return func(e *queuedEvent) { e.contentType = contentType }
}

// WithTraceID attaches an upstream trace id to the event.
func WithTraceID(traceID string) Option {
	return func(e *queuedEvent) { e.traceID = traceID }
}

// WithHeader adds an arbitrary event header, such as the per-event
// function definition.
func WithHeader(key, value string) Option {
	return func(e *queuedEvent) { e.headers[key] = value }
}

// WithDeadline sets the invocation deadline advertised to the runtime.
func WithDeadline(deadline time.Time) Option {
	return func(e *queuedEvent) { e.deadline = deadline }
}

// Server is an in-memory control endpoint. Mount Handler on any listener,
// enqueue events and await their outcomes.
type Server struct {
	version string
	logger  loggingpkg.ServiceLogger
	queue   chan *queuedEvent

	mu         sync.Mutex
	inflight   map[string]*Pending
	responses  []Outcome
	errorPosts []Outcome
}

// New builds an emulator serving the default protocol version.
func New(logger loggingpkg.ServiceLogger) *Server {
	return NewWithVersion(configpkg.DefaultRuntimeVersion, logger)
}

// NewWithVersion builds an emulator serving a specific protocol version
// segment.
func NewWithVersion(version string, logger loggingpkg.ServiceLogger) *Server {
	return &Server{
		version:  version,
		logger:   logger,
		queue:    make(chan *queuedEvent, 128),
		inflight: make(map[string]*Pending),
	}
}

// Handler returns the HTTP handler implementing the control protocol.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("GET /%s/runtime/invocation/next", s.version), s.handleNext)
	mux.HandleFunc(fmt.Sprintf("POST /%s/runtime/invocation/{requestID}/response", s.version), s.handleResponse)
	mux.HandleFunc(fmt.Sprintf("POST /%s/runtime/invocation/{requestID}/error", s.version), s.handleError)
	return mux
}

// Enqueue queues an invocation event and returns a handle to await its
// outcome. The request id is generated.
func (s *Server) Enqueue(payload []byte, opts ...Option) *Pending {
	event := &queuedEvent{
		payload: payload,
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(event)
	}
	pending := &Pending{
		RequestID: uuid.NewString(),
		done:      make(chan Outcome, 1),
	}
	event.pending = pending

	s.mu.Lock()
	s.inflight[pending.RequestID] = pending
	s.mu.Unlock()

	s.queue <- event
	s.logger.Debug("event enqueued", loggingpkg.LogFields{"request_id": pending.RequestID})
	return pending
}

// Responses returns the successful outcomes recorded so far.
func (s *Server) Responses() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Outcome(nil), s.responses...)
}

// ErrorReports returns the error outcomes recorded so far.
func (s *Server) ErrorReports() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Outcome(nil), s.errorPosts...)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	select {
	case event := <-s.queue:
		w.Header().Set(transportpkg.HeaderRequestID, event.pending.RequestID)
		if event.contentType != "" {
			w.Header().Set(transportpkg.HeaderContentType, event.contentType)
		}
		if event.traceID != "" {
			w.Header().Set(transportpkg.HeaderTraceID, event.traceID)
		}
		if !event.deadline.IsZero() {
			w.Header().Set(transportpkg.HeaderDeadlineMS, strconv.FormatInt(event.deadline.UnixMilli(), 10))
		}
		for key, value := range event.headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(event.payload); err != nil {
			s.logger.Error("writing event payload", err, nil)
		}
	case <-r.Context().Done():
		// The polling client went away; nothing to deliver.
	}
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	s.complete(w, r, false)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	s.complete(w, r, true)
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request, isError bool) {
	requestID := r.PathValue("requestID")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	pending, known := s.inflight[requestID]
	if !known {
		s.mu.Unlock()
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}
	delete(s.inflight, requestID)
	outcome := Outcome{RequestID: requestID, Body: body, IsError: isError}
	if isError {
		s.errorPosts = append(s.errorPosts, outcome)
	} else {
		s.responses = append(s.responses, outcome)
	}
	s.mu.Unlock()
	pending.done <- outcome
	w.WriteHeader(http.StatusAccepted)
}
