package runtime

import (
	"sync"
	"time"
)

// LoopStatsSnapshot is a point-in-time copy of the event loop counters.
type LoopStatsSnapshot struct {
	Polls                 uint64    `json:"polls"`
	TransientPollFailures uint64    `json:"transient_poll_failures"`
	InvocationsSucceeded  uint64    `json:"invocations_succeeded"`
	InvocationsFailed     uint64    `json:"invocations_failed"`
	ErrorReports          uint64    `json:"error_reports"`
	LastRequestID         string    `json:"last_request_id,omitempty"`
	LastError             string    `json:"last_error,omitempty"`
	LastProcessedAt       time.Time `json:"last_processed_at"`
}

// LoopStats tracks what the event loop has done so far. All methods are
// safe for concurrent use.
type LoopStats struct {
	mu   sync.Mutex
	snap LoopStatsSnapshot
}

func (s *LoopStats) recordPoll(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Polls++
	s.snap.LastRequestID = requestID
}

func (s *LoopStats) recordTransientPoll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.TransientPollFailures++
}

func (s *LoopStats) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.InvocationsSucceeded++
	s.snap.LastProcessedAt = time.Now()
}

func (s *LoopStats) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.InvocationsFailed++
	s.snap.LastError = err.Error()
	s.snap.LastProcessedAt = time.Now()
}

func (s *LoopStats) recordErrorReport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ErrorReports++
}

// Snapshot returns a copy of the current counters.
func (s *LoopStats) Snapshot() LoopStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
