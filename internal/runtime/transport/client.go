package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	goruntime "runtime"
	"strings"
	"syscall"
	"time"

	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	metadatapkg "github.com/drblury/lambdaloop/internal/runtime/metadata"
)

const adapterVersion = "0.3.0"

// UserAgent identifies the runtime on every control protocol request.
var UserAgent = fmt.Sprintf("lambdaloop/%s-%s",
	strings.TrimPrefix(goruntime.Version(), "go"), adapterVersion)

// HTTPClientFactory builds the underlying HTTP client. Override in tests to
// inject transports. The client carries no global timeout: the next-event
// call is a long poll and may legitimately block for minutes.
var HTTPClientFactory = func() *http.Client {
	return &http.Client{}
}

// Client implements the three control protocol interactions.
type Client struct {
	endpoint        Endpoint
	http            *http.Client
	logger          loggingpkg.ServiceLogger
	responseTimeout time.Duration
}

// NewClient builds a Client for the configured runtime API endpoint.
func NewClient(conf *configpkg.Config, logger loggingpkg.ServiceLogger) *Client {
	return &Client{
		endpoint:        NewEndpoint(conf.RuntimeAPI, conf.Version()),
		http:            HTTPClientFactory(),
		logger:          logger,
		responseTimeout: conf.ResponseTimeout,
	}
}

// Poll blocks on the next-event URL. A socket-level failure returns a
// FatalTransportError; any other failure is logged and swallowed so the
// caller skips the iteration and re-polls. (nil, nil) therefore means
// "no event this time".
func (c *Client) Poll(ctx context.Context) (*Invocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.NextURL(), nil)
	if err != nil {
		return nil, &errspkg.FatalTransportError{Op: "poll", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation during shutdown is not a poll failure.
			return nil, nil
		}
		if isFatalNetworkError(err) {
			return nil, &errspkg.FatalTransportError{Op: "poll", Err: err}
		}
		c.logger.Error("transient failure polling for next event", err, nil)
		return nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isFatalNetworkError(err) {
			return nil, &errspkg.FatalTransportError{Op: "poll", Err: err}
		}
		c.logger.Error("failed to read event body", err, nil)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("unexpected status polling for next event", nil, loggingpkg.LogFields{
			"status": resp.StatusCode,
		})
		return nil, nil
	}

	requestID := resp.Header.Get(HeaderRequestID)
	if requestID == "" {
		c.logger.Error("event is missing a request id, skipping", errspkg.ErrRequestIDMissing, nil)
		return nil, nil
	}

	headers := make(metadatapkg.Metadata, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	inv := &Invocation{
		RequestID:   requestID,
		TraceID:     resp.Header.Get(HeaderTraceID),
		ContentType: resp.Header.Get(HeaderContentType),
		Headers:     headers,
		Payload:     body,
	}

	c.logger.Debug("received invocation event", loggingpkg.LogFields{
		"request_id":   inv.RequestID,
		"trace_id":     inv.TraceID,
		"content_type": inv.ContentType,
		"body_bytes":   len(inv.Payload),
	})
	return inv, nil
}

// Respond POSTs the encoded function output to the success-response URL.
// The status is logged; 4xx/5xx acknowledgments surface as errors so the
// iteration reports them, but they are never retried here.
func (c *Client) Respond(ctx context.Context, requestID string, body []byte) error {
	status, err := c.post(ctx, c.endpoint.ResponseURL(requestID), body)
	if err != nil {
		return fmt.Errorf("lambdaloop: failed to submit response for request %s: %w", requestID, err)
	}
	c.logger.Info("result POST status", loggingpkg.LogFields{
		"request_id": requestID,
		"status":     status,
	})
	if status >= http.StatusBadRequest {
		return fmt.Errorf("lambdaloop: response POST for request %s rejected with status %d", requestID, status)
	}
	return nil
}

// ReportError POSTs the serialized error report to the error-response URL.
// Failures surface to the caller; losing this channel is fatal to the loop.
func (c *Client) ReportError(ctx context.Context, requestID string, body []byte) error {
	status, err := c.post(ctx, c.endpoint.ErrorURL(requestID), body)
	if err != nil {
		return fmt.Errorf("lambdaloop: failed to submit error for request %s: %w", requestID, err)
	}
	c.logger.Info("error POST status", loggingpkg.LogFields{
		"request_id": requestID,
		"status":     status,
	})
	if status >= http.StatusBadRequest {
		return fmt.Errorf("lambdaloop: error POST for request %s rejected with status %d", requestID, status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (int, error) {
	if c.responseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.responseTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// isFatalNetworkError distinguishes socket-level disconnects (the control
// endpoint is gone for the remainder of the process lifetime) from transient
// conditions such as read timeouts.
func isFatalNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	// Name resolution failures are not socket-level: the endpoint may
	// resolve on a later attempt, so keep polling.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
