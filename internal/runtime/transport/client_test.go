package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
)

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(
		slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: loggingpkg.LevelTrace})))
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	conf := &configpkg.Config{RuntimeAPI: strings.TrimPrefix(server.URL, "http://")}
	return NewClient(conf, newTestLogger())
}

func TestPollReturnsInvocation(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2018-06-01/runtime/invocation/next" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set(HeaderRequestID, "abc123")
		w.Header().Set(HeaderTraceID, "Root=1-5759e988-bd862e3fe1be46a994272793")
		w.Header().Set(HeaderContentType, "application/json")
		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	inv, err := newTestClient(t, server).Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invocation")
	}
	if inv.RequestID != "abc123" {
		t.Errorf("RequestID = %q", inv.RequestID)
	}
	if inv.TraceID == "" || inv.ContentType != "application/json" {
		t.Errorf("headers not extracted: %+v", inv)
	}
	if string(inv.Payload) != `{"x":1}` {
		t.Errorf("Payload = %s", inv.Payload)
	}
	if !strings.HasPrefix(gotUserAgent, "lambdaloop/") {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}
}

func TestPollTransientOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	inv, err := newTestClient(t, server).Poll(context.Background())
	if err != nil {
		t.Fatalf("error status must be transient, got: %v", err)
	}
	if inv != nil {
		t.Fatal("expected absent invocation")
	}
}

func TestPollTransientOnMissingRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	inv, err := newTestClient(t, server).Poll(context.Background())
	if err != nil || inv != nil {
		t.Fatalf("expected skip, got inv=%v err=%v", inv, err)
	}
}

func TestPollFatalOnClosedEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	_, err := client.Poll(context.Background())
	if err == nil {
		t.Fatal("expected fatal transport error")
	}
	if !errspkg.IsFatalTransport(err) {
		t.Fatalf("expected FatalTransportError, got %T: %v", err, err)
	}
}

func TestPollFatalOnAbortedConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Poll(context.Background())
	if !errspkg.IsFatalTransport(err) {
		t.Fatalf("expected FatalTransportError, got %v", err)
	}
}

func TestIsFatalNetworkErrorClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{
			name: "dns resolution failure is transient",
			err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{
				Err: "no such host", Name: "runtime.invalid", IsNotFound: true,
			}},
			fatal: false,
		},
		{
			name:  "connection refused is fatal",
			err:   &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			fatal: true,
		},
		{
			name:  "connection reset is fatal",
			err:   syscall.ECONNRESET,
			fatal: true,
		},
		{
			name:  "unexpected eof is fatal",
			err:   io.ErrUnexpectedEOF,
			fatal: true,
		},
		{
			name:  "plain read op error is fatal",
			err:   &net.OpError{Op: "read", Net: "tcp", Err: errors.New("broken")},
			fatal: true,
		},
		{
			name:  "nil is not fatal",
			err:   nil,
			fatal: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isFatalNetworkError(tc.err); got != tc.fatal {
				t.Errorf("isFatalNetworkError(%v) = %v, want %v", tc.err, got, tc.fatal)
			}
		})
	}
}

func TestPollCancelledContextIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	inv, err := newTestClient(t, server).Poll(ctx)
	if inv != nil || err != nil {
		t.Fatalf("expected silent skip on shutdown, got inv=%v err=%v", inv, err)
	}
}

func TestRespondPostsToResponseURL(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	if err := newTestClient(t, server).Respond(context.Background(), "abc123", []byte(`{"y":2}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/2018-06-01/runtime/invocation/abc123/response" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"y":2}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestRespondRejectedStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if err := newTestClient(t, server).Respond(context.Background(), "abc123", nil); err == nil {
		t.Fatal("expected error for rejected acknowledgment")
	}
}

func TestReportErrorFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	if err := client.ReportError(context.Background(), "abc123", []byte(`{}`)); err == nil {
		t.Fatal("expected error when the error POST cannot be delivered")
	}
}

func TestReportErrorPostsToErrorURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer server.Close()

	if err := newTestClient(t, server).ReportError(context.Background(), "abc123", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/2018-06-01/runtime/invocation/abc123/error" {
		t.Errorf("path = %q", gotPath)
	}
}
