package emulator

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

func testLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmulatorDeliversEventAndRecordsResponse(t *testing.T) {
	emu := New(testLogger())
	srv := httptest.NewServer(emu.Handler())
	defer srv.Close()

	pending := emu.Enqueue([]byte(`{"name":"world"}`),
		WithContentType("application/json"),
		WithTraceID("Root=1-abc"),
		WithHeader(transportpkg.HeaderFunctionDefinition, "greeter"),
	)

	resp, err := http.Get(srv.URL + "/2018-06-01/runtime/invocation/next")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(transportpkg.HeaderRequestID); got != pending.RequestID {
		t.Errorf("request id header = %q, want %q", got, pending.RequestID)
	}
	if got := resp.Header.Get(transportpkg.HeaderTraceID); got != "Root=1-abc" {
		t.Errorf("trace header = %q", got)
	}
	if got := resp.Header.Get(transportpkg.HeaderFunctionDefinition); got != "greeter" {
		t.Errorf("function definition header = %q, want greeter", got)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"name":"world"}` {
		t.Errorf("event payload = %q", body)
	}

	post, err := http.Post(
		srv.URL+"/2018-06-01/runtime/invocation/"+pending.RequestID+"/response",
		"application/json",
		bytes.NewReader([]byte(`{"greeting":"hello world"}`)),
	)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusAccepted {
		t.Errorf("response status = %d, want 202", post.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := pending.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.IsError {
		t.Error("outcome should not be an error")
	}
	if string(outcome.Body) != `{"greeting":"hello world"}` {
		t.Errorf("outcome body = %q", outcome.Body)
	}
	if got := emu.Responses(); len(got) != 1 || got[0].RequestID != pending.RequestID {
		t.Errorf("recorded responses = %+v", got)
	}
}

func TestEmulatorRecordsErrorReports(t *testing.T) {
	emu := New(testLogger())
	srv := httptest.NewServer(emu.Handler())
	defer srv.Close()

	pending := emu.Enqueue([]byte("x"))

	resp, err := http.Get(srv.URL + "/2018-06-01/runtime/invocation/next")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	report := []byte(`{"errorMessage":"boom","errorType":"InvocationError","stackTrace":""}`)
	post, err := http.Post(
		srv.URL+"/2018-06-01/runtime/invocation/"+pending.RequestID+"/error",
		"application/json",
		bytes.NewReader(report),
	)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusAccepted {
		t.Errorf("error status = %d, want 202", post.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := pending.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.IsError {
		t.Error("outcome should be an error report")
	}
	if got := emu.ErrorReports(); len(got) != 1 {
		t.Errorf("recorded error reports = %+v", got)
	}
}

func TestEmulatorRejectsUnknownRequestID(t *testing.T) {
	emu := New(testLogger())
	srv := httptest.NewServer(emu.Handler())
	defer srv.Close()

	post, err := http.Post(
		srv.URL+"/2018-06-01/runtime/invocation/nope/response",
		"application/json",
		bytes.NewReader([]byte("{}")),
	)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", post.StatusCode)
	}
}

func TestEmulatorNextHonoursClientCancellation(t *testing.T) {
	emu := New(testLogger())
	srv := httptest.NewServer(emu.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/2018-06-01/runtime/invocation/next", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
		t.Error("expected the long poll to fail once the client context expires")
	}
}

func TestEmulatorCustomVersionSegment(t *testing.T) {
	emu := NewWithVersion("2099-01-01", testLogger())
	srv := httptest.NewServer(emu.Handler())
	defer srv.Close()

	emu.Enqueue([]byte("x"))
	resp, err := http.Get(srv.URL + "/2099-01-01/runtime/invocation/next")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	other, err := http.Get(srv.URL + "/2018-06-01/runtime/invocation/next")
	if err != nil {
		t.Fatal(err)
	}
	other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Errorf("wrong version status = %d, want 404", other.StatusCode)
	}
}
