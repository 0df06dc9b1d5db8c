package transport

import "testing"

func TestEndpointURLs(t *testing.T) {
	e := NewEndpoint("127.0.0.1:9001", "2018-06-01")

	if got, want := e.NextURL(), "http://127.0.0.1:9001/2018-06-01/runtime/invocation/next"; got != want {
		t.Errorf("NextURL = %q, want %q", got, want)
	}
	if got, want := e.ResponseURL("abc123"), "http://127.0.0.1:9001/2018-06-01/runtime/invocation/abc123/response"; got != want {
		t.Errorf("ResponseURL = %q, want %q", got, want)
	}
	if got, want := e.ErrorURL("abc123"), "http://127.0.0.1:9001/2018-06-01/runtime/invocation/abc123/error"; got != want {
		t.Errorf("ErrorURL = %q, want %q", got, want)
	}
}
