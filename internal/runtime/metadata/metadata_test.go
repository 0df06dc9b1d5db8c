package metadata

import "testing"

func TestWithDoesNotMutateOriginal(t *testing.T) {
	base := New("Content-Type", "application/json")
	derived := base.With("Lambda-Runtime-Aws-Request-Id", "abc123")

	if _, ok := base["Lambda-Runtime-Aws-Request-Id"]; ok {
		t.Fatal("With must not mutate the receiver")
	}
	if derived.Get("Lambda-Runtime-Aws-Request-Id") != "abc123" {
		t.Fatal("derived map missing added key")
	}
}

func TestGetFallsBackToCanonicalKey(t *testing.T) {
	md := New("Lambda-Runtime-Aws-Request-Id", "abc123")

	if got := md.Get("lambda-runtime-aws-request-id"); got != "abc123" {
		t.Errorf("expected canonical fallback to find value, got %q", got)
	}
	if got := md.Get("missing"); got != "" {
		t.Errorf("expected empty value for missing key, got %q", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := New("k", "v")
	clone := base.Clone()
	clone["k"] = "other"

	if base["k"] != "v" {
		t.Fatal("clone must not alias the original map")
	}
}
