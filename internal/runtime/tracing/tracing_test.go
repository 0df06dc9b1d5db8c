package tracing

import (
	"os"
	"testing"
)

func TestPropagateSetsEnvAndCurrent(t *testing.T) {
	t.Setenv(TraceEnvVar, "")

	Propagate("Root=1-5759e988-bd862e3fe1be46a994272793")

	if Current() != "Root=1-5759e988-bd862e3fe1be46a994272793" {
		t.Errorf("Current() = %q", Current())
	}
	if os.Getenv(TraceEnvVar) != "Root=1-5759e988-bd862e3fe1be46a994272793" {
		t.Errorf("env not set: %q", os.Getenv(TraceEnvVar))
	}
}

func TestPropagateIgnoresEmpty(t *testing.T) {
	Propagate("Root=keep")
	Propagate("")

	if Current() != "Root=keep" {
		t.Errorf("empty trace id must not overwrite, got %q", Current())
	}
}
