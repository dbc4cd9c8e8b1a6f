package telemetry

import (
	"context"
	"testing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	for _, endpoint := range []string{"", "  ", "off", "OFF"} {
		shutdown, err := Setup(context.Background(), "posture-test", endpoint)
		if err != nil {
			t.Fatalf("Setup(%q): %v", endpoint, err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := shutdown(ctx); err != nil {
			t.Fatalf("noop shutdown(%q) should not error: %v", endpoint, err)
		}
	}
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	shutdown, err := Setup(context.Background(), "posture-test", "http://192.0.2.1:4318")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
