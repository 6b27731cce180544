package telemetry

import (
	"context"
	"testing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("GRIDARENA_OTEL_ENDPOINT", "")
	t.Setenv("GRIDARENA_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "gridarena-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("GRIDARENA_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("GRIDARENA_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "gridarena-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	t.Setenv("GRIDARENA_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("GRIDARENA_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "gridarena-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "0.5": 0.5, "1": 1, "2": 0.1, "x": 0.1}
	for v, want := range cases {
		t.Setenv("GRIDARENA_OTEL_SAMPLE", v)
		if got := sampleRatio(); got != want {
			t.Fatalf("GRIDARENA_OTEL_SAMPLE=%q: got=%v want=%v", v, got, want)
		}
	}
}
