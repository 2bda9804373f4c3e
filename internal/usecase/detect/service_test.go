package detect

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	domdetect "github.com/fieldstash/toolscout/internal/domain/detect"
	"github.com/fieldstash/toolscout/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterDetectionMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockDetector struct {
	name      string
	available bool
	outcome   domdetect.Outcome
	called    bool
}

func (m *mockDetector) Name() string    { return m.name }
func (m *mockDetector) Available() bool { return m.available }
func (m *mockDetector) Detect(_ context.Context, _ []byte) domdetect.Outcome {
	m.called = true
	return m.outcome
}

func obs(t *testing.T, label string, confidence float64) domdetect.Observation {
	t.Helper()
	o, err := domdetect.NewObservation(label, confidence)
	if err != nil {
		t.Fatalf("NewObservation: %v", err)
	}
	return o
}

// --- Tests ---

func TestDetect_FusesAcrossBackends(t *testing.T) {
	vision := &mockDetector{
		name: "vision", available: true,
		outcome: domdetect.NewOutcome("vision", []domdetect.Observation{
			obs(t, "Hammer", 1.0),
			obs(t, "pliers", 1.0),
		}),
	}
	clip := &mockDetector{
		name: "clip", available: true,
		outcome: domdetect.NewOutcome("clip", []domdetect.Observation{
			obs(t, "hammer", 0.7),
		}),
	}
	svc := New([]domdetect.Detector{vision, clip}, zap.NewNop())

	tags, outcomes := svc.Detect(context.Background(), []byte("img"))

	if tags.Len() != 2 {
		t.Fatalf("fused Len() = %d, want 2 (hammer deduplicated)", tags.Len())
	}
	if len(outcomes) != 2 {
		t.Errorf("outcomes = %d, want one per backend", len(outcomes))
	}
	if !vision.called || !clip.called {
		t.Error("both available backends should be called")
	}
}

func TestDetect_UnavailableBackendDegrades(t *testing.T) {
	down := &mockDetector{name: "clip", available: false}
	up := &mockDetector{
		name: "vision", available: true,
		outcome: domdetect.NewOutcome("vision", []domdetect.Observation{obs(t, "saw", 1.0)}),
	}
	svc := New([]domdetect.Detector{down, up}, zap.NewNop())

	tags, outcomes := svc.Detect(context.Background(), []byte("img"))

	if down.called {
		t.Error("unavailable backend must not be called")
	}
	if !outcomes[0].IsDegraded() {
		t.Error("unavailable backend should produce a degraded outcome")
	}
	if tags.Len() != 1 || tags.Labels()[0] != "saw" {
		t.Errorf("Labels() = %v, want [saw]", tags.Labels())
	}
}

func TestDetect_AllDegradedYieldsEmptySet(t *testing.T) {
	a := &mockDetector{name: "vision", available: true,
		outcome: domdetect.DegradedOutcome("vision", "timeout")}
	b := &mockDetector{name: "clip", available: false}
	svc := New([]domdetect.Detector{a, b}, zap.NewNop())

	tags, outcomes := svc.Detect(context.Background(), []byte("img"))

	if !tags.IsEmpty() {
		t.Errorf("Labels() = %v, want empty set", tags.Labels())
	}
	for _, o := range outcomes {
		if !o.IsDegraded() {
			t.Errorf("outcome %s should be degraded", o.Backend())
		}
	}
}

func TestDetect_NoBackends(t *testing.T) {
	svc := New(nil, zap.NewNop())

	tags, outcomes := svc.Detect(context.Background(), []byte("img"))
	if !tags.IsEmpty() || len(outcomes) != 0 {
		t.Error("no backends should yield an empty set and no outcomes")
	}
}

func TestBackends(t *testing.T) {
	svc := New([]domdetect.Detector{
		&mockDetector{name: "vision", available: true},
		&mockDetector{name: "clip", available: false},
	}, zap.NewNop())

	got := svc.Backends()
	if !got["vision"] || got["clip"] {
		t.Errorf("Backends() = %v", got)
	}
}
