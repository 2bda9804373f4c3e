package search

import (
	"errors"
	"testing"

	"github.com/fieldstash/toolscout/internal/domain"
)

func fp(v float64) *float64 { return &v }

func TestNew_Defaults(t *testing.T) {
	q, err := New("drill", nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", q.Limit(), DefaultLimit)
	}
	if q.HasLocation() {
		t.Error("HasLocation() should be false without coordinates")
	}
	if q.Similarity() {
		t.Error("Similarity() should be false for a text query")
	}
}

func TestNew_GeoDefaults(t *testing.T) {
	q, err := New("", fp(52.5), fp(13.4), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.HasLocation() {
		t.Fatal("HasLocation() should be true")
	}
	if q.RadiusMeters() != DefaultRadiusMeters {
		t.Errorf("RadiusMeters() = %v, want default %v", q.RadiusMeters(), DefaultRadiusMeters)
	}
}

func TestNew_LoneCoordinateRejected(t *testing.T) {
	_, err := New("saw", fp(52.5), nil, 0, 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("lat without lon: err = %v, want ErrValidation", err)
	}

	_, err = New("saw", nil, fp(13.4), 0, 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("lon without lat: err = %v, want ErrValidation", err)
	}
}

func TestNew_OutOfRangeRejectedNotClamped(t *testing.T) {
	tests := []struct {
		lat, lon float64
	}{
		{95, 13.4},
		{-91, 13.4},
		{52.5, 181},
		{52.5, -180.01},
	}
	for _, tt := range tests {
		if _, err := New("", fp(tt.lat), fp(tt.lon), 0, 0); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("(%v, %v): err = %v, want ErrValidation", tt.lat, tt.lon, err)
		}
	}
}

func TestNew_NegativeRadiusRejected(t *testing.T) {
	if _, err := New("", fp(1), fp(1), -5, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestNew_LimitClamped(t *testing.T) {
	q, err := New("", nil, nil, 0, MaxLimit+100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want clamped %d", q.Limit(), MaxLimit)
	}
}

func TestNewSimilar_AcceptsEmptyTags(t *testing.T) {
	q, err := NewSimilar(nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Similarity() {
		t.Error("Similarity() should be true")
	}
	if len(q.ReferenceTags()) != 0 {
		t.Errorf("ReferenceTags() = %v, want empty", q.ReferenceTags())
	}
}

func TestNewSimilar_LocationValidated(t *testing.T) {
	if _, err := NewSimilar([]string{"hammer"}, fp(91), fp(0), 0, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
