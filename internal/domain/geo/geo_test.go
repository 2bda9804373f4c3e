package geo

import (
	"math"
	"testing"
)

func TestValid(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.01, 0, false},
		{-90.01, 0, false},
		{0, 180.01, false},
		{0, -180.01, false},
	}
	for _, tt := range tests {
		if got := Valid(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Valid(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	if d := Distance(52.52, 13.405, 52.52, 13.405); d != 0 {
		t.Errorf("Distance(same point) = %v, want 0", d)
	}
}

func TestDistance_KnownPairs(t *testing.T) {
	// Berlin to Hamburg is roughly 255 km.
	d := Distance(52.52, 13.405, 53.551, 9.993)
	if d < 250_000 || d > 260_000 {
		t.Errorf("Berlin-Hamburg = %v m, want ~255 km", d)
	}

	// One degree of latitude is roughly 111.2 km.
	d = Distance(0, 0, 1, 0)
	if math.Abs(d-111_195) > 200 {
		t.Errorf("one degree latitude = %v m, want ~111195 m", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(48.86, 2.35, 40.71, -74.01)
	b := Distance(40.71, -74.01, 48.86, 2.35)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("Distance not symmetric: %v vs %v", a, b)
	}
}

func TestPoint_LonLatOrder(t *testing.T) {
	p := Point(52.52, 13.405)
	if p.X() != 13.405 || p.Y() != 52.52 {
		t.Errorf("Point() coords = (%v, %v), want (lon 13.405, lat 52.52)", p.X(), p.Y())
	}
	if p.SRID() != SRID4326 {
		t.Errorf("SRID() = %d, want %d", p.SRID(), SRID4326)
	}
}
