package geo

import (
	"math"
	"testing"
)

func TestHaversine_ZeroDistance(t *testing.T) {
	if d := Haversine(60.17, 24.94, 60.17, 24.94); d != 0 {
		t.Fatalf("distance to self = %v", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Helsinki -> Tallinn is roughly 82 km.
	d := Haversine(60.1699, 24.9384, 59.4370, 24.7536)
	if math.Abs(d-82000) > 2000 {
		t.Fatalf("Helsinki-Tallinn = %.0f m, want ~82000", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(60.18, 24.93, 60.16, 24.95)
	b := Haversine(60.16, 24.95, 60.18, 24.93)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("asymmetric distance: %v vs %v", a, b)
	}
}

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	// one degree of latitude is ~111.2 km everywhere
	d := Haversine(60.0, 24.0, 61.0, 24.0)
	if math.Abs(d-111195) > 500 {
		t.Fatalf("1 deg latitude = %.0f m", d)
	}
}
