package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

var (
	hanoi     = Coordinate{Lat: 21.0285, Lng: 105.8542}
	hoChiMinh = Coordinate{Lat: 10.7769, Lng: 106.7009}
	newYork   = Coordinate{Lat: 40.7128, Lng: -74.0060}
	london    = Coordinate{Lat: 51.5074, Lng: -0.1278}
	hoanKiem  = Coordinate{Lat: 21.0288, Lng: 105.8525}
)

func TestDistanceKm_SamePoint(t *testing.T) {
	if d := DistanceKm(hanoi, hanoi); d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{hanoi, hoChiMinh},
		{newYork, london},
		{hanoi, hoanKiem},
		{{Lat: -33.86, Lng: 151.21}, {Lat: 35.68, Lng: 139.69}},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1])
		ba := DistanceKm(p[1], p[0])
		if ab != ba {
			t.Errorf("asymmetric distance %v <-> %v: %f vs %f", p[0], p[1], ab, ba)
		}
		if ab < 0 {
			t.Errorf("negative distance %f", ab)
		}
	}
}

func TestDistanceKm_HanoiHoChiMinh(t *testing.T) {
	// ~1,140 km by great circle
	d := DistanceKm(hanoi, hoChiMinh)
	if !almost(d, 1140, 15) {
		t.Fatalf("want ~1140km, got %.1fkm", d)
	}
}

func TestDistanceKm_NewYorkLondon(t *testing.T) {
	d := DistanceKm(newYork, london)
	if !almost(d, 5570, 30) {
		t.Fatalf("want ~5570km, got %.1fkm", d)
	}
}

func TestDistanceKm_ShortHop(t *testing.T) {
	d := DistanceKm(hanoi, hoanKiem)
	if d <= 0 || d > 0.5 {
		t.Fatalf("want a few hundred meters, got %.3fkm", d)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := Haversine(0, 0, 0, 180)
	if !almost(d, math.Pi*EarthRadiusKm, 1e-6) {
		t.Fatalf("want ~%.3fkm, got %.3fkm", math.Pi*EarthRadiusKm, d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.0001, false},
		{math.NaN(), 0, false},
		{0, math.NaN(), false},
		{math.Inf(1), 0, false},
		{0, math.Inf(-1), false},
	}
	for _, tc := range tests {
		if got := ValidateCoordinates(tc.lat, tc.lon); got != tc.want {
			t.Errorf("ValidateCoordinates(%v, %v) = %v, want %v", tc.lat, tc.lon, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	c, err := New(21.0285, 105.8542)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != hanoi {
		t.Fatalf("want %v, got %v", hanoi, c)
	}
	if _, err := New(120, 0); err == nil {
		t.Fatal("expected error for latitude out of range")
	}
}
