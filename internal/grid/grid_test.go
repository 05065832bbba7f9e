package grid

import (
	"math"
	"strings"
	"testing"
)

func TestCenter(t *testing.T) {
	tests := []struct {
		locator string
		lat     float64
		lon     float64
	}{
		{locator: "EN82", lat: 42.5, lon: -83.0},
		{locator: "FN42", lat: 42.5, lon: -71.0},
		{locator: "en82", lat: 42.5, lon: -83.0},
		{locator: "EM15AT", lat: 35.8125, lon: -97.9583333},
		{locator: "JJ00AA", lat: 0.0208333, lon: 0.0416667},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			lat, lon, err := Center(tt.locator)
			if err != nil {
				t.Fatalf("Center() error = %v", err)
			}
			if math.Abs(lat-tt.lat) > 1e-4 || math.Abs(lon-tt.lon) > 1e-4 {
				t.Errorf("Center() got = (%f, %f), want (%f, %f)", lat, lon, tt.lat, tt.lon)
			}
		})
	}
}

func TestCenterRejects(t *testing.T) {
	for _, locator := range []string{"", "EN8", "EN825", "12AB", "ZZ99", "EN82YZ"} {
		if _, _, err := Center(locator); err == nil {
			t.Errorf("Center(%q) error = nil, want error", locator)
		}
	}
}

func TestDistance(t *testing.T) {
	t.Run("zero for same point", func(t *testing.T) {
		if d := Distance(42.5, -83, 42.5, -83); d != 0 {
			t.Errorf("Distance() got = %f, want 0", d)
		}
	})

	t.Run("EN82 to FN42", func(t *testing.T) {
		d := Distance(42.5, -83.0, 42.5, -71.0)
		if math.Abs(d-983) > 3 {
			t.Errorf("Distance() got = %f km, want about 983", d)
		}
	})
}

func TestProjections(t *testing.T) {
	mgrs, err := MGRS(42.5, -83.0)
	if err != nil {
		t.Fatalf("MGRS() error = %v", err)
	}
	if mgrs == "" {
		t.Error("MGRS() returned empty reference")
	}

	utm, err := UTM(42.5, -83.0)
	if err != nil {
		t.Fatalf("UTM() error = %v", err)
	}
	if !strings.HasPrefix(utm, "17N ") {
		t.Errorf("UTM() got = %q, want zone 17N", utm)
	}
}
