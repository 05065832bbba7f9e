// Package grid converts Maidenhead locators into geographic positions and
// renders the projections operators copy onto paper logs.
package grid

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

const earthRadiusKM = 6371.0

type pairRange struct {
	minCh byte
	maxCh byte
	units int
}

// Each pair narrows the square by a fixed number of integer units per step.
// Keeping the accumulation in integers until the final scale lands exactly
// on the center of the square.
var pairRanges = [3]pairRange{
	{'A', 'R', 10 * 24 * 2},
	{'0', '9', 24 * 2},
	{'A', 'X', 2},
}

const axisUnits = 18 * 10 * 24 * 2

// Center returns the latitude and longitude of the middle of a 4- or
// 6-character Maidenhead square.
func Center(locator string) (lat, lon float64, err error) {
	mh := strings.ToUpper(strings.TrimSpace(locator))
	if len(mh) != 4 && len(mh) != 6 {
		return 0, 0, fmt.Errorf("locator %q must be 4 or 6 characters", locator)
	}

	var ilat, ilon int
	np := len(mh) / 2
	for n := 0; n < np; n++ {
		p := pairRanges[n]
		cLon, cLat := mh[2*n], mh[2*n+1]
		if cLon < p.minCh || cLon > p.maxCh || cLat < p.minCh || cLat > p.maxCh {
			return 0, 0, fmt.Errorf("locator %q pair %d outside %c..%c", locator, n+1, p.minCh, p.maxCh)
		}
		ilon += int(cLon-p.minCh) * p.units
		ilat += int(cLat-p.minCh) * p.units
		if n == np-1 {
			ilon += p.units / 2
			ilat += p.units / 2
		}
	}

	lat = float64(ilat)/axisUnits*180 - 90
	lon = float64(ilon)/axisUnits*360 - 180
	return lat, lon, nil
}

// Distance returns the great-circle distance in kilometers between two
// positions given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	a := latLng(lat1, lon1)
	b := latLng(lat2, lon2)
	return float64(a.Distance(b)) * earthRadiusKM
}

// MGRS renders a position as a five-digit (1 meter) MGRS reference.
func MGRS(lat, lon float64) (string, error) {
	coord, err := coordconv.DefaultMGRSConverter.ConvertFromGeodetic(latLng(lat, lon), 5)
	if err != nil {
		return "", fmt.Errorf("mgrs conversion: %w", err)
	}
	return fmt.Sprintf("%s", coord), nil
}

// UTM renders a position as "zone hemisphere easting northing".
func UTM(lat, lon float64) (string, error) {
	coord, err := coordconv.DefaultUTMConverter.ConvertFromGeodetic(latLng(lat, lon), 0)
	if err != nil {
		return "", fmt.Errorf("utm conversion: %w", err)
	}
	return fmt.Sprintf("%d%c %.0f %.0f", coord.Zone, hemisphereRune(coord.Hemisphere), coord.Easting, coord.Northing), nil
}

func latLng(lat, lon float64) s2.LatLng {
	return s2.LatLng{Lat: s1.Angle(radians(lat)), Lng: s1.Angle(radians(lon))}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func hemisphereRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '?'
	}
}
