package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Region is a named administrative area with a polygon boundary.
// Polygon[0] is the outer ring.
type Region struct {
	Name    string
	Polygon orb.Polygon
}

// OuterRing returns the ring used for containment, or nil if the region has none.
func (r Region) OuterRing() orb.Ring {
	if len(r.Polygon) == 0 {
		return nil
	}
	return r.Polygon[0]
}

// AxisOrder selects how an event's coordinates map onto the geometry's x/y axes.
type AxisOrder int

const (
	// AxisLngLat places longitude on x and latitude on y, matching GeoJSON.
	AxisLngLat AxisOrder = iota
	// AxisLatLng places latitude on x and longitude on y.
	AxisLatLng
)

// ParseAxisOrder accepts "lnglat" or "latlng" (case-insensitive).
func ParseAxisOrder(s string) (AxisOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lnglat", "":
		return AxisLngLat, nil
	case "latlng":
		return AxisLatLng, nil
	default:
		return AxisLngLat, fmt.Errorf("unknown axis order %q (want lnglat or latlng)", s)
	}
}

func (a AxisOrder) String() string {
	if a == AxisLatLng {
		return "latlng"
	}
	return "lnglat"
}

// Point projects an event onto the geometry plane.
func (a AxisOrder) Point(e Event) orb.Point {
	if a == AxisLatLng {
		return orb.Point{e.Lat, e.Lng}
	}
	return orb.Point{e.Lng, e.Lat}
}
