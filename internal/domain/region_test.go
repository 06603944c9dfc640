package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAxisOrder(t *testing.T) {
	cases := []struct {
		in   string
		want AxisOrder
	}{
		{"", AxisLngLat},
		{"lnglat", AxisLngLat},
		{"LngLat", AxisLngLat},
		{"latlng", AxisLatLng},
		{" LATLNG ", AxisLatLng},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAxisOrder(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseAxisOrder("xy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xy")
}

func TestAxisOrder_Point(t *testing.T) {
	e := Event{Lat: 5.6, Lng: -0.2}
	assert.Equal(t, orb.Point{-0.2, 5.6}, AxisLngLat.Point(e))
	assert.Equal(t, orb.Point{5.6, -0.2}, AxisLatLng.Point(e))
	assert.Equal(t, "lnglat", AxisLngLat.String())
	assert.Equal(t, "latlng", AxisLatLng.String())
}

func TestRegion_OuterRing(t *testing.T) {
	assert.Nil(t, Region{}.OuterRing())

	outer := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	r := Region{Polygon: orb.Polygon{outer, {{0.2, 0.2}, {0.3, 0.2}, {0.3, 0.3}, {0.2, 0.2}}}}
	assert.Equal(t, outer, r.OuterRing())
}
