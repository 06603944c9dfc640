// Package domain models reported flood events and the geographic regions of
// Ghana they are classified against.
//
// # Events
//
// A flood event is a single reported coordinate pair. Both coordinates are
// required and must be finite; the store assigns the identifier. Request bodies
// and Kafka reports may carry either JSON numbers or numeric strings:
//
//	{"lat": 5.6037, "lng": -0.187}
//	{"lat": "5.6037", "lng": "-0.187"}
//
// Field errors use the wording the frontend already knows from the previous
// backend ("This field is required.", "A valid number is required.").
//
// # Region geometry
//
// Region boundaries come from a GeoJSON document whose vertices are authored
// in [longitude, latitude] order. Only the outer ring of a region's first
// polygon takes part in containment; holes and additional polygons are ignored.
//
// # Axis order
//
// Historically events were tested by feeding (lat, lng) straight into the
// polygon test, which only matched the geometry when clients stored the
// longitude in "lat". [AxisLngLat] (the default) tests (lng, lat) against the
// [lon, lat] vertices. [AxisLatLng] keeps the historical comparison for data
// recorded that way. The existing Angular map client posts longitude as "lat"
// and latitude as "lng", so deployments serving it set
// GEOMETRY_AXIS_ORDER=latlng.
//
// # Boundary policy
//
// Points lying exactly on a ring edge or vertex are contained. See
// [FilterByRegion].
package domain
