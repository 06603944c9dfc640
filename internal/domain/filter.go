package domain

import "github.com/paulmach/orb/planar"

// RegionQuery selects either every event or the events inside one region.
// The zero value selects every event.
type RegionQuery struct {
	region   string
	filtered bool
}

// AllEvents selects every stored event.
func AllEvents() RegionQuery {
	return RegionQuery{}
}

// InRegion selects events contained in the named region. The name is used
// verbatim: no trimming or case folding.
func InRegion(name string) RegionQuery {
	return RegionQuery{region: name, filtered: true}
}

// Filtered reports whether the query restricts results to a region.
func (q RegionQuery) Filtered() bool { return q.filtered }

// Region returns the requested region name; empty for AllEvents.
func (q RegionQuery) Region() string { return q.region }

// Validate rejects a region query with an empty name.
func (q RegionQuery) Validate() error {
	if q.filtered && q.region == "" {
		return ErrEmptyRegion
	}
	return nil
}

// FilterByRegion returns the events whose point lies inside or on the
// region's outer ring, in their original relative order. The result is never
// nil and the input slice is not modified.
func FilterByRegion(events []Event, region Region, axis AxisOrder) []Event {
	out := make([]Event, 0, len(events))
	ring := region.OuterRing()
	if len(ring) == 0 {
		return out
	}
	for _, e := range events {
		if planar.RingContains(ring, axis.Point(e)) {
			out = append(out, e)
		}
	}
	return out
}
