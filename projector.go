package conflate

import (
	"math"

	"github.com/paulmach/orb"
)

// Projection is the result of projecting an arbitrary point onto a route
type Projection struct {
	// Point is the closest point of the route
	Point orb.Point
	// Measure is the arc-length position of Point, always within [0, route length]
	Measure float64
	// Distance is the perpendicular (shortest) distance from the source point to the route
	Distance float64
}

// Project returns the closest point of the route to given point with its measure.
// When several segments are equally close the one with the lowest measure wins.
func (route *Route) Project(pt orb.Point) Projection {
	best := Projection{Distance: math.Inf(1)}
	for i := 1; i < len(route.geom); i++ {
		closest, fraction := closestOnSegment(pt, route.geom[i-1], route.geom[i])
		dist := findDistance(pt, closest)
		if dist < best.Distance {
			best = Projection{
				Point:    closest,
				Measure:  route.measures[i-1] + fraction*(route.measures[i]-route.measures[i-1]),
				Distance: dist,
			}
		}
	}
	best.Measure = clampMeasure(best.Measure, route.length)
	return best
}
