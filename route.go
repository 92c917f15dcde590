package conflate

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var ErrDegenerateRoute = errors.New("route geometry has zero length")

// Route is a single directional route with a planar arc-length parameterization (measure)
type Route struct {
	id       string
	geom     orb.LineString
	measures []float64
	length   float64
}

// NewRoute prepares route for projection. Consecutive duplicate vertices are dropped.
func NewRoute(id string, geom orb.LineString) (*Route, error) {
	line := dedupLine(geom)
	if len(line) < 2 {
		return nil, errors.Wrapf(ErrDegenerateRoute, "route '%s' has %d distinct vertices", id, len(line))
	}
	measures := cumulativeLengths(line)
	length := measures[len(measures)-1]
	if length <= 0 {
		return nil, errors.Wrapf(ErrDegenerateRoute, "route '%s'", id)
	}
	return &Route{
		id:       id,
		geom:     line,
		measures: measures,
		length:   length,
	}, nil
}

func (route *Route) ID() string {
	return route.id
}

func (route *Route) Length() float64 {
	return route.length
}

func (route *Route) Geom() orb.LineString {
	return route.geom
}

// segmentAt returns index of the segment containing given measure
func (route *Route) segmentAt(measure float64) int {
	idx := sort.SearchFloat64s(route.measures, measure)
	if idx > 0 {
		idx--
	}
	if idx > len(route.geom)-2 {
		idx = len(route.geom) - 2
	}
	return idx
}

// PointAt returns the point of the route at given measure (clamped into route extent)
func (route *Route) PointAt(measure float64) orb.Point {
	measure = clampMeasure(measure, route.length)
	i := route.segmentAt(measure)
	segLength := route.measures[i+1] - route.measures[i]
	return pointOnSegmentByFraction(route.geom[i], route.geom[i+1], (measure-route.measures[i])/segLength)
}

// Substring returns part of the route between two measures
func (route *Route) Substring(fromMeasure, toMeasure float64) orb.LineString {
	fromMeasure = clampMeasure(fromMeasure, route.length)
	toMeasure = clampMeasure(toMeasure, route.length)
	if fromMeasure > toMeasure {
		return reverseLine(route.Substring(toMeasure, fromMeasure))
	}
	line := orb.LineString{route.PointAt(fromMeasure)}
	for i := route.segmentAt(fromMeasure) + 1; i < len(route.geom) && route.measures[i] < toMeasure; i++ {
		if route.measures[i] > fromMeasure {
			line = append(line, route.geom[i])
		}
	}
	return append(line, route.PointAt(toMeasure))
}
