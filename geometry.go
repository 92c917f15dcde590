package conflate

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// lineEndpoints returns first and last point of linear geometry.
// Multi-part lines give the first point of the first part and the last point of the last one.
func lineEndpoints(geom orb.Geometry) (orb.Point, orb.Point, bool) {
	switch g := geom.(type) {
	case orb.LineString:
		if len(g) == 0 {
			return orb.Point{}, orb.Point{}, false
		}
		return g[0], g[len(g)-1], true
	case orb.MultiLineString:
		var first, last orb.Point
		found := false
		for _, line := range g {
			if len(line) == 0 {
				continue
			}
			if !found {
				first = line[0]
				found = true
			}
			last = line[len(line)-1]
		}
		return first, last, found
	case orb.Point:
		return g, g, true
	default:
		return orb.Point{}, orb.Point{}, false
	}
}

// areal returns geometry as multipolygon when it is an areal one.
// Polygons without a closed outer ring are dropped, so the result may be empty
func areal(geom orb.Geometry) (orb.MultiPolygon, bool) {
	var mp orb.MultiPolygon
	switch g := geom.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		mp = g
	case orb.Ring:
		mp = orb.MultiPolygon{orb.Polygon{g}}
	case orb.Bound:
		mp = orb.MultiPolygon{g.ToPolygon()}
	default:
		return nil, false
	}
	valid := make(orb.MultiPolygon, 0, len(mp))
	for _, polygon := range mp {
		if len(polygon) == 0 || len(polygon[0]) < 4 {
			continue
		}
		valid = append(valid, polygon)
	}
	return valid, true
}

// crossingMeasures returns sorted measures where the route crosses boundary of given polygons.
// Route start and end are always included.
func crossingMeasures(route *Route, mp orb.MultiPolygon) []float64 {
	result := []float64{0, route.length}
	polyBound := mp.Bound()
	for i := 1; i < len(route.geom); i++ {
		p1, p2 := route.geom[i-1], route.geom[i]
		segBound := orb.MultiPoint{p1, p2}.Bound()
		if !segBound.Intersects(polyBound) {
			continue
		}
		segLength := route.measures[i] - route.measures[i-1]
		for _, polygon := range mp {
			for _, ring := range polygon {
				for j := 1; j < len(ring); j++ {
					t, _, ok := intersectSegments(p1, p2, ring[j-1], ring[j])
					if !ok {
						continue
					}
					result = append(result, route.measures[i-1]+t*segLength)
				}
			}
		}
	}
	sort.Float64s(result)
	return uniqueSorted(result)
}

// insideRanges returns maximal measure ranges of the route lying inside given polygons
func insideRanges(route *Route, mp orb.MultiPolygon) []MeasureRange {
	breaks := crossingMeasures(route, mp)
	ranges := []MeasureRange{}
	open := false
	for i := 1; i < len(breaks); i++ {
		from, to := breaks[i-1], breaks[i]
		mid := route.PointAt((from + to) / 2)
		if !planar.MultiPolygonContains(mp, mid) {
			open = false
			continue
		}
		if open {
			ranges[len(ranges)-1].To = to
			continue
		}
		ranges = append(ranges, MeasureRange{From: from, To: to})
		open = true
	}
	return ranges
}

// uniqueSorted drops repeated values of sorted slice in place
func uniqueSorted(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	n := 1
	for i := 1; i < len(values); i++ {
		if values[i] != values[n-1] {
			values[n] = values[i]
			n++
		}
	}
	return values[:n]
}
