package conflate

import (
	"math"

	"github.com/paulmach/orb"
)

// findDistance returns distance between two points (assuming they are Euclidean: X and Y in the same units)
func findDistance(p, q orb.Point) float64 {
	xdistance := p[0] - q[0]
	ydistance := p[1] - q[1]
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// getLength returns length for given line (assuming points of the line are Euclidean)
func getLength(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += findDistance(line[i-1], line[i])
	}
	return totalLength
}

// cumulativeLengths returns distance from the first vertex to every vertex of the line
func cumulativeLengths(line orb.LineString) []float64 {
	result := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		result[i] = result[i-1] + findDistance(line[i-1], line[i])
	}
	return result
}

// pointOnSegmentByFraction returns a point on given segment using fraction of its length
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p[0] + (fraction * q[0]),
		(1-fraction)*p[1] + (fraction * q[1]),
	}
}

// closestOnSegment returns the point of segment [p, q] closest to pt and its fraction along the segment.
//
// Note: p and q must be distinct
//
func closestOnSegment(pt, p, q orb.Point) (orb.Point, float64) {
	dx := q[0] - p[0]
	dy := q[1] - p[1]
	fraction := ((pt[0]-p[0])*dx + (pt[1]-p[1])*dy) / (dx*dx + dy*dy)
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	return pointOnSegmentByFraction(p, q, fraction), fraction
}

// intersectSegments checks if two segments intersect and returns fractions of the intersection
// along both of them.
// p1, p2 - first segment
// p3, p4 - second segment
// Parallel (and collinear) segments are reported as not intersecting.
// Note: Euclidean space
func intersectSegments(p1, p2, p3, p4 orb.Point) (float64, float64, bool) {
	d1x, d1y := p2[0]-p1[0], p2[1]-p1[1]
	d2x, d2y := p4[0]-p3[0], p4[1]-p3[1]
	det := d1x*d2y - d1y*d2x
	if det == 0 {
		return 0, 0, false
	}
	ox, oy := p3[0]-p1[0], p3[1]-p1[1]
	t := (ox*d2y - oy*d2x) / det
	u := (ox*d1y - oy*d1x) / det
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, 0, false
	}
	return t, u, true
}

// dedupLine drops consecutive duplicate vertices. Returns new slice
func dedupLine(pts orb.LineString) orb.LineString {
	output := make(orb.LineString, 0, len(pts))
	for i, pt := range pts {
		if i > 0 && pt.Equal(output[len(output)-1]) {
			continue
		}
		output = append(output, pt)
	}
	return output
}

// reverseLine reverses order of points in given line. Returns new slice
func reverseLine(pts orb.LineString) orb.LineString {
	inputLen := len(pts)
	output := make(orb.LineString, inputLen)
	for i, n := range pts {
		j := inputLen - i - 1
		output[j] = n
	}
	return output
}

func clampMeasure(measure, length float64) float64 {
	if measure < 0 {
		return 0
	}
	if measure > length {
		return length
	}
	return measure
}
