package conflate

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestFindDistance(t *testing.T) {
	assert.InDelta(t, 5.0, findDistance(orb.Point{0, 0}, orb.Point{3, 4}), 1e-12)
	assert.Equal(t, 0.0, findDistance(orb.Point{1, 1}, orb.Point{1, 1}))
}

func TestGetLength(t *testing.T) {
	line := orb.LineString{{0, 0}, {3, 4}, {3, 10}}
	assert.InDelta(t, 11.0, getLength(line), 1e-12)
	assert.Equal(t, 0.0, getLength(orb.LineString{{1, 1}}))
	assert.Equal(t, []float64{0, 5, 11}, cumulativeLengths(line))
}

func TestClosestOnSegment(t *testing.T) {
	cases := []struct {
		name     string
		pt       orb.Point
		closest  orb.Point
		fraction float64
	}{
		{"inside", orb.Point{5, 3}, orb.Point{5, 0}, 0.5},
		{"before start", orb.Point{-4, 1}, orb.Point{0, 0}, 0},
		{"after end", orb.Point{14, -2}, orb.Point{10, 0}, 1},
		{"on segment", orb.Point{2.5, 0}, orb.Point{2.5, 0}, 0.25},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			closest, fraction := closestOnSegment(c.pt, orb.Point{0, 0}, orb.Point{10, 0})
			assert.InDelta(t, c.closest[0], closest[0], 1e-12)
			assert.InDelta(t, c.closest[1], closest[1], 1e-12)
			assert.InDelta(t, c.fraction, fraction, 1e-12)
		})
	}
}

func TestIntersectSegments(t *testing.T) {
	tt, u, ok := intersectSegments(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{4, -1}, orb.Point{4, 1})
	assert.True(t, ok)
	assert.InDelta(t, 0.4, tt, 1e-12)
	assert.InDelta(t, 0.5, u, 1e-12)

	_, _, ok = intersectSegments(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{0, 1}, orb.Point{10, 1})
	assert.False(t, ok, "parallel segments")

	_, _, ok = intersectSegments(orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{12, -1}, orb.Point{12, 1})
	assert.False(t, ok, "segments do not reach each other")
}

func TestDedupAndReverseLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {0, 0}, {1, 0}, {1, 0}, {2, 0}}
	assert.Equal(t, orb.LineString{{0, 0}, {1, 0}, {2, 0}}, dedupLine(line))
	assert.Equal(t, orb.LineString{{2, 0}, {1, 0}, {0, 0}}, reverseLine(orb.LineString{{0, 0}, {1, 0}, {2, 0}}))
}

func TestClampMeasure(t *testing.T) {
	assert.Equal(t, 0.0, clampMeasure(-3, 10))
	assert.Equal(t, 10.0, clampMeasure(12, 10))
	assert.Equal(t, 4.5, clampMeasure(4.5, 10))
	assert.Equal(t, 0.0, clampMeasure(math.Inf(-1), 10))
}
