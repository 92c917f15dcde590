package conflate

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tmcFeature(id string, geom orb.Geometry) *Feature {
	return &Feature{
		Kind: FEATURE_TMC,
		ID:   id,
		Geom: geom,
		Attributes: AttributeSet{
			TMC: &TMCAttributes{ID: id, Type: "P1.11", RoadNum: "I-95", Direction: "Northbound"},
		},
	}
}

func townFeature(townID int, name string, geom orb.Geometry) *Feature {
	return &Feature{
		Kind:       FEATURE_TOWN,
		Geom:       geom,
		Attributes: AttributeSet{Town: &TownAttributes{ID: townID, Name: name}},
	}
}

func speedLimitFeature(id string, from, to float64, limit int, active bool) *Feature {
	return &Feature{
		Kind:       FEATURE_SPEED_LIMIT,
		ID:         id,
		Measures:   &MeasureRange{From: from, To: to},
		Attributes: AttributeSet{SpeedLimit: &SpeedLimitAttributes{Limit: limit, Active: active}},
	}
}

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToPolygon()
}

func TestLocateLine(t *testing.T) {
	route := testRoute(t)
	loc := NewLocator(nil, false, nil)

	cases := []struct {
		name string
		geom orb.Geometry
		from float64
		to   float64
	}{
		{"along route", orb.LineString{{100, 5}, {250, 8}, {400, 5}}, 100, 400},
		{"reversed digitization", orb.LineString{{400, 5}, {100, 5}}, 100, 400},
		{"around the corner", orb.LineString{{500, -3}, {603, 0}, {603, 300}}, 500, 900},
		{"multi line", orb.MultiLineString{{{0, 1}, {200, 1}}, {{220, 1}, {300, 1}}}, 0, 300},
		{"beyond route ends", orb.LineString{{-30, 0}, {600, 430}}, 0, 1000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			events := loc.Locate(route, tmcFeature("110+04567", c.geom))
			require.Len(t, events, 1)
			assert.InDelta(t, c.from, events[0].FromMeasure, 1e-9)
			assert.InDelta(t, c.to, events[0].ToMeasure, 1e-9)
			assert.Equal(t, "110+04567", events[0].Attributes.TMCID())
			assert.Equal(t, "I95 NB", events[0].RouteID)
		})
	}
}

func TestLocateDistanceTolerance(t *testing.T) {
	route := testRoute(t)
	far := tmcFeature("110+04568", orb.LineString{{100, 100}, {400, 100}})

	assert.Empty(t, NewLocator(nil, false, nil).Locate(route, far), "default 40 units radius")

	unlimited := NewLocator(map[FeatureKind]Tolerance{FEATURE_TMC: {}}, false, nil)
	events := unlimited.Locate(route, far)
	require.Len(t, events, 1)
	assert.InDelta(t, 100.0, events[0].FromMeasure, 1e-9)
	assert.InDelta(t, 400.0, events[0].ToMeasure, 1e-9)
}

func TestLocateMeasured(t *testing.T) {
	route := testRoute(t)
	loc := NewLocator(nil, false, nil)

	cases := []struct {
		name    string
		from    float64
		to      float64
		located bool
		expFrom float64
		expTo   float64
	}{
		{"inside", 100, 200, true, 100, 200},
		{"snapped to start", 0.0001, 500, true, 0, 500},
		{"snapped to end", 500, 999.9999, true, 500, 1000},
		{"negative from clamped", -5, 10, true, 0, 10},
		{"beyond end clamped", 900, 1100, true, 900, 1000},
		{"reversed measures", 300, 200, true, 200, 300},
		{"entirely beyond end", 1000, 1200, false, 0, 0},
		{"entirely before start", -20, -10, false, 0, 0},
		{"shorter than tolerance", 400, 400.0001, false, 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			events := loc.Locate(route, speedLimitFeature("sl", c.from, c.to, 65, true))
			if !c.located {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.InDelta(t, c.expFrom, events[0].FromMeasure, 1e-9)
			assert.InDelta(t, c.expTo, events[0].ToMeasure, 1e-9)
			assert.Equal(t, 65, events[0].Attributes.SpeedLimitValue())
		})
	}
}

func TestLocatePolygon(t *testing.T) {
	route := testRoute(t)
	loc := NewLocator(nil, false, nil)

	events := loc.Locate(route, townFeature(35, "BOSTON", rect(-10, -10, 300, 10)))
	require.Len(t, events, 1)
	assert.InDelta(t, 0.0, events[0].FromMeasure, 1e-9)
	assert.InDelta(t, 300.0, events[0].ToMeasure, 1e-9)
	assert.Equal(t, 35, events[0].Attributes.TownID())

	// Polygon containing the corner gives one event spanning both legs
	events = loc.Locate(route, townFeature(36, "QUINCY", rect(500, -10, 610, 100)))
	require.Len(t, events, 1)
	assert.InDelta(t, 500.0, events[0].FromMeasure, 1e-9)
	assert.InDelta(t, 700.0, events[0].ToMeasure, 1e-9)

	// Route enters the same multipolygon twice
	twice := orb.MultiPolygon{rect(100, -10, 200, 10), rect(590, 300, 610, 500)}
	events = loc.Locate(route, townFeature(37, "MILTON", twice))
	require.Len(t, events, 2)
	assert.InDelta(t, 100.0, events[0].FromMeasure, 1e-9)
	assert.InDelta(t, 200.0, events[0].ToMeasure, 1e-9)
	assert.InDelta(t, 900.0, events[1].FromMeasure, 1e-9)
	assert.InDelta(t, 1000.0, events[1].ToMeasure, 1e-9)

	assert.Empty(t, loc.Locate(route, townFeature(38, "DEDHAM", rect(1000, 1000, 2000, 2000))))
}

func TestLocateAll(t *testing.T) {
	route := testRoute(t)
	features := []*Feature{
		tmcFeature("110+00002", orb.LineString{{300, 2}, {600, 2}}),
		tmcFeature("110+00001", orb.LineString{{0, 2}, {300, 2}}),
		// Crosses the route: both ends project onto the same measure
		tmcFeature("110+00003", orb.LineString{{200, -20}, {200, 20}}),
		tmcFeature("110+00004", orb.LineString{{200, 500}, {300, 500}}),
		tmcFeature("110+00005", orb.Polygon{}),
	}
	table, stats := NewLocator(nil, false, nil).LocateAll(route, features)
	assert.Equal(t, LocateStats{Features: 5, Events: 2, Discarded: 1, OffRoute: 1, Unsupported: 1}, stats)
	require.Len(t, table.Events, 2)
	assert.Equal(t, "110+00001", table.Events[0].Attributes.TMCID())
	assert.Equal(t, "110+00002", table.Events[1].Attributes.TMCID())
	for _, event := range table.Events {
		assert.Less(t, event.FromMeasure, event.ToMeasure)
	}
}

func TestLocateActiveOnly(t *testing.T) {
	route := testRoute(t)
	features := []*Feature{
		speedLimitFeature("1", 0, 500, 55, true),
		speedLimitFeature("2", 0, 500, 65, false),
	}
	table, stats := NewLocator(nil, true, nil).LocateAll(route, features)
	require.Len(t, table.Events, 1)
	assert.Equal(t, 55, table.Events[0].Attributes.SpeedLimitValue())
	assert.Equal(t, 1, stats.Inactive)

	table, _ = NewLocator(nil, false, nil).LocateAll(route, features)
	assert.Len(t, table.Events, 2)
}

func TestLocateNeverEmitsZeroLength(t *testing.T) {
	route := testRoute(t)
	loc := NewLocator(nil, false, nil)
	for from := -100.0; from <= 1100; from += 50 {
		for to := -100.0; to <= 1100; to += 50 {
			for _, event := range loc.Locate(route, speedLimitFeature("sl", from, to, 55, true)) {
				assert.Greater(t, event.ToMeasure, event.FromMeasure)
				assert.GreaterOrEqual(t, event.FromMeasure, 0.0)
				assert.LessOrEqual(t, event.ToMeasure, route.Length())
			}
		}
	}
}
