package conflate

import (
	"go.uber.org/zap"
)

// Tolerance controls how aggressively features are snapped to the route
type Tolerance struct {
	// Distance is the search radius for endpoints of linear features (route geometry units).
	// Endpoints further from the route make the feature unlocatable. Zero means no limit
	Distance float64
	// Measure is the epsilon used to snap measures to route ends and to detect zero-length events
	Measure float64
}

// DefaultTolerances are the tolerances the workflow was tuned with: TMCs need a wide (40 m) search radius
// even on expressways, boundaries are exact, pre-measured inventory zones need a tiny epsilon only.
var DefaultTolerances = map[FeatureKind]Tolerance{
	FEATURE_TMC:         {Distance: 40},
	FEATURE_TOWN:        {},
	FEATURE_SPEED_LIMIT: {Measure: 0.0002},
	FEATURE_LANES:       {Measure: 0.0002},
}

type locateOutcome uint16

const (
	LOCATE_OK = locateOutcome(iota + 1)
	LOCATE_DEGENERATE
	LOCATE_OFF_ROUTE
	LOCATE_INACTIVE
	LOCATE_UNSUPPORTED
)

func (iotaIdx locateOutcome) String() string {
	return [...]string{"ok", "degenerate", "off_route", "inactive", "unsupported_geometry"}[iotaIdx-1]
}

// LocateStats counts what happened to features of one batch
type LocateStats struct {
	Features    int
	Events      int
	Discarded   int
	OffRoute    int
	Inactive    int
	Unsupported int
}

// Locator projects features onto a route producing events
type Locator struct {
	tolerances map[FeatureKind]Tolerance
	activeOnly bool
	logger     *zap.SugaredLogger
}

// NewLocator returns locator with given per-kind tolerances. Kinds missing from the map use DefaultTolerances
func NewLocator(tolerances map[FeatureKind]Tolerance, activeOnly bool, logger *zap.SugaredLogger) *Locator {
	loc := &Locator{
		tolerances: make(map[FeatureKind]Tolerance, len(DefaultTolerances)),
		activeOnly: activeOnly,
		logger:     logger,
	}
	if loc.logger == nil {
		loc.logger = zap.NewNop().Sugar()
	}
	for kind, tol := range DefaultTolerances {
		loc.tolerances[kind] = tol
	}
	for kind, tol := range tolerances {
		loc.tolerances[kind] = tol
	}
	return loc
}

// Locate returns events of the feature along the route.
// Linear and pre-measured features give at most one event, areal features give one event per
// stretch of the route inside the area. Zero-length events are never returned.
func (loc *Locator) Locate(route *Route, feature *Feature) []Event {
	events, _ := loc.locate(route, feature)
	return events
}

func (loc *Locator) locate(route *Route, feature *Feature) ([]Event, locateOutcome) {
	if loc.activeOnly && !feature.active() {
		return nil, LOCATE_INACTIVE
	}
	tol := loc.tolerances[feature.Kind]
	if feature.Measures != nil {
		from := clampMeasure(feature.Measures.From, route.length)
		to := clampMeasure(feature.Measures.To, route.length)
		return loc.emit(route, feature, tol, MeasureRange{From: from, To: to})
	}
	if mp, ok := areal(feature.Geom); ok {
		if len(mp) == 0 {
			return nil, LOCATE_UNSUPPORTED
		}
		ranges := insideRanges(route, mp)
		if len(ranges) == 0 {
			return nil, LOCATE_OFF_ROUTE
		}
		events := make([]Event, 0, len(ranges))
		for _, rng := range ranges {
			located, outcome := loc.emit(route, feature, tol, rng)
			if outcome != LOCATE_OK {
				continue
			}
			events = append(events, located...)
		}
		if len(events) == 0 {
			return nil, LOCATE_DEGENERATE
		}
		return events, LOCATE_OK
	}
	first, last, ok := lineEndpoints(feature.Geom)
	if !ok {
		return nil, LOCATE_UNSUPPORTED
	}
	projectedFirst := route.Project(first)
	projectedLast := route.Project(last)
	if tol.Distance > 0 && (projectedFirst.Distance > tol.Distance || projectedLast.Distance > tol.Distance) {
		return nil, LOCATE_OFF_ROUTE
	}
	return loc.emit(route, feature, tol, MeasureRange{From: projectedFirst.Measure, To: projectedLast.Measure})
}

// emit applies measure snapping and the zero-length rule
func (loc *Locator) emit(route *Route, feature *Feature, tol Tolerance, rng MeasureRange) ([]Event, locateOutcome) {
	from, to := rng.From, rng.To
	// Orient events along increasing measure
	if from > to {
		from, to = to, from
	}
	if tol.Measure > 0 {
		if from <= tol.Measure {
			from = 0
		}
		if route.length-to <= tol.Measure {
			to = route.length
		}
	}
	if to <= 0 || to-from <= tol.Measure {
		return nil, LOCATE_DEGENERATE
	}
	return []Event{{
		RouteID:     route.id,
		FromMeasure: from,
		ToMeasure:   to,
		Attributes:  feature.Attributes,
		featureID:   feature.ID,
	}}, LOCATE_OK
}

// LocateAll locates every feature along the route. Result is sorted by from measure (ties by feature identifier)
func (loc *Locator) LocateAll(route *Route, features []*Feature) (*EventTable, LocateStats) {
	stats := LocateStats{Features: len(features)}
	table := &EventTable{
		RouteID: route.id,
		Events:  make([]Event, 0, len(features)),
	}
	for _, feature := range features {
		events, outcome := loc.locate(route, feature)
		switch outcome {
		case LOCATE_OK:
			table.Events = append(table.Events, events...)
		case LOCATE_DEGENERATE:
			stats.Discarded++
			loc.logger.Debugw("Zero length event discarded", "route_id", route.id, "kind", feature.Kind.String(), "feature_id", feature.ID)
		case LOCATE_OFF_ROUTE:
			stats.OffRoute++
			loc.logger.Debugw("Feature is out of search radius", "route_id", route.id, "kind", feature.Kind.String(), "feature_id", feature.ID)
		case LOCATE_INACTIVE:
			stats.Inactive++
		case LOCATE_UNSUPPORTED:
			stats.Unsupported++
			loc.logger.Warnw("Unsupported feature geometry", "route_id", route.id, "kind", feature.Kind.String(), "feature_id", feature.ID)
		}
	}
	stats.Events = len(table.Events)
	table.Sort()
	return table, stats
}
