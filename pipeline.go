package conflate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Pipeline conflates TMC, town, speed limit and lanes data along routes
type Pipeline struct {
	routes              RouteSource
	features            map[FeatureKind]FeatureSource
	towns               TownNames
	tolerances          map[FeatureKind]Tolerance
	segmentIDs          []string
	activeOnly          bool
	dropEmptySegmentKey bool
	runID               string
	logger              *zap.SugaredLogger
}

func (pipeline *Pipeline) String() string {
	tolerances := make([]string, 0, len(featureKindsOrdered))
	for _, kind := range featureKindsOrdered {
		tol := pipeline.tolerances[kind]
		tolerances = append(tolerances, fmt.Sprintf("%s(distance=%g, measure=%g)", kind, tol.Distance, tol.Measure))
	}
	return fmt.Sprintf(`
Conflation parameters:
	run_id: '%s'
	tolerances: %s
	segment list size: %d
	active only?: %t
	drop records without TMC?: %t
	`,
		pipeline.runID,
		strings.Join(tolerances, ", "),
		len(pipeline.segmentIDs),
		pipeline.activeOnly,
		pipeline.dropEmptySegmentKey,
	)
}

// NewPipeline returns pipeline reading routes and features from given sources.
// Every feature kind needs a source
func NewPipeline(routes RouteSource, features map[FeatureKind]FeatureSource, options ...func(*Pipeline)) (*Pipeline, error) {
	if routes == nil {
		return nil, errors.New("Route source is required")
	}
	for _, kind := range featureKindsOrdered {
		if features[kind] == nil {
			return nil, errors.Errorf("No source for %s features", kind)
		}
	}
	pipeline := &Pipeline{
		routes:     routes,
		features:   features,
		tolerances: make(map[FeatureKind]Tolerance, len(DefaultTolerances)),
		activeOnly: true,
		runID:      uuid.New().String(),
	}
	for kind, tol := range DefaultTolerances {
		pipeline.tolerances[kind] = tol
	}
	for _, option := range options {
		option(pipeline)
	}
	if pipeline.logger == nil {
		pipeline.logger = zap.NewNop().Sugar()
	}
	if pipeline.towns == nil {
		pipeline.towns = TownNameMap{}
	}
	pipeline.logger = pipeline.logger.With("run_id", pipeline.runID)
	return pipeline, nil
}

// RunID identifies every route result produced by this pipeline
func (pipeline *Pipeline) RunID() string {
	return pipeline.runID
}

// RunStats summarizes one route run
type RunStats struct {
	RunID    string
	RouteID  string
	Located  map[FeatureKind]LocateStats
	// Unified is number of records after overlays, before cleanup
	Unified  int
	Cleanup  CleanupStats
	Segments int
	Elapsed  time.Duration
}

// RouteResult is everything one route run produces
type RouteResult struct {
	Descriptor RouteDescriptor
	Route      *Route
	// Records are cleaned up unified records sorted by (from, TMC)
	Records    []Event
	Aggregates []AggregateRecord
	Stats      RunStats
}

// Run conflates all datasets along one route
func (pipeline *Pipeline) Run(ctx context.Context, routeID string) (*RouteResult, error) {
	st := time.Now()
	desc, err := ParseRouteID(routeID)
	if err != nil {
		return nil, err
	}
	logger := pipeline.logger.With("route_id", desc.RouteID)
	logger.Infow("Processing route", "road_num", desc.RoadNum, "tmc_direction", desc.TMCDirection.String())

	route, err := pipeline.routes.LoadRoute(ctx, desc.RouteID)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't load route '%s'", desc.RouteID)
	}
	logger.Debugw("Route loaded", "length", route.Length(), "vertices", len(route.Geom()))

	stats := RunStats{
		RunID:   pipeline.runID,
		RouteID: desc.RouteID,
		Located: make(map[FeatureKind]LocateStats, len(featureKindsOrdered)),
	}
	locator := NewLocator(pipeline.tolerances, pipeline.activeOnly, logger)
	tables := make(map[FeatureKind]*EventTable, len(featureKindsOrdered))
	for _, kind := range featureKindsOrdered {
		stKind := time.Now()
		query := Query{
			Kind:      kind,
			RouteID:   desc.RouteID,
			RoadNum:   desc.RoadNum,
			Direction: desc.TMCDirection.String(),
		}
		if kind == FEATURE_TMC {
			query.SegmentIDs = pipeline.segmentIDs
		}
		features, err := pipeline.features[kind].LoadFeatures(ctx, query)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't load %s features for route '%s'", kind, desc.RouteID)
		}
		table, locateStats := locator.LocateAll(route, features)
		tables[kind] = table
		stats.Located[kind] = locateStats
		logger.Infow(fmt.Sprintf("Locating %s features... Done", kind), "features", locateStats.Features, "events", locateStats.Events, "elapsed", time.Since(stKind))
	}

	unified, err := pipeline.unify(tables)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't overlay events for route '%s'", desc.RouteID)
	}
	stats.Unified = len(unified.Events)

	opts := CleanupOptions{
		DropEmptySegmentKey: pipeline.dropEmptySegmentKey || len(pipeline.segmentIDs) > 0,
	}
	records, cleanupStats := Cleanup(unified.Events, opts)
	stats.Cleanup = cleanupStats
	logger.Debugw("Cleanup done", "missing_town", cleanupStats.MissingTown, "empty_tmc", cleanupStats.EmptySegmentKey, "clamped_from", cleanupStats.ClampedFrom, "zero_length", cleanupStats.ZeroLength)

	aggregates, err := NewAggregator(TMCSegmentKey, pipeline.towns, logger).Aggregate(records)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't aggregate route '%s'", desc.RouteID)
	}
	stats.Segments = len(aggregates)
	stats.Elapsed = time.Since(st)
	logger.Infow("Processing route... Done", "records", len(records), "segments", stats.Segments, "elapsed", stats.Elapsed)

	return &RouteResult{
		Descriptor: desc,
		Route:      route,
		Records:    records,
		Aggregates: aggregates,
		Stats:      stats,
	}, nil
}

// unify overlays event tables: TMC with towns, then speed limits, then lanes.
// Lanes overlay keeps gaps so every part of the route covered by anything survives
func (pipeline *Pipeline) unify(tables map[FeatureKind]*EventTable) (*EventTable, error) {
	unified, err := Overlay(tables[FEATURE_TMC], tables[FEATURE_TOWN], OVERLAY_NO_ZERO)
	if err != nil {
		return nil, err
	}
	unified, err = Overlay(unified, tables[FEATURE_SPEED_LIMIT], OVERLAY_NO_ZERO)
	if err != nil {
		return nil, err
	}
	return Overlay(unified, tables[FEATURE_LANES], OVERLAY_ZERO)
}

// ValidateRouteIDs checks every route identifier before any work starts
func ValidateRouteIDs(routeIDs []string) error {
	for _, routeID := range routeIDs {
		if _, err := ParseRouteID(routeID); err != nil {
			return err
		}
	}
	return nil
}

// RunBatch runs routes one after another. Each route run is independent of the others;
// the first failure stops the batch
func (pipeline *Pipeline) RunBatch(ctx context.Context, routeIDs []string, handle func(*RouteResult) error) error {
	if err := ValidateRouteIDs(routeIDs); err != nil {
		return err
	}
	st := time.Now()
	for _, routeID := range routeIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := pipeline.Run(ctx, routeID)
		if err != nil {
			return err
		}
		if handle != nil {
			if err := handle(result); err != nil {
				return errors.Wrapf(err, "Can't handle result of route '%s'", routeID)
			}
		}
	}
	pipeline.logger.Infow("Processing batch... Done", "routes", len(routeIDs), "elapsed", time.Since(st))
	return nil
}
