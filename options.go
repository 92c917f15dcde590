package conflate

import (
	"go.uber.org/zap"
)

// WithLogger sets logger for pipeline and every stage it runs
func WithLogger(logger *zap.SugaredLogger) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.logger = logger
	}
}

// WithSegmentList restricts TMC segments to given identifiers. Records not covered by any of them are dropped
func WithSegmentList(segmentIDs []string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.segmentIDs = segmentIDs
	}
}

// WithTownNames sets town names lookup used by aggregation
func WithTownNames(towns TownNames) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.towns = towns
	}
}

// WithTolerances overrides DefaultTolerances for given kinds
func WithTolerances(tolerances map[FeatureKind]Tolerance) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		for kind, tol := range tolerances {
			pipeline.tolerances[kind] = tol
		}
	}
}

// WithActiveOnly skips retired speed limit and lanes records (those with 'to_date' set). Enabled by default
func WithActiveOnly(activeOnly bool) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.activeOnly = activeOnly
	}
}

// WithDropEmptySegmentKey drops records not covered by any TMC even without segment list
func WithDropEmptySegmentKey(drop bool) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.dropEmptySegmentKey = drop
	}
}

// WithRunID replaces generated run identifier
func WithRunID(runID string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.runID = runID
	}
}
