package conflate

// CleanupOptions selects which cleanup steps apply to unified records
type CleanupOptions struct {
	// DropEmptySegmentKey removes records not covered by any TMC. Used when an explicit TMC list is given,
	// since parts of the route will then have no TMC at all
	DropEmptySegmentKey bool
}

// CleanupStats counts records removed (or fixed) by every cleanup step
type CleanupStats struct {
	MissingTown     int
	EmptySegmentKey int
	ClampedFrom     int
	ZeroLength      int
}

// Cleanup prepares unified records for aggregation. Returns new slice sorted by (from measure, TMC)
func Cleanup(records []Event, opts CleanupOptions) ([]Event, CleanupStats) {
	stats := CleanupStats{}
	before := len(records)
	result := dropMissingTown(records)
	stats.MissingTown = before - len(result)
	if opts.DropEmptySegmentKey {
		before = len(result)
		result = dropEmptySegmentKey(result)
		stats.EmptySegmentKey = before - len(result)
	}
	result, stats.ClampedFrom = clampNegativeFrom(result)
	before = len(result)
	result = dropZeroLength(result)
	stats.ZeroLength = before - len(result)
	sortEvents(result)
	return result, stats
}

func filterEvents(records []Event, keep func(Event) bool) []Event {
	result := make([]Event, 0, len(records))
	for _, record := range records {
		if keep(record) {
			result = append(result, record)
		}
	}
	return result
}

// dropMissingTown removes records with town id 0. Those come from slight disagreement between the town
// boundaries used here and the ones the route inventory has been built with
func dropMissingTown(records []Event) []Event {
	return filterEvents(records, func(record Event) bool {
		return record.Attributes.TownID() != 0
	})
}

func dropEmptySegmentKey(records []Event) []Event {
	return filterEvents(records, func(record Event) bool {
		return record.Attributes.TMCID() != ""
	})
}

// clampNegativeFrom sets negative from measures to zero. Route inventory allows measures below zero
func clampNegativeFrom(records []Event) ([]Event, int) {
	result := make([]Event, len(records))
	clamped := 0
	for i, record := range records {
		if record.FromMeasure < 0 {
			record.FromMeasure = 0
			clamped++
		}
		result[i] = record
	}
	return result, clamped
}

func dropZeroLength(records []Event) []Event {
	return filterEvents(records, func(record Event) bool {
		return record.FromMeasure != record.ToMeasure
	})
}
