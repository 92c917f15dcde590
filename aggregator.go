package conflate

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownTown = errors.New("town id is missing from town names lookup")

// SegmentKey extracts identifier which groups unified records into one aggregate record
type SegmentKey func(record Event) string

// TMCSegmentKey groups records by TMC identifier
func TMCSegmentKey(record Event) string {
	return record.Attributes.TMCID()
}

// AggregateRecord is the summary of every unified record of one segment
type AggregateRecord struct {
	TMC         string
	TMCType     string
	RouteID     string
	RoadNum     string
	Direction   string
	FirstName   string
	FromMeasure float64
	ToMeasure   float64
	// Length is the sum of lengths of the records, which may have gaps between them
	Length     float64
	SpeedLimit int
	NumLanes   int
	Towns      string
	TownIDs    []int
	Records    int
}

// Aggregator collapses unified records sharing the same segment key
type Aggregator struct {
	key    SegmentKey
	towns  TownNames
	logger *zap.SugaredLogger
}

// NewAggregator returns aggregator grouping by given key and naming towns with given lookup
func NewAggregator(key SegmentKey, towns TownNames, logger *zap.SugaredLogger) *Aggregator {
	if key == nil {
		key = TMCSegmentKey
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if towns == nil {
		towns = TownNameMap{}
	}
	return &Aggregator{
		key:    key,
		towns:  towns,
		logger: logger,
	}
}

// Aggregate is a shorthand for NewAggregator(key, towns, nil).Aggregate(records)
func Aggregate(records []Event, key SegmentKey, towns TownNames) ([]AggregateRecord, error) {
	return NewAggregator(key, towns, nil).Aggregate(records)
}

// Aggregate returns one record per segment key sorted by from measure (ties by key).
// Records are expected to be cleaned up already: no zero-length ones, no negative measures.
func (agg *Aggregator) Aggregate(records []Event) ([]AggregateRecord, error) {
	keys, groups := agg.groupBy(records)
	result := make([]AggregateRecord, 0, len(keys))
	for _, key := range keys {
		aggregated, err := agg.aggregateGroup(key, groups[key])
		if err != nil {
			return nil, errors.Wrapf(err, "Can't aggregate segment '%s'", key)
		}
		result = append(result, aggregated)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].FromMeasure != result[j].FromMeasure {
			return result[i].FromMeasure < result[j].FromMeasure
		}
		return result[i].TMC < result[j].TMC
	})
	return result, nil
}

// groupBy returns unique keys in order of first appearance and every record of each key
func (agg *Aggregator) groupBy(records []Event) ([]string, map[string][]Event) {
	keys := []string{}
	groups := make(map[string][]Event)
	for _, record := range records {
		key := agg.key(record)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], record)
	}
	return keys, groups
}

func (agg *Aggregator) aggregateGroup(key string, group []Event) (AggregateRecord, error) {
	sorted := make([]Event, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FromMeasure < sorted[j].FromMeasure
	})
	first := sorted[0]

	result := AggregateRecord{
		TMC:         key,
		RouteID:     first.RouteID,
		FromMeasure: first.FromMeasure,
		ToMeasure:   sorted[len(sorted)-1].ToMeasure,
		Records:     len(sorted),
	}
	if tmc := first.Attributes.TMC; tmc != nil {
		result.TMCType = tmc.Type
		result.RoadNum = tmc.RoadNum
		result.Direction = tmc.Direction
		result.FirstName = tmc.FirstName
	}
	agg.checkInvariants(key, sorted)

	lengths := make([]float64, len(sorted))
	speedLimits := make([]float64, len(sorted))
	lanes := make([]float64, len(sorted))
	for i, record := range sorted {
		lengths[i] = record.Length()
		speedLimits[i] = float64(record.Attributes.SpeedLimitValue())
		lanes[i] = float64(record.Attributes.LanesCount())
		if record.ToMeasure > result.ToMeasure {
			result.ToMeasure = record.ToMeasure
		}
	}
	result.Length = floats.Sum(lengths)

	weights := lengths
	if result.Length <= 0 {
		weights = nil
	}
	result.SpeedLimit = roundToMultipleOf5(stat.Mean(speedLimits, weights))
	result.NumLanes = lanesCeiling(lanes, weights)

	townIDs := uniqueTownIDs(sorted)
	names := make([]string, 0, len(townIDs))
	for _, townID := range townIDs {
		name, ok := agg.towns.TownName(townID)
		if !ok {
			return AggregateRecord{}, errors.Wrapf(ErrUnknownTown, "town id %d", townID)
		}
		names = append(names, name)
	}
	result.TownIDs = townIDs
	result.Towns = strings.Join(names, ", ")
	return result, nil
}

// checkInvariants warns when records of one segment disagree on fields copied from the first record
func (agg *Aggregator) checkInvariants(key string, sorted []Event) {
	first := sorted[0]
	for _, record := range sorted[1:] {
		if record.RouteID != first.RouteID || !sameTMC(record.Attributes.TMC, first.Attributes.TMC) {
			agg.logger.Warnw("Records of segment disagree on invariant fields, first record wins",
				"segment", key, "from_meas", record.FromMeasure, "to_meas", record.ToMeasure)
			return
		}
	}
}

func sameTMC(a, b *TMCAttributes) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// roundToMultipleOf5 rounds half to even, the same way Python 3 round() does
// lanesCeiling never reports fewer lanes than the weighted average.
// A group sharing one lane count keeps it as is, since its weighted mean may carry float noise above it
func lanesCeiling(lanes, weights []float64) int {
	if len(lanes) > 0 && floats.Min(lanes) == floats.Max(lanes) {
		return int(lanes[0])
	}
	return int(math.Ceil(stat.Mean(lanes, weights)))
}

func roundToMultipleOf5(x float64) int {
	return int(5 * math.RoundToEven(x/5))
}

// uniqueTownIDs returns sorted distinct non-zero town ids of given records
func uniqueTownIDs(records []Event) []int {
	seen := make(map[int]struct{})
	result := []int{}
	for _, record := range records {
		townID := record.Attributes.TownID()
		if townID == 0 {
			continue
		}
		if _, ok := seen[townID]; ok {
			continue
		}
		seen[townID] = struct{}{}
		result = append(result, townID)
	}
	sort.Ints(result)
	return result
}
