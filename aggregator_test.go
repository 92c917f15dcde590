package conflate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTowns = TownNameMap{
	1: "BOSTON",
	2: "QUINCY",
	3: "MILTON",
}

func TestAggregateScenario(t *testing.T) {
	records := []Event{
		unifiedRecord("T1", 1, 100, 400, 50, 2),
		unifiedRecord("T1", 1, 400, 500, 55, 2),
	}
	aggregated, err := Aggregate(records, TMCSegmentKey, testTowns)
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	record := aggregated[0]
	assert.Equal(t, "T1", record.TMC)
	assert.Equal(t, 100.0, record.FromMeasure)
	assert.Equal(t, 500.0, record.ToMeasure)
	assert.Equal(t, 400.0, record.Length)
	assert.Equal(t, 50, record.SpeedLimit, "weighted mean 51.25")
	assert.Equal(t, 2, record.NumLanes)
	assert.Equal(t, "BOSTON", record.Towns)
	assert.Equal(t, "P1.11", record.TMCType)
	assert.Equal(t, "I-95", record.RoadNum)
	assert.Equal(t, "Northbound", record.Direction)
	assert.Equal(t, "EXIT 12", record.FirstName)
	assert.Equal(t, "I95 NB", record.RouteID)
	assert.Equal(t, 2, record.Records)
}

func TestAggregateAfterCleanup(t *testing.T) {
	records := []Event{
		unifiedRecord("T1", 1, -5, 10, 55, 3),
		// Dropped: no town
		unifiedRecord("T2", 0, 10, 20, 55, 3),
	}
	cleaned, _ := Cleanup(records, CleanupOptions{})
	aggregated, err := Aggregate(cleaned, TMCSegmentKey, testTowns)
	require.NoError(t, err)
	require.Len(t, aggregated, 1)
	assert.Equal(t, "T1", aggregated[0].TMC)
	assert.Equal(t, 0.0, aggregated[0].FromMeasure)
	assert.Equal(t, 10.0, aggregated[0].Length)
}

func TestAggregateTowns(t *testing.T) {
	records := []Event{
		unifiedRecord("T1", 2, 0, 100, 65, 3),
		unifiedRecord("T1", 1, 100, 200, 65, 3),
		unifiedRecord("T1", 2, 200, 300, 65, 3),
		unifiedRecord("T2", 3, 300, 400, 65, 3),
	}
	aggregated, err := Aggregate(records, nil, testTowns)
	require.NoError(t, err)
	require.Len(t, aggregated, 2)
	assert.Equal(t, "BOSTON, QUINCY", aggregated[0].Towns)
	assert.Equal(t, []int{1, 2}, aggregated[0].TownIDs)
	assert.Equal(t, "MILTON", aggregated[1].Towns)

	_, err = Aggregate(records, nil, TownNameMap{1: "BOSTON"})
	assert.Equal(t, ErrUnknownTown, errors.Cause(err))
}

func TestAggregateOrderAndGaps(t *testing.T) {
	records := []Event{
		unifiedRecord("T2", 1, 0, 100, 65, 3),
		unifiedRecord("T1", 1, 0, 50, 65, 3),
		unifiedRecord("T1", 1, 80, 100, 65, 3),
	}
	aggregated, err := Aggregate(records, nil, testTowns)
	require.NoError(t, err)
	require.Len(t, aggregated, 2)
	assert.Equal(t, "T1", aggregated[0].TMC, "ties by key")
	assert.Equal(t, 100.0, aggregated[0].ToMeasure)
	assert.Equal(t, 70.0, aggregated[0].Length, "length is not recomputed from the extent")
}

func TestAggregateRounding(t *testing.T) {
	cases := []struct {
		name   string
		speeds []int
		lanes  []int
		lens   []float64
		speed  int
		nLanes int
	}{
		{"uniform", []int{65, 65}, []int{3, 3}, []float64{100, 300}, 65, 3},
		{"rounds down", []int{50, 55}, []int{2, 2}, []float64{300, 100}, 50, 2},
		{"rounds up", []int{50, 55}, []int{2, 2}, []float64{100, 300}, 55, 2},
		// 52.5 is half-way between 50 and 55, ties go to even multiplier (10 * 5)
		{"half to even down", []int{50, 55}, []int{2, 3}, []float64{100, 100}, 50, 3},
		// 57.5 is half-way between 55 and 60, ties go to even multiplier (12 * 5)
		{"half to even up", []int{55, 60}, []int{2, 2}, []float64{100, 100}, 60, 2},
		{"lanes ceiling", []int{65, 65}, []int{2, 3}, []float64{900, 100}, 65, 3},
		{"float noise does not bump lanes", []int{65, 65, 65}, []int{2, 2, 2}, []float64{0.1, 0.2, 0.3}, 65, 2},
		{"short sliver with more lanes", []int{65, 65}, []int{2, 3}, []float64{1000, 0.0000001}, 65, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			records := []Event{}
			from := 0.0
			for i := range c.speeds {
				records = append(records, unifiedRecord("T1", 1, from, from+c.lens[i], c.speeds[i], c.lanes[i]))
				from += c.lens[i]
			}
			aggregated, err := Aggregate(records, nil, testTowns)
			require.NoError(t, err)
			require.Len(t, aggregated, 1)
			assert.Equal(t, c.speed, aggregated[0].SpeedLimit)
			assert.Equal(t, 0, aggregated[0].SpeedLimit%5)
			assert.Equal(t, c.nLanes, aggregated[0].NumLanes)

			weighted, total := 0.0, 0.0
			for i := range c.lanes {
				weighted += float64(c.lanes[i]) * c.lens[i]
				total += c.lens[i]
			}
			assert.GreaterOrEqual(t, float64(aggregated[0].NumLanes), weighted/total)
			assert.InDelta(t, total, aggregated[0].Length, 1e-9)
		})
	}
}

func TestRoundToMultipleOf5(t *testing.T) {
	assert.Equal(t, 50, roundToMultipleOf5(51.25))
	assert.Equal(t, 55, roundToMultipleOf5(53))
	assert.Equal(t, 50, roundToMultipleOf5(52.5))
	assert.Equal(t, 60, roundToMultipleOf5(57.5))
	assert.Equal(t, 0, roundToMultipleOf5(0))
}
