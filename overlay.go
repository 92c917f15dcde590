package conflate

import (
	"container/heap"
	"sort"

	"github.com/pkg/errors"
)

var (
	ErrRouteMismatch = errors.New("event tables belong to different routes")
	ErrNilEventTable = errors.New("event table is nil")
)

// OverlayMode defines what happens to sub-intervals which no input event covers
type OverlayMode uint16

const (
	// OVERLAY_NO_ZERO drops uncovered sub-intervals
	OVERLAY_NO_ZERO = OverlayMode(iota + 1)
	// OVERLAY_ZERO keeps uncovered sub-intervals with empty attributes
	OVERLAY_ZERO
)

func (iotaIdx OverlayMode) String() string {
	return [...]string{"NO_ZERO", "ZERO"}[iotaIdx-1]
}

// Overlay unions two event tables. Output intervals are bounded by every distinct endpoint of both
// tables, and each one carries attributes of the covering event of table a merged with those of the
// covering event of table b (a wins for attribute kinds present in both).
// When several events of the same table cover a sub-interval, the one met first in the table wins.
// Inputs are not modified; the result is sorted by from measure.
func Overlay(a, b *EventTable, mode OverlayMode) (*EventTable, error) {
	if a == nil || b == nil {
		return nil, ErrNilEventTable
	}
	routeID := a.RouteID
	if routeID == "" {
		routeID = b.RouteID
	} else if b.RouteID != "" && b.RouteID != routeID {
		return nil, errors.Wrapf(ErrRouteMismatch, "'%s' vs '%s'", a.RouteID, b.RouteID)
	}

	breaks := make([]float64, 0, 2*(len(a.Events)+len(b.Events)))
	for _, table := range []*EventTable{a, b} {
		for _, event := range table.Events {
			breaks = append(breaks, event.FromMeasure, event.ToMeasure)
		}
	}
	sort.Float64s(breaks)
	breaks = uniqueSorted(breaks)

	sweepA := newCoverSweep(a.Events)
	sweepB := newCoverSweep(b.Events)
	result := &EventTable{
		RouteID: routeID,
		Events:  make([]Event, 0, len(breaks)),
	}
	for i := 1; i < len(breaks); i++ {
		from, to := breaks[i-1], breaks[i]
		coverA, okA := sweepA.advance(from)
		coverB, okB := sweepB.advance(from)
		if !okA && !okB && mode != OVERLAY_ZERO {
			continue
		}
		attrs := AttributeSet{}
		if okA {
			attrs = coverA.Attributes
		}
		if okB {
			attrs = attrs.merge(coverB.Attributes)
		}
		result.Events = append(result.Events, Event{
			RouteID:     routeID,
			FromMeasure: from,
			ToMeasure:   to,
			Attributes:  attrs,
		})
	}
	return result, nil
}

// OverlayAll folds tables from left to right with Overlay
func OverlayAll(mode OverlayMode, tables ...*EventTable) (*EventTable, error) {
	if len(tables) == 0 {
		return &EventTable{}, nil
	}
	if tables[0] == nil {
		return nil, ErrNilEventTable
	}
	result := NewEventTable(tables[0].RouteID, tables[0].Events)
	for _, table := range tables[1:] {
		var err error
		result, err = Overlay(result, table, mode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't overlay tables")
		}
	}
	return result, nil
}

// coverSweep finds the covering event for increasing positions along the route.
// Active events are kept in a min-heap by their index in the input, expired ones are evicted lazily
type coverSweep struct {
	events []Event
	order  []int
	next   int
	active indexHeap
}

func newCoverSweep(events []Event) *coverSweep {
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return events[order[i]].FromMeasure < events[order[j]].FromMeasure
	})
	return &coverSweep{
		events: events,
		order:  order,
	}
}

// advance must be called with non-decreasing positions
func (sweep *coverSweep) advance(at float64) (Event, bool) {
	for sweep.next < len(sweep.order) && sweep.events[sweep.order[sweep.next]].FromMeasure <= at {
		heap.Push(&sweep.active, sweep.order[sweep.next])
		sweep.next++
	}
	for sweep.active.Len() > 0 && sweep.events[sweep.active[0]].ToMeasure <= at {
		heap.Pop(&sweep.active)
	}
	if sweep.active.Len() == 0 {
		return Event{}, false
	}
	return sweep.events[sweep.active[0]], true
}

type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
