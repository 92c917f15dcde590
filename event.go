package conflate

import (
	"sort"
)

// Event is a located interval [FromMeasure, ToMeasure) of a feature (or several overlaid features) along a route
type Event struct {
	RouteID     string
	FromMeasure float64
	ToMeasure   float64
	Attributes  AttributeSet
	// featureID is used as tie-breaker while sorting freshly located events
	featureID string
}

// Length returns length of the event interval
func (event Event) Length() float64 {
	return event.ToMeasure - event.FromMeasure
}

// EventTable is a collection of events for one route
type EventTable struct {
	RouteID string
	Events  []Event
}

// NewEventTable returns table holding copy of given events
func NewEventTable(routeID string, events []Event) *EventTable {
	table := &EventTable{
		RouteID: routeID,
		Events:  make([]Event, len(events)),
	}
	copy(table.Events, events)
	return table
}

// Sort sorts events by from measure in ascending order (ties by segment key) in place. Sort is stable
func (table *EventTable) Sort() {
	sortEvents(table.Events)
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].FromMeasure != events[j].FromMeasure {
			return events[i].FromMeasure < events[j].FromMeasure
		}
		return eventKey(events[i]) < eventKey(events[j])
	})
}

func eventKey(event Event) string {
	if tmcID := event.Attributes.TMCID(); tmcID != "" {
		return tmcID
	}
	return event.featureID
}
