package conflate

import (
	"github.com/paulmach/orb"
)

// TMCAttributes are attributes of traffic message channel segment
type TMCAttributes struct {
	ID        string
	Type      string
	RoadNum   string
	FirstName string
	Direction string
}

// TownAttributes are attributes of town political boundary
type TownAttributes struct {
	ID   int
	Name string
}

// SpeedLimitAttributes are attributes of regulatory speed limit zone
type SpeedLimitAttributes struct {
	Limit int
	// OppositeLimit is the limit for the opposing direction. Carried through, but not aggregated
	OppositeLimit int
	Active        bool
}

// LanesAttributes are attributes of number of travel lanes zone
type LanesAttributes struct {
	Count  int
	Active bool
}

// AttributeSet is a fixed-schema union of attributes of every feature kind.
// Nil member means that no event of the corresponding kind covers the interval.
type AttributeSet struct {
	TMC        *TMCAttributes
	Town       *TownAttributes
	SpeedLimit *SpeedLimitAttributes
	Lanes      *LanesAttributes
}

// merge returns union of two sets. Members already present in attrs win
func (attrs AttributeSet) merge(other AttributeSet) AttributeSet {
	if attrs.TMC == nil {
		attrs.TMC = other.TMC
	}
	if attrs.Town == nil {
		attrs.Town = other.Town
	}
	if attrs.SpeedLimit == nil {
		attrs.SpeedLimit = other.SpeedLimit
	}
	if attrs.Lanes == nil {
		attrs.Lanes = other.Lanes
	}
	return attrs
}

func (attrs AttributeSet) empty() bool {
	return attrs.TMC == nil && attrs.Town == nil && attrs.SpeedLimit == nil && attrs.Lanes == nil
}

// TMCID returns TMC identifier or empty string when no TMC covers the interval
func (attrs AttributeSet) TMCID() string {
	if attrs.TMC == nil {
		return ""
	}
	return attrs.TMC.ID
}

// TownID returns town identifier or 0 (sentinel for boundary mismatch) when no town covers the interval
func (attrs AttributeSet) TownID() int {
	if attrs.Town == nil {
		return 0
	}
	return attrs.Town.ID
}

// SpeedLimitValue returns speed limit or 0 when unknown
func (attrs AttributeSet) SpeedLimitValue() int {
	if attrs.SpeedLimit == nil {
		return 0
	}
	return attrs.SpeedLimit.Limit
}

// LanesCount returns number of lanes or 0 when unknown
func (attrs AttributeSet) LanesCount() int {
	if attrs.Lanes == nil {
		return 0
	}
	return attrs.Lanes.Count
}

// MeasureRange is a pair of measures supplied by an upstream event table
type MeasureRange struct {
	From float64
	To   float64
}

// Feature is a record of one of the input datasets
type Feature struct {
	Kind FeatureKind
	ID   string
	// Geom is a line for TMC segments, (multi)polygon for boundaries. Optional when Measures is set
	Geom orb.Geometry
	// Measures are set when the dataset is an event table referenced to the route already
	Measures   *MeasureRange
	Attributes AttributeSet
}

// active reports whether the feature is a current record of its dataset
func (feature *Feature) active() bool {
	switch feature.Kind {
	case FEATURE_SPEED_LIMIT:
		return feature.Attributes.SpeedLimit == nil || feature.Attributes.SpeedLimit.Active
	case FEATURE_LANES:
		return feature.Attributes.Lanes == nil || feature.Attributes.Lanes.Active
	default:
		return true
	}
}
