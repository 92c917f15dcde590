package conflate

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrRouteNotFound       = errors.New("route not found")
	ErrUnknownSourceDriver = errors.New("unknown source driver")
)

// Query selects features of one kind relevant to one route
type Query struct {
	Kind    FeatureKind
	RouteID string
	// RoadNum and Direction select TMC segments, e.g. 'I-95' and 'Northbound'
	RoadNum   string
	Direction string
	// SegmentIDs is an explicit list of TMC identifiers. When not empty it replaces RoadNum/Direction selection
	SegmentIDs []string
}

// RouteSource provides route geometries
type RouteSource interface {
	LoadRoute(ctx context.Context, routeID string) (*Route, error)
}

// FeatureSource provides features of one or more kinds
type FeatureSource interface {
	LoadFeatures(ctx context.Context, query Query) ([]*Feature, error)
}

// closeSource closes source if it holds any resources
func closeSource(source interface{}) error {
	if closer, ok := source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Names of attributes shared by every source driver
const (
	fieldRouteID     = "route_id"
	fieldTMC         = "tmc"
	fieldTMCType     = "tmctype"
	fieldRoadNum     = "roadnum"
	fieldFirstName   = "firstnm"
	fieldDirection   = "direction"
	fieldTownID      = "town_id"
	fieldTown        = "town"
	fieldFromMeasure = "from_measure"
	fieldToMeasure   = "to_measure"
	fieldSpeedLimit  = "speed_lim"
	fieldOppositeSL  = "op_dir_sl"
	fieldNumLanes    = "num_lanes"
	fieldToDate      = "to_date"
)

// matches reports whether record with given attributes is selected by the query
func (query Query) matches(props map[string]string) bool {
	switch query.Kind {
	case FEATURE_TMC:
		if len(query.SegmentIDs) > 0 {
			tmcID := props[fieldTMC]
			for _, id := range query.SegmentIDs {
				if id == tmcID {
					return true
				}
			}
			return false
		}
		if query.RoadNum != "" && props[fieldRoadNum] != query.RoadNum {
			return false
		}
		if query.Direction != "" && props[fieldDirection] != query.Direction {
			return false
		}
		return true
	case FEATURE_SPEED_LIMIT, FEATURE_LANES:
		routeID, ok := props[fieldRouteID]
		if !ok || query.RouteID == "" {
			return true
		}
		return routeID == query.RouteID
	default:
		return true
	}
}

// buildFeature turns a raw record (attributes as text) into a typed feature
func buildFeature(kind FeatureKind, id string, geom orb.Geometry, props map[string]string) (*Feature, error) {
	feature := &Feature{
		Kind: kind,
		ID:   id,
		Geom: geom,
	}
	var err error
	switch kind {
	case FEATURE_TMC:
		feature.Attributes.TMC = &TMCAttributes{
			ID:        props[fieldTMC],
			Type:      props[fieldTMCType],
			RoadNum:   props[fieldRoadNum],
			FirstName: props[fieldFirstName],
			Direction: props[fieldDirection],
		}
		if feature.ID == "" {
			feature.ID = props[fieldTMC]
		}
	case FEATURE_TOWN:
		town := &TownAttributes{Name: props[fieldTown]}
		town.ID, err = parseIntField(props, fieldTownID, true)
		if err != nil {
			return nil, err
		}
		feature.Attributes.Town = town
		if feature.ID == "" {
			feature.ID = strconv.Itoa(town.ID)
		}
	case FEATURE_SPEED_LIMIT:
		sl := &SpeedLimitAttributes{Active: strings.TrimSpace(props[fieldToDate]) == ""}
		sl.Limit, err = parseIntField(props, fieldSpeedLimit, true)
		if err != nil {
			return nil, err
		}
		sl.OppositeLimit, err = parseIntField(props, fieldOppositeSL, false)
		if err != nil {
			return nil, err
		}
		feature.Attributes.SpeedLimit = sl
	case FEATURE_LANES:
		lanes := &LanesAttributes{Active: strings.TrimSpace(props[fieldToDate]) == ""}
		lanes.Count, err = parseIntField(props, fieldNumLanes, true)
		if err != nil {
			return nil, err
		}
		feature.Attributes.Lanes = lanes
	default:
		return nil, errors.Errorf("Unhandled feature kind %d", kind)
	}
	if kind == FEATURE_SPEED_LIMIT || kind == FEATURE_LANES {
		feature.Measures, err = parseMeasures(props)
		if err != nil {
			return nil, err
		}
	}
	return feature, nil
}

// parseIntField accepts both '55' and '55.0'
func parseIntField(props map[string]string, name string, required bool) (int, error) {
	str := strings.TrimSpace(props[name])
	if str == "" {
		if required {
			return 0, errors.Errorf("Field '%s' is required", name)
		}
		return 0, nil
	}
	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "Field '%s' should be numeric. Got '%s'", name, str)
	}
	return int(value), nil
}

// parseMeasures returns nil when the record carries no measures
func parseMeasures(props map[string]string) (*MeasureRange, error) {
	fromStr := strings.TrimSpace(props[fieldFromMeasure])
	toStr := strings.TrimSpace(props[fieldToMeasure])
	if fromStr == "" && toStr == "" {
		return nil, nil
	}
	from, err := strconv.ParseFloat(fromStr, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "Field '%s' should be numeric. Got '%s'", fieldFromMeasure, fromStr)
	}
	to, err := strconv.ParseFloat(toStr, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "Field '%s' should be numeric. Got '%s'", fieldToMeasure, toStr)
	}
	return &MeasureRange{From: from, To: to}, nil
}

// routeLine returns route geometry as one line. Parts of multi-line are chained in order
func routeLine(geom orb.Geometry) (orb.LineString, bool) {
	switch g := geom.(type) {
	case orb.LineString:
		return g, true
	case orb.MultiLineString:
		line := orb.LineString{}
		for _, part := range g {
			line = append(line, part...)
		}
		return line, true
	default:
		return nil, false
	}
}

type sourceOptions struct {
	logger *zap.SugaredLogger
}

// WithSourceLogger sets logger for sources which report skipped data (OSM)
func WithSourceLogger(logger *zap.SugaredLogger) func(*sourceOptions) {
	return func(opts *sourceOptions) {
		opts.logger = logger
	}
}

// NewSource creates source by driver name. Returned value implements FeatureSource and,
// except 'osm' driver, RouteSource
func NewSource(cfg SourceConfig, options ...func(*sourceOptions)) (FeatureSource, error) {
	opts := sourceOptions{}
	for _, option := range options {
		option(&opts)
	}
	switch cfg.Driver {
	case "geojson":
		return NewGeoJSONSource(cfg.Path), nil
	case "sqlite":
		return NewSQLiteSource(cfg.Path)
	case "shapefile":
		return NewShapefileSource(cfg.Path), nil
	case "osm":
		return NewOSMSource(cfg.Path, cfg.StatePrefix, cfg.CRS, opts.logger), nil
	default:
		return nil, errors.Wrapf(ErrUnknownSourceDriver, "driver '%s'", cfg.Driver)
	}
}
