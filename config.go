package conflate

import (
	"context"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SourceConfig describes where features (or routes) of one kind are read from
type SourceConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=geojson sqlite shapefile osm"`
	Path   string `yaml:"path" validate:"required"`
	// Nil tolerances fall back to DefaultTolerances
	DistanceTolerance *float64 `yaml:"distance_tolerance" validate:"omitempty,gte=0"`
	MeasureTolerance  *float64 `yaml:"measure_tolerance" validate:"omitempty,gte=0"`
	// StatePrefix is used by 'osm' driver to match state routes
	StatePrefix string `yaml:"state_prefix" validate:"omitempty,alpha"`
	// CRS of geometries produced by 'osm' driver: EPSG:4326 (default) or EPSG:3857
	CRS string `yaml:"crs" validate:"omitempty,oneof=EPSG:4326 EPSG:3857"`
}

// RunConfig is loaded once and never mutated afterwards
type RunConfig struct {
	OutputDir         string `yaml:"output_dir" validate:"required"`
	WriteIntermediate bool   `yaml:"write_intermediate"`
	WriteGeoJSON      bool   `yaml:"write_geojson"`
	// TownNames is CSV file. When empty and town source is SQLite, its 'towns' table is used
	TownNames string `yaml:"town_names"`
	// RoutesFile lists routes to process; empty means DefaultRouteList
	RoutesFile string `yaml:"routes_file"`
	// SegmentsFile is an optional TMC allow-list
	SegmentsFile        string                  `yaml:"segments_file"`
	// IncludeRetired keeps inventory records with 'to_date' set
	IncludeRetired      bool                    `yaml:"include_retired"`
	DropEmptySegmentKey bool                    `yaml:"drop_empty_segment_key"`
	Debug               bool                    `yaml:"debug"`
	RouteSource         SourceConfig            `yaml:"route_source" validate:"required"`
	Sources             map[string]SourceConfig `yaml:"sources" validate:"required"`
}

// LoadRunConfig reads and validates YAML configuration
func LoadRunConfig(fname string) (RunConfig, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return RunConfig{}, errors.Wrap(err, "Can't read config")
	}
	return ParseRunConfig(data)
}

// ParseRunConfig parses and validates YAML configuration
func ParseRunConfig(data []byte) (RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, errors.Wrap(err, "Can't parse config")
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that every feature kind has a source
func (cfg RunConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return errors.Wrap(err, "Bad config")
	}
	if cfg.RouteSource.Driver == "osm" {
		return errors.New("Bad config: 'osm' driver can't provide routes")
	}
	for name, source := range cfg.Sources {
		kind := getFeatureKind(name)
		if kind == 0 {
			return errors.Errorf("Bad config: unknown feature kind '%s'", name)
		}
		if err := v.Struct(source); err != nil {
			return errors.Wrapf(err, "Bad config for '%s' source", name)
		}
		if source.Driver == "osm" && kind != FEATURE_SPEED_LIMIT && kind != FEATURE_LANES {
			return errors.Errorf("Bad config: 'osm' driver can't provide '%s' features", name)
		}
	}
	for _, kind := range featureKindsOrdered {
		if _, ok := cfg.Sources[kind.String()]; !ok {
			return errors.Errorf("Bad config: no source for '%s' features", kind)
		}
	}
	return nil
}

// Tolerances merges configured tolerances with DefaultTolerances
func (cfg RunConfig) Tolerances() map[FeatureKind]Tolerance {
	tolerances := make(map[FeatureKind]Tolerance, len(DefaultTolerances))
	for kind, tol := range DefaultTolerances {
		tolerances[kind] = tol
	}
	for name, source := range cfg.Sources {
		kind := getFeatureKind(name)
		tol := tolerances[kind]
		if source.DistanceTolerance != nil {
			tol.Distance = *source.DistanceTolerance
		}
		if source.MeasureTolerance != nil {
			tol.Measure = *source.MeasureTolerance
		}
		tolerances[kind] = tol
	}
	return tolerances
}

// Sources is a set of opened sources shared between sources configs pointing to the same file
type Sources struct {
	Route    RouteSource
	Features map[FeatureKind]FeatureSource
	opened   map[string]interface{}
}

// OpenSources opens every configured source. The same driver and path are opened once
func OpenSources(cfg RunConfig, options ...func(*sourceOptions)) (*Sources, error) {
	sources := &Sources{
		Features: make(map[FeatureKind]FeatureSource, len(cfg.Sources)),
		opened:   make(map[string]interface{}),
	}
	route, err := sources.open(cfg.RouteSource, options...)
	if err != nil {
		sources.Close()
		return nil, errors.Wrap(err, "Can't open route source")
	}
	routeSource, ok := route.(RouteSource)
	if !ok {
		sources.Close()
		return nil, errors.Errorf("Driver '%s' can't provide routes", cfg.RouteSource.Driver)
	}
	sources.Route = routeSource
	for _, kind := range featureKindsOrdered {
		source, err := sources.open(cfg.Sources[kind.String()], options...)
		if err != nil {
			sources.Close()
			return nil, errors.Wrapf(err, "Can't open %s source", kind)
		}
		sources.Features[kind] = source.(FeatureSource)
	}
	return sources, nil
}

func (sources *Sources) open(cfg SourceConfig, options ...func(*sourceOptions)) (interface{}, error) {
	key := cfg.Driver + ":" + cfg.Path
	if source, ok := sources.opened[key]; ok {
		return source, nil
	}
	source, err := NewSource(cfg, options...)
	if err != nil {
		return nil, err
	}
	sources.opened[key] = source
	return source, nil
}

// TownNames returns names from 'towns' table of SQLite town source if there is one
func (sources *Sources) TownNames(ctx context.Context) (TownNameMap, bool, error) {
	sqliteSource, ok := sources.Features[FEATURE_TOWN].(*SQLiteSource)
	if !ok {
		return nil, false, nil
	}
	names, err := sqliteSource.LoadTownNames(ctx)
	return names, true, err
}

// Close closes every opened source
func (sources *Sources) Close() error {
	var firstErr error
	for _, source := range sources.opened {
		if err := closeSource(source); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
