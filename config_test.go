package conflate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
output_dir: ./out
write_intermediate: true
town_names: ./towns.csv
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: geojson, path: ./tmc.geojson, distance_tolerance: 25}
  town:        {driver: shapefile, path: ./towns.shp}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite, measure_tolerance: 0.001}
  lanes:       {driver: osm, path: ./ma.osm.pbf, distance_tolerance: 15, state_prefix: MA, crs: "EPSG:3857"}
`

func TestParseRunConfig(t *testing.T) {
	cfg, err := ParseRunConfig([]byte(testConfig))
	require.NoError(t, err)
	assert.Equal(t, "./out", cfg.OutputDir)
	assert.True(t, cfg.WriteIntermediate)
	assert.False(t, cfg.WriteGeoJSON)
	assert.False(t, cfg.IncludeRetired)
	assert.Equal(t, "sqlite", cfg.RouteSource.Driver)
	assert.Equal(t, "MA", cfg.Sources["lanes"].StatePrefix)
	assert.Equal(t, CRS_WEB_MERCATOR, cfg.Sources["lanes"].CRS)

	tolerances := cfg.Tolerances()
	assert.Equal(t, Tolerance{Distance: 25}, tolerances[FEATURE_TMC])
	assert.Equal(t, Tolerance{}, tolerances[FEATURE_TOWN])
	assert.Equal(t, Tolerance{Measure: 0.001}, tolerances[FEATURE_SPEED_LIMIT])
	assert.Equal(t, Tolerance{Distance: 15, Measure: 0.0002}, tolerances[FEATURE_LANES])
}

func TestRunConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		config string
	}{
		{"missing output dir", `
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"unknown driver", `
output_dir: ./out
route_source: {driver: postgres, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"missing kind", `
output_dir: ./out
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"unknown kind", `
output_dir: ./out
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
  aadt:        {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"negative tolerance", `
output_dir: ./out
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite, distance_tolerance: -1}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"osm towns", `
output_dir: ./out
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: osm, path: ./ma.osm.pbf}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"osm routes", `
output_dir: ./out
route_source: {driver: osm, path: ./ma.osm.pbf}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: sqlite, path: ./lrsn.sqlite}
`},
		{"unknown crs", `
output_dir: ./out
route_source: {driver: sqlite, path: ./lrsn.sqlite}
sources:
  tmc:         {driver: sqlite, path: ./lrsn.sqlite}
  town:        {driver: sqlite, path: ./lrsn.sqlite}
  speed_limit: {driver: sqlite, path: ./lrsn.sqlite}
  lanes:       {driver: osm, path: ./ma.osm.pbf, crs: "EPSG:26986"}
`},
		{"not yaml", `output_dir: [`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseRunConfig([]byte(c.config))
			assert.Error(t, err)
		})
	}
}

func TestLoadRunConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "conflate.yaml")
	require.NoError(t, os.WriteFile(fname, []byte(testConfig), 0644))
	cfg, err := LoadRunConfig(fname)
	require.NoError(t, err)
	assert.Len(t, cfg.Sources, 4)

	_, err = LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenSources(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lrsn.sqlite")
	cfg := RunConfig{
		OutputDir:   dir,
		RouteSource: SourceConfig{Driver: "sqlite", Path: dbPath},
		Sources: map[string]SourceConfig{
			"tmc":         {Driver: "sqlite", Path: dbPath},
			"town":        {Driver: "geojson", Path: filepath.Join(dir, "towns.geojson")},
			"speed_limit": {Driver: "shapefile", Path: filepath.Join(dir, "speed.shp")},
			"lanes":       {Driver: "osm", Path: filepath.Join(dir, "ma.osm.pbf")},
		},
	}
	require.NoError(t, cfg.Validate())
	sources, err := OpenSources(cfg)
	require.NoError(t, err)
	defer sources.Close()

	assert.IsType(t, &SQLiteSource{}, sources.Route)
	assert.Same(t, sources.Route, sources.Features[FEATURE_TMC], "same file is opened once")
	assert.IsType(t, &GeoJSONSource{}, sources.Features[FEATURE_TOWN])
	assert.IsType(t, &ShapefileSource{}, sources.Features[FEATURE_SPEED_LIMIT])
	assert.IsType(t, &OSMSource{}, sources.Features[FEATURE_LANES])

	_, found, err := sources.TownNames(context.Background())
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestNewSourceUnknownDriver(t *testing.T) {
	_, err := NewSource(SourceConfig{Driver: "postgres", Path: "db"})
	assert.Equal(t, ErrUnknownSourceDriver, errors.Cause(err))
}
