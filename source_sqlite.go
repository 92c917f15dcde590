package conflate

import (
	"context"
	"database/sql"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteSchema is the layout SQLiteSource expects. Geometries are stored as WKT
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS routes (
	route_id TEXT PRIMARY KEY,
	geom     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tmc (
	tmc       TEXT PRIMARY KEY,
	tmctype   TEXT,
	roadnum   TEXT,
	firstnm   TEXT,
	direction TEXT,
	geom      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tmc_roadnum_direction ON tmc (roadnum, direction);
CREATE TABLE IF NOT EXISTS towns (
	town_id INTEGER NOT NULL,
	town    TEXT NOT NULL,
	geom    TEXT
);
CREATE TABLE IF NOT EXISTS speed_limit (
	route_id     TEXT NOT NULL,
	from_measure REAL NOT NULL,
	to_measure   REAL NOT NULL,
	speed_lim    INTEGER NOT NULL,
	op_dir_sl    INTEGER,
	to_date      TEXT
);
CREATE INDEX IF NOT EXISTS speed_limit_route ON speed_limit (route_id);
CREATE TABLE IF NOT EXISTS num_lanes (
	route_id     TEXT NOT NULL,
	from_measure REAL NOT NULL,
	to_measure   REAL NOT NULL,
	num_lanes    INTEGER NOT NULL,
	to_date      TEXT
);
CREATE INDEX IF NOT EXISTS num_lanes_route ON num_lanes (route_id);
`

// SQLiteSource selects routes and features from SQLite database laid out as SQLiteSchema
type SQLiteSource struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteSource opens database at given path
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open SQLite database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Can't ping SQLite database")
	}
	return &SQLiteSource{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// CreateSchema creates missing tables and indices
func (src *SQLiteSource) CreateSchema(ctx context.Context) error {
	_, err := src.db.ExecContext(ctx, SQLiteSchema)
	if err != nil {
		return errors.Wrap(err, "Can't create schema")
	}
	return nil
}

// DB gives access to the underlying database (e.g. to import data)
func (src *SQLiteSource) DB() *sql.DB {
	return src.db
}

func (src *SQLiteSource) Close() error {
	return src.db.Close()
}

func (src *SQLiteSource) LoadRoute(ctx context.Context, routeID string) (*Route, error) {
	var geomWKT string
	err := src.db.QueryRowContext(ctx, `SELECT geom FROM routes WHERE route_id = ?`, routeID).Scan(&geomWKT)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrRouteNotFound, "route '%s' in '%s'", routeID, src.dbPath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't query route")
	}
	geom, err := wkt.Unmarshal(geomWKT)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse geometry of route '%s'", routeID)
	}
	line, ok := routeLine(geom)
	if !ok {
		return nil, errors.Errorf("Route '%s' geometry should be linear, got '%s'", routeID, geom.GeoJSONType())
	}
	return NewRoute(routeID, line)
}

// featureQuery returns SQL statement and its arguments for given query
func featureQuery(query Query) (string, []interface{}, error) {
	switch query.Kind {
	case FEATURE_TMC:
		stmt := `SELECT tmc, tmctype, roadnum, firstnm, direction, geom FROM tmc`
		if len(query.SegmentIDs) > 0 {
			placeholders := make([]string, len(query.SegmentIDs))
			args := make([]interface{}, len(query.SegmentIDs))
			for i, id := range query.SegmentIDs {
				placeholders[i] = "?"
				args[i] = id
			}
			return stmt + ` WHERE tmc IN (` + strings.Join(placeholders, ",") + `) ORDER BY tmc`, args, nil
		}
		return stmt + ` WHERE roadnum = ? AND direction = ? ORDER BY tmc`, []interface{}{query.RoadNum, query.Direction}, nil
	case FEATURE_TOWN:
		return `SELECT town_id, town, geom FROM towns ORDER BY town_id`, nil, nil
	case FEATURE_SPEED_LIMIT:
		return `SELECT rowid, route_id, from_measure, to_measure, speed_lim, op_dir_sl, to_date FROM speed_limit WHERE route_id = ? ORDER BY from_measure, rowid`, []interface{}{query.RouteID}, nil
	case FEATURE_LANES:
		return `SELECT rowid, route_id, from_measure, to_measure, num_lanes, to_date FROM num_lanes WHERE route_id = ? ORDER BY from_measure, rowid`, []interface{}{query.RouteID}, nil
	default:
		return "", nil, errors.Errorf("Unhandled feature kind %d", query.Kind)
	}
}

func (src *SQLiteSource) LoadFeatures(ctx context.Context, query Query) ([]*Feature, error) {
	stmt, args, err := featureQuery(query)
	if err != nil {
		return nil, err
	}
	rows, err := src.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query %s features", query.Kind)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "Can't get columns")
	}
	features := []*Feature{}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrapf(err, "Can't scan %s row", query.Kind)
		}
		props := make(map[string]string, len(columns))
		for i, column := range columns {
			if values[i].Valid {
				props[column] = values[i].String
			}
		}
		var geom orb.Geometry
		if geomWKT := props["geom"]; geomWKT != "" {
			geom, err = wkt.Unmarshal(geomWKT)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't parse %s geometry", query.Kind)
			}
		}
		feature, err := buildFeature(query.Kind, props["rowid"], geom, props)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad %s row", query.Kind)
		}
		features = append(features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "Can't iterate %s rows", query.Kind)
	}
	return features, nil
}

// LoadTownNames reads town names from 'towns' table
func (src *SQLiteSource) LoadTownNames(ctx context.Context) (TownNameMap, error) {
	rows, err := src.db.QueryContext(ctx, `SELECT DISTINCT town_id, town FROM towns`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query town names")
	}
	defer rows.Close()
	names := make(TownNameMap)
	for rows.Next() {
		var townID int
		var name string
		if err := rows.Scan(&townID, &name); err != nil {
			return nil, errors.Wrap(err, "Can't scan town name")
		}
		names[townID] = name
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate town names")
	}
	return names, nil
}
