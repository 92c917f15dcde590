package conflate

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// DBF limits field names to 10 characters
var shapefileFieldAliases = map[string]string{
	"from_meas":  fieldFromMeasure,
	"to_meas":    fieldToMeasure,
	"speed_limi": fieldSpeedLimit,
}

// ShapefileSource reads routes or features from ESRI Shapefile
type ShapefileSource struct {
	fname string
}

func NewShapefileSource(fname string) *ShapefileSource {
	return &ShapefileSource{
		fname: fname,
	}
}

type shapefileRecord struct {
	idx   int
	geom  orb.Geometry
	props map[string]string
}

// scan walks through every record of shapefile
func (src *ShapefileSource) scan(ctx context.Context, fn func(rec shapefileRecord) (bool, error)) error {
	reader, err := shp.Open(src.fname)
	if err != nil {
		return errors.Wrapf(err, "Can't open shapefile '%s'", src.fname)
	}
	defer reader.Close()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field.String()))
		if alias, ok := shapefileFieldAliases[name]; ok {
			name = alias
		}
		names[i] = name
	}
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, shape := reader.Shape()
		props := make(map[string]string, len(names))
		for i, name := range names {
			props[name] = strings.TrimSpace(reader.ReadAttribute(idx, i))
		}
		geom, err := orbShape(shape)
		if err != nil {
			return errors.Wrapf(err, "Record %d", idx)
		}
		stop, err := fn(shapefileRecord{idx: idx, geom: geom, props: props})
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	if err := reader.Err(); err != nil {
		return errors.Wrapf(err, "Can't read shapefile '%s'", src.fname)
	}
	return nil
}

func (src *ShapefileSource) LoadRoute(ctx context.Context, routeID string) (*Route, error) {
	var route *Route
	err := src.scan(ctx, func(rec shapefileRecord) (bool, error) {
		if rec.props[fieldRouteID] != routeID {
			return false, nil
		}
		line, ok := routeLine(rec.geom)
		if !ok {
			return true, errors.Errorf("Route '%s' geometry should be linear", routeID)
		}
		var err error
		route, err = NewRoute(routeID, line)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, errors.Wrapf(ErrRouteNotFound, "route '%s' in '%s'", routeID, src.fname)
	}
	return route, nil
}

func (src *ShapefileSource) LoadFeatures(ctx context.Context, query Query) ([]*Feature, error) {
	features := []*Feature{}
	err := src.scan(ctx, func(rec shapefileRecord) (bool, error) {
		if !query.matches(rec.props) {
			return false, nil
		}
		feature, err := buildFeature(query.Kind, strconv.Itoa(rec.idx), rec.geom, rec.props)
		if err != nil {
			return true, errors.Wrapf(err, "Record %d", rec.idx)
		}
		features = append(features, feature)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}

// orbShape converts shape into orb geometry. Measures and Z values are dropped
func orbShape(shape shp.Shape) (orb.Geometry, error) {
	switch s := shape.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PolyLine:
		return orbMultiLine(shapeParts(s.Parts, s.Points)), nil
	case *shp.PolyLineM:
		return orbMultiLine(shapeParts(s.Parts, s.Points)), nil
	case *shp.PolyLineZ:
		return orbMultiLine(shapeParts(s.Parts, s.Points)), nil
	case *shp.Polygon:
		return orbRings(shapeParts(s.Parts, s.Points)), nil
	case *shp.PolygonM:
		return orbRings(shapeParts(s.Parts, s.Points)), nil
	case *shp.PolygonZ:
		return orbRings(shapeParts(s.Parts, s.Points)), nil
	default:
		return nil, errors.Errorf("Unsupported shape type %T", shape)
	}
}

// shapeParts splits flat point list by part offsets
func shapeParts(parts []int32, points []shp.Point) [][]orb.Point {
	result := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		part := make([]orb.Point, 0, end-start)
		for _, pt := range points[start:end] {
			part = append(part, orb.Point{pt.X, pt.Y})
		}
		result = append(result, part)
	}
	return result
}

func orbMultiLine(parts [][]orb.Point) orb.Geometry {
	if len(parts) == 1 {
		return orb.LineString(parts[0])
	}
	mls := make(orb.MultiLineString, 0, len(parts))
	for _, part := range parts {
		mls = append(mls, orb.LineString(part))
	}
	return mls
}

// orbRings groups rings into polygons: clockwise rings are outer boundaries, counter-clockwise ones are holes
func orbRings(parts [][]orb.Point) orb.MultiPolygon {
	mp := orb.MultiPolygon{}
	for _, part := range parts {
		ring := orb.Ring(part)
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
