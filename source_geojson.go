package conflate

import (
	"context"
	"fmt"
	"os"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GeoJSONSource reads routes or features from a GeoJSON FeatureCollection file.
// Properties follow the same names as columns of other sources ('route_id', 'tmc', 'town_id', ...)
type GeoJSONSource struct {
	fname      string
	collection *geojson.FeatureCollection
}

func NewGeoJSONSource(fname string) *GeoJSONSource {
	return &GeoJSONSource{
		fname: fname,
	}
}

// load parses file once; batch runs reuse parsed collection
func (src *GeoJSONSource) load() (*geojson.FeatureCollection, error) {
	if src.collection != nil {
		return src.collection, nil
	}
	data, err := os.ReadFile(src.fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read file")
	}
	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse GeoJSON '%s'", src.fname)
	}
	src.collection = collection
	return collection, nil
}

func (src *GeoJSONSource) LoadRoute(ctx context.Context, routeID string) (*Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	collection, err := src.load()
	if err != nil {
		return nil, err
	}
	for _, feature := range collection.Features {
		props := geojsonProperties(feature)
		if props[fieldRouteID] != routeID || feature.Geometry == nil {
			continue
		}
		geom, err := orbGeometry(feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "Route '%s'", routeID)
		}
		line, ok := routeLine(geom)
		if !ok {
			return nil, errors.Errorf("Route '%s' geometry should be linear, got '%s'", routeID, feature.Geometry.Type)
		}
		return NewRoute(routeID, line)
	}
	return nil, errors.Wrapf(ErrRouteNotFound, "route '%s' in '%s'", routeID, src.fname)
}

func (src *GeoJSONSource) LoadFeatures(ctx context.Context, query Query) ([]*Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	collection, err := src.load()
	if err != nil {
		return nil, err
	}
	features := make([]*Feature, 0, len(collection.Features))
	for i, gjFeature := range collection.Features {
		props := geojsonProperties(gjFeature)
		if !query.matches(props) {
			continue
		}
		var geom orb.Geometry
		if gjFeature.Geometry != nil {
			geom, err = orbGeometry(gjFeature.Geometry)
			if err != nil {
				return nil, errors.Wrapf(err, "Feature #%d", i)
			}
		}
		id := ""
		if gjFeature.ID != nil {
			id = fmt.Sprintf("%v", gjFeature.ID)
		}
		feature, err := buildFeature(query.Kind, id, geom, props)
		if err != nil {
			return nil, errors.Wrapf(err, "Feature #%d", i)
		}
		features = append(features, feature)
	}
	return features, nil
}

// geojsonProperties returns properties as text
func geojsonProperties(feature *geojson.Feature) map[string]string {
	props := make(map[string]string, len(feature.Properties))
	for key, value := range feature.Properties {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			props[key] = v
		case float64:
			props[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			props[key] = fmt.Sprintf("%v", v)
		}
	}
	return props
}

func orbPoint(pt []float64) (orb.Point, error) {
	if len(pt) < 2 {
		return orb.Point{}, errors.Errorf("Position should have at least 2 coordinates, got %d", len(pt))
	}
	return orb.Point{pt[0], pt[1]}, nil
}

func orbLine(pts [][]float64) (orb.LineString, error) {
	line := make(orb.LineString, len(pts))
	for i := range pts {
		pt, err := orbPoint(pts[i])
		if err != nil {
			return nil, err
		}
		line[i] = pt
	}
	return line, nil
}

func orbPolygon(rings [][][]float64) (orb.Polygon, error) {
	polygon := make(orb.Polygon, len(rings))
	for i := range rings {
		line, err := orbLine(rings[i])
		if err != nil {
			return nil, err
		}
		polygon[i] = orb.Ring(line)
	}
	return polygon, nil
}

// orbGeometry converts GeoJSON geometry into orb one
func orbGeometry(geom *geojson.Geometry) (orb.Geometry, error) {
	switch geom.Type {
	case geojson.GeometryPoint:
		return orbPoint(geom.Point)
	case geojson.GeometryLineString:
		return orbLine(geom.LineString)
	case geojson.GeometryMultiLineString:
		mls := make(orb.MultiLineString, len(geom.MultiLineString))
		for i := range geom.MultiLineString {
			line, err := orbLine(geom.MultiLineString[i])
			if err != nil {
				return nil, err
			}
			mls[i] = line
		}
		return mls, nil
	case geojson.GeometryPolygon:
		return orbPolygon(geom.Polygon)
	case geojson.GeometryMultiPolygon:
		mp := make(orb.MultiPolygon, len(geom.MultiPolygon))
		for i := range geom.MultiPolygon {
			polygon, err := orbPolygon(geom.MultiPolygon[i])
			if err != nil {
				return nil, err
			}
			mp[i] = polygon
		}
		return mp, nil
	default:
		return nil, errors.Errorf("Geometry type '%s' is not handled", geom.Type)
	}
}
