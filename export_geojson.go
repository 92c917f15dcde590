package conflate

import (
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// lineCoordinates converts line into GeoJSON coordinates
func lineCoordinates(pts orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(pts))
	for i := range pts {
		pts2d[i] = []float64{pts[i][0], pts[i][1]}
	}
	return pts2d
}

// AggregatesToGeoJSON returns FeatureCollection with one LineString per aggregate record.
// Geometry is the part of the route between record measures
func AggregatesToGeoJSON(route *Route, records []AggregateRecord) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	for _, record := range records {
		feature := geojson.NewLineStringFeature(lineCoordinates(route.Substring(record.FromMeasure, record.ToMeasure)))
		feature.SetProperty("tmc", record.TMC)
		feature.SetProperty("tmctype", record.TMCType)
		feature.SetProperty("route_id", record.RouteID)
		feature.SetProperty("roadnum", record.RoadNum)
		feature.SetProperty("direction", record.Direction)
		feature.SetProperty("firstnm", record.FirstName)
		feature.SetProperty("from_meas", record.FromMeasure)
		feature.SetProperty("to_meas", record.ToMeasure)
		feature.SetProperty("length", record.Length)
		feature.SetProperty("speed_limit", record.SpeedLimit)
		feature.SetProperty("num_lanes", record.NumLanes)
		feature.SetProperty("towns", record.Towns)
		collection.AddFeature(feature)
	}
	return collection
}

// ExportAggregatesToGeoJSON writes aggregate records with route geometry into file
func ExportAggregatesToGeoJSON(fname string, route *Route, records []AggregateRecord) error {
	data, err := AggregatesToGeoJSON(route, records).MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal GeoJSON")
	}
	err = os.WriteFile(fname, data, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't write file")
	}
	return nil
}

// ExportResult writes every configured output file of the route run
func ExportResult(cfg RunConfig, result *RouteResult) error {
	finalName, intermediateName, geojsonName := OutputFiles(cfg.OutputDir, result.Descriptor)
	if cfg.WriteIntermediate {
		if err := ExportRecordsToCSV(intermediateName, result.Records); err != nil {
			return errors.Wrap(err, "Can't export unified records")
		}
	}
	if err := ExportAggregatesToCSV(finalName, result.Aggregates); err != nil {
		return errors.Wrap(err, "Can't export segments")
	}
	if cfg.WriteGeoJSON {
		if err := ExportAggregatesToGeoJSON(geojsonName, result.Route, result.Aggregates); err != nil {
			return errors.Wrap(err, "Can't export segments geometry")
		}
	}
	return nil
}
