package conflate

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

var (
	aggregatesHeader = []string{"tmc", "tmctype", "route_id", "roadnum", "direction", "firstnm", "from_meas", "to_meas", "length", "speed_limit", "num_lanes", "towns"}
	recordsHeader    = []string{"route_id", "from_meas", "to_meas", "tmc", "tmctype", "roadnum", "firstnm", "direction", "town", "town_id", "speed_lim", "num_lanes", "calc_len"}
)

// OutputFiles returns names of files produced for the route: final CSV, intermediate CSV and GeoJSON
func OutputFiles(outputDir string, desc RouteDescriptor) (string, string, string) {
	base := filepath.Join(outputDir, desc.NormalizedID()+"_events")
	return base + "_final.csv", base + "_output.csv", base + "_final.geojson"
}

func formatMeasure(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ExportAggregatesToCSV writes aggregate records into file
func ExportAggregatesToCSV(fname string, records []AggregateRecord) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	if err := WriteAggregatesCSV(file, records); err != nil {
		return err
	}
	return file.Close()
}

// WriteAggregatesCSV writes header and one row per aggregate record
func WriteAggregatesCSV(w io.Writer, records []AggregateRecord) error {
	writer := csv.NewWriter(w)
	err := writer.Write(aggregatesHeader)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, record := range records {
		err = writer.Write([]string{
			record.TMC,
			record.TMCType,
			record.RouteID,
			record.RoadNum,
			record.Direction,
			record.FirstName,
			formatMeasure(record.FromMeasure),
			formatMeasure(record.ToMeasure),
			formatMeasure(record.Length),
			strconv.Itoa(record.SpeedLimit),
			strconv.Itoa(record.NumLanes),
			record.Towns,
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write segment '%s'", record.TMC)
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush CSV")
}

// ExportRecordsToCSV writes unified records into file
func ExportRecordsToCSV(fname string, records []Event) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	if err := WriteRecordsCSV(file, records); err != nil {
		return err
	}
	return file.Close()
}

// WriteRecordsCSV writes unified records. Missing attributes are written as empty strings
func WriteRecordsCSV(w io.Writer, records []Event) error {
	writer := csv.NewWriter(w)
	err := writer.Write(recordsHeader)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, record := range records {
		row := make([]string, 0, len(recordsHeader))
		row = append(row, record.RouteID, formatMeasure(record.FromMeasure), formatMeasure(record.ToMeasure))
		if tmc := record.Attributes.TMC; tmc != nil {
			row = append(row, tmc.ID, tmc.Type, tmc.RoadNum, tmc.FirstName, tmc.Direction)
		} else {
			row = append(row, "", "", "", "", "")
		}
		if town := record.Attributes.Town; town != nil {
			row = append(row, town.Name, strconv.Itoa(town.ID))
		} else {
			row = append(row, "", "")
		}
		if sl := record.Attributes.SpeedLimit; sl != nil {
			row = append(row, strconv.Itoa(sl.Limit))
		} else {
			row = append(row, "")
		}
		if lanes := record.Attributes.Lanes; lanes != nil {
			row = append(row, strconv.Itoa(lanes.Count))
		} else {
			row = append(row, "")
		}
		row = append(row, formatMeasure(record.Length()))
		err = writer.Write(row)
		if err != nil {
			return errors.Wrap(err, "Can't write record")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush CSV")
}
