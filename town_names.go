package conflate

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TownNames maps town identifiers onto town names
type TownNames interface {
	TownName(townID int) (string, bool)
}

// TownNameMap is in-memory TownNames
type TownNameMap map[int]string

func (names TownNameMap) TownName(townID int) (string, bool) {
	name, ok := names[townID]
	return name, ok
}

// LoadTownNamesCSV reads 'town_id,town' pairs. The first row is a header
func LoadTownNamesCSV(fname string) (TownNameMap, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return ReadTownNamesCSV(file)
}

// ReadTownNamesCSV reads 'town_id,town' pairs from reader. The first row is a header
func ReadTownNamesCSV(r io.Reader) (TownNameMap, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read header")
	}
	idIdx, nameIdx := -1, -1
	for i, column := range header {
		switch strings.ToLower(strings.TrimSpace(column)) {
		case "town_id":
			idIdx = i
		case "town":
			nameIdx = i
		}
	}
	if idIdx < 0 || nameIdx < 0 {
		return nil, errors.Errorf("Header should contain 'town_id' and 'town' columns, got %v", header)
	}
	names := make(TownNameMap)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't read row")
		}
		townID, err := strconv.Atoi(strings.TrimSpace(row[idIdx]))
		if err != nil {
			return nil, errors.Wrapf(err, "Bad town_id '%s'", row[idIdx])
		}
		names[townID] = strings.TrimSpace(row[nameIdx])
	}
	return names, nil
}
