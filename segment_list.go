package conflate

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadSegmentList reads explicit list of segment (TMC) identifiers, one per line.
// Quotes and trailing commas are tolerated, so a list prepared for an SQL 'IN (...)' clause works too.
func LoadSegmentList(fname string) ([]string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return ReadSegmentList(file)
}

// ReadSegmentList reads segment identifiers from reader, skipping blank lines and duplicates
func ReadSegmentList(r io.Reader) ([]string, error) {
	result := []string{}
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		for _, piece := range strings.Split(scanner.Text(), ",") {
			id := strings.Trim(strings.TrimSpace(piece), `'"`)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't scan segment list")
	}
	return result, nil
}

// LoadRouteList reads route identifiers, one per line. Blank lines are skipped
func LoadRouteList(fname string) ([]string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	result := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		routeID := strings.TrimSpace(scanner.Text())
		if routeID == "" {
			continue
		}
		result = append(result, routeID)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't scan route list")
	}
	return result, nil
}

// DefaultRouteList is the set of expressway routes processed when no route list is given
var DefaultRouteList = []string{
	"I90 EB", "I90 WB", "I93 NB", "I93 SB", "I95 NB", "I95 SB", "I290 EB", "I290 WB", "I495 NB", "I495 SB",
	"US1 NB", "US1 SB", "US3 NB", "US3 SB", "US44 EB", "US44 WB", "SR2 EB", "SR2 WB", "SR3 NB", "SR3 SB",
	"SR24 NB", "SR24 SB", "SR140 NB", "SR140 SB", "SR146 NB", "SR146 SB", "SR213 EB", "SR213 WB",
}
