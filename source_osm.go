package conflate

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const kmhInMph = 1.609344

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// osmWay is a mainline way carrying a route reference
type osmWay struct {
	ID            osm.WayID
	refs          []string
	highway       HighwayType
	Oneway        bool
	IsReversed    bool
	Nodes         []osm.NodeID
	geom          orb.LineString
	maxSpeed      float64
	lanes         int
	lanesForward  int
	lanesBackward int
}

// OSMSource extracts speed limits and lane counts from OSM ways whose 'ref' tag matches road number.
// Coordinates are kept as lon/lat unless crs is CRS_WEB_MERCATOR, so routes must use the same coordinate system
type OSMSource struct {
	fname string
	// statePrefix replaces 'RT-' in OSM refs, e.g. 'MA' for 'MA 2'
	statePrefix string
	crs         string
	logger      *zap.SugaredLogger
	ways        []*osmWay
}

func NewOSMSource(fname, statePrefix, crs string, logger *zap.SugaredLogger) *OSMSource {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if statePrefix == "" {
		statePrefix = "MA"
	}
	return &OSMSource{
		fname:       fname,
		statePrefix: statePrefix,
		crs:         crs,
		logger:      logger,
	}
}

func newOSMScanner(ctx context.Context, filename string, file io.Reader) (OSMScanner, error) {
	// Guess file extension and prepare correct scanner
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(ctx, file), nil
	case ".pbf":
		scanner := osmpbf.New(ctx, file, 4)
		scanner.SkipRelations = true
		return scanner, nil
	default:
		return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
	}
}

// load reads file twice: ways first, then coordinates of nodes referenced by those ways
func (src *OSMSource) load(ctx context.Context) ([]*osmWay, error) {
	if src.ways != nil {
		return src.ways, nil
	}
	src.logger.Infow("Opening OSM file", "file", src.fname)
	file, err := os.Open(src.fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()

	st := time.Now()
	ways := []*osmWay{}
	nodesSeen := make(map[osm.NodeID]orb.Point)
	{
		scannerWays, err := newOSMScanner(ctx, src.fname, file)
		if err != nil {
			return nil, err
		}
		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != osm.TypeWay {
				continue
			}
			way := obj.(*osm.Way)
			prepared := src.prepareWay(way)
			if prepared == nil {
				continue
			}
			for _, nodeID := range prepared.Nodes {
				nodesSeen[nodeID] = orb.Point{math.NaN(), math.NaN()}
			}
			ways = append(ways, prepared)
		}
		err = scannerWays.Err()
		scannerWays.Close()
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan ways")
		}
	}
	src.logger.Infow("Processing ways... Done", "ways", len(ways), "elapsed", time.Since(st))

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	st = time.Now()
	{
		scannerNodes, err := newOSMScanner(ctx, src.fname, file)
		if err != nil {
			return nil, err
		}
		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != osm.TypeNode {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := nodesSeen[node.ID]; ok {
				nodesSeen[node.ID] = orb.Point{node.Lon, node.Lat}
			}
		}
		err = scannerNodes.Err()
		scannerNodes.Close()
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan nodes")
		}
	}

	complete := ways[:0]
	for _, way := range ways {
		way.geom = make(orb.LineString, 0, len(way.Nodes))
		missing := false
		for _, nodeID := range way.Nodes {
			pt := nodesSeen[nodeID]
			if math.IsNaN(pt[0]) {
				missing = true
				break
			}
			way.geom = append(way.geom, pt)
		}
		if missing || len(way.geom) < 2 {
			src.logger.Warnw("Way has nodes outside of the extract. Skip it", "way_id", way.ID)
			continue
		}
		if way.IsReversed {
			way.geom = reverseLine(way.geom)
		}
		if src.crs == CRS_WEB_MERCATOR {
			way.geom = lineToEuclidean(way.geom)
		}
		complete = append(complete, way)
	}
	src.logger.Infow("Processing nodes... Done", "nodes", len(nodesSeen), "elapsed", time.Since(st))
	src.ways = complete
	return complete, nil
}

// prepareWay returns nil for ways which can't carry expressway attributes
func (src *OSMSource) prepareWay(way *osm.Way) *osmWay {
	highway := getHighwayType(way.Tags.Find("highway"))
	if _, ok := expresswayHighways[highway]; !ok {
		return nil
	}
	refText := way.Tags.Find("ref")
	if refText == "" {
		return nil
	}
	prepared := &osmWay{
		ID:            way.ID,
		highway:       highway,
		Nodes:         make([]osm.NodeID, 0, len(way.Nodes)),
		maxSpeed:      -1.0,
		lanes:         -1,
		lanesForward:  -1,
		lanesBackward: -1,
	}
	for _, ref := range strings.Split(refText, ";") {
		if ref = strings.TrimSpace(ref); ref != "" {
			prepared.refs = append(prepared.refs, ref)
		}
	}
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	onewayText := way.Tags.Find("oneway")
	switch onewayText {
	case "yes", "1", "true":
		prepared.Oneway = true
	case "-1":
		prepared.Oneway = true
		prepared.IsReversed = true
	case "", "no", "0", "false":
		// Motorways are oneway by default
		prepared.Oneway = highway == HIGHWAY_MOTORWAY && onewayText == ""
	default:
		if _, found := onewayReversible[onewayText]; !found {
			src.logger.Warnw("Unhandled `oneway` tag value", "value", onewayText, "way_id", way.ID)
		}
	}
	prepared.processTags(way.Tags, src.logger)
	return prepared
}

var (
	maxSpeedRegExp = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(mph|km/h|kmh|kph)?\s*$`)
)

func (way *osmWay) processTags(tags osm.Tags, logger *zap.SugaredLogger) {
	var err error
	intTag := func(key string) int {
		text := tags.Find(key)
		if text == "" {
			return -1
		}
		value, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			logger.Warnw("Provided tag value should be an integer", "tag", key, "value", text, "way_id", way.ID)
			return -1
		}
		return value
	}
	way.lanes = intTag("lanes")
	way.lanesForward = intTag("lanes:forward")
	way.lanesBackward = intTag("lanes:backward")

	maxSpeed := tags.Find("maxspeed")
	if maxSpeed == "" {
		return
	}
	match := maxSpeedRegExp.FindStringSubmatch(maxSpeed)
	if match == nil {
		// 'none', 'signals', 'US:urban', etc.
		return
	}
	way.maxSpeed, err = strconv.ParseFloat(match[1], 64)
	if err != nil {
		way.maxSpeed = -1
		logger.Warnw("Provided `maxspeed` tag value should be numeric", "value", maxSpeed, "way_id", way.ID)
		return
	}
	// OSM default unit is km/h
	if match[2] != "mph" {
		way.maxSpeed /= kmhInMph
	}
}

// directionLanes returns number of lanes in direction of way geometry
func (way *osmWay) directionLanes() int {
	if way.Oneway {
		if way.lanes > 0 {
			return way.lanes
		}
		return way.lanesForward
	}
	if way.lanesForward > 0 && way.lanesForward == way.lanesBackward {
		return way.lanesForward
	}
	if way.lanes > 0 {
		return int(math.Ceil(float64(way.lanes) / 2.0))
	}
	return -1
}

func (way *osmWay) hasRef(ref string) bool {
	for _, r := range way.refs {
		if strings.EqualFold(r, ref) {
			return true
		}
	}
	return false
}

// osmRef converts road number into OSM 'ref' notation: 'I-95' -> 'I 95', 'RT-2' -> 'MA 2'
func osmRef(roadNum, statePrefix string) string {
	prefix, number, found := strings.Cut(roadNum, "-")
	if !found {
		return roadNum
	}
	if prefix == "RT" {
		prefix = statePrefix
	}
	return prefix + " " + number
}

func (src *OSMSource) LoadFeatures(ctx context.Context, query Query) ([]*Feature, error) {
	if query.Kind != FEATURE_SPEED_LIMIT && query.Kind != FEATURE_LANES {
		return nil, errors.Errorf("OSM source can't provide %s features", query.Kind)
	}
	if query.RoadNum == "" {
		return nil, errors.New("OSM source needs road number to select ways")
	}
	ways, err := src.load(ctx)
	if err != nil {
		return nil, err
	}
	ref := osmRef(query.RoadNum, src.statePrefix)
	features := []*Feature{}
	for _, way := range ways {
		if !way.hasRef(ref) {
			continue
		}
		feature := &Feature{
			Kind: query.Kind,
			ID:   fmt.Sprintf("way/%d", way.ID),
			Geom: way.geom,
		}
		switch query.Kind {
		case FEATURE_SPEED_LIMIT:
			if way.maxSpeed <= 0 {
				continue
			}
			feature.Attributes.SpeedLimit = &SpeedLimitAttributes{
				Limit:  int(math.Round(way.maxSpeed)),
				Active: true,
			}
		case FEATURE_LANES:
			lanes := way.directionLanes()
			if lanes <= 0 {
				continue
			}
			feature.Attributes.Lanes = &LanesAttributes{
				Count:  lanes,
				Active: true,
			}
		}
		features = append(features, feature)
	}
	return features, nil
}
