package conflate

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedRouteSystem = errors.New("unsupported route system")
	ErrUnsupportedDirection   = errors.New("unsupported route direction")
)

// RouteSystem is the numbering system a route identifier belongs to
type RouteSystem uint16

const (
	ROUTE_SYSTEM_INTERSTATE = RouteSystem(iota + 1)
	ROUTE_SYSTEM_US
	ROUTE_SYSTEM_STATE
)

func (iotaIdx RouteSystem) String() string {
	return [...]string{"interstate", "us", "state"}[iotaIdx-1]
}

// roadNumPrefix is the prefix the TMC dataset uses for the road number of each system.
// TMC data marks state routes with 'RT' rather than 'SR'.
func (iotaIdx RouteSystem) roadNumPrefix() string {
	return [...]string{"I-", "US-", "RT-"}[iotaIdx-1]
}

// Longest prefixes first
var routeSystemPrefixes = []struct {
	prefix string
	system RouteSystem
}{
	{"US", ROUTE_SYSTEM_US},
	{"SR", ROUTE_SYSTEM_STATE},
	{"I", ROUTE_SYSTEM_INTERSTATE},
}

// DirectionType is the travel direction encoded in a route identifier
type DirectionType uint16

const (
	DIRECTION_NORTHBOUND = DirectionType(iota + 1)
	DIRECTION_SOUTHBOUND
	DIRECTION_EASTBOUND
	DIRECTION_WESTBOUND
)

func (iotaIdx DirectionType) String() string {
	return [...]string{"Northbound", "Southbound", "Eastbound", "Westbound"}[iotaIdx-1]
}

var directionByCode = map[string]DirectionType{
	"NB": DIRECTION_NORTHBOUND,
	"SB": DIRECTION_SOUTHBOUND,
	"EB": DIRECTION_EASTBOUND,
	"WB": DIRECTION_WESTBOUND,
}

// directionOverrides covers roads whose TMC direction disagrees with the route inventory.
// I-291 is an EB/WB route in the inventory but NB/SB in TMC data.
var directionOverrides = map[string]map[DirectionType]DirectionType{
	"I-291": {
		DIRECTION_EASTBOUND: DIRECTION_NORTHBOUND,
		DIRECTION_WESTBOUND: DIRECTION_SOUTHBOUND,
	},
}

// RouteDescriptor is a parsed route identifier such as 'I95 NB'
type RouteDescriptor struct {
	RouteID   string
	System    RouteSystem
	Number    string
	Direction DirectionType
	// RoadNum is the TMC dataset road number, e.g. 'I-95'
	RoadNum string
	// TMCDirection is the direction name TMC data uses for this route
	TMCDirection DirectionType
}

// ParseRouteID maps a route inventory identifier onto TMC road number and direction.
func ParseRouteID(routeID string) (RouteDescriptor, error) {
	pieces := strings.Fields(routeID)
	if len(pieces) != 2 {
		return RouteDescriptor{}, errors.Wrapf(ErrUnsupportedRouteSystem, "route '%s' should look like '<system><number> <direction>'", routeID)
	}
	desc := RouteDescriptor{
		RouteID: strings.Join(pieces, " "),
	}
	for _, candidate := range routeSystemPrefixes {
		if strings.HasPrefix(pieces[0], candidate.prefix) {
			desc.System = candidate.system
			desc.Number = pieces[0][len(candidate.prefix):]
			break
		}
	}
	if desc.System == 0 || desc.Number == "" {
		return RouteDescriptor{}, errors.Wrapf(ErrUnsupportedRouteSystem, "route '%s'", routeID)
	}
	direction, ok := directionByCode[strings.ToUpper(pieces[1])]
	if !ok {
		return RouteDescriptor{}, errors.Wrapf(ErrUnsupportedDirection, "route '%s', direction '%s'", routeID, pieces[1])
	}
	desc.Direction = direction
	desc.RoadNum = desc.System.roadNumPrefix() + desc.Number
	desc.TMCDirection = direction
	if override, ok := directionOverrides[desc.RoadNum]; ok {
		if replaced, ok := override[direction]; ok {
			desc.TMCDirection = replaced
		}
	}
	return desc, nil
}

// NormalizedID returns the identifier used in output file names, e.g. 'i95_nb'
func (desc RouteDescriptor) NormalizedID() string {
	return strings.ToLower(strings.ReplaceAll(desc.RouteID, " ", "_"))
}
