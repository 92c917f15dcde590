package conflate

// FeatureKind is the type of the dataset a feature (and its events) came from
type FeatureKind uint16

const (
	FEATURE_TMC = FeatureKind(iota + 1)
	FEATURE_TOWN
	FEATURE_SPEED_LIMIT
	FEATURE_LANES
)

func (iotaIdx FeatureKind) String() string {
	return [...]string{"tmc", "town", "speed_limit", "lanes"}[iotaIdx-1]
}

// featureKindsOrdered is the order in which event tables are folded by the overlay
var featureKindsOrdered = []FeatureKind{FEATURE_TMC, FEATURE_TOWN, FEATURE_SPEED_LIMIT, FEATURE_LANES}

var featureKindByName = map[string]FeatureKind{
	"tmc":         FEATURE_TMC,
	"town":        FEATURE_TOWN,
	"speed_limit": FEATURE_SPEED_LIMIT,
	"lanes":       FEATURE_LANES,
}

func getFeatureKind(str string) FeatureKind {
	if found, ok := featureKindByName[str]; ok {
		return found
	}
	return 0
}
