package conflate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteID(t *testing.T) {
	cases := []struct {
		routeID      string
		roadNum      string
		direction    DirectionType
		tmcDirection DirectionType
		normalized   string
	}{
		{"I95 NB", "I-95", DIRECTION_NORTHBOUND, DIRECTION_NORTHBOUND, "i95_nb"},
		{"US1 SB", "US-1", DIRECTION_SOUTHBOUND, DIRECTION_SOUTHBOUND, "us1_sb"},
		{"SR2 EB", "RT-2", DIRECTION_EASTBOUND, DIRECTION_EASTBOUND, "sr2_eb"},
		{"I90  wb", "I-90", DIRECTION_WESTBOUND, DIRECTION_WESTBOUND, "i90_wb"},
		{"I291 EB", "I-291", DIRECTION_EASTBOUND, DIRECTION_NORTHBOUND, "i291_eb"},
		{"I291 WB", "I-291", DIRECTION_WESTBOUND, DIRECTION_SOUTHBOUND, "i291_wb"},
	}
	for _, c := range cases {
		t.Run(c.routeID, func(t *testing.T) {
			desc, err := ParseRouteID(c.routeID)
			require.NoError(t, err)
			assert.Equal(t, c.roadNum, desc.RoadNum)
			assert.Equal(t, c.direction, desc.Direction)
			assert.Equal(t, c.tmcDirection, desc.TMCDirection)
			assert.Equal(t, c.normalized, desc.NormalizedID())
		})
	}
}

func TestParseRouteIDErrors(t *testing.T) {
	cases := []struct {
		routeID string
		cause   error
	}{
		{"N087 NB", ErrUnsupportedRouteSystem},
		{"I95", ErrUnsupportedRouteSystem},
		{"I NB", ErrUnsupportedRouteSystem},
		{"I95 XB", ErrUnsupportedDirection},
	}
	for _, c := range cases {
		_, err := ParseRouteID(c.routeID)
		assert.Equal(t, c.cause, errors.Cause(err), c.routeID)
	}
	assert.NoError(t, ValidateRouteIDs(DefaultRouteList))
	assert.Equal(t, ErrUnsupportedDirection, errors.Cause(ValidateRouteIDs([]string{"I95 NB", "I95 XB"})))
}
