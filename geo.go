package conflate

import (
	"math"

	"github.com/paulmach/orb"
)

// earthR is half of Web Mercator world width in meters
const (
	earthR = 20037508.34
)

// Coordinate reference systems OSM data can be delivered in
const (
	CRS_WGS84        = "EPSG:4326"
	CRS_WEB_MERCATOR = "EPSG:3857"
)

// epsg4326To3857 converts WGS84 longitude and latitude in degrees into Web Mercator meters
func epsg4326To3857(lon, lat float64) (float64, float64) {
	x := lon * earthR / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) * 180 / math.Pi
	return x, y * earthR / 180
}

// pointToEuclidean returns Web Mercator point for WGS84 point
func pointToEuclidean(pt orb.Point) orb.Point {
	x, y := epsg4326To3857(pt.Lon(), pt.Lat())
	return orb.Point{x, y}
}

// lineToEuclidean returns line in Web Mercator for line in WGS84. Returns new slice
func lineToEuclidean(line orb.LineString) orb.LineString {
	projected := make(orb.LineString, len(line))
	for i, pt := range line {
		projected[i] = pointToEuclidean(pt)
	}
	return projected
}
