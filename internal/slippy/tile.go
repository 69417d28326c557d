package slippy

import (
	"fmt"
	"math"
)

const (
	MaxZoom = 18

	// Web Mercator latitude limits
	MaxLat = 85.051129
	MinLat = -85.051129
)

// Tile identifies one slippy-map tile in the standard XYZ scheme.
// X grows east from the antimeridian, Y grows south from the north pole.
type Tile struct {
	X int
	Y int
	Z int
}

// New creates a tile, validating that the coordinates exist at zoom z.
func New(x, y, z int) (Tile, error) {
	if z < 0 || z > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", z, MaxZoom)
	}
	size := 1 << z
	if x < 0 || x >= size || y < 0 || y >= size {
		return Tile{}, fmt.Errorf("x/y out of range for zoom %d", z)
	}
	return Tile{X: x, Y: y, Z: z}, nil
}

func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// TileForLatLon returns the tile containing a WGS84 coordinate at the given
// zoom level. Latitude is clamped to the Web Mercator range.
func TileForLatLon(lat, lon float64, zoom int) Tile {
	if lat > MaxLat {
		lat = MaxLat
	}
	if lat < MinLat {
		lat = MinLat
	}

	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180.0

	x := int((lon + 180.0) / 360.0 * n)
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	size := 1 << zoom
	return Tile{
		X: clamp(x, 0, size-1),
		Y: clamp(y, 0, size-1),
		Z: zoom,
	}
}

// TilesInBounds returns every tile overlapping the WGS84 bounding box at the
// given zoom level, row-major: ascending X, then ascending Y within each
// column. Latitude and tile Y are inversely related (the north edge lands on
// the smaller Y), so the Y range is ordered explicitly instead of assuming
// the corners map monotonically.
func TilesInBounds(south, west, north, east float64, zoom int) []Tile {
	nw := TileForLatLon(north, west, zoom)
	se := TileForLatLon(south, east, zoom)

	xMin, xMax := nw.X, se.X
	yMin, yMax := nw.Y, se.Y
	if yMin > yMax {
		yMin, yMax = yMax, yMin
	}

	tiles := make([]Tile, 0, (xMax-xMin+1)*(yMax-yMin+1))
	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			tiles = append(tiles, Tile{X: x, Y: y, Z: zoom})
		}
	}
	return tiles
}

// Bounds returns the geographic extent of the tile as (south, west, north, east).
func (t Tile) Bounds() (south, west, north, east float64) {
	n := math.Exp2(float64(t.Z))
	west = float64(t.X)/n*360.0 - 180.0
	east = float64(t.X+1)/n*360.0 - 180.0
	north = yToLat(float64(t.Y), n)
	south = yToLat(float64(t.Y+1), n)
	return south, west, north, east
}

// Frac returns the position of a coordinate within the tile as fractions in
// [0, 1), X fraction east from the tile's west edge and Y fraction south from
// its north edge.
func Frac(lat, lon float64, t Tile) (fx, fy float64) {
	n := math.Exp2(float64(t.Z))
	latRad := lat * math.Pi / 180.0
	wx := (lon + 180.0) / 360.0 * n
	wy := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return wx - float64(t.X), wy - float64(t.Y)
}

func yToLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1.0-2.0*y/n))) * 180.0 / math.Pi
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
