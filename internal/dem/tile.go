package dem

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"demtiles/internal/slippy"
)

// Grid holds one parsed elevation tile. GSI dem5b tiles are plain text:
// one row per line, comma-separated elevation values in meters, the letter
// "e" where no elevation exists (sea, missing survey).
type Grid struct {
	Tile   slippy.Tile
	Size   int // grid is Size x Size
	values []float64
	valid  []bool
}

// ParseGrid decodes a raw GSI text tile payload.
func ParseGrid(raw []byte, tile slippy.Tile) (*Grid, error) {
	text := strings.TrimRight(string(raw), "\n\r")
	if text == "" {
		return nil, fmt.Errorf("dem: empty payload for tile %s", tile)
	}

	lines := strings.Split(text, "\n")
	size := len(lines)

	g := &Grid{
		Tile:   tile,
		Size:   size,
		values: make([]float64, 0, size*size),
		valid:  make([]bool, 0, size*size),
	}

	for i, line := range lines {
		cells := strings.Split(strings.TrimRight(line, "\r"), ",")
		if len(cells) != size {
			return nil, fmt.Errorf("dem: non-square grid in tile %s: row %d has %d cells, want %d",
				tile, i, len(cells), size)
		}
		for _, cell := range cells {
			cell = strings.TrimSpace(cell)
			if cell == "e" || cell == "" {
				g.values = append(g.values, 0)
				g.valid = append(g.valid, false)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dem: bad value %q in tile %s row %d: %w", cell, tile, i, err)
			}
			g.values = append(g.values, v)
			g.valid = append(g.valid, true)
		}
	}

	return g, nil
}

// At returns the elevation at grid node (row i, col j) and whether it is valid.
func (g *Grid) At(i, j int) (float64, bool) {
	if i < 0 || j < 0 || i >= g.Size || j >= g.Size {
		return 0, false
	}
	idx := i*g.Size + j
	return g.values[idx], g.valid[idx]
}

// HeightAtFrac interpolates the elevation at a fractional position inside the
// tile, fx east from the west edge and fy south from the north edge, both in
// [0, 1). Interpolation is bilinear over the four surrounding nodes; when
// some of them carry no data the valid ones are averaged instead, and four
// invalid nodes mean no answer.
func (g *Grid) HeightAtFrac(fx, fy float64) (float64, bool) {
	if g.Size < 2 {
		return 0, false
	}

	px := fx * float64(g.Size-1)
	py := fy * float64(g.Size-1)

	j := clampIndex(int(math.Floor(px)), g.Size-2)
	i := clampIndex(int(math.Floor(py)), g.Size-2)

	dx := px - float64(j)
	dy := py - float64(i)

	p00, ok00 := g.At(i, j)
	p01, ok01 := g.At(i, j+1)
	p10, ok10 := g.At(i+1, j)
	p11, ok11 := g.At(i+1, j+1)

	if ok00 && ok01 && ok10 && ok11 {
		top := (1-dx)*p00 + dx*p01
		bottom := (1-dx)*p10 + dx*p11
		return (1-dy)*top + dy*bottom, true
	}

	var sum float64
	var cnt int
	for _, c := range []struct {
		v  float64
		ok bool
	}{{p00, ok00}, {p01, ok01}, {p10, ok10}, {p11, ok11}} {
		if c.ok {
			sum += c.v
			cnt++
		}
	}
	if cnt == 0 {
		return 0, false
	}
	return sum / float64(cnt), true
}

func clampIndex(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
