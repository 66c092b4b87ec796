// Package worldgen derives terrain for the unbounded ainspace world. Every
// tile is a pure function of its integer coordinates; nothing is stored.
package worldgen

import (
	"math"

	"github.com/kmh4500/ainspace/core"
)

// TileID identifies a terrain tile. Void is only produced by CircularWindow
// for cells outside the visible radius.
type TileID int

const (
	Void  TileID = -1
	Grass TileID = 0
	Dirt  TileID = 1
	Water TileID = 2
	Stone TileID = 3
)

func (t TileID) String() string {
	switch t {
	case Void:
		return "void"
	case Grass:
		return "grass"
	case Dirt:
		return "dirt"
	case Water:
		return "water"
	case Stone:
		return "stone"
	}
	return "unknown"
}

// Biome is the coarse region classifier biasing tile distribution.
type Biome int

const (
	Plains Biome = iota
	Desert
	WaterBiome
	Mountain
)

func (b Biome) String() string {
	switch b {
	case Plains:
		return "plains"
	case Desert:
		return "desert"
	case WaterBiome:
		return "water"
	case Mountain:
		return "mountain"
	}
	return "unknown"
}

const (
	// BiomeSize is the edge length of a biome region in tiles.
	BiomeSize = 20
	// RoadSpacing places a road row and column every RoadSpacing tiles.
	RoadSpacing = 15
	roadChance  = 0.7
)

// FloorDiv divides rounding towards negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// fract returns the fractional part of |v|, always in [0,1).
func fract(v float64) float64 {
	_, f := math.Modf(math.Abs(v))
	return f
}

// Hash maps a coordinate to [0,1).
func Hash(x, y int) float64 {
	seed := float64(x*1000 + y)
	return fract(math.Sin(seed*12.9898) * 43758.5453)
}

func biomeHash(bx, by int) float64 {
	seed := float64(bx*100 + by)
	return fract(math.Sin(seed*7.1234) * 23456.7891)
}

// BiomeAt returns the biome of the region containing (x, y).
func BiomeAt(x, y int) Biome {
	r := biomeHash(FloorDiv(x, BiomeSize), FloorDiv(y, BiomeSize))
	switch {
	case r < 0.3:
		return Desert
	case r < 0.5:
		return WaterBiome
	case r < 0.7:
		return Mountain
	default:
		return Plains
	}
}

func onRoad(x, y int) bool {
	return x%RoadSpacing == 0 || y%RoadSpacing == 0
}

// TileAt returns the terrain at (x, y).
func TileAt(x, y int) TileID {
	r := Hash(x, y)
	if onRoad(x, y) && r < roadChance {
		return Dirt
	}

	switch BiomeAt(x, y) {
	case Desert:
		if r < 0.4 {
			return Dirt
		}
		return Grass
	case WaterBiome:
		switch {
		case r < 0.6:
			return Water
		case r < 0.8:
			return Grass
		default:
			return Dirt
		}
	case Mountain:
		switch {
		case r < 0.2:
			return Stone
		case r < 0.7:
			return Dirt
		default:
			return Grass
		}
	default:
		switch {
		case r < 0.15:
			return Dirt
		case r < 0.25:
			return Water
		default:
			return Grass
		}
	}
}

// Walkable reports whether an agent may stand on (x, y).
func Walkable(x, y int) bool {
	return TileAt(x, y) != Stone
}

// Window materialises a width x height viewport centred on (cx, cy). Rows are
// indexed by y; grid[j][i] is the tile at (cx-width/2+i, cy-height/2+j).
func Window(cx, cy, width, height int) [][]TileID {
	return window(cx, cy, width, height, -1)
}

// CircularWindow is Window with every cell farther than radius from the
// centre replaced by Void.
func CircularWindow(cx, cy, width, height int, radius float64) [][]TileID {
	return window(cx, cy, width, height, radius)
}

func window(cx, cy, width, height int, radius float64) [][]TileID {
	if width <= 0 || height <= 0 {
		return [][]TileID{}
	}
	left := cx - width/2
	top := cy - height/2
	center := core.Position{X: cx, Y: cy}

	grid := make([][]TileID, height)
	for j := range grid {
		row := make([]TileID, width)
		for i := range row {
			p := core.Position{X: left + i, Y: top + j}
			if radius >= 0 && core.Distance(center, p) > radius {
				row[i] = Void
				continue
			}
			row[i] = TileAt(p.X, p.Y)
		}
		grid[j] = row
	}
	return grid
}
