package core

import (
	"fmt"
	"math"
)

// Position is an integer world coordinate. The world is unbounded.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Manhattan returns |dx| + |dy|.
func Manhattan(a, b Position) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is a cardinal movement direction. Up decreases Y.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists the cardinal directions in a fixed order.
var Directions = [...]Direction{Up, Down, Left, Right}

// Step returns the neighbouring position one tile away in direction d.
// Unknown directions leave the position unchanged.
func (p Position) Step(d Direction) Position {
	switch d {
	case Up:
		return Position{X: p.X, Y: p.Y - 1}
	case Down:
		return Position{X: p.X, Y: p.Y + 1}
	case Left:
		return Position{X: p.X - 1, Y: p.Y}
	case Right:
		return Position{X: p.X + 1, Y: p.Y}
	default:
		return p
	}
}

// Clockwise rotates up -> right -> down -> left -> up.
func (d Direction) Clockwise() Direction {
	switch d {
	case Up:
		return Right
	case Right:
		return Down
	case Down:
		return Left
	case Left:
		return Up
	default:
		return d
	}
}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}
