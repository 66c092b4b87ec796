// Package movement advances local agents across the world on a fixed tick.
package movement

import (
	"math/rand"

	"github.com/kmh4500/ainspace/core"
)

// Walkable reports whether an agent may enter p.
type Walkable func(p core.Position) bool

const (
	randomTurnChance   = 0.3
	explorerKeepChance = 0.7
	explorerPersonal   = 3
)

// Step is the outcome of one movement decision.
type Step struct {
	Position  core.Position
	Direction core.Direction
}

func randomDirection(rng *rand.Rand) core.Direction {
	return core.Directions[rng.Intn(len(core.Directions))]
}

// Decide computes an agent's next position and heading. It has no side
// effects beyond drawing from rng.
func Decide(s core.AgentState, player core.Position, walkable Walkable, rng *rand.Rand) Step {
	pos, dir := s.Position, s.Direction
	if !dir.Valid() {
		dir = randomDirection(rng)
	}

	switch s.Behavior {
	case core.BehaviorRandom:
		if rng.Float64() < randomTurnChance {
			dir = randomDirection(rng)
		}
		if next := pos.Step(dir); walkable(next) {
			return Step{next, dir}
		}
		alt := randomDirection(rng)
		if next := pos.Step(alt); walkable(next) {
			return Step{next, alt}
		}
		return Step{pos, randomDirection(rng)}

	case core.BehaviorPatrol:
		if next := pos.Step(dir); walkable(next) {
			return Step{next, dir}
		}
		turned := dir.Clockwise()
		if next := pos.Step(turned); walkable(next) {
			return Step{next, turned}
		}
		return Step{pos, turned}

	case core.BehaviorExplorer:
		if core.Manhattan(pos, player) < explorerPersonal {
			for _, away := range awayFrom(pos, player) {
				if next := pos.Step(away); walkable(next) {
					return Step{next, away}
				}
			}
		}
		if rng.Float64() >= explorerKeepChance {
			dir = randomDirection(rng)
		}
		if next := pos.Step(dir); walkable(next) {
			return Step{next, dir}
		}
		return Step{pos, randomDirection(rng)}
	}

	return Step{pos, s.Direction}
}

// awayFrom lists the directions that increase separation from the player,
// horizontal before vertical.
func awayFrom(pos, player core.Position) []core.Direction {
	var dirs []core.Direction
	if pos.X < player.X {
		dirs = append(dirs, core.Left)
	}
	if pos.X > player.X {
		dirs = append(dirs, core.Right)
	}
	if pos.Y < player.Y {
		dirs = append(dirs, core.Up)
	}
	if pos.Y > player.Y {
		dirs = append(dirs, core.Down)
	}
	return dirs
}
