package world

import (
	"time"

	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

// DefaultStates returns the agents every new world starts with.
func DefaultStates() []core.AgentState {
	return []core.AgentState{
		{
			ID:           "agent-1",
			Name:         "Explorer Bot",
			Color:        "#00FF00",
			Position:     core.Position{X: 5, Y: 3},
			Behavior:     core.BehaviorRandom,
			Direction:    core.Right,
			MoveInterval: 1500 * time.Millisecond,
		},
		{
			ID:           "agent-2",
			Name:         "Patrol Bot",
			Color:        "#FF6600",
			Position:     core.Position{X: -3, Y: -2},
			Behavior:     core.BehaviorPatrol,
			Direction:    core.Up,
			MoveInterval: 2000 * time.Millisecond,
		},
		{
			ID:           "agent-3",
			Name:         "Wanderer",
			Color:        "#9933FF",
			Position:     core.Position{X: 8, Y: -5},
			Behavior:     core.BehaviorExplorer,
			Direction:    core.Left,
			MoveInterval: 1000 * time.Millisecond,
		},
	}
}

// DefaultAgents builds the seed roster with the given agent options.
func DefaultAgents(opts ...agent.Option) []agent.Agent {
	states := DefaultStates()
	agents := make([]agent.Agent, len(states))
	for i, s := range states {
		agents[i] = agent.NewLocal(s, opts...)
	}
	return agents
}
