package movement

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

func open(core.Position) bool    { return true }
func blocked(core.Position) bool { return false }

func except(walls ...core.Position) Walkable {
	return func(p core.Position) bool {
		for _, w := range walls {
			if w == p {
				return false
			}
		}
		return true
	}
}

func newRand() *rand.Rand { return rand.New(rand.NewSource(7)) }

func state(kind core.BehaviorKind, x, y int, dir core.Direction) core.AgentState {
	return core.AgentState{ID: "a", Behavior: kind, Position: core.Position{X: x, Y: y}, Direction: dir}
}

func TestPatrol(t *testing.T) {
	far := core.Position{X: 100, Y: 100}

	step := Decide(state(core.BehaviorPatrol, 0, 0, core.Up), far, open, newRand())
	assert.Equal(t, Step{core.Position{X: 0, Y: -1}, core.Up}, step)

	step = Decide(state(core.BehaviorPatrol, 0, 0, core.Up), far, except(core.Position{X: 0, Y: -1}), newRand())
	assert.Equal(t, Step{core.Position{X: 1, Y: 0}, core.Right}, step)

	step = Decide(state(core.BehaviorPatrol, 0, 0, core.Left), far, blocked, newRand())
	assert.Equal(t, Step{core.Position{X: 0, Y: 0}, core.Up}, step, "stays put but keeps the turned heading")
}

func TestRandom(t *testing.T) {
	far := core.Position{X: 100, Y: 100}
	rng := newRand()
	for i := 0; i < 200; i++ {
		s := state(core.BehaviorRandom, 4, 4, core.Directions[i%4])
		step := Decide(s, far, open, rng)
		assert.Equal(t, 1, core.Manhattan(s.Position, step.Position))
		assert.Equal(t, s.Position.Step(step.Direction), step.Position)
	}

	for i := 0; i < 50; i++ {
		step := Decide(state(core.BehaviorRandom, 4, 4, core.Down), far, blocked, rng)
		assert.Equal(t, core.Position{X: 4, Y: 4}, step.Position)
		assert.True(t, step.Direction.Valid())
	}
}

func TestRandomMostlyKeepsHeading(t *testing.T) {
	rng := newRand()
	kept := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if Decide(state(core.BehaviorRandom, 0, 0, core.Right), core.Position{X: 50}, open, rng).Direction == core.Right {
			kept++
		}
	}
	// 70% keep plus a quarter of the 30% that re-roll right.
	assert.InDelta(t, 0.775, float64(kept)/n, 0.05)
}

func TestExplorer(t *testing.T) {
	t.Run("backs away from a close player", func(t *testing.T) {
		step := Decide(state(core.BehaviorExplorer, 0, 0, core.Right), core.Position{X: 1, Y: 0}, open, newRand())
		assert.Equal(t, Step{core.Position{X: -1, Y: 0}, core.Left}, step)

		step = Decide(state(core.BehaviorExplorer, 0, 0, core.Right), core.Position{X: 1, Y: 1}, except(core.Position{X: -1, Y: 0}), newRand())
		assert.Equal(t, Step{core.Position{X: 0, Y: -1}, core.Up}, step)

		step = Decide(state(core.BehaviorExplorer, 2, 0, core.Left), core.Position{X: 1, Y: 0}, open, newRand())
		assert.Equal(t, Step{core.Position{X: 3, Y: 0}, core.Right}, step)
	})

	t.Run("wanders when the player is distant", func(t *testing.T) {
		rng := newRand()
		for i := 0; i < 100; i++ {
			s := state(core.BehaviorExplorer, 0, 0, core.Down)
			step := Decide(s, core.Position{X: 3, Y: 0}, open, rng)
			assert.Equal(t, s.Position.Step(step.Direction), step.Position)
		}
	})

	t.Run("boxed in", func(t *testing.T) {
		step := Decide(state(core.BehaviorExplorer, 0, 0, core.Down), core.Position{X: 1, Y: 0}, blocked, newRand())
		assert.Equal(t, core.Position{}, step.Position)
		assert.True(t, step.Direction.Valid())
	})
}

func TestDecideDeterministicWithSeed(t *testing.T) {
	s := state(core.BehaviorRandom, 0, 0, core.Up)
	a := Decide(s, core.Position{}, open, rand.New(rand.NewSource(99)))
	b := Decide(s, core.Position{}, open, rand.New(rand.NewSource(99)))
	assert.Equal(t, a, b)
}

type roster struct {
	mu     sync.Mutex
	agents []agent.Agent
	player core.Position
}

func (r *roster) Agents() []agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.Agent(nil), r.agents...)
}

func (r *roster) Player() core.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player
}

func TestEngineTick(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	patrol := agent.NewLocal(core.AgentState{
		ID: "p", Behavior: core.BehaviorPatrol, Direction: core.Right,
		LastMoved: start, MoveInterval: 2 * time.Second,
	})
	remote := agent.NewRemote(core.AgentState{ID: "r", Position: core.Position{X: 9}})
	r := &roster{agents: []agent.Agent{patrol, remote}, player: core.Position{X: 50}}
	e := NewEngine(r, open, WithRand(newRand()))

	assert.Empty(t, e.Tick(start.Add(time.Second)), "interval not elapsed")

	now := start.Add(2 * time.Second)
	moved := e.Tick(now)
	require.Len(t, moved, 1)
	assert.Equal(t, "p", moved[0].ID)
	assert.Equal(t, core.Position{X: 1}, patrol.Position())
	assert.Equal(t, now, patrol.State().LastMoved)
	assert.Equal(t, core.Position{X: 9}, remote.Position(), "remote agents are not moved")

	assert.Empty(t, e.Tick(now.Add(time.Second)))
}

func TestEngineTickBlockedStillResetsClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := agent.NewLocal(core.AgentState{ID: "p", Behavior: core.BehaviorPatrol, Direction: core.Up, MoveInterval: time.Second})
	e := NewEngine(&roster{agents: []agent.Agent{a}}, blocked, WithRand(newRand()))

	moved := e.Tick(start)
	require.Len(t, moved, 1)
	assert.Equal(t, core.Position{}, a.Position())
	assert.Equal(t, core.Right, a.State().Direction)
	assert.Equal(t, start, a.State().LastMoved)
	assert.Empty(t, e.Tick(start.Add(500*time.Millisecond)))
}

func TestEngineRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := agent.NewLocal(core.AgentState{ID: "p", Behavior: core.BehaviorPatrol, Direction: core.Down})
	moves := make(chan []core.AgentState, 16)
	e := NewEngine(&roster{agents: []agent.Agent{a}}, open, WithRand(newRand()), OnMove(func(s []core.AgentState) {
		select {
		case moves <- s:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, 5*time.Millisecond) }()

	select {
	case got := <-moves:
		require.Len(t, got, 1)
		assert.Equal(t, core.Down, got[0].Direction)
	case <-time.After(2 * time.Second):
		t.Fatal("engine never moved the agent")
	}

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}
