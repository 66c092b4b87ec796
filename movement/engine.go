package movement

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

// Roster is the part of the world the engine drives.
type Roster interface {
	Agents() []agent.Agent
	Player() core.Position
}

// Engine moves every local agent whose move interval has elapsed. Remote
// agents are positioned by their owners and never moved here.
type Engine struct {
	roster   Roster
	walkable Walkable
	logger   *zap.Logger
	onMove   func([]core.AgentState)

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// OnMove registers a callback receiving the agents updated by each tick
// that moved at least one agent.
func OnMove(fn func([]core.AgentState)) Option {
	return func(e *Engine) { e.onMove = fn }
}

func NewEngine(roster Roster, walkable Walkable, opts ...Option) *Engine {
	e := &Engine{
		roster:   roster,
		walkable: walkable,
		logger:   zap.NewNop(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs one decision cycle for every due agent and returns their new
// states. LastMoved is set to now even when the agent could not move.
func (e *Engine) Tick(now time.Time) []core.AgentState {
	player := e.roster.Player()

	e.mu.Lock()
	defer e.mu.Unlock()

	var updated []core.AgentState
	for _, a := range e.roster.Agents() {
		if !a.Kind().IsLocal() {
			continue
		}
		s := a.State()
		if now.Sub(s.LastMoved) < s.MoveInterval {
			continue
		}
		step := Decide(s, player, e.walkable, e.rng)
		a.UpdateState(core.StateUpdate{
			Position:  &step.Position,
			Direction: &step.Direction,
			LastMoved: &now,
		})
		updated = append(updated, a.State())
	}
	return updated
}

// Run ticks every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("movement engine started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("movement engine stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if moved := e.Tick(now); len(moved) > 0 && e.onMove != nil {
				e.onMove(moved)
			}
		}
	}
}
