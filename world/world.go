// Package world owns the agents and the player, and decides who hears each
// chat message and when their reply should be revealed.
package world

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

var ErrDuplicateAgent = errors.New("agent already in world")

// World is the authoritative registry of agents and the player's last known
// position. Callers get snapshots; positions may move between dispatch and
// reply.
type World struct {
	mu     sync.RWMutex
	agents []agent.Agent
	player core.Position

	logger *zap.Logger
	now    func() time.Time
}

type Option func(*World)

func WithLogger(l *zap.Logger) Option {
	return func(w *World) { w.logger = l }
}

func WithPlayer(p core.Position) Option {
	return func(w *World) { w.player = p }
}

func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

// WithAgents seeds the registry. Duplicate ids are skipped.
func WithAgents(agents ...agent.Agent) Option {
	return func(w *World) {
		for _, a := range agents {
			_ = w.add(a)
		}
	}
}

func New(opts ...Option) *World {
	w := &World{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add registers a new agent at the end of the registry order.
func (w *World) Add(a agent.Agent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(a)
}

func (w *World) add(a agent.Agent) error {
	for _, existing := range w.agents {
		if existing.ID() == a.ID() {
			return fmt.Errorf("%w: %s", ErrDuplicateAgent, a.ID())
		}
	}
	w.agents = append(w.agents, a)
	return nil
}

// Remove drops the agent with the given id and reports whether it existed.
func (w *World) Remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, a := range w.agents {
		if a.ID() == id {
			w.agents = append(w.agents[:i], w.agents[i+1:]...)
			return true
		}
	}
	return false
}

func (w *World) Get(id string) (agent.Agent, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, a := range w.agents {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Agents returns the registry in order.
func (w *World) Agents() []agent.Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]agent.Agent(nil), w.agents...)
}

// States snapshots every agent's state in registry order.
func (w *World) States() []core.AgentState {
	agents := w.Agents()
	states := make([]core.AgentState, len(agents))
	for i, a := range agents {
		states[i] = a.State()
	}
	return states
}

// Clear removes every agent and resets the player to the origin.
func (w *World) Clear() {
	w.mu.Lock()
	w.agents = nil
	w.player = core.Position{}
	w.mu.Unlock()
}

func (w *World) SetPlayer(p core.Position) {
	w.mu.Lock()
	w.player = p
	w.mu.Unlock()
}

func (w *World) Player() core.Position {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.player
}

// AgentsInRange returns agents within radius of the player. A negative
// radius returns all agents.
func (w *World) AgentsInRange(radius float64) []agent.Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if radius < 0 {
		return append([]agent.Agent(nil), w.agents...)
	}
	var in []agent.Agent
	for _, a := range w.agents {
		if core.Distance(w.player, a.Position()) <= radius {
			in = append(in, a)
		}
	}
	return in
}

// Suggestions returns agents whose name contains partial, ignoring case.
func (w *World) Suggestions(partial string) []agent.Agent {
	term := strings.ToLower(partial)
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []agent.Agent
	for _, a := range w.agents {
		if strings.Contains(strings.ToLower(a.Name()), term) {
			out = append(out, a)
		}
	}
	return out
}
