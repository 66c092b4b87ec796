// Package agent implements the conversational entities living in the world:
// local agents that wander and answer through a text generator, and remote
// agents reached over the a2a protocol.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/core"
)

var ErrUnknownKind = errors.New("unknown agent kind")

// Agent is the behaviour-independent contract the world dispatches against.
// ProcessMessage never fails: a nil response means the agent stays silent.
type Agent interface {
	ID() string
	Name() string
	Kind() core.BehaviorKind
	State() core.AgentState
	Position() core.Position
	UpdateState(u core.StateUpdate)

	JoinThread(threadID string)
	LeaveThread(threadID string)
	InThread(threadID string) bool
	Threads() []string

	ShouldRespondUnprompted(msg core.Message) bool
	ProcessMessage(ctx context.Context, msg core.Message, delay time.Duration) *core.AgentResponse
}

// TextGenerator produces a local agent's reply.
type TextGenerator interface {
	Generate(ctx context.Context, req core.GenerationRequest) (string, error)
}

// RemoteCaller delivers a message to a remote agent and returns the raw
// response envelope.
type RemoteCaller interface {
	Send(ctx context.Context, endpoint string, req a2a.SendRequest) (map[string]any, error)
}

type options struct {
	logger    *zap.Logger
	generator TextGenerator
	caller    RemoteCaller
	now       func() time.Time
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGenerator sets the text source used by local agents.
func WithGenerator(g TextGenerator) Option {
	return func(o *options) { o.generator = g }
}

// WithCaller sets the transport used by remote agents.
func WithCaller(c RemoteCaller) Option {
	return func(o *options) { o.caller = c }
}

// WithClock overrides the time source stamped on responses.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds an agent of the given kind.
func New(kind core.BehaviorKind, state core.AgentState, opts ...Option) (Agent, error) {
	state.Behavior = kind
	switch {
	case kind.IsLocal():
		return NewLocal(state, opts...), nil
	case kind == core.BehaviorRemote:
		return NewRemote(state, opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// base holds the state and thread membership shared by every variant.
type base struct {
	mu      sync.RWMutex
	state   core.AgentState
	threads map[string]struct{}

	queue  serialQueue
	logger *zap.Logger
	now    func() time.Time
}

func (b *base) init(state core.AgentState, o options) {
	b.state = state.Clone()
	b.threads = make(map[string]struct{})
	b.logger = o.logger.With(zap.String("agent", state.Name), zap.String("agentId", state.ID))
	b.now = o.now
}

func (b *base) ID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.ID
}

func (b *base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Name
}

func (b *base) Kind() core.BehaviorKind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Behavior
}

func (b *base) State() core.AgentState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Clone()
}

func (b *base) Position() core.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Position
}

func (b *base) UpdateState(u core.StateUpdate) {
	b.mu.Lock()
	b.state = u.Apply(b.state)
	b.mu.Unlock()
}

func (b *base) JoinThread(threadID string) {
	b.mu.Lock()
	b.threads[threadID] = struct{}{}
	b.mu.Unlock()
}

func (b *base) LeaveThread(threadID string) {
	b.mu.Lock()
	delete(b.threads, threadID)
	b.mu.Unlock()
}

func (b *base) InThread(threadID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.threads[threadID]
	return ok
}

func (b *base) Threads() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.threads))
	for id := range b.threads {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// admit applies the addressing rules shared by all agents. Threaded messages
// are answered by members and by mentioned agents, who join the thread.
// Other messages go to mentioned agents and to those whose unprompted check
// passes.
func (b *base) admit(msg core.Message, unprompted func(core.Message) bool) bool {
	if msg.ThreadID == "" {
		return msg.IsMentioned || unprompted(msg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, member := b.threads[msg.ThreadID]; member {
		return true
	}
	if !msg.IsMentioned {
		return false
	}
	b.threads[msg.ThreadID] = struct{}{}
	b.logger.Debug("joined thread on mention", zap.String("threadId", msg.ThreadID))
	return true
}

func (b *base) respond(state core.AgentState, msg core.Message, text string, delay time.Duration) *core.AgentResponse {
	return &core.AgentResponse{
		AgentID:   state.ID,
		AgentName: state.Name,
		Message:   text,
		Timestamp: b.now(),
		Delay:     delay,
		Position:  state.Position,
		Distance:  msg.Distance,
		ThreadID:  msg.ThreadID,
	}
}

// serialQueue runs callers strictly in the order they entered.
type serialQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// enter blocks until every earlier caller has released, and returns the
// release func for this caller.
func (q *serialQueue) enter() func() {
	done := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		<-prev
	}
	return func() { close(done) }
}
