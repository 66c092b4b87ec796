package world

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/core"
)

// Addressing says which rule chose the recipients of a message.
type Addressing string

const (
	AddressMention   Addressing = "mention"
	AddressBroadcast Addressing = "broadcast"
	AddressOpen      Addressing = "open"
)

type sendOptions struct {
	threadID  string
	radius    float64
	hasRadius bool
	messageID string
	metadata  map[string]any
}

type SendOption func(*sendOptions)

// InThread posts the message into an existing or new thread.
func InThread(threadID string) SendOption {
	return func(o *sendOptions) { o.threadID = threadID }
}

// WithinRadius limits an unaddressed message to agents within r tiles.
func WithinRadius(r float64) SendOption {
	return func(o *sendOptions) {
		o.radius = r
		o.hasRadius = true
	}
}

// WithMessageID fixes the message id instead of generating one.
func WithMessageID(id string) SendOption {
	return func(o *sendOptions) { o.messageID = id }
}

// WithMetadata attaches extra metadata forwarded to remote agents.
func WithMetadata(md map[string]any) SendOption {
	return func(o *sendOptions) { o.metadata = md }
}

// Target is one recipient of a dispatch with its per-agent view of the
// message.
type Target struct {
	Agent   agent.Agent
	Message core.Message
	Delay   time.Duration
}

// Plan is the recipient set for one message, fixed before any agent runs.
type Plan struct {
	MessageID  string
	ThreadID   string
	Addressing Addressing
	Mentions   []string
	Targets    []Target
}

// Result is a finished dispatch. Responses follow target order with silent
// agents left out.
type Result struct {
	Plan
	Responses []core.AgentResponse
}

// ByDelay returns the responses sorted by reveal time.
func (r Result) ByDelay() []core.AgentResponse {
	out := append([]core.AgentResponse(nil), r.Responses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Delay < out[j].Delay })
	return out
}

// Plan resolves recipients and delays for content against the current
// snapshot without contacting any agent. Mentions win over the radius,
// which wins over the open floor.
func (w *World) Plan(content string, opts ...SendOption) Plan {
	o := sendOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.messageID == "" {
		o.messageID = uuid.New().String()
	}

	w.mu.RLock()
	agents := append([]agent.Agent(nil), w.agents...)
	player := w.player
	w.mu.RUnlock()

	plan := Plan{
		MessageID: o.messageID,
		ThreadID:  o.threadID,
		Mentions:  ExtractMentions(content),
	}

	var recipients []agent.Agent
	mentioned := false
	switch {
	case len(plan.Mentions) > 0:
		plan.Addressing = AddressMention
		recipients = MatchMentions(agents, plan.Mentions)
		mentioned = true
	case o.hasRadius:
		plan.Addressing = AddressBroadcast
		for _, a := range agents {
			if core.Distance(player, a.Position()) <= o.radius {
				recipients = append(recipients, a)
			}
		}
	default:
		plan.Addressing = AddressOpen
		recipients = agents
	}

	metadata := withPeerSkills(o.metadata, agents)
	now := w.now()
	plan.Targets = make([]Target, len(recipients))
	for i, a := range recipients {
		distance := core.Distance(player, a.Position())
		plan.Targets[i] = Target{
			Agent: a,
			Delay: core.TravelDelay(distance, i),
			Message: core.Message{
				ID:             plan.MessageID,
				Content:        content,
				Sender:         "player",
				Timestamp:      now,
				PlayerPosition: player,
				Distance:       distance,
				IsMentioned:    mentioned,
				ThreadID:       o.threadID,
				Metadata:       metadata,
			},
		}
	}
	return plan
}

// Send plans the dispatch, then asks every target concurrently and waits for
// all of them. Delays are only reported; nothing here sleeps.
func (w *World) Send(ctx context.Context, content string, opts ...SendOption) Result {
	plan := w.Plan(content, opts...)

	if plan.Addressing == AddressBroadcast && plan.ThreadID != "" {
		for _, t := range plan.Targets {
			t.Agent.JoinThread(plan.ThreadID)
		}
	}

	w.logger.Debug("dispatching message",
		zap.String("messageId", plan.MessageID),
		zap.String("threadId", plan.ThreadID),
		zap.String("addressing", string(plan.Addressing)),
		zap.Strings("mentions", plan.Mentions),
		zap.Int("targets", len(plan.Targets)))

	replies := make([]*core.AgentResponse, len(plan.Targets))
	var g errgroup.Group
	for i, t := range plan.Targets {
		g.Go(func() error {
			replies[i] = t.Agent.ProcessMessage(ctx, t.Message, t.Delay)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Plan: plan}
	for _, r := range replies {
		if r != nil {
			result.Responses = append(result.Responses, *r)
		}
	}
	return result
}

// withPeerSkills adds the skills of every remote agent to md under
// core.MetaAgentSkills. Each remote agent strips its own entry.
func withPeerSkills(md map[string]any, agents []agent.Agent) map[string]any {
	var peers []core.PeerSkills
	for _, a := range agents {
		if a.Kind() != core.BehaviorRemote {
			continue
		}
		s := a.State()
		peers = append(peers, core.PeerSkills{Name: s.Name, Skills: s.Skills})
	}
	if len(peers) == 0 {
		return md
	}
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	out[core.MetaAgentSkills] = peers
	return out
}
