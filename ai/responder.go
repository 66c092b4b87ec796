package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/core"
)

var behaviorDescriptions = map[core.BehaviorKind]string{
	core.BehaviorRandom:   "You move randomly and unpredictably, always curious about new discoveries.",
	core.BehaviorPatrol:   "You are systematic and methodical, following patrol routes and maintaining order.",
	core.BehaviorExplorer: "You are adventurous and seek out new territories, avoiding crowds when possible.",
}

const agentSystemPrompt = "You are a character in a tile-based adventure game. Reply in character with one or two short sentences and nothing else."

// Responder prompts a Completer on behalf of a local agent. Errors are
// returned to the caller, which owns the fallback text.
type Responder struct {
	completer Completer
	timeout   time.Duration
	logger    *zap.Logger
}

type ResponderOption func(*Responder)

func WithTimeout(d time.Duration) ResponderOption {
	return func(r *Responder) { r.timeout = d }
}

func WithLogger(l *zap.Logger) ResponderOption {
	return func(r *Responder) { r.logger = l }
}

func NewResponder(c Completer, opts ...ResponderOption) *Responder {
	r := &Responder{completer: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.completer.Complete(ctx, agentSystemPrompt, AgentPrompt(req))
	if err != nil {
		r.logger.Warn("agent response generation failed",
			zap.String("agent", req.AgentName), zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// AgentPrompt renders the user prompt for one agent reply.
func AgentPrompt(req core.GenerationRequest) string {
	desc, ok := behaviorDescriptions[req.Behavior]
	if !ok {
		desc = "You have a unique personality."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI agent in a tile-based adventure game.\n\n", req.AgentName)
	fmt.Fprintf(&b, "Behavior: %s - %s\n", req.Behavior, desc)
	fmt.Fprintf(&b, "Your position: %s\n", req.AgentPosition)
	fmt.Fprintf(&b, "Player position: %s\n", req.PlayerPosition)
	fmt.Fprintf(&b, "Distance from player: %.1f units\n\n", req.Distance)
	fmt.Fprintf(&b, "The player said: %q\n\n", req.UserMessage)
	if req.IsMentioned {
		b.WriteString("You were addressed directly with @. Answer personally and acknowledge being called.\n")
	} else {
		b.WriteString("You overheard this. Join in casually and say what caught your attention.\n")
	}
	b.WriteString("Take the distance to the player into account and stay in character.")
	return b.String()
}
