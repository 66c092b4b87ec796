package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/core"
)

// LocalAgent is a random, patrol or explorer agent. It answers every message
// addressed to it with text from the shared generator.
type LocalAgent struct {
	base
	generator TextGenerator
}

func NewLocal(state core.AgentState, opts ...Option) *LocalAgent {
	o := buildOptions(opts)
	a := &LocalAgent{generator: o.generator}
	a.init(state, o)
	return a
}

// ShouldRespondUnprompted is always true: ambient agents are chatty.
func (a *LocalAgent) ShouldRespondUnprompted(core.Message) bool {
	return true
}

func (a *LocalAgent) ProcessMessage(ctx context.Context, msg core.Message, delay time.Duration) *core.AgentResponse {
	release := a.queue.enter()
	defer release()

	if !a.admit(msg, a.ShouldRespondUnprompted) {
		return nil
	}

	state := a.State()
	text, err := a.generate(ctx, state, msg)
	if err != nil {
		a.logger.Warn("text generation failed, using fallback", zap.Error(err))
		text = Fallback(state)
	}
	return a.respond(state, msg, text, delay)
}

func (a *LocalAgent) generate(ctx context.Context, state core.AgentState, msg core.Message) (string, error) {
	if a.generator == nil {
		return "", fmt.Errorf("no text generator configured")
	}
	text, err := a.generator.Generate(ctx, core.GenerationRequest{
		AgentName:      state.Name,
		Behavior:       state.Behavior,
		AgentPosition:  state.Position,
		PlayerPosition: msg.PlayerPosition,
		Distance:       msg.Distance,
		UserMessage:    msg.Content,
		IsMentioned:    msg.IsMentioned,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty generation")
	}
	return text, nil
}

// Fallback is the reply substituted when generation fails.
func Fallback(state core.AgentState) string {
	return fmt.Sprintf("%s at (%d, %d) received your message but couldn't respond properly.",
		state.Name, state.Position.X, state.Position.Y)
}
