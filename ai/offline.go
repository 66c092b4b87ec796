package ai

import (
	"context"
	"fmt"

	"github.com/kmh4500/ainspace/core"
)

// Offline answers without a model, using fixed lines for the seeded agents.
type Offline struct{}

func (Offline) Generate(_ context.Context, req core.GenerationRequest) (string, error) {
	return PersonaLine(req.AgentName, req.AgentPosition), nil
}

// PersonaLine is the canned reply for an agent at pos.
func PersonaLine(name string, pos core.Position) string {
	switch name {
	case "Explorer Bot":
		return fmt.Sprintf("Message received at (%d, %d)! I'm exploring new territories.", pos.X, pos.Y)
	case "Patrol Bot":
		return fmt.Sprintf("Patrol Bot reporting from (%d, %d). Message acknowledged.", pos.X, pos.Y)
	case "Wanderer":
		return fmt.Sprintf("Hello from (%d, %d)! Nice to hear from you while I wander.", pos.X, pos.Y)
	}
	return fmt.Sprintf("Agent %s received your message from position (%d, %d).", name, pos.X, pos.Y)
}
