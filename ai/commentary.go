package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/worldgen"
)

const commentarySystemPrompt = "You narrate an autonomous explorer's journey through an endless procedural world."

var commentaryFallbacks = []string{
	"Continuing my autonomous exploration through this mysterious world...",
	"The journey continues, one tile at a time.",
	"Wandering through the infinite expanse, discovering new territories.",
	"Each step reveals more of this procedurally generated universe.",
	"The autonomous explorer presses on through unknown lands.",
}

// Scene is what the explorer currently sees.
type Scene struct {
	Position      core.Position    `json:"worldPosition"`
	Terrain       string           `json:"currentTerrain"`
	Biome         string           `json:"biome"`
	VisibleAgents []string         `json:"visibleAgents"`
	RecentMoves   []core.Direction `json:"recentMovements"`
}

// SceneAt fills terrain and biome for pos from the world generator.
func SceneAt(pos core.Position, visible []string, moves []core.Direction) Scene {
	return Scene{
		Position:      pos,
		Terrain:       worldgen.TileAt(pos.X, pos.Y).String(),
		Biome:         worldgen.BiomeAt(pos.X, pos.Y).String(),
		VisibleAgents: visible,
		RecentMoves:   moves,
	}
}

// Commentator narrates exploration. It always returns something to say.
type Commentator struct {
	completer Completer
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCommentator accepts a nil completer, in which case every comment comes
// from the fallback lines.
func NewCommentator(c Completer, logger *zap.Logger, seed int64) *Commentator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Commentator{completer: c, logger: logger, rng: rand.New(rand.NewSource(seed))}
}

func (c *Commentator) Comment(ctx context.Context, s Scene) string {
	if c.completer != nil {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		text, err := c.completer.Complete(ctx, commentarySystemPrompt, commentaryPrompt(s))
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		c.logger.Warn("commentary generation failed", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return commentaryFallbacks[c.rng.Intn(len(commentaryFallbacks))]
}

func commentaryPrompt(s Scene) string {
	visible := "None"
	if len(s.VisibleAgents) > 0 {
		visible = strings.Join(s.VisibleAgents, ", ")
	}
	moves := make([]string, len(s.RecentMoves))
	for i, m := range s.RecentMoves {
		moves[i] = string(m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "World position: %s\n", s.Position)
	fmt.Fprintf(&b, "Terrain: %s\n", s.Terrain)
	fmt.Fprintf(&b, "Biome: %s\n", s.Biome)
	fmt.Fprintf(&b, "Agents nearby: %s\n", visible)
	fmt.Fprintf(&b, "Recent movements: %s\n\n", strings.Join(moves, " -> "))
	b.WriteString("Write one or two curious, conversational sentences about the exploration so far.")
	return b.String()
}
