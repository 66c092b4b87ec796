package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/ai"
	"github.com/kmh4500/ainspace/config"
	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/logging"
	"github.com/kmh4500/ainspace/storage"
	"github.com/kmh4500/ainspace/world"
	"github.com/kmh4500/ainspace/worldgen"
)

var (
	configPath string
	verbose    bool
)

// AddGlobalFlags registers the flags shared by every sub-command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "ainspace.yaml", "Path to the YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// app holds the loaded settings and logger shared by a command run.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) llmConfig() ai.LLMConfig {
	l := a.cfg.LLM
	return ai.LLMConfig{
		Provider:    l.Provider,
		APIKey:      l.APIKey,
		Model:       l.Model,
		BaseURL:     l.BaseURL,
		MaxTokens:   l.MaxTokens,
		Temperature: l.Temperature,
		Timeout:     l.Timeout,
	}
}

func (a *app) openStore() storage.AgentStore {
	return storage.OpenAgentStore(a.cfg.Storage.DataDir, a.logger.Named("storage"))
}

// agentKit bundles the text and remote capabilities handed to agents.
type agentKit struct {
	completer ai.Completer
	client    *a2a.Client
	options   []agent.Option
}

func (a *app) buildAgentKit(ctx context.Context) (*agentKit, error) {
	llm := a.llmConfig()
	completer, err := ai.NewCompleter(ctx, llm, a.logger)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	client := a2a.NewClient(a2a.WithLogger(a.logger.Named("a2a")))
	return &agentKit{
		completer: completer,
		client:    client,
		options: []agent.Option{
			agent.WithGenerator(ai.GeneratorFor(completer, llm, a.logger)),
			agent.WithCaller(client),
			agent.WithLogger(a.logger.Named("agent")),
		},
	}, nil
}

func (a *app) newWorld(kit *agentKit) *world.World {
	opts := []world.Option{world.WithLogger(a.logger.Named("world"))}
	if a.cfg.World.SeedAgents {
		opts = append(opts, world.WithAgents(world.DefaultAgents(kit.options...)...))
	}
	return world.New(opts...)
}

// spawnImported places every stored remote agent in w, one tile apart east
// of the player.
func spawnImported(w *world.World, store storage.AgentStore, kit *agentKit) (int, error) {
	recs, err := store.ListAgents()
	if err != nil {
		return 0, err
	}
	player := w.Player()
	for i, rec := range recs {
		a := agent.NewRemote(core.AgentState{
			ID:        "a2a-" + rec.URL,
			Name:      rec.Card.Name,
			Color:     "#8B5CF6",
			Position:  core.Position{X: player.X + i + 1, Y: player.Y},
			Direction: core.Down,
			Endpoint:  rec.URL,
			Skills:    rec.Card.Skills,
		}, kit.options...)
		if err := w.Add(a); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

func walkable(p core.Position) bool {
	return worldgen.Walkable(p.X, p.Y)
}
