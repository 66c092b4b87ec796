package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kmh4500/ainspace/ai"
	"github.com/kmh4500/ainspace/api"
	"github.com/kmh4500/ainspace/communication"
	"github.com/kmh4500/ainspace/conversation"
	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/movement"
	"github.com/kmh4500/ainspace/world"
)

var (
	serveListen     string
	serveCommentary time.Duration
	serveImported   bool
)

// ServeCmd runs the world, the movement engine and the HTTP API.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world server",
	Long:  `Start the HTTP API, websocket hub and movement engine, and publish chat traffic to NATS when configured.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	ServeCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides server.listen)")
	ServeCmd.Flags().DurationVar(&serveCommentary, "commentary", 30*time.Second, "Exploration commentary interval, 0 to disable")
	ServeCmd.Flags().BoolVar(&serveImported, "spawn-imported", false, "Place every imported remote agent in the world at startup")
}

func serve(ctx context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	if serveListen != "" {
		a.cfg.Server.Listen = serveListen
	}

	store := a.openStore()
	defer store.Close()

	kit, err := a.buildAgentKit(ctx)
	if err != nil {
		return err
	}
	w := a.newWorld(kit)
	if serveImported {
		n, err := spawnImported(w, store, kit)
		if err != nil {
			logger.Warn("Failed to spawn imported agents", zap.Error(err))
		}
		logger.Info("Spawned imported agents", zap.Int("count", n))
	}

	hub := communication.NewHub(logger.Named("ws"))

	var bus api.Publisher
	if a.cfg.NATS.URL != "" {
		m, err := communication.NewMessenger(a.cfg.NATS.URL, logger.Named("nats"))
		if err != nil {
			logger.Warn("NATS unavailable, continuing without it", zap.Error(err))
		} else {
			defer m.Close()
			bus = m
		}
	}

	engine := movement.NewEngine(w, walkable,
		movement.WithLogger(logger.Named("movement")),
		movement.OnMove(func(states []core.AgentState) {
			hub.Broadcast(communication.EventAgentsMoved, states)
		}),
	)

	srv := api.NewServer(api.Deps{
		World:        w,
		DAG:          conversation.New(),
		Store:        store,
		Cards:        kit.client,
		Hub:          hub,
		Bus:          bus,
		Logger:       logger.Named("api"),
		Radius:       a.cfg.World.BroadcastRadius,
		ViewRad:      a.cfg.World.ViewRadius,
		AgentOptions: kit.options,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(engine.Run(gctx, a.cfg.World.TickInterval))
	})
	if serveCommentary > 0 {
		commentator := ai.NewCommentator(kit.completer, logger.Named("commentary"), time.Now().UnixNano())
		g.Go(func() error {
			narrate(gctx, w, hub, commentator, float64(a.cfg.World.ViewRadius), serveCommentary)
			return nil
		})
	}
	g.Go(func() error {
		return srv.Run(gctx, a.cfg.Server.Listen)
	})

	return g.Wait()
}

// narrate broadcasts a line of commentary about the player's surroundings
// every interval.
func narrate(ctx context.Context, w *world.World, hub *communication.Hub, c *ai.Commentator, viewRadius float64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var visible []string
			for _, ag := range w.AgentsInRange(viewRadius) {
				visible = append(visible, ag.Name())
			}
			scene := ai.SceneAt(w.Player(), visible, nil)
			hub.Broadcast(communication.EventCommentary, map[string]any{
				"text":  c.Comment(ctx, scene),
				"scene": scene,
			})
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
