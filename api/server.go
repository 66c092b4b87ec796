// Package api exposes the world over HTTP. Handlers translate JSON to calls
// on the world, the conversation DAG and the agent store.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/communication"
	"github.com/kmh4500/ainspace/conversation"
	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/storage"
	"github.com/kmh4500/ainspace/world"
)

// CardFetcher resolves an agent card URL.
type CardFetcher interface {
	FetchCard(ctx context.Context, cardURL string) (a2a.AgentCard, error)
}

// Broadcaster pushes events to connected browsers.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
	Deliver(responses []core.AgentResponse)
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Publisher mirrors chat traffic onto the message bus.
type Publisher interface {
	PublishChat(ev communication.ChatEvent) error
	PublishResponses(responses []core.AgentResponse) error
}

// Deps are the collaborators a Server routes to. Hub and Bus are optional.
type Deps struct {
	World   *world.World
	DAG     *conversation.DAG
	Store   storage.AgentStore
	Cards   CardFetcher
	Hub     Broadcaster
	Bus     Publisher
	Logger  *zap.Logger
	Radius  float64
	ViewRad int
	// AgentOptions are applied to every agent spawned through the API.
	AgentOptions []agent.Option
}

type Server struct {
	Deps
	router *gin.Engine
	now    func() time.Time
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Radius == 0 {
		deps.Radius = core.BroadcastRadius
	}
	if deps.ViewRad == 0 {
		deps.ViewRad = 10
	}
	if deps.DAG == nil {
		deps.DAG = conversation.New()
	}
	if deps.Store == nil {
		deps.Store = storage.NewMemoryStore()
	}

	s := &Server{Deps: deps, now: time.Now}
	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger(deps.Logger))
	s.SetupRoutes(s.router)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.Logger.Info("API listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
