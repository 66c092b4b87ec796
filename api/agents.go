package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/a2a"
	"github.com/kmh4500/ainspace/agent"
	"github.com/kmh4500/ainspace/communication"
	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/storage"
	"github.com/kmh4500/ainspace/world"
)

const (
	defaultRemoteColor  = "#8B5CF6"
	defaultLocalColor   = "#FFD700"
	defaultMoveInterval = 1500 * time.Millisecond
)

type importRequest struct {
	AgentURL string `json:"agentUrl" binding:"required"`
}

func (s *Server) handleListAgents(c *gin.Context) {
	recs, err := s.Store.ListAgents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": recs})
}

// handleImportAgent fetches and validates the card, then stores the record.
func (s *Server) handleImportAgent(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agentUrl is required"})
		return
	}
	if s.Cards == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Agent import is not configured"})
		return
	}

	card, err := s.Cards.FetchCard(c.Request.Context(), req.AgentURL)
	switch {
	case errors.Is(err, a2a.ErrInvalidCard):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	rec := storage.AgentRecord{URL: req.AgentURL, Card: card, Timestamp: s.now()}
	if err := s.Store.SaveAgent(rec); err != nil {
		if errors.Is(err, storage.ErrAgentExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Agent already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Info("Imported agent", zap.String("url", rec.URL), zap.String("name", card.Name))
	c.JSON(http.StatusCreated, gin.H{"success": true, "agent": rec})
}

func (s *Server) handleDeleteAgent(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	if err := s.Store.DeleteAgent(url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type spawnRequest struct {
	AgentURL       string `json:"agentUrl"`
	Behavior       string `json:"behavior"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	X              int    `json:"x"`
	Y              int    `json:"y"`
	MoveIntervalMs int    `json:"moveIntervalMs"`
}

// handleSpawnAgent places an agent in the world: a stored remote agent when
// agentUrl is given, otherwise a local agent of the requested behavior.
func (s *Server) handleSpawnAgent(c *gin.Context) {
	var req spawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent data"})
		return
	}

	var (
		a   agent.Agent
		err error
	)
	if req.AgentURL != "" {
		a, err = s.remoteFromStore(req)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Agent not imported"})
			return
		}
	} else {
		a, err = s.localFromRequest(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.World.Add(a); err != nil {
		if errors.Is(err, world.ErrDuplicateAgent) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	state := a.State()
	if s.Hub != nil {
		s.Hub.Broadcast(communication.EventAgentSpawned, state)
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) remoteFromStore(req spawnRequest) (agent.Agent, error) {
	rec, err := s.Store.GetAgent(req.AgentURL)
	if err != nil {
		return nil, err
	}
	state := core.AgentState{
		ID:        req.ID,
		Name:      req.Name,
		Color:     req.Color,
		Position:  core.Position{X: req.X, Y: req.Y},
		Direction: core.Down,
		Endpoint:  rec.URL,
		Skills:    rec.Card.Skills,
	}
	if state.ID == "" {
		state.ID = "a2a-" + uuid.New().String()
	}
	if state.Name == "" {
		state.Name = rec.Card.Name
	}
	if state.Color == "" {
		state.Color = defaultRemoteColor
	}
	return agent.NewRemote(state, s.AgentOptions...), nil
}

func (s *Server) localFromRequest(req spawnRequest) (agent.Agent, error) {
	kind, err := core.ParseBehaviorKind(req.Behavior)
	if err != nil {
		return nil, err
	}
	if !kind.IsLocal() {
		return nil, errors.New("remote agents are spawned by agentUrl")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("name is required")
	}

	state := core.AgentState{
		ID:           req.ID,
		Name:         req.Name,
		Color:        req.Color,
		Position:     core.Position{X: req.X, Y: req.Y},
		Behavior:     kind,
		Direction:    core.Down,
		MoveInterval: time.Duration(req.MoveIntervalMs) * time.Millisecond,
	}
	if state.ID == "" {
		state.ID = "agent-" + uuid.New().String()
	}
	if state.Color == "" {
		state.Color = defaultLocalColor
	}
	if state.MoveInterval <= 0 {
		state.MoveInterval = defaultMoveInterval
	}
	return agent.New(kind, state, s.AgentOptions...)
}

func (s *Server) handleRemoveAgent(c *gin.Context) {
	id := c.Param("id")
	if !s.World.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	if s.Hub != nil {
		s.Hub.Broadcast(communication.EventAgentRemoved, gin.H{"id": id})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
