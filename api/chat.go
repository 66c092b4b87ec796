package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kmh4500/ainspace/communication"
	"github.com/kmh4500/ainspace/conversation"
	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/world"
)

type chatRequest struct {
	Content  string   `json:"content"`
	ThreadID string   `json:"threadId"`
	Radius   *float64 `json:"radius"`
	X        *int     `json:"x"`
	Y        *int     `json:"y"`
}

type chatResponse struct {
	MessageID  string               `json:"messageId"`
	ThreadID   string               `json:"threadId,omitempty"`
	Addressing world.Addressing     `json:"addressing"`
	Mentions   []string             `json:"mentions"`
	Responses  []core.AgentResponse `json:"responses"`
}

// handleChat dispatches a player message. Without a radius the configured
// broadcast radius applies; a negative radius opens the floor to every agent.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat request"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if req.X != nil && req.Y != nil {
		s.World.SetPlayer(core.Position{X: *req.X, Y: *req.Y})
	}

	msgID := uuid.New().String()
	if err := s.DAG.AddRoot(msgID, req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	radius := s.Radius
	if req.Radius != nil {
		radius = *req.Radius
	}
	opts := []world.SendOption{world.WithMessageID(msgID)}
	if req.ThreadID != "" {
		opts = append(opts, world.InThread(req.ThreadID))
	}
	if radius >= 0 {
		opts = append(opts, world.WithinRadius(radius))
	}

	s.publishChat(communication.ChatEvent{
		MessageID: msgID,
		ThreadID:  req.ThreadID,
		Content:   req.Content,
		Player:    s.World.Player(),
		Timestamp: s.now(),
	})

	result := s.World.Send(c.Request.Context(), req.Content, opts...)

	if len(result.Responses) > 0 {
		nodes := make([]conversation.Response, len(result.Responses))
		for i, r := range result.Responses {
			nodes[i] = conversation.Response{
				ID:        uuid.New().String(),
				Content:   r.Message,
				AgentID:   r.AgentID,
				AgentName: r.AgentName,
			}
		}
		if err := s.DAG.AddResponses(msgID, nodes); err != nil {
			s.Logger.Warn("Failed to record responses", zap.String("messageId", msgID), zap.Error(err))
		}
	}
	s.publishResponses(result.Responses)

	responses := result.Responses
	if responses == nil {
		responses = []core.AgentResponse{}
	}
	mentions := result.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	c.JSON(http.StatusOK, chatResponse{
		MessageID:  msgID,
		ThreadID:   result.ThreadID,
		Addressing: result.Addressing,
		Mentions:   mentions,
		Responses:  responses,
	})
}

func (s *Server) publishChat(ev communication.ChatEvent) {
	if s.Hub != nil {
		s.Hub.Broadcast(communication.EventChatMessage, ev)
	}
	if s.Bus != nil {
		if err := s.Bus.PublishChat(ev); err != nil {
			s.Logger.Warn("Failed to publish chat message", zap.Error(err))
		}
	}
}

func (s *Server) publishResponses(responses []core.AgentResponse) {
	if len(responses) == 0 {
		return
	}
	if s.Hub != nil {
		s.Hub.Deliver(responses)
	}
	if s.Bus != nil {
		if err := s.Bus.PublishResponses(responses); err != nil {
			s.Logger.Warn("Failed to publish responses", zap.Error(err))
		}
	}
}

func (s *Server) handleSuggestions(c *gin.Context) {
	matches := s.World.Suggestions(c.Query("q"))
	names := make([]string, len(matches))
	for i, a := range matches {
		names[i] = a.Name()
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": names})
}

func (s *Server) handleThread(c *gin.Context) {
	path := s.DAG.ThreadPath(c.Param("id"))
	if len(path) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": path})
}

func (s *Server) handleResponses(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.DAG.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	responses := s.DAG.ResponsesOf(id)
	if responses == nil {
		responses = []conversation.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (s *Server) handleConversation(c *gin.Context) {
	c.JSON(http.StatusOK, s.DAG.Tree())
}

func (s *Server) handleConversationStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.DAG.Stats())
}
