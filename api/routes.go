package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes initializes all API endpoints
func (s *Server) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/suggestions", s.handleSuggestions)

		api.GET("/agents", s.handleListAgents)
		api.POST("/agents", s.handleImportAgent)
		api.DELETE("/agents", s.handleDeleteAgent)

		api.GET("/world", s.handleWorld)
		api.PUT("/player", s.handleSetPlayer)
		api.POST("/world/agents", s.handleSpawnAgent)
		api.DELETE("/world/agents/:id", s.handleRemoveAgent)
		api.GET("/map", s.handleMap)

		api.GET("/messages/:id/thread", s.handleThread)
		api.GET("/messages/:id/responses", s.handleResponses)
		api.GET("/conversation", s.handleConversation)
		api.GET("/conversation/stats", s.handleConversationStats)
	}

	if s.Hub != nil {
		router.GET("/ws", gin.WrapF(s.Hub.ServeWS))
	}
}
