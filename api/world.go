package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kmh4500/ainspace/core"
	"github.com/kmh4500/ainspace/worldgen"
)

const maxMapSide = 201

type worldResponse struct {
	Player core.Position     `json:"player"`
	Agents []core.AgentState `json:"agents"`
}

func (s *Server) handleWorld(c *gin.Context) {
	c.JSON(http.StatusOK, worldResponse{Player: s.World.Player(), Agents: s.World.States()})
}

type playerRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

func (s *Server) handleSetPlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x and y are required"})
		return
	}
	p := core.Position{X: *req.X, Y: *req.Y}
	s.World.SetPlayer(p)
	c.JSON(http.StatusOK, gin.H{"player": p})
}

type queryInt struct {
	key string
	dst *int
}

type mapResponse struct {
	Center core.Position       `json:"center"`
	Width  int                 `json:"width"`
	Height int                 `json:"height"`
	Radius float64             `json:"radius,omitempty"`
	Biome  string              `json:"biome"`
	Tiles  [][]worldgen.TileID `json:"tiles"`
}

// handleMap renders a window of the procedural world centred on the player
// unless x and y are given. A positive radius blanks tiles outside it.
func (s *Server) handleMap(c *gin.Context) {
	center := s.World.Player()
	side := 2*s.ViewRad + 1

	width, height := side, side
	var err error
	ints := []queryInt{{"x", &center.X}, {"y", &center.Y}, {"width", &width}, {"height", &height}}
	for _, q := range ints {
		raw, ok := c.GetQuery(q.key)
		if !ok {
			continue
		}
		if *q.dst, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + q.key})
			return
		}
	}
	if width <= 0 || height <= 0 || width > maxMapSide || height > maxMapSide {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height must be between 1 and " + strconv.Itoa(maxMapSide)})
		return
	}

	var radius float64
	if raw, ok := c.GetQuery("radius"); ok {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
			return
		}
	}

	var tiles [][]worldgen.TileID
	if radius > 0 {
		tiles = worldgen.CircularWindow(center.X, center.Y, width, height, radius)
	} else {
		tiles = worldgen.Window(center.X, center.Y, width, height)
	}
	c.JSON(http.StatusOK, mapResponse{
		Center: center,
		Width:  width,
		Height: height,
		Radius: radius,
		Biome:  worldgen.BiomeAt(center.X, center.Y).String(),
		Tiles:  tiles,
	})
}
