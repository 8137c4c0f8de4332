package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/feedrank/core"
)

type feedRequest struct {
	UserID  string   `json:"userId" binding:"required"`
	Limit   int      `json:"limit" binding:"gte=0"`
	Offset  int      `json:"offset" binding:"gte=0"`
	Exclude []string `json:"exclude"`

	// Explain 为 true 时返回各子分数
	Explain bool `json:"explain"`
}

type feedItem struct {
	VideoID   string          `json:"videoId"`
	Score     float64         `json:"score"`
	Reasons   []string        `json:"reasons"`
	Breakdown *core.Breakdown `json:"breakdown,omitempty"`
}

type feedResponse struct {
	Items []feedItem `json:"items"`
}

func (s *Server) handleFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := s.feed.GetPersonalizedFeed(c.Request.Context(), req.UserID, req.Limit, req.Offset, req.Exclude)
	resp := feedResponse{Items: make([]feedItem, 0, len(items))}
	for _, it := range items {
		fi := feedItem{VideoID: it.VideoID, Score: it.Score, Reasons: it.Reasons}
		if fi.Reasons == nil {
			fi.Reasons = []string{}
		}
		if req.Explain {
			bd := it.Breakdown
			fi.Breakdown = &bd
		}
		resp.Items = append(resp.Items, fi)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBehavior(c *gin.Context) {
	var b core.Behavior
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.tracker.Track(c.Request.Context(), b); err != nil {
		if core.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("track behavior failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	state := "healthy"
	result := gin.H{}
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			state = "degraded"
			if !s.soft[name] {
				status = http.StatusServiceUnavailable
			}
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	c.JSON(status, gin.H{"status": state, "checks": result})
}
