package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"pulsecall/internal/auth"
	"pulsecall/internal/orchestrator"
	"pulsecall/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 200

type outboundRequest struct {
	UserID     string `json:"user_id"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// TriggerOutbound places a call. A dialer failure still returns the record id
// (now in BUSY_RETRY) with 502.
func (h Handlers) TriggerOutbound(c *gin.Context) {
	if h.Orchestrator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "orchestrator not configured"})
		return
	}
	var req outboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	actorID, _ := auth.ActorID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())

	p, err := h.Orchestrator.TriggerOutbound(c.Request.Context(), orchestrator.OutboundRequest{
		UserID:     req.UserID,
		CampaignID: req.CampaignID,
		ActorID:    actorID,
		ActorRole:  role,
		IP:         c.ClientIP(),
	})
	if errors.Is(err, orchestrator.ErrPlacementFailed) {
		logger.FromGin(c).Warn("call placement failed", "call_id", p.CallID, "err", err)
		c.JSON(http.StatusBadGateway, p)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListUserCalls returns a recipient's call history, newest first.
func (h Handlers) ListUserCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	userID := c.Param("user_id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := h.Calls.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "calls": recs})
}
