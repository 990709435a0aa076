package httpapi

import (
	"net/http"

	"pulsecall/internal/telephony"
	"pulsecall/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PostCallWebhook receives the provider's end-of-call report.
// Duplicate deliveries are answered 200 with status already_processed.
func (h Handlers) PostCallWebhook(c *gin.Context) {
	if h.Orchestrator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "orchestrator not configured"})
		return
	}
	var ev telephony.PostCallEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Orchestrator.HandlePostCall(c.Request.Context(), ev)
	if err != nil {
		logger.FromGin(c).Warn("post-call webhook rejected", "provider_call_id", ev.CallID, "err", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) AnalyticsWebhook(c *gin.Context) {
	if h.Orchestrator == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "orchestrator not configured"})
		return
	}
	var ev telephony.AnalyticsEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Orchestrator.HandleAnalytics(c.Request.Context(), ev)
	if err != nil {
		logger.FromGin(c).Warn("analytics webhook rejected", "provider_call_id", ev.CallID, "err", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
