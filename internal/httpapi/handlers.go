package httpapi

import (
	"context"
	"errors"
	"net/http"

	"pulsecall/internal/calls"
	"pulsecall/internal/campaigns"
	"pulsecall/internal/escalation"
	"pulsecall/internal/orchestrator"
	"pulsecall/internal/reporting"
	"pulsecall/internal/telephony"
	"pulsecall/internal/triage"
	"pulsecall/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Calls        calls.Repository
	Escalations  *escalation.Service
	Reports      *reporting.Service

	// Ready reports backing-store health for /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
}

func (h Handlers) Health(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain sentinels to HTTP status codes. Unknown errors are
// logged and reported as 500 without leaking details.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, telephony.ErrInvalidPayload),
		errors.Is(err, triage.ErrInvalidMetrics),
		errors.Is(err, calls.ErrInvalidRecord),
		errors.Is(err, escalation.ErrInvalidEscalation),
		errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, calls.ErrNotFound),
		errors.Is(err, escalation.ErrNotFound),
		errors.Is(err, campaigns.ErrCampaignNotFound),
		errors.Is(err, campaigns.ErrRecipientNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
