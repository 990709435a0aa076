package httpapi

import (
	"net/http"

	"pulsecall/internal/auth"
	"pulsecall/internal/escalation"

	"github.com/gin-gonic/gin"
)

// ListEscalations returns the operator queue, high priority first.
func (h Handlers) ListEscalations(c *gin.Context) {
	if h.Escalations == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "escalations not configured"})
		return
	}
	f := escalation.ListFilter{
		Status:     escalation.Status(c.Query("status")),
		CampaignID: c.Query("campaign_id"),
	}
	switch f.Status {
	case "", escalation.StatusOpen, escalation.StatusAcknowledged:
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status must be open or acknowledged"})
		return
	}

	list, err := h.Escalations.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalations": list})
}

// AcknowledgeEscalation is idempotent: a second call returns the original
// acknowledged_at and acknowledged_by.
func (h Handlers) AcknowledgeEscalation(c *gin.Context) {
	if h.Escalations == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "escalations not configured"})
		return
	}
	actorID, err := auth.ActorID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "actor_id required"})
		return
	}
	role, _ := auth.Role(c.Request.Context())

	e, err := h.Escalations.Acknowledge(c.Request.Context(), c.Param("id"), actorID, role, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
