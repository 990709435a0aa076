package httpapi

import (
	"net/http"
	"time"

	"pulsecall/internal/reporting"

	"github.com/gin-gonic/gin"
)

const defaultReportWindow = 7 * 24 * time.Hour

// CallsReport summarizes outcomes per campaign. from/to are RFC 3339 and
// default to the last seven days.
func (h Handlers) CallsReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	to := time.Now().UTC()
	from := to.Add(-defaultReportWindow)
	var err error
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		if c.Query("from") == "" {
			from = to.Add(-defaultReportWindow)
		}
	}
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
	}

	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		Range:      reporting.TimeRange{From: from, To: to},
		CampaignID: c.Query("campaign_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
