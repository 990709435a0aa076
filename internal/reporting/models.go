package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call outcomes.
// CampaignID is optional; empty means every campaign.
type CallsSummaryRequest struct {
	Range      TimeRange `json:"range"`
	CampaignID string    `json:"campaign_id,omitempty"`
}

// CallsSummary totals outcomes for the requested range, with a breakdown
// per campaign sorted by campaign id.
type CallsSummary struct {
	Range      TimeRange `json:"range"`
	CampaignID string    `json:"campaign_id,omitempty"`

	Totals    CampaignOutcomes   `json:"totals"`
	Campaigns []CampaignOutcomes `json:"campaigns"`
}

type CampaignOutcomes struct {
	CampaignID string `json:"campaign_id,omitempty"`

	TotalCalls     int `json:"total_calls"`
	PendingCalls   int `json:"pending_calls"`
	BusyRetryCalls int `json:"busy_retry_calls"`
	CompletedCalls int `json:"completed_calls"`
	EscalatedCalls int `json:"escalated_calls"`

	// AverageSentiment is over records that carry a sentiment score; nil when none do.
	AverageSentiment *float64 `json:"average_sentiment,omitempty"`
	EscalationRate   float64  `json:"escalation_rate"`

	OpenEscalations         int            `json:"open_escalations"`
	AcknowledgedEscalations int            `json:"acknowledged_escalations"`
	EscalationsByPriority   map[string]int `json:"escalations_by_priority"`

	sentimentSum   int
	sentimentCount int
}

// OutcomeRow is one (campaign, state) bucket of call records.
type OutcomeRow struct {
	CampaignID     string `db:"campaign_id"`
	State          string `db:"state"`
	Calls          int    `db:"calls"`
	SentimentSum   int    `db:"sentiment_sum"`
	SentimentCount int    `db:"sentiment_count"`
}

// EscalationRow is one (campaign, priority, status) bucket of escalations.
type EscalationRow struct {
	CampaignID  string `db:"campaign_id"`
	Priority    string `db:"priority"`
	Status      string `db:"status"`
	Escalations int    `db:"escalations"`
}
