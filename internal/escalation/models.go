package escalation

import "time"

// Escalation is a case requiring human operator attention.
//
// Invariants:
// - At most one escalation per CallID.
// - CreatedAt is set once.
// - Status moves open -> acknowledged only; AcknowledgedAt never changes once set.
type Escalation struct {
	ID         string `json:"id" db:"id"`
	CallID     string `json:"call_id" db:"call_id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	Priority Priority `json:"priority" db:"priority"`
	Status   Status   `json:"status" db:"status"`
	Source   Source   `json:"source" db:"source"`

	Reason        string   `json:"reason" db:"reason"`
	DetectedFlags []string `json:"detected_flags" db:"detected_flags"`

	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for listing; unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

func (p Priority) Valid() bool { return p.Rank() < 3 }

type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
)

// Source records which triage path raised the escalation.
type Source string

const (
	SourceVitals     Source = "vitals"
	SourceTranscript Source = "transcript"
)

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	Status     Status
	CampaignID string
}

// PriorityForSentiment maps a 1..5 transcript sentiment to a priority.
func PriorityForSentiment(score int) Priority {
	switch {
	case score <= 2:
		return PriorityHigh
	case score == 3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
