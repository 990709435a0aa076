package calls

import "time"

// Record tracks one outbound call attempt.
//
// Invariants:
// - UserID and CampaignID never change after creation.
// - ProviderCallID is unique among non-terminal records.
// - Once State is terminal (COMPLETED/ESCALATED) the row is immutable.
// - Summary, SentimentScore, DetectedFlags and the triage fields are written
//   only together with a terminal transition.
type Record struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"user_id" db:"user_id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	// ProviderCallID is empty until the dialer accepts placement.
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	State State `json:"state" db:"state"`

	Summary           *string  `json:"summary,omitempty" db:"summary"`
	SentimentScore    *int     `json:"sentiment_score,omitempty" db:"sentiment_score"`
	DetectedFlags     []string `json:"detected_flags,omitempty" db:"detected_flags"`
	RecommendedAction *string  `json:"recommended_action,omitempty" db:"recommended_action"`

	TriageClassification string `json:"triage_classification,omitempty" db:"triage_classification"`
	TriageReason         string `json:"triage_reason,omitempty" db:"triage_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type State string

const (
	StatePending   State = "PENDING"
	StateBusyRetry State = "BUSY_RETRY"
	StateCompleted State = "COMPLETED"
	StateEscalated State = "ESCALATED"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateEscalated
}

func (s State) Valid() bool {
	switch s {
	case StatePending, StateBusyRetry, StateCompleted, StateEscalated:
		return true
	default:
		return false
	}
}

// Transition is a conditional state change. It is applied only if the record
// is still in From; derived fields are written in the same step.
type Transition struct {
	From State
	To   State

	Summary           *string
	SentimentScore    *int
	DetectedFlags     []string
	RecommendedAction *string

	TriageClassification string
	TriageReason         string
}

// canTransition lists the edges of the lifecycle graph.
func canTransition(from, to State) bool {
	switch from {
	case StatePending, StateBusyRetry:
		return to == StateBusyRetry || to == StateCompleted || to == StateEscalated
	default:
		return false
	}
}
