package campaigns

import "time"

// Campaign configures the agent and the escalation keywords for a batch of calls.
type Campaign struct {
	ID               string `json:"id" db:"id"`
	Name             string `json:"name" db:"name"`
	AgentPersona     string `json:"agent_persona" db:"agent_persona"`
	ConversationGoal string `json:"conversation_goal" db:"conversation_goal"`
	SystemPrompt     string `json:"system_prompt" db:"system_prompt"`

	EscalationKeywords []string `json:"escalation_keywords" db:"escalation_keywords"`

	// OperatorPhone overrides the default alert target for this campaign.
	OperatorPhone string `json:"operator_phone,omitempty" db:"operator_phone"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Recipient is the person a campaign calls. Recipient.ID is the user_id on call records.
type Recipient struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	Name       string `json:"name" db:"name"`
	Phone      string `json:"phone" db:"phone"`
	Email      string `json:"email,omitempty" db:"email"`
}

const (
	DemoCampaignID  = "cmp_demo_001"
	DemoRecipientID = "usr_demo_001"
)

// DemoCampaign is the seed campaign loaded by the memory directory.
func DemoCampaign(now time.Time) Campaign {
	return Campaign{
		ID:                 DemoCampaignID,
		Name:               "Care Plan Renewal",
		AgentPersona:       "Calm healthcare outreach specialist",
		ConversationGoal:   "Confirm whether recipient wants help renewing care plan.",
		SystemPrompt:       "Be concise, empathetic, and clear. Ask one question at a time.",
		EscalationKeywords: []string{"cancel", "complaint", "lawyer", "fraud"},
		CreatedAt:          now,
	}
}

func DemoRecipient() Recipient {
	return Recipient{
		ID:         DemoRecipientID,
		CampaignID: DemoCampaignID,
		Name:       "Alex Johnson",
		Phone:      "+1-555-0100",
		Email:      "alex@example.com",
	}
}
