package telephony

import (
	"context"

	"github.com/google/uuid"
)

// Dialer is the provider-agnostic boundary for placing outbound calls.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - An empty provider call id with a nil error means the provider declined
//   to open a session; callers treat it the same as a transport failure.
type Dialer interface {
	Name() string
	PlaceOutboundCall(ctx context.Context, req OutboundCallRequest) (string, error)
}

// OutboundCallRequest carries what the provider needs to dial a recipient.
type OutboundCallRequest struct {
	// CallID is our record id; providers echo it back in metadata.
	CallID     string `json:"call_id"`
	UserID     string `json:"user_id"`
	CampaignID string `json:"campaign_id"`

	// To is E.164 where possible.
	To string `json:"to"`

	// SystemPrompt and Greeting shape the agent for this campaign.
	SystemPrompt string `json:"system_prompt,omitempty"`
	Greeting     string `json:"greeting,omitempty"`
}

// LocalDialer accepts every placement and mints a provider id.
// Used when DIALER_BASE_URL is unset, e.g. local development.
type LocalDialer struct {
	Prefix string
}

func (d LocalDialer) Name() string { return "local" }

func (d LocalDialer) PlaceOutboundCall(ctx context.Context, req OutboundCallRequest) (string, error) {
	prefix := d.Prefix
	if prefix == "" {
		prefix = "local-"
	}
	return prefix + uuid.NewString(), nil
}
