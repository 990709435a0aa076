package campaigns

import (
	"context"
	"errors"
)

var (
	ErrCampaignNotFound  = errors.New("campaigns: campaign not found")
	ErrRecipientNotFound = errors.New("campaigns: recipient not found")
)

// Directory is the read-only lookup the orchestrator uses. Campaign CRUD
// lives elsewhere.
type Directory interface {
	GetCampaign(ctx context.Context, id string) (Campaign, error)
	GetRecipient(ctx context.Context, id string) (Recipient, error)
}
