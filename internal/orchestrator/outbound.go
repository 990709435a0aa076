package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"pulsecall/internal/calls"
	"pulsecall/internal/retry"
	"pulsecall/internal/telephony"

	"github.com/google/uuid"
)

const (
	PlacementPlaced = "call_placed"
	PlacementFailed = "placement_failed"
)

// OutboundRequest asks for one call to a recipient. CampaignID defaults to
// the recipient's campaign.
type OutboundRequest struct {
	UserID     string
	CampaignID string

	// Actor fields feed the audit trail.
	ActorID   string
	ActorRole string
	IP        string
}

type Placement struct {
	Status         string `json:"status"`
	CallID         string `json:"call_id"`
	ProviderCallID string `json:"provider_call_id,omitempty"`
}

// TriggerOutbound asks the dialer to place a call and records the attempt.
//
// On success the record is PENDING. When the dialer errors or returns no
// provider id the record starts in BUSY_RETRY, a retry is enqueued, and the
// returned error wraps ErrPlacementFailed alongside a usable Placement.
func (o *Orchestrator) TriggerOutbound(ctx context.Context, req OutboundRequest) (Placement, error) {
	if req.UserID == "" {
		return Placement{}, fmt.Errorf("%w: user_id is required", calls.ErrInvalidRecord)
	}
	recipient, err := o.Directory.GetRecipient(ctx, req.UserID)
	if err != nil {
		return Placement{}, err
	}
	campaignID := req.CampaignID
	if campaignID == "" {
		campaignID = recipient.CampaignID
	}
	campaign, err := o.Directory.GetCampaign(ctx, campaignID)
	if err != nil {
		return Placement{}, err
	}

	log := o.logger(ctx)
	callID := uuid.NewString()

	providerCallID, dialErr := o.Dialer.PlaceOutboundCall(ctx, telephony.OutboundCallRequest{
		CallID:       callID,
		UserID:       recipient.ID,
		CampaignID:   campaign.ID,
		To:           recipient.Phone,
		SystemPrompt: campaign.SystemPrompt,
		Greeting:     campaign.ConversationGoal,
	})

	now := o.now()
	rec := calls.Record{
		ID:         callID,
		UserID:     recipient.ID,
		CampaignID: campaign.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if dialErr == nil && providerCallID != "" {
		rec.State = calls.StatePending
		rec.ProviderCallID = providerCallID
		if err := o.Calls.Create(ctx, rec); err != nil {
			return Placement{}, err
		}
		log.Info("outbound call placed", "call_id", callID, "provider_call_id", providerCallID, "dialer", o.Dialer.Name())
		return Placement{Status: PlacementPlaced, CallID: callID, ProviderCallID: providerCallID}, nil
	}

	cause := dialErr
	if cause == nil {
		cause = errors.New("dialer returned no provider call id")
	}

	rec.State = calls.StateBusyRetry
	if err := o.Calls.Create(ctx, rec); err != nil {
		return Placement{}, err
	}
	if err := o.Retry.Enqueue(ctx, retry.Job{
		CallID:     callID,
		UserID:     recipient.ID,
		CampaignID: campaign.ID,
		Reason:     PlacementFailed,
		NotBefore:  now.Add(o.Policy.RetryDelay),
	}); err != nil {
		log.Error("retry enqueue failed", "call_id", callID, "err", err)
	}
	if o.Audit != nil {
		_ = o.Audit.LogPlacementFailed(ctx, req.ActorID, req.ActorRole, req.IP, campaign.ID, callID, cause)
	}
	log.Warn("outbound call placement failed", "call_id", callID, "dialer", o.Dialer.Name(), "err", cause)

	return Placement{Status: PlacementFailed, CallID: callID}, fmt.Errorf("%w: %w", ErrPlacementFailed, cause)
}
