package escalation

import (
	"context"

	"pulsecall/internal/audit"
)

// AuditAdapter bridges the ledger's audit hook to the shared audit.Service.
type AuditAdapter struct {
	Audit *audit.Service
}

func (a AuditAdapter) LogEscalationCreated(ctx context.Context, e Escalation) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.Append(ctx, audit.Event{
		Type:         audit.EventTypeEscalationCreated,
		CampaignID:   e.CampaignID,
		CallID:       e.CallID,
		EscalationID: e.ID,
		Message:      "escalation created: " + string(e.Priority),
		Metadata: audit.Metadata(map[string]any{
			"source":         e.Source,
			"reason":         e.Reason,
			"detected_flags": e.DetectedFlags,
		}),
	})
}

func (a AuditAdapter) LogEscalationAcknowledged(ctx context.Context, e Escalation, actorRole, ip string) error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.Append(ctx, audit.Event{
		Type:         audit.EventTypeEscalationAcknowledged,
		ActorID:      e.AcknowledgedBy,
		ActorRole:    actorRole,
		IPAddress:    ip,
		CampaignID:   e.CampaignID,
		CallID:       e.CallID,
		EscalationID: e.ID,
		Message:      "escalation acknowledged",
	})
}
