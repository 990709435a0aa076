package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage (Postgres):
// - Table audit_events with an INSERT-only policy (see migrations/001_init.sql).

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorID is the authenticated operator causing the event (if applicable).
	ActorID   string `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	CampaignID   string `json:"campaign_id,omitempty" db:"campaign_id"`
	CallID       string `json:"call_id,omitempty" db:"call_id"`
	EscalationID string `json:"escalation_id,omitempty" db:"escalation_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeEscalationCreated      EventType = "escalation_created"
	EventTypeEscalationAcknowledged EventType = "escalation_acknowledged"
	EventTypeNotifierFailed         EventType = "notifier_failed"
	EventTypePlacementFailed        EventType = "call_placement_failed"
)
