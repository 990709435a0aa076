package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogNotifierFailed records an escalation whose operator alert could not be delivered.
func (s *Service) LogNotifierFailed(ctx context.Context, campaignID, callID, escalationID string, cause error) error {
	msg := "notifier failed"
	if cause != nil {
		msg = "notifier failed: " + cause.Error()
	}
	return s.Append(ctx, Event{
		Type:         EventTypeNotifierFailed,
		CampaignID:   campaignID,
		CallID:       callID,
		EscalationID: escalationID,
		Message:      msg,
	})
}

// LogPlacementFailed records an outbound call the dialer refused or could not reach.
func (s *Service) LogPlacementFailed(ctx context.Context, actorID, actorRole, ip, campaignID, callID string, cause error) error {
	msg := "call placement failed"
	if cause != nil {
		msg = "call placement failed: " + cause.Error()
	}
	return s.Append(ctx, Event{
		Type:       EventTypePlacementFailed,
		ActorID:    actorID,
		ActorRole:  actorRole,
		IPAddress:  ip,
		CampaignID: campaignID,
		CallID:     callID,
		Message:    msg,
	})
}

// Metadata encodes v as the JSON metadata column; encoding failures yield "".
func Metadata(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
