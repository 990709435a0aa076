package escalation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("escalation: not found")
	ErrDuplicateEscalation = errors.New("escalation: already exists for call")
	ErrInvalidEscalation   = errors.New("escalation: invalid escalation")
)

// Repository is the persistence contract for the ledger.
//
// Insert must reject a second row for the same call_id with ErrDuplicateEscalation.
// Acknowledge must only change rows still open and report whether it did.
type Repository interface {
	Insert(ctx context.Context, e Escalation) error
	Get(ctx context.Context, id string) (Escalation, error)
	FindByCallID(ctx context.Context, callID string) (Escalation, bool, error)
	List(ctx context.Context, f ListFilter) ([]Escalation, error)
	ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Escalation, error)
	Acknowledge(ctx context.Context, id, actorID string, at time.Time) (Escalation, bool, error)
}

// AuditLogger records ledger events on the internal audit trail.
type AuditLogger interface {
	LogEscalationCreated(ctx context.Context, e Escalation) error
	LogEscalationAcknowledged(ctx context.Context, e Escalation, actorRole, ip string) error
}

// Service is the Escalation Ledger. It exclusively owns escalation lifecycle.
type Service struct {
	repo  Repository
	audit AuditLogger
	clock func() time.Time
}

type Option func(*Service)

// WithClock sets the time source for CreatedAt and AcknowledgedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

func NewService(repo Repository, audit AuditLogger, opts ...Option) *Service {
	s := &Service{repo: repo, audit: audit, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends a new open escalation. ID, CreatedAt and Status are assigned
// here; callers supply the call reference, priority and payload.
func (s *Service) Create(ctx context.Context, e Escalation) (Escalation, error) {
	if s.repo == nil {
		return Escalation{}, errors.New("escalation: repository not configured")
	}
	if e.CallID == "" || e.CampaignID == "" || !e.Priority.Valid() {
		return Escalation{}, ErrInvalidEscalation
	}

	e.ID = uuid.NewString()
	e.Status = StatusOpen
	e.CreatedAt = s.clock().UTC()
	e.AcknowledgedAt = nil
	e.AcknowledgedBy = ""
	if e.DetectedFlags == nil {
		e.DetectedFlags = []string{}
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return Escalation{}, err
	}
	if s.audit != nil {
		// Best-effort: the ledger row is the source of truth.
		_ = s.audit.LogEscalationCreated(ctx, e)
	}
	return e, nil
}

func (s *Service) FindByCallID(ctx context.Context, callID string) (Escalation, bool, error) {
	if callID == "" {
		return Escalation{}, false, ErrInvalidEscalation
	}
	return s.repo.FindByCallID(ctx, callID)
}

func (s *Service) Get(ctx context.Context, id string) (Escalation, error) {
	return s.repo.Get(ctx, id)
}

// List returns escalations by priority (high first) then creation time.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Escalation, error) {
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	SortForQueue(out)
	return out, nil
}

// Acknowledge marks an escalation handled. Repeated calls return the existing
// record and timestamp unchanged.
func (s *Service) Acknowledge(ctx context.Context, id, actorID, actorRole, ip string) (Escalation, error) {
	if id == "" {
		return Escalation{}, ErrInvalidEscalation
	}
	e, changed, err := s.repo.Acknowledge(ctx, id, actorID, s.clock().UTC())
	if err != nil {
		return Escalation{}, err
	}
	if changed && s.audit != nil {
		_ = s.audit.LogEscalationAcknowledged(ctx, e, actorRole, ip)
	}
	return e, nil
}

// SortForQueue orders escalations the way operators work them.
func SortForQueue(es []Escalation) {
	sort.SliceStable(es, func(i, j int) bool {
		ri, rj := es[i].Priority.Rank(), es[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return es[i].CreatedAt.Before(es[j].CreatedAt)
	})
}
