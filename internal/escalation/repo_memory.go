package escalation

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and STORE_BACKEND=memory.
type MemoryRepo struct {
	mu     sync.Mutex
	byID   map[string]Escalation
	byCall map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]Escalation{}, byCall: map[string]string{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, e Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCall[e.CallID]; ok {
		return ErrDuplicateEscalation
	}
	r.byID[e.ID] = cloneEscalation(e)
	r.byCall[e.CallID] = e.ID
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return Escalation{}, ErrNotFound
	}
	return cloneEscalation(e), nil
}

func (r *MemoryRepo) FindByCallID(ctx context.Context, callID string) (Escalation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCall[callID]
	if !ok {
		return Escalation{}, false, nil
	}
	return cloneEscalation(r.byID[id]), true, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Escalation, 0, len(r.byID))
	for _, e := range r.byID {
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.CampaignID != "" && e.CampaignID != f.CampaignID {
			continue
		}
		out = append(out, cloneEscalation(e))
	}
	return out, nil
}

func (r *MemoryRepo) ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Escalation, 0)
	for _, e := range r.byID {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		if campaignID != "" && e.CampaignID != campaignID {
			continue
		}
		out = append(out, cloneEscalation(e))
	}
	return out, nil
}

func (r *MemoryRepo) Acknowledge(ctx context.Context, id, actorID string, at time.Time) (Escalation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return Escalation{}, false, ErrNotFound
	}
	if e.Status == StatusAcknowledged {
		return cloneEscalation(e), false, nil
	}
	e.Status = StatusAcknowledged
	e.AcknowledgedAt = &at
	e.AcknowledgedBy = actorID
	r.byID[id] = e
	return cloneEscalation(e), true, nil
}

func cloneEscalation(e Escalation) Escalation {
	if e.DetectedFlags != nil {
		flags := make([]string, len(e.DetectedFlags))
		copy(flags, e.DetectedFlags)
		e.DetectedFlags = flags
	}
	if e.AcknowledgedAt != nil {
		t := *e.AcknowledgedAt
		e.AcknowledgedAt = &t
	}
	return e
}
