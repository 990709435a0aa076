package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and STORE_BACKEND=memory.
// A single mutex makes every Transition an atomic compare-and-swap.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]Record{}}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := validateNew(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return ErrInvalidRecord
	}
	if rec.ProviderCallID != "" {
		for _, existing := range r.records {
			if existing.ProviderCallID == rec.ProviderCallID && !existing.State.IsTerminal() {
				return ErrDuplicateProviderCallID
			}
		}
	}
	r.records[rec.ID] = clone(rec)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(rec), nil
}

// GetByProviderCallID prefers the non-terminal record; otherwise it returns the
// most recently updated terminal one so redeliveries resolve to already-processed.
func (r *MemoryRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Record, error) {
	if providerCallID == "" {
		return Record{}, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		best  Record
		found bool
	)
	for _, rec := range r.records {
		if rec.ProviderCallID != providerCallID {
			continue
		}
		if !rec.State.IsTerminal() {
			return clone(rec), nil
		}
		if !found || rec.UpdatedAt.After(best.UpdatedAt) {
			best, found = rec, true
		}
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return clone(best), nil
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, t Transition, now time.Time) (Record, error) {
	if err := validateTransition(t); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.State != t.From {
		return Record{}, ErrStateConflict
	}

	rec.State = t.To
	rec.UpdatedAt = now
	if t.To.IsTerminal() {
		rec.Summary = t.Summary
		rec.SentimentScore = t.SentimentScore
		rec.DetectedFlags = append([]string(nil), t.DetectedFlags...)
		rec.RecommendedAction = t.RecommendedAction
		rec.TriageClassification = t.TriageClassification
		rec.TriageReason = t.TriageReason
	}
	r.records[id] = rec
	return clone(rec), nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	r.mu.Lock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, clone(rec))
		}
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		if campaignID != "" && rec.CampaignID != campaignID {
			continue
		}
		out = append(out, clone(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func clone(r Record) Record {
	if r.DetectedFlags != nil {
		r.DetectedFlags = append([]string(nil), r.DetectedFlags...)
	}
	if r.Summary != nil {
		s := *r.Summary
		r.Summary = &s
	}
	if r.SentimentScore != nil {
		n := *r.SentimentScore
		r.SentimentScore = &n
	}
	if r.RecommendedAction != nil {
		s := *r.RecommendedAction
		r.RecommendedAction = &s
	}
	return r
}
