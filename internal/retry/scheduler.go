package retry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrInvalidJob = errors.New("retry: invalid job")

// Job asks the external scheduler to re-attempt placement for a call.
type Job struct {
	CallID         string    `json:"call_id"`
	UserID         string    `json:"user_id"`
	CampaignID     string    `json:"campaign_id"`
	ProviderCallID string    `json:"provider_call_id,omitempty"`
	Reason         string    `json:"reason"`
	NotBefore      time.Time `json:"not_before"`
}

func (j Job) Validate() error {
	if j.CallID == "" || j.UserID == "" || j.CampaignID == "" {
		return ErrInvalidJob
	}
	return nil
}

// Scheduler is the enqueue boundary. Timing policy belongs to the consumer.
// Enqueueing the same CallID twice keeps the first job.
type Scheduler interface {
	Enqueue(ctx context.Context, j Job) error
}

// MemoryScheduler holds jobs in process for tests and STORE_BACKEND=memory.
type MemoryScheduler struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewMemoryScheduler() *MemoryScheduler {
	return &MemoryScheduler{jobs: map[string]Job{}}
}

func (s *MemoryScheduler) Enqueue(ctx context.Context, j Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.CallID]; !ok {
		s.jobs[j.CallID] = j
	}
	return nil
}

// Due removes and returns up to limit jobs whose NotBefore is at or before now.
func (s *MemoryScheduler) Due(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0)
	for _, j := range s.jobs {
		if !j.NotBefore.After(now) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].NotBefore.Before(out[k].NotBefore) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, j := range out {
		delete(s.jobs, j.CallID)
	}
	return out, nil
}

func (s *MemoryScheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].NotBefore.Before(out[k].NotBefore) })
	return out
}
