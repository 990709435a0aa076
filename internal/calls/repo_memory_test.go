package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newPending(id, providerCallID string, at time.Time) Record {
	return Record{ID: id, UserID: "u1", CampaignID: "cmp", ProviderCallID: providerCallID, State: StatePending, CreatedAt: at, UpdatedAt: at}
}

func TestMemoryRepo_CreateValidates(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, Record{ID: "c1", UserID: "u", CampaignID: "cmp", State: StatePending}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for pending without provider id, got %v", err)
	}
	if err := repo.Create(ctx, Record{ID: "c1", UserID: "u", CampaignID: "cmp", State: StateCompleted, ProviderCallID: "p"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for terminal create, got %v", err)
	}
	if err := repo.Create(ctx, Record{ID: "c1", UserID: "u", CampaignID: "cmp", State: StateBusyRetry}); err != nil {
		t.Fatalf("busy retry without provider id must be allowed, got %v", err)
	}
}

func TestMemoryRepo_ProviderCallIDUniqueAmongNonTerminal(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	if err := repo.Create(ctx, newPending("c1", "p1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newPending("c2", "p1", now)); !errors.Is(err, ErrDuplicateProviderCallID) {
		t.Fatalf("expected ErrDuplicateProviderCallID, got %v", err)
	}

	if _, err := repo.Transition(ctx, "c1", Transition{From: StatePending, To: StateCompleted}, now); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := repo.Create(ctx, newPending("c2", "p1", now.Add(time.Minute))); err != nil {
		t.Fatalf("reuse after terminal must be allowed, got %v", err)
	}
	got, err := repo.GetByProviderCallID(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "c2" {
		t.Fatalf("expected non-terminal record to win lookup, got %s", got.ID)
	}
}

func TestMemoryRepo_TransitionIsCompareAndSwap(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	_ = repo.Create(ctx, newPending("c1", "p1", now))

	summary := "ok"
	score := 4
	later := now.Add(time.Minute)
	rec, err := repo.Transition(ctx, "c1", Transition{
		From: StatePending, To: StateCompleted,
		Summary: &summary, SentimentScore: &score, DetectedFlags: []string{"x"},
		TriageClassification: "SPEECH_DETECTED",
	}, later)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if rec.State != StateCompleted || !rec.UpdatedAt.Equal(later) || *rec.Summary != "ok" || *rec.SentimentScore != 4 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if _, err := repo.Transition(ctx, "c1", Transition{From: StatePending, To: StateEscalated}, later); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
	if _, err := repo.Transition(ctx, "c1", Transition{From: StateCompleted, To: StateBusyRetry}, later); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition out of terminal, got %v", err)
	}
	if _, err := repo.Transition(ctx, "missing", Transition{From: StatePending, To: StateBusyRetry}, later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepo_ConcurrentTransitionsHaveOneWinner(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	_ = repo.Create(ctx, newPending("c1", "p1", now))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Transition(ctx, "c1", Transition{From: StatePending, To: StateEscalated}, now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryRepo_ReturnedRecordsAreCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	_ = repo.Create(ctx, newPending("c1", "p1", now))
	_, _ = repo.Transition(ctx, "c1", Transition{From: StatePending, To: StateCompleted, DetectedFlags: []string{"a"}}, now)

	rec, _ := repo.Get(ctx, "c1")
	rec.DetectedFlags[0] = "mutated"
	again, _ := repo.Get(ctx, "c1")
	if again.DetectedFlags[0] != "a" {
		t.Fatalf("stored record was mutated through a returned copy")
	}
}

func TestMemoryRepo_ListByUserNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	_ = repo.Create(ctx, newPending("old", "p1", base))
	_ = repo.Create(ctx, newPending("new", "p2", base.Add(time.Hour)))
	_ = repo.Create(ctx, Record{ID: "other", UserID: "u2", CampaignID: "cmp", ProviderCallID: "p3", State: StatePending, CreatedAt: base})

	rows, err := repo.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "new" || rows[1].ID != "old" {
		t.Fatalf("unexpected order: %+v", rows)
	}
	rows, _ = repo.ListByUser(ctx, "u1", 1)
	if len(rows) != 1 {
		t.Fatalf("expected limit applied")
	}
}
