package calls

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound                = errors.New("calls: record not found")
	ErrStateConflict           = errors.New("calls: state changed concurrently")
	ErrInvalidTransition       = errors.New("calls: invalid state transition")
	ErrDuplicateProviderCallID = errors.New("calls: provider call id already in use")
	ErrInvalidRecord           = errors.New("calls: invalid record")
)

// Repository is the Call Record Store. It exclusively owns the record lifecycle.
//
// Transition is a compare-and-swap: implementations must apply the update only
// if the stored state equals t.From, and return ErrStateConflict otherwise.
type Repository interface {
	Create(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (Record, error)
	Transition(ctx context.Context, id string, t Transition, now time.Time) (Record, error)

	// ListByUser returns records newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	// ListRange returns records created in [from, to), optionally for one campaign.
	ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Record, error)
}

func validateNew(r Record) error {
	if r.ID == "" || r.UserID == "" || r.CampaignID == "" {
		return fmt.Errorf("%w: id, user_id and campaign_id are required", ErrInvalidRecord)
	}
	if !r.State.Valid() || r.State.IsTerminal() {
		return fmt.Errorf("%w: new records start in PENDING or BUSY_RETRY, got %q", ErrInvalidRecord, r.State)
	}
	if r.State == StatePending && r.ProviderCallID == "" {
		return fmt.Errorf("%w: pending records need a provider_call_id", ErrInvalidRecord)
	}
	return nil
}

func validateTransition(t Transition) error {
	if !canTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	return nil
}
