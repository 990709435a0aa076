package reporting

import (
	"context"
	"time"

	"pulsecall/internal/calls"
	"pulsecall/internal/escalation"
)

// StoreRepo buckets rows read from the call and escalation stores. It serves
// STORE_BACKEND=memory and tests; Postgres deployments use PostgresRepo.
type StoreRepo struct {
	Calls       calls.Repository
	Escalations escalation.Repository
}

func NewStoreRepo(c calls.Repository, e escalation.Repository) *StoreRepo {
	return &StoreRepo{Calls: c, Escalations: e}
}

func (r *StoreRepo) CallOutcomes(ctx context.Context, from, to time.Time, campaignID string) ([]OutcomeRow, error) {
	recs, err := r.Calls.ListRange(ctx, from, to, campaignID)
	if err != nil {
		return nil, err
	}
	type key struct{ campaign, state string }
	idx := map[key]int{}
	out := make([]OutcomeRow, 0)
	for _, rec := range recs {
		k := key{rec.CampaignID, string(rec.State)}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, OutcomeRow{CampaignID: k.campaign, State: k.state})
		}
		out[i].Calls++
		if rec.SentimentScore != nil {
			out[i].SentimentSum += *rec.SentimentScore
			out[i].SentimentCount++
		}
	}
	return out, nil
}

func (r *StoreRepo) EscalationCounts(ctx context.Context, from, to time.Time, campaignID string) ([]EscalationRow, error) {
	es, err := r.Escalations.ListRange(ctx, from, to, campaignID)
	if err != nil {
		return nil, err
	}
	type key struct{ campaign, priority, status string }
	idx := map[key]int{}
	out := make([]EscalationRow, 0)
	for _, e := range es {
		k := key{e.CampaignID, string(e.Priority), string(e.Status)}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, EscalationRow{CampaignID: k.campaign, Priority: k.priority, Status: k.status})
		}
		out[i].Escalations++
	}
	return out, nil
}
