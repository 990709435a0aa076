package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"pulsecall/internal/calls"
	"pulsecall/internal/escalation"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations return pre-bucketed rows; the Service folds them into summaries.
type Repository interface {
	CallOutcomes(ctx context.Context, from, to time.Time, campaignID string) ([]OutcomeRow, error)
	EscalationCounts(ctx context.Context, from, to time.Time, campaignID string) ([]EscalationRow, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	outcomes, err := s.repo.CallOutcomes(ctx, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}
	escalations, err := s.repo.EscalationCounts(ctx, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}

	byCampaign := map[string]*CampaignOutcomes{}
	bucket := func(id string) *CampaignOutcomes {
		b, ok := byCampaign[id]
		if !ok {
			b = &CampaignOutcomes{CampaignID: id, EscalationsByPriority: map[string]int{}}
			byCampaign[id] = b
		}
		return b
	}

	totals := CampaignOutcomes{EscalationsByPriority: map[string]int{}}
	for _, row := range outcomes {
		addOutcome(bucket(row.CampaignID), row)
		addOutcome(&totals, row)
	}
	for _, row := range escalations {
		addEscalation(bucket(row.CampaignID), row)
		addEscalation(&totals, row)
	}

	out := CallsSummary{Range: req.Range, CampaignID: req.CampaignID, Campaigns: make([]CampaignOutcomes, 0, len(byCampaign))}
	for _, b := range byCampaign {
		finish(b)
		out.Campaigns = append(out.Campaigns, *b)
	}
	sort.Slice(out.Campaigns, func(i, j int) bool { return out.Campaigns[i].CampaignID < out.Campaigns[j].CampaignID })
	finish(&totals)
	out.Totals = totals
	return out, nil
}

func addOutcome(b *CampaignOutcomes, row OutcomeRow) {
	b.TotalCalls += row.Calls
	switch calls.State(row.State) {
	case calls.StatePending:
		b.PendingCalls += row.Calls
	case calls.StateBusyRetry:
		b.BusyRetryCalls += row.Calls
	case calls.StateCompleted:
		b.CompletedCalls += row.Calls
	case calls.StateEscalated:
		b.EscalatedCalls += row.Calls
	}
	b.sentimentSum += row.SentimentSum
	b.sentimentCount += row.SentimentCount
}

func addEscalation(b *CampaignOutcomes, row EscalationRow) {
	switch escalation.Status(row.Status) {
	case escalation.StatusOpen:
		b.OpenEscalations += row.Escalations
	case escalation.StatusAcknowledged:
		b.AcknowledgedEscalations += row.Escalations
	}
	b.EscalationsByPriority[row.Priority] += row.Escalations
}

func finish(b *CampaignOutcomes) {
	if b.sentimentCount > 0 {
		avg := float64(b.sentimentSum) / float64(b.sentimentCount)
		b.AverageSentiment = &avg
	}
	if terminal := b.CompletedCalls + b.EscalatedCalls; terminal > 0 {
		b.EscalationRate = float64(b.EscalatedCalls) / float64(terminal)
	}
}
