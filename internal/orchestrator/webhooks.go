package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pulsecall/internal/calls"
	"pulsecall/internal/campaigns"
	"pulsecall/internal/escalation"
	"pulsecall/internal/notify"
	"pulsecall/internal/retry"
	"pulsecall/internal/telephony"
	"pulsecall/internal/transcript"
	"pulsecall/internal/triage"
)

// Result is the webhook acknowledgment.
type Result struct {
	Status         Outcome `json:"status"`
	CallID         string  `json:"call_id"`
	ProviderCallID string  `json:"provider_call_id"`
	EscalationID   string  `json:"escalation_id,omitempty"`
}

// resolution is the provider input shared by both webhook kinds.
type resolution struct {
	metrics    triage.AudioMetrics
	transcript []transcript.Segment

	// Provider-supplied overrides for analyzer output.
	summary   *string
	sentiment *int
}

// HandlePostCall applies a post-call webhook.
//
// Errors: telephony.ErrInvalidPayload (wrapping triage.ErrInvalidMetrics for
// bad metrics) before any state is read, calls.ErrNotFound for unknown
// provider call ids.
func (o *Orchestrator) HandlePostCall(ctx context.Context, ev telephony.PostCallEvent) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}
	return o.withCallLock(ctx, ev.CallID, func(rec calls.Record) (Result, *pendingAlert, error) {
		if ev.IsBusy() {
			return o.markBusy(ctx, rec)
		}
		return o.resolve(ctx, rec, resolution{metrics: *ev.AudioMetrics, transcript: ev.Transcript})
	})
}

// HandleAnalytics applies the secondary analytics webhook. It resolves a
// still-open record the same way as a non-busy post-call webhook and is a
// no-op for terminal records.
func (o *Orchestrator) HandleAnalytics(ctx context.Context, ev telephony.AnalyticsEvent) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}
	return o.withCallLock(ctx, ev.CallID, func(rec calls.Record) (Result, *pendingAlert, error) {
		return o.resolve(ctx, rec, resolution{
			metrics:    *ev.AudioMetrics,
			transcript: ev.Transcript,
			summary:    ev.Summary,
			sentiment:  ev.Sentiment,
		})
	})
}

// withCallLock serializes on the provider call id, runs the idempotency
// check, then fn. Any alert fn returns is sent after unlocking.
func (o *Orchestrator) withCallLock(ctx context.Context, providerCallID string, fn func(calls.Record) (Result, *pendingAlert, error)) (Result, error) {
	unlock, err := o.Locker.Lock(ctx, "call:"+providerCallID)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: lock %s: %w", providerCallID, err)
	}

	res, alert, err := func() (Result, *pendingAlert, error) {
		defer unlock()
		rec, err := o.Calls.GetByProviderCallID(ctx, providerCallID)
		if err != nil {
			return Result{}, nil, err
		}
		if rec.State.IsTerminal() {
			o.logger(ctx).Info("webhook for terminal call ignored", "call_id", rec.ID, "state", rec.State)
			return resultFor(rec, OutcomeAlreadyProcessed), nil, nil
		}
		return fn(rec)
	}()
	if err != nil {
		return Result{}, err
	}

	o.sendAlert(ctx, alert)
	return res, nil
}

func (o *Orchestrator) markBusy(ctx context.Context, rec calls.Record) (Result, *pendingAlert, error) {
	if rec.State == calls.StateBusyRetry {
		return resultFor(rec, OutcomeRetryScheduled), nil, nil
	}

	// Enqueue first: if the transition then fails the provider redelivers and
	// the scheduler keeps the first job for this call.
	if err := o.Retry.Enqueue(ctx, retry.Job{
		CallID:         rec.ID,
		UserID:         rec.UserID,
		CampaignID:     rec.CampaignID,
		ProviderCallID: rec.ProviderCallID,
		Reason:         telephony.StatusBusy,
		NotBefore:      o.now().Add(o.Policy.RetryDelay),
	}); err != nil {
		return Result{}, nil, fmt.Errorf("orchestrator: enqueue retry: %w", err)
	}

	updated, err := o.Calls.Transition(ctx, rec.ID, calls.Transition{From: rec.State, To: calls.StateBusyRetry}, o.now())
	if err != nil {
		return o.afterConflict(ctx, rec, err)
	}
	o.logger(ctx).Info("call busy, retry scheduled", "call_id", rec.ID)
	return resultFor(updated, OutcomeRetryScheduled), nil, nil
}

func (o *Orchestrator) resolve(ctx context.Context, rec calls.Record, in resolution) (Result, *pendingAlert, error) {
	log := o.logger(ctx)

	campaign, err := o.Directory.GetCampaign(ctx, rec.CampaignID)
	if err != nil {
		if !errors.Is(err, campaigns.ErrCampaignNotFound) {
			return Result{}, nil, err
		}
		log.Warn("campaign missing for call; no escalation keywords applied", "call_id", rec.ID, "campaign_id", rec.CampaignID)
		campaign = campaigns.Campaign{ID: rec.CampaignID}
	}

	verdict := o.Classifier.Analyze(in.metrics)
	log.Info("call triaged",
		"call_id", rec.ID,
		"classification", verdict.Classification,
		"action", verdict.Action,
	)

	if verdict.Escalate {
		esc, err := o.ensureEscalation(ctx, rec, escalation.Escalation{
			Priority:      escalation.PriorityHigh,
			Source:        escalation.SourceVitals,
			Reason:        verdict.Reason,
			DetectedFlags: []string{},
		})
		if err != nil {
			return Result{}, nil, err
		}
		updated, err := o.Calls.Transition(ctx, rec.ID, calls.Transition{
			From:                 rec.State,
			To:                   calls.StateEscalated,
			Summary:              in.summary,
			SentimentScore:       in.sentiment,
			DetectedFlags:        []string{},
			TriageClassification: string(verdict.Classification),
			TriageReason:         verdict.Reason,
		}, o.now())
		if err != nil {
			return o.afterConflict(ctx, rec, err)
		}
		res := resultFor(updated, OutcomeEscalated)
		res.EscalationID = esc.ID
		return res, o.alertFor(ctx, updated, campaign, esc), nil
	}

	analysis := transcript.Process(in.transcript, campaign.EscalationKeywords)
	if in.summary != nil && strings.TrimSpace(*in.summary) != "" {
		analysis.Summary = *in.summary
	}
	if in.sentiment != nil {
		analysis.SentimentScore = *in.sentiment
	}

	var esc *escalation.Escalation
	if len(analysis.DetectedFlags) > 0 {
		e, err := o.ensureEscalation(ctx, rec, escalation.Escalation{
			Priority:      escalation.PriorityForSentiment(analysis.SentimentScore),
			Source:        escalation.SourceTranscript,
			Reason:        "Detected escalation keywords: " + strings.Join(analysis.DetectedFlags, ", "),
			DetectedFlags: analysis.DetectedFlags,
		})
		if err != nil {
			return Result{}, nil, err
		}
		esc = &e
	}

	sentiment := analysis.SentimentScore
	updated, err := o.Calls.Transition(ctx, rec.ID, calls.Transition{
		From:                 rec.State,
		To:                   calls.StateCompleted,
		Summary:              &analysis.Summary,
		SentimentScore:       &sentiment,
		DetectedFlags:        analysis.DetectedFlags,
		RecommendedAction:    &analysis.RecommendedAction,
		TriageClassification: string(verdict.Classification),
		TriageReason:         verdict.Reason,
	}, o.now())
	if err != nil {
		return o.afterConflict(ctx, rec, err)
	}

	res := resultFor(updated, OutcomeCompleted)
	var alert *pendingAlert
	if esc != nil {
		res.EscalationID = esc.ID
		if o.Policy.NotifyOnTranscriptFlags {
			alert = o.alertFor(ctx, updated, campaign, *esc)
		}
	}
	return res, alert, nil
}

// ensureEscalation returns the call's escalation, creating it if absent.
func (o *Orchestrator) ensureEscalation(ctx context.Context, rec calls.Record, e escalation.Escalation) (escalation.Escalation, error) {
	existing, ok, err := o.Escalations.FindByCallID(ctx, rec.ID)
	if err != nil {
		return escalation.Escalation{}, err
	}
	if ok {
		return existing, nil
	}
	e.CallID = rec.ID
	e.CampaignID = rec.CampaignID
	created, err := o.Escalations.Create(ctx, e)
	if errors.Is(err, escalation.ErrDuplicateEscalation) {
		existing, ok, ferr := o.Escalations.FindByCallID(ctx, rec.ID)
		if ferr != nil {
			return escalation.Escalation{}, ferr
		}
		if ok {
			return existing, nil
		}
	}
	if err != nil {
		return escalation.Escalation{}, err
	}
	o.logger(ctx).Info("escalation created", "call_id", rec.ID, "escalation_id", created.ID, "priority", created.Priority, "source", created.Source)
	return created, nil
}

// afterConflict maps a lost compare-and-swap to the outcome the winner produced.
func (o *Orchestrator) afterConflict(ctx context.Context, rec calls.Record, err error) (Result, *pendingAlert, error) {
	if !errors.Is(err, calls.ErrStateConflict) {
		return Result{}, nil, err
	}
	current, gerr := o.Calls.Get(ctx, rec.ID)
	if gerr != nil {
		return Result{}, nil, gerr
	}
	o.logger(ctx).Info("call state changed concurrently", "call_id", rec.ID, "state", current.State)
	switch {
	case current.State.IsTerminal():
		return resultFor(current, OutcomeAlreadyProcessed), nil, nil
	case current.State == calls.StateBusyRetry:
		return resultFor(current, OutcomeRetryScheduled), nil, nil
	default:
		return Result{}, nil, err
	}
}

func (o *Orchestrator) alertFor(ctx context.Context, rec calls.Record, campaign campaigns.Campaign, esc escalation.Escalation) *pendingAlert {
	to := campaign.OperatorPhone
	if to == "" {
		to = o.Policy.OperatorPhone
	}
	a := notify.Alert{
		To:           to,
		CallID:       rec.ID,
		EscalationID: esc.ID,
		Priority:     string(esc.Priority),
		Reason:       esc.Reason,
	}
	if r, err := o.Directory.GetRecipient(ctx, rec.UserID); err == nil {
		a.RecipientName = r.Name
		a.RecipientPhone = r.Phone
	}
	return &pendingAlert{alert: a, campaignID: rec.CampaignID}
}

func resultFor(rec calls.Record, status Outcome) Result {
	return Result{Status: status, CallID: rec.ID, ProviderCallID: rec.ProviderCallID}
}
