package telephony

import (
	"errors"
	"fmt"
	"strings"

	"pulsecall/internal/transcript"
	"pulsecall/internal/triage"
)

var ErrInvalidPayload = errors.New("telephony: invalid webhook payload")

// StatusBusy is the carrier line-busy/unreachable status on post-call webhooks.
const StatusBusy = "busy"

// PostCallEvent is the provider's post-call webhook body.
//
// CallID is the provider call id; it correlates with calls.Record.ProviderCallID.
type PostCallEvent struct {
	CallID       string               `json:"call_id"`
	UserID       string               `json:"user_id"`
	CampaignID   string               `json:"campaign_id"`
	Status       string               `json:"status"`
	AudioMetrics *triage.AudioMetrics `json:"audio_metrics"`
	Transcript   []transcript.Segment `json:"transcript"`
	Emotions     map[string]float64   `json:"emotions,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
}

// IsBusy reports a carrier busy status, case-insensitively.
func (e PostCallEvent) IsBusy() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), StatusBusy)
}

// Validate rejects shapes the orchestrator cannot act on. Busy deliveries do
// not need audio metrics; every other status does.
func (e PostCallEvent) Validate() error {
	if strings.TrimSpace(e.CallID) == "" {
		return fmt.Errorf("%w: call_id is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(e.Status) == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidPayload)
	}
	if e.IsBusy() {
		return nil
	}
	return validateMetrics(e.AudioMetrics)
}

// AnalyticsEvent is the secondary analytics webhook. Summary and Sentiment,
// when present, override what the transcript analyzer derives.
type AnalyticsEvent struct {
	CallID       string               `json:"call_id"`
	UserID       string               `json:"user_id"`
	AudioMetrics *triage.AudioMetrics `json:"audio_metrics"`
	Transcript   []transcript.Segment `json:"transcript"`
	Emotions     map[string]float64   `json:"emotions,omitempty"`
	Summary      *string              `json:"summary,omitempty"`
	Sentiment    *int                 `json:"sentiment,omitempty"`
}

func (e AnalyticsEvent) Validate() error {
	if strings.TrimSpace(e.CallID) == "" {
		return fmt.Errorf("%w: call_id is required", ErrInvalidPayload)
	}
	if e.Sentiment != nil && (*e.Sentiment < transcript.SentimentMin || *e.Sentiment > transcript.SentimentMax) {
		return fmt.Errorf("%w: sentiment must be between %d and %d", ErrInvalidPayload, transcript.SentimentMin, transcript.SentimentMax)
	}
	return validateMetrics(e.AudioMetrics)
}

func validateMetrics(m *triage.AudioMetrics) error {
	if m == nil {
		return fmt.Errorf("%w: audio_metrics is required", ErrInvalidPayload)
	}
	if err := triage.Validate(*m); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
