package telephony

import (
	"encoding/json"
	"errors"
	"testing"

	"pulsecall/internal/triage"
)

func TestPostCallEvent_Decode(t *testing.T) {
	body := []byte(`{
		"call_id": "prov-1",
		"user_id": "u1",
		"campaign_id": "cmp",
		"status": "completed",
		"audio_metrics": {"avg_db": -20, "peak_db": -3, "speech_probability": 0.9, "silence_duration_sec": 2, "call_duration_sec": 60},
		"transcript": [{"speaker": "agent", "text": "Hi"}, {"speaker": "user", "text": "Hello"}],
		"emotions": {"calm": 0.8},
		"metadata": {"attempt": 1}
	}`)
	var e PostCallEvent
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if e.AudioMetrics.SpeechProbability != 0.9 || len(e.Transcript) != 2 || e.Transcript[1].Speaker != "user" {
		t.Fatalf("unexpected decode: %+v", e)
	}
	if e.IsBusy() {
		t.Fatalf("completed must not be busy")
	}
}

func TestPostCallEvent_BusyNeedsNoMetrics(t *testing.T) {
	e := PostCallEvent{CallID: "prov-1", Status: "BUSY"}
	if !e.IsBusy() {
		t.Fatalf("expected busy")
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("busy without metrics must be valid, got %v", err)
	}
}

func TestPostCallEvent_ValidateRejects(t *testing.T) {
	cases := []PostCallEvent{
		{Status: "completed", AudioMetrics: &triage.AudioMetrics{CallDurationSec: 10}},
		{CallID: "p", AudioMetrics: &triage.AudioMetrics{CallDurationSec: 10}},
		{CallID: "p", Status: "completed"},
	}
	for _, e := range cases {
		if err := e.Validate(); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload for %+v, got %v", e, err)
		}
	}

	bad := PostCallEvent{CallID: "p", Status: "completed", AudioMetrics: &triage.AudioMetrics{CallDurationSec: -1}}
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidPayload) || !errors.Is(err, triage.ErrInvalidMetrics) {
		t.Fatalf("expected payload and metrics errors, got %v", err)
	}
}

func TestAnalyticsEvent_Validate(t *testing.T) {
	m := &triage.AudioMetrics{CallDurationSec: 30, SpeechProbability: 0.7}
	ok := 4
	if err := (AnalyticsEvent{CallID: "p", AudioMetrics: m, Sentiment: &ok}).Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	bad := 9
	if err := (AnalyticsEvent{CallID: "p", AudioMetrics: m, Sentiment: &bad}).Validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if err := (AnalyticsEvent{AudioMetrics: m}).Validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
