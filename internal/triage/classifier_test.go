package triage

import (
	"errors"
	"math"
	"testing"
)

func TestAnalyze_CriticalSilenceEscalates(t *testing.T) {
	c := NewClassifier(Thresholds{})

	res := c.Analyze(AudioMetrics{AvgDB: -60, PeakDB: -55, SpeechProbability: 0.01, SilenceDurationSec: 25, CallDurationSec: 30})
	if res.Classification != ClassificationCriticalSilence {
		t.Fatalf("expected CRITICAL_SILENCE, got %q", res.Classification)
	}
	if res.Action != ActionImmediateEscalation || !res.Escalate {
		t.Fatalf("expected immediate escalation, got %+v", res)
	}
	if res.Reason == "" {
		t.Fatalf("expected reason")
	}
}

func TestAnalyze_FullSilenceAlwaysCritical(t *testing.T) {
	c := NewClassifier(Thresholds{})
	for _, d := range []float64{1, 10, 45, 300} {
		res := c.Analyze(AudioMetrics{SilenceDurationSec: d, CallDurationSec: d, SpeechProbability: 0})
		if res.Classification != ClassificationCriticalSilence {
			t.Fatalf("duration %v: expected CRITICAL_SILENCE, got %q", d, res.Classification)
		}
	}
}

func TestAnalyze_SpeechAboveFloor(t *testing.T) {
	c := NewClassifier(Thresholds{})
	for _, p := range []float64{0.51, 0.8, 1} {
		res := c.Analyze(AudioMetrics{SpeechProbability: p, SilenceDurationSec: 1, CallDurationSec: 45})
		if res.Classification != ClassificationSpeechDetected {
			t.Fatalf("p=%v: expected SPEECH_DETECTED, got %q", p, res.Classification)
		}
		if res.Action != ActionAnalyzeTranscript || res.Escalate {
			t.Fatalf("p=%v: expected transcript analysis, got %+v", p, res)
		}
	}
}

func TestAnalyze_HighSpeechBeatsSilenceRatio(t *testing.T) {
	c := NewClassifier(Thresholds{})
	res := c.Analyze(AudioMetrics{SpeechProbability: 0.9, SilenceDurationSec: 29, CallDurationSec: 30})
	if res.Classification != ClassificationSpeechDetected {
		t.Fatalf("expected SPEECH_DETECTED, got %q", res.Classification)
	}
}

func TestAnalyze_ResidualLowSignalStillAnalyzesTranscript(t *testing.T) {
	c := NewClassifier(Thresholds{})
	res := c.Analyze(AudioMetrics{SpeechProbability: 0.2, SilenceDurationSec: 5, CallDurationSec: 30})
	if res.Classification != ClassificationLowSignal {
		t.Fatalf("expected LOW_SIGNAL, got %q", res.Classification)
	}
	if res.Action != ActionAnalyzeTranscript || res.Escalate {
		t.Fatalf("expected transcript analysis, got %+v", res)
	}
}

func TestAnalyze_ZeroDurationIsNoSignal(t *testing.T) {
	c := NewClassifier(Thresholds{})
	res := c.Analyze(AudioMetrics{})
	if res.Classification != ClassificationNoSignal || res.Action != ActionAnalyzeTranscript {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAnalyze_CustomThresholds(t *testing.T) {
	c := NewClassifier(Thresholds{SilenceRatioCritical: 0.95, SilentSpeechCeiling: 0.02, SpeechProbabilityFloor: 0.7})
	// 25/30 is below a 95% ratio.
	res := c.Analyze(AudioMetrics{SpeechProbability: 0.01, SilenceDurationSec: 25, CallDurationSec: 30})
	if res.Classification != ClassificationLowSignal {
		t.Fatalf("expected LOW_SIGNAL with stricter ratio, got %q", res.Classification)
	}
	res = c.Analyze(AudioMetrics{SpeechProbability: 0.6, SilenceDurationSec: 1, CallDurationSec: 30})
	if res.Classification != ClassificationLowSignal {
		t.Fatalf("expected LOW_SIGNAL below raised floor, got %q", res.Classification)
	}
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	c := NewClassifier(Thresholds{})
	m := AudioMetrics{SpeechProbability: 0.3, SilenceDurationSec: 12, CallDurationSec: 40}
	first := c.Analyze(m)
	for i := 0; i < 10; i++ {
		if got := c.Analyze(m); got != first {
			t.Fatalf("expected identical result, got %+v vs %+v", got, first)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(AudioMetrics{SpeechProbability: 0.5, SilenceDurationSec: 1, CallDurationSec: 2}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	bad := []AudioMetrics{
		{SilenceDurationSec: -1, CallDurationSec: 10},
		{CallDurationSec: -0.5},
		{SpeechProbability: 1.2},
		{SpeechProbability: -0.1},
		{AvgDB: math.NaN()},
		{PeakDB: math.Inf(1)},
	}
	for i, m := range bad {
		if err := Validate(m); !errors.Is(err, ErrInvalidMetrics) {
			t.Fatalf("case %d: expected ErrInvalidMetrics, got %v", i, err)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if err := (Thresholds{SilenceRatioCritical: 0.8, SilentSpeechCeiling: 0.6, SpeechProbabilityFloor: 0.5}).Validate(); err == nil {
		t.Fatalf("expected error when ceiling is above floor")
	}
	if err := (Thresholds{SilenceRatioCritical: 1.5, SilentSpeechCeiling: 0.05, SpeechProbabilityFloor: 0.5}).Validate(); err == nil {
		t.Fatalf("expected error for ratio > 1")
	}
}

func TestNewClassifier_KeepsExplicitZeroThresholds(t *testing.T) {
	c := NewClassifier(Thresholds{SilenceRatioCritical: 0.8, SilentSpeechCeiling: 0, SpeechProbabilityFloor: 0.5})
	if got := c.Thresholds().SilentSpeechCeiling; got != 0 {
		t.Fatalf("expected ceiling 0 to survive, got %v", got)
	}
	if got := NewClassifier(Thresholds{}).Thresholds(); got != DefaultThresholds() {
		t.Fatalf("zero thresholds must fall back to defaults, got %+v", got)
	}
}
