package triage

import (
	"errors"
	"fmt"
	"math"
)

// AudioMetrics are the post-call signal levels reported by the provider.
// They inform classification only and are not persisted.
type AudioMetrics struct {
	AvgDB              float64 `json:"avg_db"`
	PeakDB             float64 `json:"peak_db"`
	SpeechProbability  float64 `json:"speech_probability"`
	SilenceDurationSec float64 `json:"silence_duration_sec"`
	CallDurationSec    float64 `json:"call_duration_sec"`
}

type Classification string

const (
	ClassificationCriticalSilence Classification = "CRITICAL_SILENCE"
	ClassificationSpeechDetected  Classification = "SPEECH_DETECTED"
	ClassificationLowSignal       Classification = "LOW_SIGNAL"
	ClassificationNoSignal        Classification = "NO_SIGNAL"
	// ClassificationBusy is never produced by Analyze; busy is a carrier status
	// and is recorded on the call without running the classifier.
	ClassificationBusy Classification = "BUSY"
)

type Action string

const (
	ActionImmediateEscalation Action = "IMMEDIATE_ESCALATION"
	ActionAnalyzeTranscript   Action = "ANALYZE_TRANSCRIPT"
)

// Result is the classifier verdict. Escalate mirrors Action so callers never
// re-derive it.
type Result struct {
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason"`
	Action         Action         `json:"action"`
	Escalate       bool           `json:"escalate"`
}

// Thresholds are the tuning levers for false-escalation rates.
type Thresholds struct {
	// SilenceRatioCritical is the silence/call duration fraction at or above
	// which a call counts as dominated by silence.
	SilenceRatioCritical float64
	// SilentSpeechCeiling is the speech probability at or below which speech
	// counts as absent for the critical-silence rule.
	SilentSpeechCeiling float64
	// SpeechProbabilityFloor is the probability above which speech is detected.
	SpeechProbabilityFloor float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SilenceRatioCritical:   0.8,
		SilentSpeechCeiling:    0.05,
		SpeechProbabilityFloor: 0.5,
	}
}

// WithDefaults returns DefaultThresholds for the zero value and t otherwise.
// A single zero field is kept: 0 is a valid ceiling or floor.
func (t Thresholds) WithDefaults() Thresholds {
	if t == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t
}

func (t Thresholds) Validate() error {
	if t.SilenceRatioCritical <= 0 || t.SilenceRatioCritical > 1 {
		return fmt.Errorf("triage: silence ratio must be in (0,1], got %v", t.SilenceRatioCritical)
	}
	if t.SilentSpeechCeiling < 0 || t.SilentSpeechCeiling > 1 {
		return fmt.Errorf("triage: silent speech ceiling must be in [0,1], got %v", t.SilentSpeechCeiling)
	}
	if t.SpeechProbabilityFloor < 0 || t.SpeechProbabilityFloor >= 1 {
		return fmt.Errorf("triage: speech probability floor must be in [0,1), got %v", t.SpeechProbabilityFloor)
	}
	if t.SilentSpeechCeiling >= t.SpeechProbabilityFloor {
		return errors.New("triage: silent speech ceiling must be below the speech probability floor")
	}
	return nil
}

var ErrInvalidMetrics = errors.New("triage: invalid audio metrics")

// Validate rejects metrics the classifier cannot reason about.
func Validate(m AudioMetrics) error {
	for _, v := range []float64{m.AvgDB, m.PeakDB, m.SpeechProbability, m.SilenceDurationSec, m.CallDurationSec} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidMetrics)
		}
	}
	if m.SilenceDurationSec < 0 {
		return fmt.Errorf("%w: silence_duration_sec must be >= 0", ErrInvalidMetrics)
	}
	if m.CallDurationSec < 0 {
		return fmt.Errorf("%w: call_duration_sec must be >= 0", ErrInvalidMetrics)
	}
	if m.SpeechProbability < 0 || m.SpeechProbability > 1 {
		return fmt.Errorf("%w: speech_probability must be in [0,1]", ErrInvalidMetrics)
	}
	return nil
}

// Classifier maps audio metrics to an action. It holds no state beyond its
// thresholds and is safe for concurrent use.
type Classifier struct {
	t Thresholds
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{t: t.WithDefaults()}
}

func (c *Classifier) Thresholds() Thresholds { return c.t }

// Analyze assumes metrics passed Validate.
//
// Decision order:
//  1. no audio at all
//  2. silence dominates and speech is absent (recipient may be unresponsive)
//  3. speech above floor
//  4. residual low signal
//
// Every non-critical branch still asks for transcript analysis.
func (c *Classifier) Analyze(m AudioMetrics) Result {
	if m.CallDurationSec == 0 {
		return analyze(ClassificationNoSignal, "Provider reported zero call duration")
	}

	ratio := m.SilenceDurationSec / m.CallDurationSec
	if ratio >= c.t.SilenceRatioCritical && m.SpeechProbability <= c.t.SilentSpeechCeiling {
		return Result{
			Classification: ClassificationCriticalSilence,
			Reason: fmt.Sprintf("Silence for %.0f%% of a %.0fs call with speech probability %.2f; recipient may be unresponsive",
				ratio*100, m.CallDurationSec, m.SpeechProbability),
			Action:   ActionImmediateEscalation,
			Escalate: true,
		}
	}

	if m.SpeechProbability > c.t.SpeechProbabilityFloor {
		return analyze(ClassificationSpeechDetected, fmt.Sprintf("Speech probability %.2f above floor %.2f", m.SpeechProbability, c.t.SpeechProbabilityFloor))
	}

	return analyze(ClassificationLowSignal, fmt.Sprintf("Low speech probability %.2f without a critical silence pattern", m.SpeechProbability))
}

func analyze(cl Classification, reason string) Result {
	return Result{Classification: cl, Reason: reason, Action: ActionAnalyzeTranscript}
}
