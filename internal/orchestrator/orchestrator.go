package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pulsecall/internal/audit"
	"pulsecall/internal/calls"
	"pulsecall/internal/campaigns"
	"pulsecall/internal/escalation"
	"pulsecall/internal/lock"
	"pulsecall/internal/notify"
	"pulsecall/internal/retry"
	"pulsecall/internal/telephony"
	"pulsecall/internal/triage"
	"pulsecall/pkg/logger"
)

// Outcome is the word reported back to webhook callers.
type Outcome string

const (
	OutcomeRetryScheduled   Outcome = "retry_scheduled"
	OutcomeEscalated        Outcome = "escalated"
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

var (
	ErrPlacementFailed = errors.New("orchestrator: call placement failed")
	ErrNotConfigured   = errors.New("orchestrator: missing dependency")
)

// Policy holds the product knobs that are not classifier thresholds.
type Policy struct {
	// NotifyOnTranscriptFlags also pages an operator for keyword escalations
	// on the COMPLETED path. Vitals escalations always notify.
	NotifyOnTranscriptFlags bool

	// RetryDelay is added to now for the NotBefore of busy retries.
	RetryDelay time.Duration

	// OperatorPhone is the default alert target when a campaign has none.
	OperatorPhone string
}

// Orchestrator runs the call lifecycle state machine.
//
// Rules:
//   - Work for one provider call id is serialized by Locker.
//   - A terminal record short-circuits every delivery, busy included.
//   - Escalation rows are written before the terminal transition, so a crash
//     between the two converges on redelivery.
//   - The Notifier runs after the lock is released and never undoes state.
type Orchestrator struct {
	Calls       calls.Repository
	Escalations *escalation.Service
	Directory   campaigns.Directory
	Dialer      telephony.Dialer
	Notifier    notify.Notifier
	Retry       retry.Scheduler
	Locker      lock.Locker
	Classifier  *triage.Classifier
	Audit       *audit.Service

	Policy Policy
	Log    *slog.Logger
	Now    func() time.Time
}

// Validate reports missing required collaborators.
func (o *Orchestrator) Validate() error {
	var missing []string
	if o.Calls == nil {
		missing = append(missing, "calls")
	}
	if o.Escalations == nil {
		missing = append(missing, "escalations")
	}
	if o.Directory == nil {
		missing = append(missing, "directory")
	}
	if o.Dialer == nil {
		missing = append(missing, "dialer")
	}
	if o.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if o.Retry == nil {
		missing = append(missing, "retry")
	}
	if o.Locker == nil {
		missing = append(missing, "locker")
	}
	if o.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrNotConfigured, missing)
	}
	return nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) logger(ctx context.Context) *slog.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// pendingAlert is a notification owed after the lock is released.
type pendingAlert struct {
	alert      notify.Alert
	campaignID string
}

func (o *Orchestrator) sendAlert(ctx context.Context, p *pendingAlert) {
	if p == nil {
		return
	}
	// Delivery is owed once the transition is durable, even if the caller hangs up.
	ctx = context.WithoutCancel(ctx)
	log := o.logger(ctx)
	if err := o.Notifier.Notify(ctx, p.alert); err != nil {
		log.Error("operator notification failed",
			"call_id", p.alert.CallID,
			"escalation_id", p.alert.EscalationID,
			"err", err,
		)
		if o.Audit != nil {
			_ = o.Audit.LogNotifierFailed(ctx, p.campaignID, p.alert.CallID, p.alert.EscalationID, err)
		}
		return
	}
	log.Info("operator notified", "call_id", p.alert.CallID, "escalation_id", p.alert.EscalationID)
}
