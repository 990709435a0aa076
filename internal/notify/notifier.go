package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrNoRecipient = errors.New("notify: no operator phone configured")

// Alert is one operator notification about an escalated call.
type Alert struct {
	// To is the operator phone (E.164).
	To string

	RecipientName  string
	RecipientPhone string

	CallID       string
	EscalationID string
	Priority     string
	Reason       string
}

// Body renders the SMS text.
func (a Alert) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[PulseCall] %s priority escalation", strings.ToUpper(orDefault(a.Priority, "high")))
	if a.RecipientName != "" {
		fmt.Fprintf(&b, " for %s", a.RecipientName)
	}
	if a.RecipientPhone != "" {
		fmt.Fprintf(&b, " (%s)", a.RecipientPhone)
	}
	if a.Reason != "" {
		fmt.Fprintf(&b, ": %s", a.Reason)
	}
	if a.CallID != "" {
		fmt.Fprintf(&b, ". Call %s", a.CallID)
	}
	return b.String()
}

// Notifier delivers operator alerts. A nil error means the provider accepted it.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the structured log. Used when SMS is not configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, a Alert) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "operator alert",
		"to", a.To,
		"call_id", a.CallID,
		"escalation_id", a.EscalationID,
		"priority", a.Priority,
		"body", a.Body(),
	)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
