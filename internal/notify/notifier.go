// Package notify fans alerts out to Telegram and Discord. Alerts carry an
// event type so operators can subscribe to detections, failures, or both.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Event types understood by the notifier.
const (
	EventArbDetected = "arb_detected"
	EventScanFailed  = "scan_failed"
)

// Sender delivers one alert over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches alerts to every sender. Notify drops event types that
// are not in the allowed set; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends an alert of the given event type.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyFinding formats and sends an arb_detected alert.
func (n *Notifier) NotifyFinding(ctx context.Context, f domain.Finding) error {
	title, message := FormatFinding(f)
	return n.Notify(ctx, EventArbDetected, title, message)
}

// NotifyFailure sends a scan_failed alert for a sport.
func (n *Notifier) NotifyFailure(ctx context.Context, sport string, err error) error {
	return n.Notify(ctx, EventScanFailed, "Scan failed: "+sport, err.Error())
}

// dispatch tries every sender; one failing sender does not stop the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
