// Package notification defines the fan-out collaborator contract. Dispatch
// is fire-and-forget: a failed notification is logged and never fails or
// rolls back the state change that triggered it.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Template types dispatched by the permit lifecycle
const (
	TemplatePermitStatusChanged = "permit_status_changed"
	TemplateReviewDecision      = "department_review_decision"
	TemplateInspectionScheduled = "inspection_scheduled"
	TemplateInspectionResult    = "inspection_result"
	TemplateIssueCorrection     = "issue_correction_submitted"
	TemplateIssueVerified       = "issue_correction_verified"
)

// Notification is one outbound message. The downstream service consults
// per-user channel preferences (email/SMS); this core only names the
// template and payload.
type Notification struct {
	UserID       string
	TemplateType string
	Data         map[string]string
}

// Notifier sends notifications to users
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher wraps a Notifier with the fire-and-forget policy
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	enabled  bool
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(notifier Notifier, timeout time.Duration, enabled bool, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		enabled:  enabled,
		logger:   logger,
	}
}

// Dispatch sends the notification on a background goroutine. The triggering
// write has already committed by the time this is called, so errors are
// logged and dropped.
func (d *Dispatcher) Dispatch(n Notification) {
	if !d.enabled || n.UserID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Send(ctx, n); err != nil {
			d.logger.Error("Notification dispatch failed",
				zap.String("user_id", n.UserID),
				zap.String("template", n.TemplateType),
				zap.Error(err))
		}
	}()
}

// LogNotifier is the default Notifier: it records the notification in the
// service log. Production deployments swap in the platform notification
// service client.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the notification
func (n *LogNotifier) Send(_ context.Context, notif Notification) error {
	n.logger.Info("Notification",
		zap.String("user_id", notif.UserID),
		zap.String("template", notif.TemplateType),
		zap.Any("data", notif.Data))
	return nil
}
