package notification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

type captureNotifier struct {
	sent chan Notification
}

func (n *captureNotifier) Send(_ context.Context, notif Notification) error {
	n.sent <- notif
	return nil
}

func TestDispatcher_Dispatch(t *testing.T) {
	notifier := &captureNotifier{sent: make(chan Notification, 1)}
	d := NewDispatcher(notifier, time.Second, true, zap.NewNop())

	d.Dispatch(Notification{
		UserID:       "user-1",
		TemplateType: TemplatePermitStatusChanged,
		Data:         map[string]string{"permitNumber": "2026-BLD-000001"},
	})

	select {
	case got := <-notifier.sent:
		if got.UserID != "user-1" || got.TemplateType != TemplatePermitStatusChanged {
			t.Errorf("sent = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was not dispatched")
	}
}

func TestDispatcher_DisabledIsNoOp(t *testing.T) {
	notifier := &captureNotifier{sent: make(chan Notification, 1)}
	d := NewDispatcher(notifier, time.Second, false, zap.NewNop())

	d.Dispatch(Notification{UserID: "user-1", TemplateType: TemplateReviewDecision})

	select {
	case got := <-notifier.sent:
		t.Errorf("disabled dispatcher sent %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_SkipsEmptyRecipient(t *testing.T) {
	notifier := &captureNotifier{sent: make(chan Notification, 1)}
	d := NewDispatcher(notifier, time.Second, true, zap.NewNop())

	d.Dispatch(Notification{TemplateType: TemplateInspectionResult})

	select {
	case got := <-notifier.sent:
		t.Errorf("notification without recipient sent %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
