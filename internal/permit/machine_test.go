package permit

import (
	"context"
	"testing"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

func TestStatusMachine_Transitions(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{entity.PermitStatusDraft, entity.PermitStatusSubmitted, true},
		{entity.PermitStatusDraft, entity.PermitStatusCancelled, true},
		{entity.PermitStatusDraft, entity.PermitStatusApproved, false},
		{entity.PermitStatusDraft, entity.PermitStatusUnderReview, false},
		{entity.PermitStatusSubmitted, entity.PermitStatusUnderReview, true},
		{entity.PermitStatusSubmitted, entity.PermitStatusOnHold, true},
		{entity.PermitStatusSubmitted, entity.PermitStatusApproved, false},
		{entity.PermitStatusSubmitted, entity.PermitStatusDraft, false},
		{entity.PermitStatusUnderReview, entity.PermitStatusApproved, true},
		{entity.PermitStatusUnderReview, entity.PermitStatusDenied, true},
		{entity.PermitStatusUnderReview, entity.PermitStatusClosed, false},
		{entity.PermitStatusApproved, entity.PermitStatusClosed, true},
		{entity.PermitStatusApproved, entity.PermitStatusExpired, true},
		{entity.PermitStatusApproved, entity.PermitStatusDenied, false},
		{entity.PermitStatusDenied, entity.PermitStatusClosed, true},
		{entity.PermitStatusDenied, entity.PermitStatusUnderReview, false},
		{entity.PermitStatusOnHold, entity.PermitStatusUnderReview, true},
		{entity.PermitStatusOnHold, entity.PermitStatusApproved, true},
		{entity.PermitStatusOnHold, entity.PermitStatusDenied, false},
		{entity.PermitStatusExpired, entity.PermitStatusClosed, true},
		{entity.PermitStatusExpired, entity.PermitStatusApproved, false},
		{entity.PermitStatusClosed, entity.PermitStatusDraft, false},
		{entity.PermitStatusCancelled, entity.PermitStatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			m, err := newStatusMachine(tt.from)
			if err != nil {
				t.Fatalf("newStatusMachine(%s) error = %v", tt.from, err)
			}
			err = m.Fire(context.Background(), statusTrigger(tt.to))
			if (err == nil) != tt.allowed {
				t.Errorf("Fire(%s -> %s) error = %v, allowed %v", tt.from, tt.to, err, tt.allowed)
			}
		})
	}
}

func TestReviewMachine_Transitions(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{entity.ReviewStatusPending, entity.ReviewStatusInReview, true},
		{entity.ReviewStatusPending, entity.ReviewStatusApproved, false},
		{entity.ReviewStatusInReview, entity.ReviewStatusApproved, true},
		{entity.ReviewStatusInReview, entity.ReviewStatusConditionallyApproved, true},
		{entity.ReviewStatusInReview, entity.ReviewStatusRejected, true},
		{entity.ReviewStatusInReview, entity.ReviewStatusRevisionsRequested, true},
		{entity.ReviewStatusInReview, entity.ReviewStatusPending, false},
		{entity.ReviewStatusRevisionsRequested, entity.ReviewStatusInReview, true},
		{entity.ReviewStatusRevisionsRequested, entity.ReviewStatusApproved, false},
		{entity.ReviewStatusApproved, entity.ReviewStatusInReview, true},
		{entity.ReviewStatusConditionallyApproved, entity.ReviewStatusInReview, true},
		{entity.ReviewStatusRejected, entity.ReviewStatusInReview, true},
		{entity.ReviewStatusRejected, entity.ReviewStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			m, err := newReviewMachine(tt.from)
			if err != nil {
				t.Fatalf("newReviewMachine(%s) error = %v", tt.from, err)
			}
			err = m.Fire(context.Background(), statusTrigger(tt.to))
			if (err == nil) != tt.allowed {
				t.Errorf("Fire(%s -> %s) error = %v, allowed %v", tt.from, tt.to, err, tt.allowed)
			}
		})
	}
}
