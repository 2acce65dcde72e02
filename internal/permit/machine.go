package permit

import (
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/workflow"
)

// Status transitions are keyed by target status: the API submits the status
// it wants, so every trigger is "to_<status>".
func statusTrigger(to string) workflow.Trigger {
	return workflow.Trigger("to_" + to)
}

var permitStates = func() []workflow.State {
	states := make([]workflow.State, len(entity.PermitStatuses))
	for i, s := range entity.PermitStatuses {
		states[i] = workflow.State(s)
	}
	return states
}()

// newStatusMachine builds the permit lifecycle machine positioned at the
// permit's current status.
//
//	draft → submitted → under_review → {approved | denied} → closed
//
// with on_hold, expired and cancelled reachable as side transitions.
func newStatusMachine(current string) (workflow.Machine, error) {
	b := workflow.NewBuilder(permitStates...)

	b.Configure(workflow.State(entity.PermitStatusDraft)).
		Permit(statusTrigger(entity.PermitStatusSubmitted), workflow.State(entity.PermitStatusSubmitted)).
		Permit(statusTrigger(entity.PermitStatusCancelled), workflow.State(entity.PermitStatusCancelled))

	b.Configure(workflow.State(entity.PermitStatusSubmitted)).
		Permit(statusTrigger(entity.PermitStatusUnderReview), workflow.State(entity.PermitStatusUnderReview)).
		Permit(statusTrigger(entity.PermitStatusOnHold), workflow.State(entity.PermitStatusOnHold)).
		Permit(statusTrigger(entity.PermitStatusCancelled), workflow.State(entity.PermitStatusCancelled))

	b.Configure(workflow.State(entity.PermitStatusUnderReview)).
		Permit(statusTrigger(entity.PermitStatusApproved), workflow.State(entity.PermitStatusApproved)).
		Permit(statusTrigger(entity.PermitStatusDenied), workflow.State(entity.PermitStatusDenied)).
		Permit(statusTrigger(entity.PermitStatusOnHold), workflow.State(entity.PermitStatusOnHold)).
		Permit(statusTrigger(entity.PermitStatusCancelled), workflow.State(entity.PermitStatusCancelled))

	b.Configure(workflow.State(entity.PermitStatusApproved)).
		Permit(statusTrigger(entity.PermitStatusClosed), workflow.State(entity.PermitStatusClosed)).
		Permit(statusTrigger(entity.PermitStatusExpired), workflow.State(entity.PermitStatusExpired)).
		Permit(statusTrigger(entity.PermitStatusOnHold), workflow.State(entity.PermitStatusOnHold)).
		Permit(statusTrigger(entity.PermitStatusCancelled), workflow.State(entity.PermitStatusCancelled))

	b.Configure(workflow.State(entity.PermitStatusDenied)).
		Permit(statusTrigger(entity.PermitStatusClosed), workflow.State(entity.PermitStatusClosed))

	b.Configure(workflow.State(entity.PermitStatusOnHold)).
		Permit(statusTrigger(entity.PermitStatusUnderReview), workflow.State(entity.PermitStatusUnderReview)).
		Permit(statusTrigger(entity.PermitStatusApproved), workflow.State(entity.PermitStatusApproved)).
		Permit(statusTrigger(entity.PermitStatusCancelled), workflow.State(entity.PermitStatusCancelled))

	b.Configure(workflow.State(entity.PermitStatusExpired)).
		Permit(statusTrigger(entity.PermitStatusClosed), workflow.State(entity.PermitStatusClosed))

	return b.Build(workflow.State(current))
}

// Review transitions: pending → in_review → decision states, with
// revisions_requested cycling back through re-review.
var reviewStates = []workflow.State{
	workflow.State(entity.ReviewStatusPending),
	workflow.State(entity.ReviewStatusInReview),
	workflow.State(entity.ReviewStatusApproved),
	workflow.State(entity.ReviewStatusConditionallyApproved),
	workflow.State(entity.ReviewStatusRejected),
	workflow.State(entity.ReviewStatusRevisionsRequested),
}

func newReviewMachine(current string) (workflow.Machine, error) {
	b := workflow.NewBuilder(reviewStates...)

	b.Configure(workflow.State(entity.ReviewStatusPending)).
		Permit(statusTrigger(entity.ReviewStatusInReview), workflow.State(entity.ReviewStatusInReview))

	b.Configure(workflow.State(entity.ReviewStatusInReview)).
		Permit(statusTrigger(entity.ReviewStatusApproved), workflow.State(entity.ReviewStatusApproved)).
		Permit(statusTrigger(entity.ReviewStatusConditionallyApproved), workflow.State(entity.ReviewStatusConditionallyApproved)).
		Permit(statusTrigger(entity.ReviewStatusRejected), workflow.State(entity.ReviewStatusRejected)).
		Permit(statusTrigger(entity.ReviewStatusRevisionsRequested), workflow.State(entity.ReviewStatusRevisionsRequested))

	// Revisions resubmitted, or a decided review reopened for re-review
	b.Configure(workflow.State(entity.ReviewStatusRevisionsRequested)).
		Permit(statusTrigger(entity.ReviewStatusInReview), workflow.State(entity.ReviewStatusInReview))
	b.Configure(workflow.State(entity.ReviewStatusApproved)).
		Permit(statusTrigger(entity.ReviewStatusInReview), workflow.State(entity.ReviewStatusInReview))
	b.Configure(workflow.State(entity.ReviewStatusConditionallyApproved)).
		Permit(statusTrigger(entity.ReviewStatusInReview), workflow.State(entity.ReviewStatusInReview))
	b.Configure(workflow.State(entity.ReviewStatusRejected)).
		Permit(statusTrigger(entity.ReviewStatusInReview), workflow.State(entity.ReviewStatusInReview))

	return b.Build(workflow.State(current))
}
