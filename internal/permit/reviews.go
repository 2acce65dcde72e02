package permit

import (
	"context"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/utils"
)

// UpdateReview advances one department's review sub-workflow and re-runs the
// permit-level aggregation rule.
func (s *Service) UpdateReview(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64, department, newStatus, notes string) (*entity.Permit, error) {
	p, err := s.getActive(ctx, permitID)
	if err != nil {
		return nil, err
	}

	if !principal.IsStaff() || !principal.HasAccessToMunicipality(p.MunicipalityID) {
		return nil, apperr.Authorization("access denied")
	}

	review := p.ReviewFor(department)
	if review == nil {
		return nil, apperr.NotFound("permit has no %s review", department)
	}

	machine, err := newReviewMachine(review.Status)
	if err != nil {
		return nil, err
	}
	if err := machine.Fire(ctx, statusTrigger(newStatus)); err != nil {
		return nil, apperr.State("cannot move %s review from %s to %s", department, review.Status, newStatus)
	}

	now := s.now()
	oldStatus := review.Status

	// Reopening a decided review flags the cycle so reports can tell a
	// first pass from a re-review
	if review.IsTerminal() && newStatus == entity.ReviewStatusInReview {
		review.RequiresReReview = true
	}

	review.Status = newStatus
	review.ReviewedBy = principal.UserID
	review.ReviewedAt = &now
	review.Notes = notes
	review.ReviewHistory = append(review.ReviewHistory, entity.ReviewHistoryEntry{
		FromStatus: oldStatus,
		ToStatus:   newStatus,
		ReviewedBy: principal.UserID,
		ReviewedAt: now,
		Notes:      notes,
	})
	p.UpdatedAt = now

	// A review entering progress pulls a submitted permit into under_review
	if p.Status == entity.PermitStatusSubmitted && newStatus == entity.ReviewStatusInReview {
		p.Status = entity.PermitStatusUnderReview
		p.ReviewStartDate = &now
		p.StatusHistory = append(p.StatusHistory, entity.StatusHistoryEntry{
			FromStatus: entity.PermitStatusSubmitted,
			ToStatus:   entity.PermitStatusUnderReview,
			ChangedBy:  principal.UserID,
			ChangedAt:  now,
			Notes:      department + " review started",
		})
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Department review updated",
		zap.String("permit_number", p.PermitNumber),
		zap.String("department", department),
		zap.String("from", oldStatus),
		zap.String("to", newStatus))

	s.dispatcher.Dispatch(notification.Notification{
		UserID:       p.SubmittedBy,
		TemplateType: notification.TemplateReviewDecision,
		Data: map[string]string{
			"permitNumber": p.PermitNumber,
			"department":   department,
			"decision":     newStatus,
		},
	})

	// Aggregation may flip the whole permit
	if decision := AggregateReviews(p.DepartmentReviews); decision != "" && p.Status == entity.PermitStatusUnderReview {
		return s.UpdateStatus(ctx, principal, p.ID, decision, "department reviews complete")
	}

	return p, nil
}

// AggregateReviews applies the permit-level aggregation rule. A required
// rejection denies immediately; approval waits for every required review to
// land in an approving state. Non-required reviews never block. Returns ""
// while the outcome is still open.
func AggregateReviews(reviews []entity.DepartmentReview) string {
	var required int
	var approving int

	for _, r := range reviews {
		if !r.Required {
			continue
		}
		required++

		if r.Status == entity.ReviewStatusRejected {
			return entity.PermitStatusDenied
		}
		if r.IsApproving() {
			approving++
		}
	}

	if required > 0 && approving == required {
		return entity.PermitStatusApproved
	}
	return ""
}

// AddComment attaches a visibility-scoped comment to a department review.
// Applicants may only write public comments, and only on their own permits.
func (s *Service) AddComment(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64, department, visibility, body string) (*entity.ReviewComment, error) {
	p, err := s.getActive(ctx, permitID)
	if err != nil {
		return nil, err
	}

	if p.ReviewFor(department) == nil {
		return nil, apperr.NotFound("permit has no %s review", department)
	}

	switch visibility {
	case entity.CommentPublic, entity.CommentInternal, entity.CommentPrivate:
	default:
		return nil, apperr.Validation("unknown visibility %q", visibility)
	}
	body = utils.SanitizeString(body)
	if body == "" {
		return nil, apperr.Validation("comment body is required")
	}

	if principal.IsStaff() {
		if !principal.HasAccessToMunicipality(p.MunicipalityID) {
			return nil, apperr.Authorization("access denied")
		}
	} else {
		if !principal.Owns(p.SubmittedBy, p.ContractorID) {
			return nil, apperr.Authorization("access denied")
		}
		if visibility != entity.CommentPublic {
			return nil, apperr.Authorization("applicants may only create public comments")
		}
	}

	comment := &entity.ReviewComment{
		PermitID:   permitID,
		Department: department,
		AuthorID:   principal.UserID,
		Visibility: visibility,
		Body:       body,
		CreatedAt:  s.now(),
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// ListComments returns the comments the caller is allowed to see: owners get
// public only, staff get public and internal, the author additionally sees
// their own private notes (private scoping is enforced in the repository by
// author id).
func (s *Service) ListComments(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64, department string) ([]*entity.ReviewComment, error) {
	p, err := s.getActive(ctx, permitID)
	if err != nil {
		return nil, err
	}

	var visibilities []string
	if principal.IsStaff() && principal.HasAccessToMunicipality(p.MunicipalityID) {
		visibilities = []string{entity.CommentPublic, entity.CommentInternal}
	} else if principal.Owns(p.SubmittedBy, p.ContractorID) {
		visibilities = []string{entity.CommentPublic}
	} else {
		return nil, apperr.Authorization("access denied")
	}

	return s.comments.ListForReview(ctx, permitID, department, visibilities)
}
