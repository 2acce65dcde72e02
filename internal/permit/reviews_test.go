package permit

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

func TestAggregateReviews(t *testing.T) {
	tests := []struct {
		name    string
		reviews []entity.DepartmentReview
		want    string
	}{
		{
			name: "required rejection denies immediately",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusPending},
				{Department: "fire", Required: true, Status: entity.ReviewStatusRejected},
			},
			want: entity.PermitStatusDenied,
		},
		{
			name: "all required approving approves",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusApproved},
				{Department: "fire", Required: true, Status: entity.ReviewStatusConditionallyApproved},
			},
			want: entity.PermitStatusApproved,
		},
		{
			name: "pending required review keeps the outcome open",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusApproved},
				{Department: "fire", Required: true, Status: entity.ReviewStatusInReview},
			},
			want: "",
		},
		{
			name: "non-required reviews never block",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusApproved},
				{Department: "planning", Required: false, Status: entity.ReviewStatusPending},
			},
			want: entity.PermitStatusApproved,
		},
		{
			name: "non-required rejection does not deny",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusInReview},
				{Department: "planning", Required: false, Status: entity.ReviewStatusRejected},
			},
			want: "",
		},
		{
			name: "revisions requested keeps the outcome open",
			reviews: []entity.DepartmentReview{
				{Department: "building", Required: true, Status: entity.ReviewStatusRevisionsRequested},
			},
			want: "",
		},
		{
			name:    "no required reviews never auto-approves",
			reviews: []entity.DepartmentReview{{Department: "planning", Required: false, Status: entity.ReviewStatusApproved}},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateReviews(tt.reviews); got != tt.want {
				t.Errorf("AggregateReviews() = %q, want %q", got, tt.want)
			}
		})
	}
}

func reviewPermit(status string, reviews ...entity.DepartmentReview) *entity.Permit {
	return &entity.Permit{
		ID:                1,
		MunicipalityID:    "nashua",
		PermitNumber:      "2026-BLD-000001",
		PermitTypeID:      1,
		Status:            status,
		SubmittedBy:       "citizen-1",
		DepartmentReviews: reviews,
		Lifecycle:         entity.NewLifecycle(),
	}
}

func TestService_UpdateReview_PullsSubmittedPermitIntoReview(t *testing.T) {
	p := reviewPermit(entity.PermitStatusSubmitted,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusPending},
		entity.DepartmentReview{Department: "fire", Required: true, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	updated, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "building", entity.ReviewStatusInReview, "")
	if err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}

	if updated.Status != entity.PermitStatusUnderReview {
		t.Errorf("Status = %s, want under_review", updated.Status)
	}
	if updated.ReviewStartDate == nil {
		t.Errorf("ReviewStartDate should be set")
	}
	review := updated.ReviewFor("building")
	if review.Status != entity.ReviewStatusInReview || review.ReviewedBy != "staff-1" {
		t.Errorf("review = %s by %s, want in_review by staff-1", review.Status, review.ReviewedBy)
	}
	if len(review.ReviewHistory) != 1 {
		t.Errorf("len(ReviewHistory) = %d, want 1", len(review.ReviewHistory))
	}
	if len(updated.StatusHistory) != 1 || updated.StatusHistory[0].ToStatus != entity.PermitStatusUnderReview {
		t.Errorf("StatusHistory = %+v, want one submitted->under_review entry", updated.StatusHistory)
	}
}

func TestService_UpdateReview_FinalApprovalFlipsPermit(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusApproved},
		entity.DepartmentReview{Department: "fire", Required: true, Status: entity.ReviewStatusInReview},
		entity.DepartmentReview{Department: "planning", Required: false, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	updated, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "fire", entity.ReviewStatusApproved, "sprinklers verified")
	if err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}

	if updated.Status != entity.PermitStatusApproved {
		t.Errorf("Status = %s, want approved", updated.Status)
	}
	if updated.ApprovedBy != "staff-1" || updated.ApprovalDate == nil {
		t.Errorf("approval fields not set: ApprovedBy=%s", updated.ApprovedBy)
	}
	last := updated.StatusHistory[len(updated.StatusHistory)-1]
	if last.ToStatus != entity.PermitStatusApproved || last.Notes != "department reviews complete" {
		t.Errorf("last history entry = %+v", last)
	}
}

func TestService_UpdateReview_RequiredRejectionDeniesPermit(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusInReview},
		entity.DepartmentReview{Department: "fire", Required: true, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	updated, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "building", entity.ReviewStatusRejected, "structural plans insufficient")
	if err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}

	// One required rejection denies without waiting for the fire review.
	if updated.Status != entity.PermitStatusDenied {
		t.Errorf("Status = %s, want denied", updated.Status)
	}
	if updated.DeniedBy != "staff-1" {
		t.Errorf("DeniedBy = %s, want staff-1", updated.DeniedBy)
	}
}

func TestService_UpdateReview_ReopenFlagsReReview(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusApproved},
		entity.DepartmentReview{Department: "fire", Required: true, Status: entity.ReviewStatusInReview},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	updated, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "building", entity.ReviewStatusInReview, "revised plans received")
	if err != nil {
		t.Fatalf("UpdateReview() error = %v", err)
	}

	review := updated.ReviewFor("building")
	if !review.RequiresReReview {
		t.Errorf("reopening a decided review should flag RequiresReReview")
	}
	if review.Status != entity.ReviewStatusInReview {
		t.Errorf("review status = %s, want in_review", review.Status)
	}
}

func TestService_UpdateReview_InvalidTransition(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	// A pending review must pass through in_review before a decision.
	_, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "building", entity.ReviewStatusApproved, "")
	if !apperr.IsState(err) {
		t.Errorf("UpdateReview() error = %v, want state error", err)
	}
}

func TestService_UpdateReview_RequiresStaff(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	_, err := svc.UpdateReview(context.Background(), citizenPrincipal(), 1, "building", entity.ReviewStatusInReview, "")
	if !apperr.IsAuthorization(err) {
		t.Errorf("UpdateReview() error = %v, want authorization error", err)
	}
}

func TestService_UpdateReview_UnknownDepartment(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusPending},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	_, err := svc.UpdateReview(context.Background(), staffPrincipal(), 1, "zoning", entity.ReviewStatusInReview, "")
	if !apperr.IsNotFound(err) {
		t.Errorf("UpdateReview() error = %v, want not found", err)
	}
}

func TestService_AddComment_ApplicantPublicOnly(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusInReview},
	)
	comments := &mockCommentRepo{}
	types := &mockTypeReader{types: map[int64]*entity.PermitType{1: buildingType()}}
	svc := NewService(newMockPermitRepo(p), comments, types, &mockScheduleReader{}, testDispatcher(), 180, zap.NewNop())

	_, err := svc.AddComment(context.Background(), citizenPrincipal(), 1, "building", entity.CommentInternal, "why is this slow")
	if !apperr.IsAuthorization(err) {
		t.Errorf("internal comment by applicant error = %v, want authorization error", err)
	}

	comment, err := svc.AddComment(context.Background(), citizenPrincipal(), 1, "building", entity.CommentPublic, "uploaded revised plans")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if comment.AuthorID != "citizen-1" || comment.Visibility != entity.CommentPublic {
		t.Errorf("comment = %+v", comment)
	}
	if len(comments.comments) != 1 {
		t.Errorf("comment was not persisted")
	}
}

func TestService_AddComment_Validation(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusInReview},
	)
	svc := newPermitService(newMockPermitRepo(p), nil, nil)

	if _, err := svc.AddComment(context.Background(), staffPrincipal(), 1, "building", "everyone", "x"); !apperr.IsValidation(err) {
		t.Errorf("unknown visibility error = %v, want validation error", err)
	}
	if _, err := svc.AddComment(context.Background(), staffPrincipal(), 1, "building", entity.CommentPublic, ""); !apperr.IsValidation(err) {
		t.Errorf("empty body error = %v, want validation error", err)
	}
	if _, err := svc.AddComment(context.Background(), staffPrincipal(), 1, "zoning", entity.CommentPublic, "x"); !apperr.IsNotFound(err) {
		t.Errorf("unknown department error = %v, want not found", err)
	}
}

func TestService_ListComments_VisibilityScopes(t *testing.T) {
	p := reviewPermit(entity.PermitStatusUnderReview,
		entity.DepartmentReview{Department: "building", Required: true, Status: entity.ReviewStatusInReview},
	)
	var captured []string
	comments := &mockCommentRepo{listFunc: func(ctx context.Context, permitID int64, department string, visibilities []string) ([]*entity.ReviewComment, error) {
		captured = visibilities
		return nil, nil
	}}
	types := &mockTypeReader{types: map[int64]*entity.PermitType{1: buildingType()}}
	svc := NewService(newMockPermitRepo(p), comments, types, &mockScheduleReader{}, testDispatcher(), 180, zap.NewNop())

	if _, err := svc.ListComments(context.Background(), staffPrincipal(), 1, "building"); err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(captured) != 2 || captured[0] != entity.CommentPublic || captured[1] != entity.CommentInternal {
		t.Errorf("staff visibilities = %v, want [public internal]", captured)
	}

	if _, err := svc.ListComments(context.Background(), citizenPrincipal(), 1, "building"); err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(captured) != 1 || captured[0] != entity.CommentPublic {
		t.Errorf("owner visibilities = %v, want [public]", captured)
	}

	stranger := entity.AuthenticatedPrincipal{UserID: "other", GlobalRole: entity.RoleCitizen}
	if _, err := svc.ListComments(context.Background(), stranger, 1, "building"); !apperr.IsAuthorization(err) {
		t.Errorf("stranger ListComments() error = %v, want authorization error", err)
	}
}
