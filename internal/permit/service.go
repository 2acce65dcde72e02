// Package permit implements the permit aggregate: creation, the status
// state machine, fee snapshots, department reviews and project rollups.
package permit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/feeschedule"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/utils"
)

// Repository is the persistence surface the service needs. Create allocates
// the permit number from the per-(municipality,type,year) counter inside its
// transaction, so concurrent submissions can never collide.
type Repository interface {
	Create(ctx context.Context, p *entity.Permit) error
	GetByID(ctx context.Context, id int64) (*entity.Permit, error)
	List(ctx context.Context, municipalityID string, filter ListFilter) ([]*entity.Permit, error)
	Update(ctx context.Context, p *entity.Permit) error
	SoftDelete(ctx context.Context, id int64, userID string, at time.Time) error
	// ApplyProjectDelta atomically moves one child between status buckets on
	// the parent's rollup.
	ApplyProjectDelta(ctx context.Context, parentID int64, fromStatus, toStatus string) error
	GetProjectStats(ctx context.Context, parentID int64) (*entity.ProjectStats, error)
}

// CommentRepository stores review comments
type CommentRepository interface {
	Create(ctx context.Context, c *entity.ReviewComment) error
	ListForReview(ctx context.Context, permitID int64, department string, visibilities []string) ([]*entity.ReviewComment, error)
}

// TypeReader resolves permit types
type TypeReader interface {
	GetByID(ctx context.Context, id int64) (*entity.PermitType, error)
}

// ScheduleReader resolves the active fee schedule for snapshot capture
type ScheduleReader interface {
	GetActive(ctx context.Context, permitTypeID int64, asOf time.Time) (*entity.FeeSchedule, error)
}

// ListFilter narrows permit listings
type ListFilter struct {
	Status       string
	PermitTypeID int64
	SubmittedBy  string
	ContractorID string
	PropertyID   string
	Limit        int
	Offset       int
}

// Service orchestrates the permit lifecycle
type Service struct {
	repo           Repository
	comments       CommentRepository
	types          TypeReader
	schedules      ScheduleReader
	dispatcher     *notification.Dispatcher
	expirationDays int
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a permit service
func NewService(
	repo Repository,
	comments CommentRepository,
	types TypeReader,
	schedules ScheduleReader,
	dispatcher *notification.Dispatcher,
	expirationDays int,
	logger *zap.Logger,
) *Service {
	if expirationDays <= 0 {
		expirationDays = 180
	}
	return &Service{
		repo:           repo,
		comments:       comments,
		types:          types,
		schedules:      schedules,
		dispatcher:     dispatcher,
		expirationDays: expirationDays,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput carries a new permit application
type CreateInput struct {
	PermitTypeID   int64
	PropertyID     string
	Applicant      entity.Applicant
	PermitData     entity.PermitData
	CustomFields   map[string]string
	ParentPermitID *int64
	// Submit creates the permit directly in submitted status (staff intake)
	Submit bool
}

// Create creates a permit against a permit type, seeding department reviews
// from the type's configuration. Citizens and contractors create drafts;
// staff may create directly in submitted status.
func (s *Service) Create(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, in CreateInput) (*entity.Permit, error) {
	if !principal.HasAccessToMunicipality(municipalityID) && !principal.IsApplicant() {
		return nil, apperr.Authorization("access denied")
	}
	if in.Submit && !principal.IsStaff() {
		return nil, apperr.Authorization("only staff can create submitted permits")
	}

	pt, err := s.types.GetByID(ctx, in.PermitTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil || !pt.Lifecycle.Active || pt.MunicipalityID != municipalityID {
		return nil, apperr.NotFound("permit type %d not found", in.PermitTypeID)
	}

	if in.PropertyID == "" {
		return nil, apperr.Validation("property id is required")
	}
	if in.Applicant.Name == "" {
		return nil, apperr.Validation("applicant name is required")
	}
	if in.Applicant.Email != "" {
		if err := utils.ValidateEmail(in.Applicant.Email); err != nil {
			return nil, apperr.Validation("%s", err)
		}
	}
	for _, field := range pt.CustomFormFields {
		if field.Required {
			if _, ok := in.CustomFields[field.Name]; !ok {
				return nil, apperr.Validation("missing required field %q", field.Name)
			}
		}
	}

	if in.ParentPermitID != nil {
		parent, err := s.repo.GetByID(ctx, *in.ParentPermitID)
		if err != nil {
			return nil, err
		}
		if parent == nil || !parent.Lifecycle.Active {
			return nil, apperr.NotFound("parent permit %d not found", *in.ParentPermitID)
		}
		if !parent.IsProject {
			return nil, apperr.Validation("permit %d is not a project permit", *in.ParentPermitID)
		}
	}

	now := s.now()
	p := &entity.Permit{
		MunicipalityID: municipalityID,
		PropertyID:     in.PropertyID,
		PermitTypeID:   pt.ID,
		Type:           pt.Name,
		Status:         entity.PermitStatusDraft,
		Applicant:      in.Applicant,
		ContractorID:   principal.ContractorID,
		SubmittedBy:    principal.UserID,
		PermitData:     in.PermitData,
		CustomFields:   in.CustomFields,
		IsProject:      pt.IsProject(),
		ParentPermitID: in.ParentPermitID,
		Lifecycle:      entity.NewLifecycle(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Seed one review record per configured department, in configured order
	for _, cfg := range pt.DepartmentReviews {
		p.DepartmentReviews = append(p.DepartmentReviews, entity.DepartmentReview{
			Department: cfg.Department,
			Required:   cfg.Required,
			Status:     entity.ReviewStatusPending,
		})
	}

	if p.IsProject {
		p.ProjectStats = &entity.ProjectStats{ChildrenByStatus: map[string]int{}}
	}

	if in.Submit {
		if err := s.assessFees(ctx, p, pt); err != nil {
			return nil, err
		}
		p.Status = entity.PermitStatusSubmitted
		p.SubmittedAt = &now
		p.StatusHistory = append(p.StatusHistory, entity.StatusHistoryEntry{
			FromStatus: entity.PermitStatusDraft,
			ToStatus:   entity.PermitStatusSubmitted,
			ChangedBy:  principal.UserID,
			ChangedAt:  now,
			Notes:      "created by staff",
		})
	}

	// Create allocates the permit number {year}-{PREFIX}-{seq} atomically
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Permit created",
		zap.String("permit_number", p.PermitNumber),
		zap.String("municipality_id", municipalityID),
		zap.String("status", p.Status),
		zap.String("submitted_by", principal.UserID))

	return p, nil
}

// assessFees captures the fee snapshot from the schedule currently in
// effect and materializes the fee line items. A permit keeps this snapshot
// forever; later schedule versions never touch it.
func (s *Service) assessFees(ctx context.Context, p *entity.Permit, pt *entity.PermitType) error {
	if p.FeeSnapshot != nil {
		return nil
	}

	now := s.now()
	schedule, err := s.schedules.GetActive(ctx, pt.ID, now)
	if err != nil {
		return err
	}
	if schedule == nil {
		// No fee policy configured; the permit proceeds with no fees due
		return nil
	}

	breakdown := feeschedule.CalculateFees(schedule.FeeConfiguration, p.PermitData)

	p.FeeSnapshot = &entity.FeeSnapshot{
		ScheduleID:      schedule.ID,
		ScheduleVersion: schedule.Version,
		Configuration:   schedule.FeeConfiguration,
		Breakdown:       breakdown,
		CapturedAt:      now,
	}

	p.Fees = []entity.FeeLineItem{{Name: "Base fee", Amount: breakdown.BaseFee}}
	for _, add := range breakdown.AdditionalFees {
		p.Fees = append(p.Fees, entity.FeeLineItem{Name: add.Name, Amount: add.Amount, Optional: add.Optional})
	}

	return nil
}

// Get returns a permit, recording the caller's view timestamp for unread
// tracking. Owners see their own permits; staff need municipality access.
func (s *Service) Get(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64) (*entity.Permit, error) {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(principal, p); err != nil {
		return nil, err
	}

	p.MarkViewed(principal.UserID, s.now())
	if err := s.repo.Update(ctx, p); err != nil {
		// View tracking is best-effort; the read still succeeds
		s.logger.Warn("Failed to record permit view", zap.Int64("permit_id", id), zap.Error(err))
	}

	if p.IsProject {
		stats, err := s.repo.GetProjectStats(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.ProjectStats = stats
	}

	return p, nil
}

// List returns permits visible to the caller. Applicants only ever see
// their own.
func (s *Service) List(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, filter ListFilter) ([]*entity.Permit, error) {
	if principal.IsStaff() {
		if !principal.HasAccessToMunicipality(municipalityID) {
			return nil, apperr.Authorization("access denied")
		}
	} else {
		filter.SubmittedBy = principal.UserID
		if principal.ContractorID != "" {
			filter.SubmittedBy = ""
			filter.ContractorID = principal.ContractorID
		}
	}
	return s.repo.List(ctx, municipalityID, filter)
}

// UpdateInput carries mutable permit fields
type UpdateInput struct {
	Applicant    *entity.Applicant
	PermitData   *entity.PermitData
	CustomFields map[string]string
	PropertyID   *string
}

// Update mutates non-status fields. Owners may only edit drafts; once
// submitted, only staff can mutate.
func (s *Service) Update(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, in UpdateInput) (*entity.Permit, error) {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	if principal.IsStaff() {
		if !principal.HasAccessToMunicipality(p.MunicipalityID) {
			return nil, apperr.Authorization("access denied")
		}
	} else {
		if !principal.Owns(p.SubmittedBy, p.ContractorID) {
			return nil, apperr.Authorization("access denied")
		}
		if p.Status != entity.PermitStatusDraft {
			return nil, apperr.State("only draft permits can be edited, current status is %s", p.Status)
		}
	}

	if in.Applicant != nil {
		p.Applicant = *in.Applicant
	}
	if in.PermitData != nil {
		p.PermitData = *in.PermitData
	}
	if in.CustomFields != nil {
		p.CustomFields = in.CustomFields
	}
	if in.PropertyID != nil {
		p.PropertyID = *in.PropertyID
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes a permit. Owners may only delete drafts.
func (s *Service) Delete(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64) error {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	if principal.IsStaff() {
		if !principal.HasAccessToMunicipality(p.MunicipalityID) {
			return apperr.Authorization("access denied")
		}
	} else {
		if !principal.Owns(p.SubmittedBy, p.ContractorID) {
			return apperr.Authorization("access denied")
		}
		if p.Status != entity.PermitStatusDraft {
			return apperr.State("only draft permits can be deleted, current status is %s", p.Status)
		}
	}

	return s.repo.SoftDelete(ctx, id, principal.UserID, s.now())
}

// MarkFeePaid flags a fee line item as paid, by name. Called by the payment
// collaborator after a destination transfer settles.
func (s *Service) MarkFeePaid(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, feeName string) (*entity.Permit, error) {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(principal, p); err != nil {
		return nil, err
	}

	found := false
	for i := range p.Fees {
		if p.Fees[i].Name == feeName {
			if p.Fees[i].Refunded {
				return nil, apperr.State("fee %q has been refunded", feeName)
			}
			p.Fees[i].Paid = true
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.NotFound("fee %q not found on permit", feeName)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus performs one transition through the permit state machine,
// appending to the append-only status history and applying the per-status
// side effects.
func (s *Service) UpdateStatus(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, newStatus, notes string) (*entity.Permit, error) {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	// Owners may submit or cancel their own drafts; everything else is staff
	ownerMove := principal.Owns(p.SubmittedBy, p.ContractorID) &&
		p.Status == entity.PermitStatusDraft &&
		(newStatus == entity.PermitStatusSubmitted || newStatus == entity.PermitStatusCancelled)
	if !ownerMove {
		if !principal.IsStaff() || !principal.HasAccessToMunicipality(p.MunicipalityID) {
			return nil, apperr.Authorization("access denied")
		}
	}

	machine, err := newStatusMachine(p.Status)
	if err != nil {
		return nil, err
	}
	if err := machine.Fire(ctx, statusTrigger(newStatus)); err != nil {
		return nil, apperr.State("cannot move permit from %s to %s", p.Status, newStatus)
	}

	now := s.now()
	oldStatus := p.Status

	switch newStatus {
	case entity.PermitStatusSubmitted:
		pt, err := s.types.GetByID(ctx, p.PermitTypeID)
		if err != nil {
			return nil, err
		}
		if pt == nil {
			return nil, apperr.NotFound("permit type %d not found", p.PermitTypeID)
		}
		if err := s.assessFees(ctx, p, pt); err != nil {
			return nil, err
		}
		// Payment gate: assessed fees must be settled before submission
		if len(p.Fees) > 0 && !p.FullyPaid() {
			return nil, apperr.State("permit fees must be paid in full before submission, %.2f due", p.TotalDue())
		}
		p.SubmittedAt = &now
	case entity.PermitStatusUnderReview:
		p.ReviewStartDate = &now
	case entity.PermitStatusApproved:
		p.ApprovalDate = &now
		p.ApprovedBy = principal.UserID
		expiration := now.AddDate(0, 0, s.expirationDays)
		p.ExpirationDate = &expiration
	case entity.PermitStatusDenied:
		p.DeniedBy = principal.UserID
		p.DenialReason = notes
	case entity.PermitStatusClosed:
		p.CompletionDate = &now
		p.SLA.ActualCompletion = &now
		if p.SLA.ExpectedCompletion != nil && now.After(*p.SLA.ExpectedCompletion) {
			p.SLA.Overdue = true
		}
	}

	p.Status = newStatus
	p.UpdatedAt = now
	p.StatusHistory = append(p.StatusHistory, entity.StatusHistoryEntry{
		FromStatus: oldStatus,
		ToStatus:   newStatus,
		ChangedBy:  principal.UserID,
		ChangedAt:  now,
		Notes:      notes,
	})

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	// Keep the parent project's rollup in step, by atomic bucket delta
	if p.ParentPermitID != nil {
		if err := s.repo.ApplyProjectDelta(ctx, *p.ParentPermitID, oldStatus, newStatus); err != nil {
			s.logger.Error("Failed to update project rollup",
				zap.Int64("parent_permit_id", *p.ParentPermitID),
				zap.Error(err))
		}
	}

	s.logger.Info("Permit status changed",
		zap.String("permit_number", p.PermitNumber),
		zap.String("from", oldStatus),
		zap.String("to", newStatus),
		zap.String("changed_by", principal.UserID))

	s.dispatcher.Dispatch(notification.Notification{
		UserID:       p.SubmittedBy,
		TemplateType: notification.TemplatePermitStatusChanged,
		Data: map[string]string{
			"permitNumber": p.PermitNumber,
			"fromStatus":   oldStatus,
			"toStatus":     newStatus,
			"permitId":     strconv.FormatInt(p.ID, 10),
		},
	})

	return p, nil
}

func (s *Service) getActive(ctx context.Context, id int64) (*entity.Permit, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Lifecycle.Active {
		return nil, apperr.NotFound("permit %d not found", id)
	}
	return p, nil
}

func (s *Service) authorizeRead(principal entity.AuthenticatedPrincipal, p *entity.Permit) error {
	if principal.Owns(p.SubmittedBy, p.ContractorID) {
		return nil
	}
	if principal.IsStaff() && principal.HasAccessToMunicipality(p.MunicipalityID) {
		return nil
	}
	return apperr.Authorization("access denied")
}

// FormatPermitNumber renders {year}-{PREFIX}-{sequence:06d}
func FormatPermitNumber(year int, prefix string, sequence int64) string {
	return fmt.Sprintf("%d-%s-%06d", year, prefix, sequence)
}
