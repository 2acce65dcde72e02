package inspection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
)

// Repository is the inspection persistence surface. Book re-validates the
// chosen inspector's cap and conflicts inside its transaction, so two
// concurrent bookings cannot both slip past the scheduler's check; a raced
// booking surfaces as a conflict error.
type Repository interface {
	Book(ctx context.Context, insp *entity.PermitInspection, maxPerDay int) error
	GetByID(ctx context.Context, id int64) (*entity.PermitInspection, error)
	ListForPermit(ctx context.Context, permitID int64) ([]*entity.PermitInspection, error)
	Update(ctx context.Context, insp *entity.PermitInspection) error
	ListForInspectorDay(ctx context.Context, inspectorID string, day time.Time) ([]*entity.PermitInspection, error)
}

// InspectorReader lists the municipality's inspector pool
type InspectorReader interface {
	ListActive(ctx context.Context, municipalityID string) ([]entity.Inspector, error)
	GetByID(ctx context.Context, id string) (*entity.Inspector, error)
}

// HoursReader lists the municipality's bookable day-of-week windows
type HoursReader interface {
	ListWindows(ctx context.Context, municipalityID string) ([]entity.DayWindow, error)
}

// TemplateReader resolves the active checklist template
type TemplateReader interface {
	GetActive(ctx context.Context, municipalityID, inspectionType string) (*entity.InspectionChecklistTemplate, error)
}

// PermitReader resolves permits for booking authorization
type PermitReader interface {
	GetByID(ctx context.Context, id int64) (*entity.Permit, error)
}

// TypeReader resolves permit types for inspection requirements
type TypeReader interface {
	GetByID(ctx context.Context, id int64) (*entity.PermitType, error)
}

// Service manages the inspection lifecycle
type Service struct {
	repo              Repository
	inspectors        InspectorReader
	hours             HoursReader
	templates         TemplateReader
	permits           PermitReader
	types             TypeReader
	scheduler         *Scheduler
	dispatcher        *notification.Dispatcher
	defaultBufferDays int
	slotMinutes       int
	logger            *zap.Logger
	now               func() time.Time
}

// NewService creates an inspection service
func NewService(
	repo Repository,
	inspectors InspectorReader,
	hours HoursReader,
	templates TemplateReader,
	permits PermitReader,
	types TypeReader,
	scheduler *Scheduler,
	dispatcher *notification.Dispatcher,
	defaultBufferDays, slotMinutes int,
	logger *zap.Logger,
) *Service {
	if defaultBufferDays < 0 {
		defaultBufferDays = 1
	}
	if slotMinutes <= 0 {
		slotMinutes = 60
	}
	return &Service{
		repo:              repo,
		inspectors:        inspectors,
		hours:             hours,
		templates:         templates,
		permits:           permits,
		types:             types,
		scheduler:         scheduler,
		dispatcher:        dispatcher,
		defaultBufferDays: defaultBufferDays,
		slotMinutes:       slotMinutes,
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// BookInput is a booking request
type BookInput struct {
	Type string
	Slot entity.TimeSlot
}

// Book schedules an inspection against an approved permit, auto-assigning
// the first available inspector.
func (s *Service) Book(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64, in BookInput) (*entity.PermitInspection, error) {
	p, pt, err := s.loadApprovedPermit(ctx, principal, permitID)
	if err != nil {
		return nil, err
	}

	if !entity.IsInspectionType(in.Type) {
		return nil, apperr.Validation("unknown inspection type %q", in.Type)
	}
	if !in.Slot.End.After(in.Slot.Start) {
		return nil, apperr.Validation("slot end must be after start")
	}

	bufferDays := s.defaultBufferDays
	if req, ok := pt.RequirementFor(in.Type); ok && req.BufferDays > 0 {
		bufferDays = req.BufferDays
	}
	if err := s.checkBuffer(in.Slot.Start, bufferDays); err != nil {
		return nil, err
	}

	pool, err := s.inspectors.ListActive(ctx, p.MunicipalityID)
	if err != nil {
		return nil, err
	}

	insp, err := s.assign(ctx, p, in.Type, in.Slot, pool)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inspection booked",
		zap.Int64("permit_id", permitID),
		zap.String("type", in.Type),
		zap.String("inspector", insp.InspectorID),
		zap.Time("scheduled", insp.ScheduledDate))

	s.dispatcher.Dispatch(notification.Notification{
		UserID:       p.SubmittedBy,
		TemplateType: notification.TemplateInspectionScheduled,
		Data: map[string]string{
			"permitNumber": p.PermitNumber,
			"type":         in.Type,
			"date":         insp.ScheduledDate.Format("2006-01-02"),
		},
	})

	return insp, nil
}

// assign walks the pool first-fit and books against the first inspector the
// transactional re-check also accepts.
func (s *Service) assign(ctx context.Context, p *entity.Permit, inspectionType string, slot entity.TimeSlot, pool []entity.Inspector) (*entity.PermitInspection, error) {
	now := s.now()

	for len(pool) > 0 {
		chosen, err := s.scheduler.FindAvailableInspector(ctx, slot, inspectionType, pool)
		if err != nil {
			return nil, err
		}
		if chosen == nil {
			return nil, apperr.Validation("no inspector is available for the requested slot")
		}

		insp := &entity.PermitInspection{
			PermitID:          p.ID,
			MunicipalityID:    p.MunicipalityID,
			PropertyID:        p.PropertyID,
			Type:              inspectionType,
			ScheduledDate:     slot.Start,
			ScheduledTimeSlot: slot,
			InspectorID:       chosen.ID,
			Status:            entity.InspectionStatusScheduled,
			Result:            entity.InspectionResultPending,
			History: []entity.InspectionHistoryEntry{{
				Action:      "scheduled",
				PerformedBy: chosen.ID,
				PerformedAt: now,
				Details:     fmt.Sprintf("auto-assigned to %s", chosen.Name),
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.repo.Book(ctx, insp, chosen.MaxPerDay)
		if err == nil {
			return insp, nil
		}
		if !apperr.IsConflict(err) {
			return nil, err
		}

		// Lost the race for this inspector's calendar; drop them from the
		// pool and try the next fit
		pool = withoutInspector(pool, chosen.ID)
	}

	return nil, apperr.Validation("no inspector is available for the requested slot")
}

func withoutInspector(pool []entity.Inspector, id string) []entity.Inspector {
	out := pool[:0]
	for _, i := range pool {
		if i.ID != id {
			out = append(out, i)
		}
	}
	return out
}

// checkBuffer enforces the advance-notice rule at day granularity
func (s *Service) checkBuffer(requested time.Time, bufferDays int) error {
	minDate := startOfDay(s.now()).AddDate(0, 0, bufferDays)
	if startOfDay(requested).Before(minDate) {
		return apperr.Validation("this inspection requires at least %d day(s) advance notice; earliest available date is %s",
			bufferDays, minDate.Format("2006-01-02"))
	}
	return nil
}

// AvailableSlots enumerates bookable slots for a permit's inspection type
// over a date range.
func (s *Service) AvailableSlots(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64, inspectionType string, from, to time.Time) ([]AvailableSlot, error) {
	p, pt, err := s.loadApprovedPermit(ctx, principal, permitID)
	if err != nil {
		return nil, err
	}

	minutes := s.slotMinutes
	if req, ok := pt.RequirementFor(inspectionType); ok && req.EstimatedMinutes > 0 {
		minutes = req.EstimatedMinutes
	}

	windows, err := s.hours.ListWindows(ctx, p.MunicipalityID)
	if err != nil {
		return nil, err
	}
	pool, err := s.inspectors.ListActive(ctx, p.MunicipalityID)
	if err != nil {
		return nil, err
	}

	return s.scheduler.EnumerateSlots(ctx, from, to, windows, minutes, inspectionType, pool)
}

// Get returns an inspection, instantiating its checklist from the active
// template on first access.
func (s *Service) Get(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64) (*entity.PermitInspection, error) {
	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp == nil {
		return nil, apperr.NotFound("inspection %d not found", id)
	}
	if !principal.IsStaff() {
		p, err := s.permits.GetByID(ctx, insp.PermitID)
		if err != nil {
			return nil, err
		}
		if p == nil || !principal.Owns(p.SubmittedBy, p.ContractorID) {
			return nil, apperr.Authorization("access denied")
		}
	}

	if len(insp.Checklist) == 0 {
		if err := s.instantiateChecklist(ctx, insp); err != nil {
			return nil, err
		}
	}

	return insp, nil
}

// instantiateChecklist snapshots the active template onto the inspection.
// The copy is by value: later template edits never reach this inspection.
func (s *Service) instantiateChecklist(ctx context.Context, insp *entity.PermitInspection) error {
	template, err := s.templates.GetActive(ctx, insp.MunicipalityID, insp.Type)
	if err != nil {
		return err
	}
	if template == nil {
		return nil
	}

	insp.Checklist = template.Instantiate()
	insp.UpdatedAt = s.now()
	return s.repo.Update(ctx, insp)
}

// ListForPermit returns all inspections of a permit
func (s *Service) ListForPermit(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64) ([]*entity.PermitInspection, error) {
	p, err := s.permits.GetByID(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Lifecycle.Active {
		return nil, apperr.NotFound("permit %d not found", permitID)
	}
	if !principal.IsStaff() && !principal.Owns(p.SubmittedBy, p.ContractorID) {
		return nil, apperr.Authorization("access denied")
	}
	return s.repo.ListForPermit(ctx, permitID)
}

// StatusInput updates inspection status and optionally the result
type StatusInput struct {
	Status string
	Result string
	Notes  string
}

// UpdateStatus records an inspector's progress or outcome. Completed and
// cancelled are terminal.
func (s *Service) UpdateStatus(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, in StatusInput) (*entity.PermitInspection, error) {
	if !principal.IsStaff() {
		return nil, apperr.Authorization("access denied")
	}

	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp == nil {
		return nil, apperr.NotFound("inspection %d not found", id)
	}

	if insp.Status == entity.InspectionStatusCompleted || insp.Status == entity.InspectionStatusCancelled {
		return nil, apperr.State("inspection is %s and can no longer be modified", insp.Status)
	}

	switch in.Status {
	case entity.InspectionStatusInProgress, entity.InspectionStatusCompleted,
		entity.InspectionStatusCancelled, entity.InspectionStatusNoAccess:
	default:
		return nil, apperr.Validation("unknown inspection status %q", in.Status)
	}

	if in.Result != "" {
		switch in.Result {
		case entity.InspectionResultPassed, entity.InspectionResultFailed,
			entity.InspectionResultPartial, entity.InspectionResultConditional,
			entity.InspectionResultCancelled:
			insp.Result = in.Result
		default:
			return nil, apperr.Validation("unknown inspection result %q", in.Result)
		}
	}
	if in.Status == entity.InspectionStatusCancelled && insp.Result == entity.InspectionResultPending {
		insp.Result = entity.InspectionResultCancelled
	}

	now := s.now()
	insp.Status = in.Status
	insp.RefreshReinspection()
	insp.History = append(insp.History, entity.InspectionHistoryEntry{
		Action:      "status_" + in.Status,
		PerformedBy: principal.UserID,
		PerformedAt: now,
		Details:     in.Notes,
	})
	insp.UpdatedAt = now

	if err := s.repo.Update(ctx, insp); err != nil {
		return nil, err
	}

	if in.Status == entity.InspectionStatusCompleted {
		s.notifyResult(ctx, insp)
	}

	return insp, nil
}

func (s *Service) notifyResult(ctx context.Context, insp *entity.PermitInspection) {
	p, err := s.permits.GetByID(ctx, insp.PermitID)
	if err != nil || p == nil {
		return
	}
	s.dispatcher.Dispatch(notification.Notification{
		UserID:       p.SubmittedBy,
		TemplateType: notification.TemplateInspectionResult,
		Data: map[string]string{
			"permitNumber": p.PermitNumber,
			"type":         insp.Type,
			"result":       insp.Result,
			"inspectionId": strconv.FormatInt(insp.ID, 10),
		},
	})
}

// AddViolation records a correctable defect found in the field
func (s *Service) AddViolation(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, v entity.Violation) (*entity.PermitInspection, error) {
	if !principal.IsStaff() {
		return nil, apperr.Authorization("access denied")
	}

	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp == nil {
		return nil, apperr.NotFound("inspection %d not found", id)
	}
	if insp.Status == entity.InspectionStatusCancelled {
		return nil, apperr.State("cannot add violations to a cancelled inspection")
	}
	if v.Description == "" {
		return nil, apperr.Validation("violation description is required")
	}

	now := s.now()
	v.RecordedBy = principal.UserID
	v.RecordedAt = now
	insp.Violations = append(insp.Violations, v)
	insp.RefreshReinspection()
	insp.History = append(insp.History, entity.InspectionHistoryEntry{
		Action:      "violation_added",
		PerformedBy: principal.UserID,
		PerformedAt: now,
		Details:     v.Description,
	})
	insp.UpdatedAt = now

	if err := s.repo.Update(ctx, insp); err != nil {
		return nil, err
	}
	return insp, nil
}

// Reschedule moves an inspection to a new slot, re-validating buffer days
// and re-running assignment. The new slot may land on a different inspector.
func (s *Service) Reschedule(ctx context.Context, principal entity.AuthenticatedPrincipal, id int64, newSlot entity.TimeSlot, reason string) (*entity.PermitInspection, error) {
	if !principal.IsStaff() {
		return nil, apperr.Authorization("access denied")
	}

	insp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if insp == nil {
		return nil, apperr.NotFound("inspection %d not found", id)
	}
	if insp.Status == entity.InspectionStatusCompleted || insp.Status == entity.InspectionStatusCancelled {
		return nil, apperr.State("inspection is %s and cannot be rescheduled", insp.Status)
	}
	if !newSlot.End.After(newSlot.Start) {
		return nil, apperr.Validation("slot end must be after start")
	}

	p, err := s.permits.GetByID(ctx, insp.PermitID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("permit %d not found", insp.PermitID)
	}
	pt, err := s.types.GetByID(ctx, p.PermitTypeID)
	if err != nil {
		return nil, err
	}

	bufferDays := s.defaultBufferDays
	if pt != nil {
		if req, ok := pt.RequirementFor(insp.Type); ok && req.BufferDays > 0 {
			bufferDays = req.BufferDays
		}
	}
	if err := s.checkBuffer(newSlot.Start, bufferDays); err != nil {
		return nil, err
	}

	pool, err := s.inspectors.ListActive(ctx, insp.MunicipalityID)
	if err != nil {
		return nil, err
	}
	chosen, err := s.scheduler.FindAvailableInspector(ctx, newSlot, insp.Type, pool)
	if err != nil {
		return nil, err
	}
	if chosen == nil {
		return nil, apperr.Validation("no inspector is available for the requested slot")
	}

	now := s.now()
	oldDate := insp.ScheduledDate
	insp.ScheduledDate = newSlot.Start
	insp.ScheduledTimeSlot = newSlot
	insp.InspectorID = chosen.ID
	insp.Status = entity.InspectionStatusRescheduled
	insp.History = append(insp.History, entity.InspectionHistoryEntry{
		Action:      "rescheduled",
		PerformedBy: principal.UserID,
		PerformedAt: now,
		Details: fmt.Sprintf("moved from %s to %s: %s",
			oldDate.Format("2006-01-02 15:04"), newSlot.Start.Format("2006-01-02 15:04"), reason),
	})
	insp.UpdatedAt = now

	if err := s.repo.Update(ctx, insp); err != nil {
		return nil, err
	}
	return insp, nil
}

// loadApprovedPermit authorizes the caller and requires approved status;
// inspections only ever attach to approved permits.
func (s *Service) loadApprovedPermit(ctx context.Context, principal entity.AuthenticatedPrincipal, permitID int64) (*entity.Permit, *entity.PermitType, error) {
	p, err := s.permits.GetByID(ctx, permitID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil || !p.Lifecycle.Active {
		return nil, nil, apperr.NotFound("permit %d not found", permitID)
	}
	if !principal.IsStaff() && !principal.Owns(p.SubmittedBy, p.ContractorID) {
		return nil, nil, apperr.Authorization("access denied")
	}
	if p.Status != entity.PermitStatusApproved {
		return nil, nil, apperr.State("inspections can only be scheduled for approved permits, current status is %s", p.Status)
	}

	pt, err := s.types.GetByID(ctx, p.PermitTypeID)
	if err != nil {
		return nil, nil, err
	}
	if pt == nil {
		return nil, nil, apperr.NotFound("permit type %d not found", p.PermitTypeID)
	}

	return p, pt, nil
}
