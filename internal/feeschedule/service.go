package feeschedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

// Repository is the persistence surface the service needs
type Repository interface {
	Create(ctx context.Context, schedule *entity.FeeSchedule) error
	GetByID(ctx context.Context, id int64) (*entity.FeeSchedule, error)
	ListByPermitType(ctx context.Context, permitTypeID int64) ([]*entity.FeeSchedule, error)
	GetActive(ctx context.Context, permitTypeID int64, asOf time.Time) (*entity.FeeSchedule, error)
	MaxVersion(ctx context.Context, permitTypeID int64) (int, error)
	// Activate atomically archives the current active schedule for the same
	// permit type and activates the given one, refreshing the permit type's
	// linked-schedule cache in the same transaction.
	Activate(ctx context.Context, schedule *entity.FeeSchedule, userID string, now time.Time) error
	SetScheduled(ctx context.Context, id int64, effectiveDate time.Time) error
	ListScheduledToActivate(ctx context.Context, asOf time.Time) ([]*entity.FeeSchedule, error)
}

// PermitTypeReader resolves permit types for authorization checks
type PermitTypeReader interface {
	GetByID(ctx context.Context, id int64) (*entity.PermitType, error)
}

// Service manages fee schedule versions for permit types
type Service struct {
	repo        Repository
	permitTypes PermitTypeReader
	logger      *zap.Logger
}

// NewService creates a fee schedule service
func NewService(repo Repository, permitTypes PermitTypeReader, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		permitTypes: permitTypes,
		logger:      logger,
	}
}

func (s *Service) authorize(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID int64) (*entity.PermitType, error) {
	pt, err := s.permitTypes.GetByID(ctx, permitTypeID)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, apperr.NotFound("permit type %d not found", permitTypeID)
	}
	if !principal.HasModulePermission(pt.MunicipalityID, "permits", "admin") {
		return nil, apperr.Authorization("access denied")
	}
	return pt, nil
}

// GetActiveSchedule returns the schedule in effect for the permit type as of
// the given date, or nil if none.
func (s *Service) GetActiveSchedule(ctx context.Context, permitTypeID int64, asOf time.Time) (*entity.FeeSchedule, error) {
	return s.repo.GetActive(ctx, permitTypeID, asOf)
}

// GetNextVersion returns max(version)+1 for the permit type, or 1
func (s *Service) GetNextVersion(ctx context.Context, permitTypeID int64) (int, error) {
	max, err := s.repo.MaxVersion(ctx, permitTypeID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// List returns all schedule versions of a permit type
func (s *Service) List(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID int64) ([]*entity.FeeSchedule, error) {
	if _, err := s.authorize(ctx, principal, permitTypeID); err != nil {
		return nil, err
	}
	return s.repo.ListByPermitType(ctx, permitTypeID)
}

// Get returns one schedule version
func (s *Service) Get(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID, scheduleID int64) (*entity.FeeSchedule, error) {
	if _, err := s.authorize(ctx, principal, permitTypeID); err != nil {
		return nil, err
	}
	schedule, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil || schedule.PermitTypeID != permitTypeID {
		return nil, apperr.NotFound("fee schedule %d not found", scheduleID)
	}
	return schedule, nil
}

// Create creates a new draft schedule at the next version number
func (s *Service) Create(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID int64, cfg entity.FeeConfiguration, effectiveDate *time.Time) (*entity.FeeSchedule, error) {
	if _, err := s.authorize(ctx, principal, permitTypeID); err != nil {
		return nil, err
	}
	if err := ValidateConfiguration(cfg); err != nil {
		return nil, err
	}

	version, err := s.GetNextVersion(ctx, permitTypeID)
	if err != nil {
		return nil, err
	}

	schedule := &entity.FeeSchedule{
		PermitTypeID:     permitTypeID,
		Version:          version,
		Status:           entity.ScheduleStatusDraft,
		EffectiveDate:    effectiveDate,
		FeeConfiguration: cfg,
		CreatedBy:        principal.UserID,
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	s.logger.Info("Fee schedule created",
		zap.Int64("permit_type_id", permitTypeID),
		zap.Int("version", version),
		zap.String("created_by", principal.UserID))

	return schedule, nil
}

// CreateNewVersion clones the configuration of an existing schedule into a
// new draft at the next version number, linking previousVersionId.
func (s *Service) CreateNewVersion(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID, sourceID int64) (*entity.FeeSchedule, error) {
	source, err := s.Get(ctx, principal, permitTypeID, sourceID)
	if err != nil {
		return nil, err
	}

	version, err := s.GetNextVersion(ctx, source.PermitTypeID)
	if err != nil {
		return nil, err
	}

	clone := &entity.FeeSchedule{
		PermitTypeID:      source.PermitTypeID,
		Version:           version,
		Status:            entity.ScheduleStatusDraft,
		FeeConfiguration:  source.FeeConfiguration,
		CreatedBy:         principal.UserID,
		PreviousVersionID: &source.ID,
	}

	if err := s.repo.Create(ctx, clone); err != nil {
		return nil, err
	}

	s.logger.Info("Fee schedule version cloned",
		zap.Int64("source_id", sourceID),
		zap.Int("version", version))

	return clone, nil
}

// Activate archives the current active schedule for the permit type and
// activates this one. An unset or future effective date is forced to now.
func (s *Service) Activate(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID, scheduleID int64) (*entity.FeeSchedule, error) {
	schedule, err := s.Get(ctx, principal, permitTypeID, scheduleID)
	if err != nil {
		return nil, err
	}

	if schedule.Status == entity.ScheduleStatusActive {
		return nil, apperr.State("fee schedule version %d is already active", schedule.Version)
	}
	if schedule.Status == entity.ScheduleStatusArchived {
		return nil, apperr.State("archived fee schedules cannot be activated")
	}

	now := time.Now().UTC()
	if err := s.repo.Activate(ctx, schedule, principal.UserID, now); err != nil {
		return nil, err
	}

	s.logger.Info("Fee schedule activated",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("permit_type_id", schedule.PermitTypeID),
		zap.Int("version", schedule.Version),
		zap.String("activated_by", principal.UserID))

	return s.repo.GetByID(ctx, schedule.ID)
}

// Schedule marks a draft for future activation. A past or present effective
// date is a validation error.
func (s *Service) Schedule(ctx context.Context, principal entity.AuthenticatedPrincipal, permitTypeID, scheduleID int64, effectiveDate time.Time) (*entity.FeeSchedule, error) {
	schedule, err := s.Get(ctx, principal, permitTypeID, scheduleID)
	if err != nil {
		return nil, err
	}

	if !effectiveDate.After(time.Now().UTC()) {
		return nil, apperr.Validation("effective date must be in the future")
	}
	if schedule.Status != entity.ScheduleStatusDraft {
		return nil, apperr.State("only draft fee schedules can be scheduled, current status is %s", schedule.Status)
	}

	if err := s.repo.SetScheduled(ctx, schedule.ID, effectiveDate); err != nil {
		return nil, err
	}

	schedule.Status = entity.ScheduleStatusScheduled
	schedule.EffectiveDate = &effectiveDate
	return schedule, nil
}

// CalculateForType runs a dry-run fee calculation against the active
// schedule of the permit type.
func (s *Service) CalculateForType(ctx context.Context, permitTypeID int64, data entity.PermitData) (*entity.FeeBreakdown, error) {
	schedule, err := s.repo.GetActive(ctx, permitTypeID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, apperr.NotFound("no active fee schedule for permit type %d", permitTypeID)
	}

	breakdown := CalculateFees(schedule.FeeConfiguration, data)
	return &breakdown, nil
}

// ActivateDue promotes scheduled versions whose effective date has arrived.
// Called by the background sweeper; each activation is independent so one
// failure does not block the rest.
func (s *Service) ActivateDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListScheduledToActivate(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list scheduled fee schedules: %w", err)
	}

	var activated int
	for _, schedule := range due {
		if err := s.repo.Activate(ctx, schedule, "system", asOf); err != nil {
			s.logger.Error("Failed to activate scheduled fee schedule",
				zap.Int64("schedule_id", schedule.ID),
				zap.Error(err))
			continue
		}
		activated++
		s.logger.Info("Scheduled fee schedule activated",
			zap.Int64("schedule_id", schedule.ID),
			zap.Int64("permit_type_id", schedule.PermitTypeID))
	}

	return activated, nil
}
