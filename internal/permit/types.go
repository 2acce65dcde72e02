package permit

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

// TypeRepository is the full persistence surface for permit type
// administration. TypeReader is the read-only slice the permit service uses.
type TypeRepository interface {
	Create(ctx context.Context, pt *entity.PermitType) error
	GetByID(ctx context.Context, id int64) (*entity.PermitType, error)
	ListByMunicipality(ctx context.Context, municipalityID string) ([]*entity.PermitType, error)
	Update(ctx context.Context, pt *entity.PermitType) error
	SoftDelete(ctx context.Context, id int64, userID string, at time.Time) error
}

// TypeService administers the permit type catalogue of a municipality
type TypeService struct {
	repo   TypeRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTypeService creates a permit type service
func NewTypeService(repo TypeRepository, logger *zap.Logger) *TypeService {
	return &TypeService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TypeService) requireAdmin(principal entity.AuthenticatedPrincipal, municipalityID string) error {
	if !principal.IsStaff() || !principal.HasAccessToMunicipality(municipalityID) {
		return apperr.Authorization("permit type administration requires municipal staff access")
	}
	return nil
}

// TypeInput carries a permit type definition
type TypeInput struct {
	Name               string                          `json:"name"`
	Prefix             string                          `json:"prefix"`
	Categories         []string                        `json:"categories,omitempty"`
	DepartmentReviews  []entity.DepartmentReviewConfig `json:"departmentReviews,omitempty"`
	CustomFormFields   []entity.CustomFormField        `json:"customFormFields,omitempty"`
	InspectionSettings entity.InspectionSettings       `json:"inspectionSettings"`
}

func (in TypeInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("permit type name is required")
	}
	if strings.TrimSpace(in.Prefix) == "" {
		return apperr.Validation("permit type prefix is required")
	}
	for _, field := range in.CustomFormFields {
		switch field.Type {
		case "text", "number", "date", "boolean", "select":
		default:
			return apperr.Validation("unsupported form field type %q for field %s", field.Type, field.Name)
		}
		if field.Type == "select" && len(field.Options) == 0 {
			return apperr.Validation("select field %s needs at least one option", field.Name)
		}
	}
	return nil
}

// CreateType adds a new permit type to the municipality's catalogue
func (s *TypeService) CreateType(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, in TypeInput) (*entity.PermitType, error) {
	if err := s.requireAdmin(principal, municipalityID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	pt := &entity.PermitType{
		MunicipalityID:     municipalityID,
		Name:               strings.TrimSpace(in.Name),
		Prefix:             strings.ToUpper(strings.TrimSpace(in.Prefix)),
		Categories:         in.Categories,
		DepartmentReviews:  in.DepartmentReviews,
		CustomFormFields:   in.CustomFormFields,
		InspectionSettings: in.InspectionSettings,
		Lifecycle:          entity.NewLifecycle(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, pt); err != nil {
		return nil, err
	}

	s.logger.Info("Permit type created",
		zap.Int64("permit_type_id", pt.ID),
		zap.String("municipality_id", municipalityID),
		zap.String("name", pt.Name))
	return pt, nil
}

// ListTypes returns the active permit types of a municipality
func (s *TypeService) ListTypes(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string) ([]*entity.PermitType, error) {
	if !principal.HasAccessToMunicipality(municipalityID) {
		return nil, apperr.Authorization("no access to municipality %s", municipalityID)
	}
	return s.repo.ListByMunicipality(ctx, municipalityID)
}

// GetType returns one permit type
func (s *TypeService) GetType(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, id int64) (*entity.PermitType, error) {
	pt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pt == nil || pt.MunicipalityID != municipalityID {
		return nil, apperr.NotFound("permit type %d not found", id)
	}
	if !principal.HasAccessToMunicipality(municipalityID) {
		return nil, apperr.Authorization("no access to municipality %s", municipalityID)
	}
	return pt, nil
}

// UpdateType replaces the mutable definition of a permit type. The prefix is
// intentionally immutable: issued permit numbers embed it.
func (s *TypeService) UpdateType(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, id int64, in TypeInput) (*entity.PermitType, error) {
	pt, err := s.GetType(ctx, principal, municipalityID, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAdmin(principal, municipalityID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = pt.Name
	}
	in.Prefix = pt.Prefix
	if err := in.validate(); err != nil {
		return nil, err
	}

	pt.Name = strings.TrimSpace(in.Name)
	pt.Categories = in.Categories
	pt.DepartmentReviews = in.DepartmentReviews
	pt.CustomFormFields = in.CustomFormFields
	pt.InspectionSettings = in.InspectionSettings
	pt.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// DeleteType soft-deletes a permit type. Existing permits keep their
// reference; new applications can no longer pick it.
func (s *TypeService) DeleteType(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, id int64) error {
	if _, err := s.GetType(ctx, principal, municipalityID, id); err != nil {
		return err
	}
	if err := s.requireAdmin(principal, municipalityID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id, principal.UserID, s.now())
}
