package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// ChecklistTemplateRepository handles inspection checklist template storage.
// The schema's partial unique index keeps at most one active template per
// (municipality, inspection type).
type ChecklistTemplateRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewChecklistTemplateRepository creates a new checklist template repository
func NewChecklistTemplateRepository(db *database.DB, logger *zap.Logger) *ChecklistTemplateRepository {
	return &ChecklistTemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a template. Creating a second active template for the same
// (municipality, inspection type) is a conflict.
func (r *ChecklistTemplateRepository) Create(ctx context.Context, t *entity.InspectionChecklistTemplate) error {
	items, err := marshalJSON(t.Items)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO checklist_templates (municipality_id, inspection_type, items, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		t.MunicipalityID,
		t.InspectionType,
		items,
		boolToInt(t.Active),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an active checklist template already exists for %s inspections", t.InspectionType)
		}
		r.logger.Error("Failed to create checklist template", zap.Error(err))
		return fmt.Errorf("failed to create checklist template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// GetActive returns the active template for the inspection type, nil if none
func (r *ChecklistTemplateRepository) GetActive(ctx context.Context, municipalityID, inspectionType string) (*entity.InspectionChecklistTemplate, error) {
	query := `
		SELECT id, municipality_id, inspection_type, items, active, created_at, updated_at
		FROM checklist_templates
		WHERE municipality_id = ? AND inspection_type = ? AND active = 1
	`

	t, err := scanChecklistTemplate(r.db.QueryRowContext(ctx, query, municipalityID, inspectionType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get checklist template",
			zap.String("municipality_id", municipalityID),
			zap.String("inspection_type", inspectionType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get checklist template: %w", err)
	}
	return t, nil
}

// Replace deactivates the current active template and inserts the new one,
// in one transaction so the unique index never trips between the steps.
func (r *ChecklistTemplateRepository) Replace(ctx context.Context, t *entity.InspectionChecklistTemplate) error {
	items, err := marshalJSON(t.Items)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.Active = true
	t.CreatedAt = now
	t.UpdatedAt = now

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE checklist_templates SET active = 0, updated_at = ?
			WHERE municipality_id = ? AND inspection_type = ? AND active = 1
		`, now, t.MunicipalityID, t.InspectionType); err != nil {
			return fmt.Errorf("failed to deactivate checklist template: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO checklist_templates (municipality_id, inspection_type, items, active, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)
		`, t.MunicipalityID, t.InspectionType, items, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert checklist template: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		t.ID = id
		return nil
	})
}

func scanChecklistTemplate(row rowScanner) (*entity.InspectionChecklistTemplate, error) {
	var t entity.InspectionChecklistTemplate
	var items string
	var active int

	if err := row.Scan(
		&t.ID,
		&t.MunicipalityID,
		&t.InspectionType,
		&items,
		&active,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(items, &t.Items); err != nil {
		return nil, err
	}
	t.Active = active == 1
	return &t, nil
}
