package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// PermitTypeRepository handles permit type database operations
type PermitTypeRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewPermitTypeRepository creates a new permit type repository
func NewPermitTypeRepository(db *database.DB, logger *zap.Logger) *PermitTypeRepository {
	return &PermitTypeRepository{
		db:     db,
		logger: logger,
	}
}

const permitTypeColumns = `id, municipality_id, name, prefix, categories, department_reviews,
	custom_form_fields, inspection_settings, linked_schedule_id,
	active, deleted_at, deleted_by, created_at, updated_at`

// Create inserts a new permit type
func (r *PermitTypeRepository) Create(ctx context.Context, pt *entity.PermitType) error {
	categories, err := json.Marshal(pt.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	reviews, err := json.Marshal(pt.DepartmentReviews)
	if err != nil {
		return fmt.Errorf("failed to marshal department reviews: %w", err)
	}
	fields, err := json.Marshal(pt.CustomFormFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom form fields: %w", err)
	}
	inspections, err := json.Marshal(pt.InspectionSettings)
	if err != nil {
		return fmt.Errorf("failed to marshal inspection settings: %w", err)
	}

	now := time.Now().UTC()
	pt.CreatedAt = now
	pt.UpdatedAt = now
	pt.Lifecycle = entity.NewLifecycle()

	query := `
		INSERT INTO permit_types (
			municipality_id, name, prefix, categories, department_reviews,
			custom_form_fields, inspection_settings, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		pt.MunicipalityID,
		pt.Name,
		pt.Prefix,
		string(categories),
		string(reviews),
		string(fields),
		string(inspections),
		pt.CreatedAt,
		pt.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create permit type", zap.Error(err))
		return fmt.Errorf("failed to create permit type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	pt.ID = id
	return nil
}

// GetByID retrieves a permit type by ID, nil if missing
func (r *PermitTypeRepository) GetByID(ctx context.Context, id int64) (*entity.PermitType, error) {
	query := `SELECT ` + permitTypeColumns + ` FROM permit_types WHERE id = ?`

	pt, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get permit type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get permit type: %w", err)
	}
	return pt, nil
}

// ListByMunicipality retrieves a municipality's active permit types
func (r *PermitTypeRepository) ListByMunicipality(ctx context.Context, municipalityID string) ([]*entity.PermitType, error) {
	query := `SELECT ` + permitTypeColumns + ` FROM permit_types WHERE municipality_id = ? AND active = 1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, municipalityID)
	if err != nil {
		r.logger.Error("Failed to list permit types", zap.String("municipality_id", municipalityID), zap.Error(err))
		return nil, fmt.Errorf("failed to list permit types: %w", err)
	}
	defer rows.Close()

	var types []*entity.PermitType
	for rows.Next() {
		pt, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permit type: %w", err)
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}

// Update persists mutable permit type fields
func (r *PermitTypeRepository) Update(ctx context.Context, pt *entity.PermitType) error {
	categories, err := json.Marshal(pt.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	reviews, err := json.Marshal(pt.DepartmentReviews)
	if err != nil {
		return fmt.Errorf("failed to marshal department reviews: %w", err)
	}
	fields, err := json.Marshal(pt.CustomFormFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom form fields: %w", err)
	}
	inspections, err := json.Marshal(pt.InspectionSettings)
	if err != nil {
		return fmt.Errorf("failed to marshal inspection settings: %w", err)
	}

	pt.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE permit_types
		SET name = ?, prefix = ?, categories = ?, department_reviews = ?,
			custom_form_fields = ?, inspection_settings = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		pt.Name,
		pt.Prefix,
		string(categories),
		string(reviews),
		string(fields),
		string(inspections),
		pt.UpdatedAt,
		pt.ID,
	); err != nil {
		r.logger.Error("Failed to update permit type", zap.Int64("id", pt.ID), zap.Error(err))
		return fmt.Errorf("failed to update permit type: %w", err)
	}
	return nil
}

// SoftDelete deactivates a permit type; existing permits keep referencing it
func (r *PermitTypeRepository) SoftDelete(ctx context.Context, id int64, userID string, at time.Time) error {
	query := `UPDATE permit_types SET active = 0, deleted_at = ?, deleted_by = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, at, userID, at, id); err != nil {
		r.logger.Error("Failed to delete permit type", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete permit type: %w", err)
	}
	return nil
}

func (r *PermitTypeRepository) scanOne(row rowScanner) (*entity.PermitType, error) {
	var pt entity.PermitType
	var categories, reviews, fields, inspections string
	var linkedScheduleID sql.NullInt64
	var active int
	var deletedAt sql.NullTime
	var deletedBy sql.NullString

	err := row.Scan(
		&pt.ID,
		&pt.MunicipalityID,
		&pt.Name,
		&pt.Prefix,
		&categories,
		&reviews,
		&fields,
		&inspections,
		&linkedScheduleID,
		&active,
		&deletedAt,
		&deletedBy,
		&pt.CreatedAt,
		&pt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categories), &pt.Categories); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}
	if err := json.Unmarshal([]byte(reviews), &pt.DepartmentReviews); err != nil {
		return nil, fmt.Errorf("failed to parse department reviews: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &pt.CustomFormFields); err != nil {
		return nil, fmt.Errorf("failed to parse custom form fields: %w", err)
	}
	if err := json.Unmarshal([]byte(inspections), &pt.InspectionSettings); err != nil {
		return nil, fmt.Errorf("failed to parse inspection settings: %w", err)
	}

	if linkedScheduleID.Valid {
		pt.FeeSchedule.LinkedScheduleID = &linkedScheduleID.Int64
	}
	pt.Lifecycle.Active = active == 1
	if deletedAt.Valid {
		pt.Lifecycle.DeletedAt = &deletedAt.Time
	}
	pt.Lifecycle.DeletedBy = deletedBy.String

	return &pt, nil
}
