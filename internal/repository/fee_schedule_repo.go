// Package repository implements SQLite persistence for the permit lifecycle
// engine. Nested sub-documents (reviews, histories, fee configurations) are
// stored as JSON text columns; everything queried or constrained lives in
// real columns.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// FeeScheduleRepository handles fee schedule database operations
type FeeScheduleRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewFeeScheduleRepository creates a new fee schedule repository
func NewFeeScheduleRepository(db *database.DB, logger *zap.Logger) *FeeScheduleRepository {
	return &FeeScheduleRepository{
		db:     db,
		logger: logger,
	}
}

const feeScheduleColumns = `id, permit_type_id, version, status, effective_date, end_date,
	configuration, created_by, previous_version_id, activated_at, activated_by,
	archived_at, archived_by, archived_reason, created_at, updated_at`

// Create inserts a new schedule version. A duplicate (permit_type_id, version)
// surfaces as a conflict.
func (r *FeeScheduleRepository) Create(ctx context.Context, schedule *entity.FeeSchedule) error {
	cfgJSON, err := json.Marshal(schedule.FeeConfiguration)
	if err != nil {
		return fmt.Errorf("failed to marshal fee configuration: %w", err)
	}

	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	if schedule.Status == "" {
		schedule.Status = entity.ScheduleStatusDraft
	}

	query := `
		INSERT INTO fee_schedules (
			permit_type_id, version, status, effective_date, configuration,
			created_by, previous_version_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		schedule.PermitTypeID,
		schedule.Version,
		schedule.Status,
		schedule.EffectiveDate,
		string(cfgJSON),
		schedule.CreatedBy,
		schedule.PreviousVersionID,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("fee schedule version %d already exists for permit type %d", schedule.Version, schedule.PermitTypeID)
		}
		r.logger.Error("Failed to create fee schedule", zap.Error(err))
		return fmt.Errorf("failed to create fee schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	schedule.ID = id
	return nil
}

// GetByID retrieves a schedule by ID, nil if missing
func (r *FeeScheduleRepository) GetByID(ctx context.Context, id int64) (*entity.FeeSchedule, error) {
	query := `SELECT ` + feeScheduleColumns + ` FROM fee_schedules WHERE id = ?`

	schedule, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get fee schedule", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get fee schedule: %w", err)
	}
	return schedule, nil
}

// ListByPermitType retrieves all versions of a permit type, newest first
func (r *FeeScheduleRepository) ListByPermitType(ctx context.Context, permitTypeID int64) ([]*entity.FeeSchedule, error) {
	query := `SELECT ` + feeScheduleColumns + ` FROM fee_schedules WHERE permit_type_id = ? ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query, permitTypeID)
	if err != nil {
		r.logger.Error("Failed to list fee schedules", zap.Int64("permit_type_id", permitTypeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list fee schedules: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// GetActive returns the schedule in effect for the permit type as of the
// given time, or nil. The partial unique index guarantees at most one row.
func (r *FeeScheduleRepository) GetActive(ctx context.Context, permitTypeID int64, asOf time.Time) (*entity.FeeSchedule, error) {
	query := `
		SELECT ` + feeScheduleColumns + `
		FROM fee_schedules
		WHERE permit_type_id = ? AND status = ?
			AND (effective_date IS NULL OR effective_date <= ?)
	`

	schedule, err := r.scanOne(r.db.QueryRowContext(ctx, query, permitTypeID, entity.ScheduleStatusActive, asOf))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active fee schedule", zap.Int64("permit_type_id", permitTypeID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active fee schedule: %w", err)
	}
	return schedule, nil
}

// MaxVersion returns the highest version for a permit type, 0 if none
func (r *FeeScheduleRepository) MaxVersion(ctx context.Context, permitTypeID int64) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM fee_schedules WHERE permit_type_id = ?`

	var max int
	if err := r.db.QueryRowContext(ctx, query, permitTypeID).Scan(&max); err != nil {
		r.logger.Error("Failed to get max version", zap.Int64("permit_type_id", permitTypeID), zap.Error(err))
		return 0, fmt.Errorf("failed to get max version: %w", err)
	}
	return max, nil
}

// Activate archives the current active schedule for the permit type,
// activates the given one and refreshes the permit type's linked-schedule
// cache, all in one transaction. Two concurrent activations serialize on the
// transaction; the loser's archive touches zero rows and both end with
// exactly one active version.
func (r *FeeScheduleRepository) Activate(ctx context.Context, schedule *entity.FeeSchedule, userID string, now time.Time) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		archive := `
			UPDATE fee_schedules
			SET status = ?, end_date = ?, archived_at = ?, archived_by = ?,
				archived_reason = ?, updated_at = ?
			WHERE permit_type_id = ? AND status = ? AND id != ?
		`
		if _, err := tx.ExecContext(ctx, archive,
			entity.ScheduleStatusArchived, now, now, userID,
			fmt.Sprintf("superseded by version %d", schedule.Version), now,
			schedule.PermitTypeID, entity.ScheduleStatusActive, schedule.ID,
		); err != nil {
			return fmt.Errorf("failed to archive current schedule: %w", err)
		}

		activate := `
			UPDATE fee_schedules
			SET status = ?, effective_date = COALESCE(effective_date, ?),
				activated_at = ?, activated_by = ?, updated_at = ?
			WHERE id = ? AND status != ?
		`
		result, err := tx.ExecContext(ctx, activate,
			entity.ScheduleStatusActive, now, now, userID, now,
			schedule.ID, entity.ScheduleStatusArchived,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("another schedule version was activated concurrently for permit type %d", schedule.PermitTypeID)
			}
			return fmt.Errorf("failed to activate schedule: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return apperr.State("fee schedule %d can no longer be activated", schedule.ID)
		}

		cache := `UPDATE permit_types SET linked_schedule_id = ?, updated_at = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, cache, schedule.ID, now, schedule.PermitTypeID); err != nil {
			return fmt.Errorf("failed to refresh linked schedule: %w", err)
		}

		return nil
	})
}

// SetScheduled marks a draft for future activation
func (r *FeeScheduleRepository) SetScheduled(ctx context.Context, id int64, effectiveDate time.Time) error {
	query := `
		UPDATE fee_schedules
		SET status = ?, effective_date = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, entity.ScheduleStatusScheduled, effectiveDate, time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to schedule fee schedule", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to schedule fee schedule: %w", err)
	}
	return nil
}

// ListScheduledToActivate returns scheduled versions whose effective date
// has arrived.
func (r *FeeScheduleRepository) ListScheduledToActivate(ctx context.Context, asOf time.Time) ([]*entity.FeeSchedule, error) {
	query := `
		SELECT ` + feeScheduleColumns + `
		FROM fee_schedules
		WHERE status = ? AND effective_date IS NOT NULL AND effective_date <= ?
		ORDER BY effective_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entity.ScheduleStatusScheduled, asOf)
	if err != nil {
		r.logger.Error("Failed to list due fee schedules", zap.Error(err))
		return nil, fmt.Errorf("failed to list due fee schedules: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *FeeScheduleRepository) scanOne(row rowScanner) (*entity.FeeSchedule, error) {
	var schedule entity.FeeSchedule
	var cfgJSON string
	var effectiveDate, endDate, activatedAt, archivedAt sql.NullTime
	var activatedBy, archivedBy, archivedReason sql.NullString
	var previousVersionID sql.NullInt64

	err := row.Scan(
		&schedule.ID,
		&schedule.PermitTypeID,
		&schedule.Version,
		&schedule.Status,
		&effectiveDate,
		&endDate,
		&cfgJSON,
		&schedule.CreatedBy,
		&previousVersionID,
		&activatedAt,
		&activatedBy,
		&archivedAt,
		&archivedBy,
		&archivedReason,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfgJSON), &schedule.FeeConfiguration); err != nil {
		return nil, fmt.Errorf("failed to parse fee configuration: %w", err)
	}

	if effectiveDate.Valid {
		schedule.EffectiveDate = &effectiveDate.Time
	}
	if endDate.Valid {
		schedule.EndDate = &endDate.Time
	}
	if previousVersionID.Valid {
		schedule.PreviousVersionID = &previousVersionID.Int64
	}
	if activatedAt.Valid {
		schedule.ActivatedAt = &activatedAt.Time
	}
	schedule.ActivatedBy = activatedBy.String
	if archivedAt.Valid {
		schedule.ArchivedAt = &archivedAt.Time
	}
	schedule.ArchivedBy = archivedBy.String
	schedule.ArchivedReason = archivedReason.String

	return &schedule, nil
}

func (r *FeeScheduleRepository) scanAll(rows *sql.Rows) ([]*entity.FeeSchedule, error) {
	var schedules []*entity.FeeSchedule
	for rows.Next() {
		schedule, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// isUniqueViolation detects sqlite unique-constraint failures without
// binding repository code to the driver's error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
