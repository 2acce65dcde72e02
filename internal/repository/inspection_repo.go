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

// InspectionRepository handles inspection database operations
type InspectionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInspectionRepository creates a new inspection repository
func NewInspectionRepository(db *database.DB, logger *zap.Logger) *InspectionRepository {
	return &InspectionRepository{
		db:     db,
		logger: logger,
	}
}

const inspectionColumns = `id, permit_id, municipality_id, property_id, type,
	scheduled_date, slot_start, slot_end, inspector_id, status, result,
	violations, checklist, requires_reinspection, history, created_at, updated_at`

// bookedStatuses are the statuses that occupy an inspector's calendar
const bookedStatuses = `('scheduled', 'in_progress', 'rescheduled')`

// Book inserts the inspection after re-checking the inspector's daily cap
// and slot conflicts inside the transaction. The scheduler ran the same
// checks outside, but two concurrent bookings can both pass those; the
// re-check here makes the loser fail with a conflict so the service can try
// the next inspector.
func (r *InspectionRepository) Book(ctx context.Context, insp *entity.PermitInspection, maxPerDay int) error {
	violations, err := marshalJSON(insp.Violations)
	if err != nil {
		return err
	}
	checklist, err := marshalJSON(insp.Checklist)
	if err != nil {
		return err
	}
	history, err := marshalJSON(insp.History)
	if err != nil {
		return err
	}

	dayStart, dayEnd := dayBounds(insp.ScheduledTimeSlot.Start)

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if maxPerDay > 0 {
			var booked int
			if err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM inspections
				WHERE inspector_id = ? AND status IN `+bookedStatuses+`
					AND slot_start >= ? AND slot_start < ?
			`, insp.InspectorID, dayStart, dayEnd).Scan(&booked); err != nil {
				return fmt.Errorf("failed to count inspector bookings: %w", err)
			}
			if booked >= maxPerDay {
				return apperr.Conflict("inspector %s has reached the daily limit of %d inspections", insp.InspectorID, maxPerDay)
			}
		}

		var overlapping int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM inspections
			WHERE inspector_id = ? AND status IN `+bookedStatuses+`
				AND slot_start < ? AND slot_end > ?
		`, insp.InspectorID, insp.ScheduledTimeSlot.End, insp.ScheduledTimeSlot.Start).Scan(&overlapping); err != nil {
			return fmt.Errorf("failed to check slot conflicts: %w", err)
		}
		if overlapping > 0 {
			return apperr.Conflict("inspector %s already has a booking overlapping the requested slot", insp.InspectorID)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO inspections (
				permit_id, municipality_id, property_id, type, scheduled_date,
				slot_start, slot_end, inspector_id, status, result, violations,
				checklist, requires_reinspection, history, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			insp.PermitID,
			insp.MunicipalityID,
			insp.PropertyID,
			insp.Type,
			insp.ScheduledDate,
			insp.ScheduledTimeSlot.Start,
			insp.ScheduledTimeSlot.End,
			insp.InspectorID,
			insp.Status,
			insp.Result,
			violations,
			checklist,
			boolToInt(insp.RequiresReinspection),
			history,
			insp.CreatedAt,
			insp.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create inspection", zap.Error(err))
			return fmt.Errorf("failed to create inspection: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		insp.ID = id
		return nil
	})
}

// GetByID retrieves an inspection by ID, nil if missing
func (r *InspectionRepository) GetByID(ctx context.Context, id int64) (*entity.PermitInspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = ?`

	insp, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inspection", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}
	return insp, nil
}

// ListForPermit retrieves all inspections of a permit, earliest first
func (r *InspectionRepository) ListForPermit(ctx context.Context, permitID int64) ([]*entity.PermitInspection, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE permit_id = ? ORDER BY scheduled_date ASC`

	rows, err := r.db.QueryContext(ctx, query, permitID)
	if err != nil {
		r.logger.Error("Failed to list inspections", zap.Int64("permit_id", permitID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListForInspectorDay retrieves the inspector's calendar-occupying bookings
// on the given day.
func (r *InspectionRepository) ListForInspectorDay(ctx context.Context, inspectorID string, day time.Time) ([]*entity.PermitInspection, error) {
	dayStart, dayEnd := dayBounds(day)

	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE inspector_id = ? AND status IN ` + bookedStatuses + `
			AND slot_start >= ? AND slot_start < ?
		ORDER BY slot_start ASC
	`

	rows, err := r.db.QueryContext(ctx, query, inspectorID, dayStart, dayEnd)
	if err != nil {
		r.logger.Error("Failed to list inspector day", zap.String("inspector_id", inspectorID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inspector day: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update persists the inspection document
func (r *InspectionRepository) Update(ctx context.Context, insp *entity.PermitInspection) error {
	violations, err := marshalJSON(insp.Violations)
	if err != nil {
		return err
	}
	checklist, err := marshalJSON(insp.Checklist)
	if err != nil {
		return err
	}
	history, err := marshalJSON(insp.History)
	if err != nil {
		return err
	}

	query := `
		UPDATE inspections
		SET scheduled_date = ?, slot_start = ?, slot_end = ?, inspector_id = ?,
			status = ?, result = ?, violations = ?, checklist = ?,
			requires_reinspection = ?, history = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		insp.ScheduledDate,
		insp.ScheduledTimeSlot.Start,
		insp.ScheduledTimeSlot.End,
		insp.InspectorID,
		insp.Status,
		insp.Result,
		violations,
		checklist,
		boolToInt(insp.RequiresReinspection),
		history,
		insp.UpdatedAt,
		insp.ID,
	); err != nil {
		r.logger.Error("Failed to update inspection", zap.Int64("id", insp.ID), zap.Error(err))
		return fmt.Errorf("failed to update inspection: %w", err)
	}
	return nil
}

func (r *InspectionRepository) scanOne(row rowScanner) (*entity.PermitInspection, error) {
	var insp entity.PermitInspection
	var violations, checklist, history string
	var requiresReinspection int

	err := row.Scan(
		&insp.ID,
		&insp.PermitID,
		&insp.MunicipalityID,
		&insp.PropertyID,
		&insp.Type,
		&insp.ScheduledDate,
		&insp.ScheduledTimeSlot.Start,
		&insp.ScheduledTimeSlot.End,
		&insp.InspectorID,
		&insp.Status,
		&insp.Result,
		&violations,
		&checklist,
		&requiresReinspection,
		&history,
		&insp.CreatedAt,
		&insp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(violations, &insp.Violations); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(checklist, &insp.Checklist); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(history, &insp.History); err != nil {
		return nil, err
	}
	insp.RequiresReinspection = requiresReinspection == 1

	return &insp, nil
}

func (r *InspectionRepository) scanAll(rows *sql.Rows) ([]*entity.PermitInspection, error) {
	var inspections []*entity.PermitInspection
	for rows.Next() {
		insp, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}
	return inspections, rows.Err()
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
