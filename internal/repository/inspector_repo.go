package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// InspectorRepository handles inspector pool and booking-hours operations
type InspectorRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInspectorRepository creates a new inspector repository
func NewInspectorRepository(db *database.DB, logger *zap.Logger) *InspectorRepository {
	return &InspectorRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces an inspector record
func (r *InspectorRepository) Upsert(ctx context.Context, inspector *entity.Inspector) error {
	supported, err := marshalJSON(inspector.SupportedTypes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO inspectors (id, municipality_id, name, supported_types, max_per_day, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			supported_types = excluded.supported_types,
			max_per_day = excluded.max_per_day,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		inspector.ID,
		inspector.MunicipalityID,
		inspector.Name,
		supported,
		inspector.MaxPerDay,
		boolToInt(inspector.Active),
		time.Now().UTC(),
	); err != nil {
		r.logger.Error("Failed to upsert inspector", zap.String("id", inspector.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert inspector: %w", err)
	}
	return nil
}

// ListActive returns a municipality's active inspector pool, in stable order
func (r *InspectorRepository) ListActive(ctx context.Context, municipalityID string) ([]entity.Inspector, error) {
	query := `
		SELECT id, municipality_id, name, supported_types, max_per_day, active
		FROM inspectors
		WHERE municipality_id = ? AND active = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, municipalityID)
	if err != nil {
		r.logger.Error("Failed to list inspectors", zap.String("municipality_id", municipalityID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inspectors: %w", err)
	}
	defer rows.Close()

	var pool []entity.Inspector
	for rows.Next() {
		inspector, err := scanInspector(rows)
		if err != nil {
			return nil, err
		}
		pool = append(pool, *inspector)
	}
	return pool, rows.Err()
}

// GetByID retrieves an inspector, nil if missing
func (r *InspectorRepository) GetByID(ctx context.Context, id string) (*entity.Inspector, error) {
	query := `
		SELECT id, municipality_id, name, supported_types, max_per_day, active
		FROM inspectors
		WHERE id = ?
	`

	inspector, err := scanInspector(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inspector", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inspector: %w", err)
	}
	return inspector, nil
}

func scanInspector(row rowScanner) (*entity.Inspector, error) {
	var inspector entity.Inspector
	var supported string
	var active int

	if err := row.Scan(
		&inspector.ID,
		&inspector.MunicipalityID,
		&inspector.Name,
		&supported,
		&inspector.MaxPerDay,
		&active,
	); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(supported, &inspector.SupportedTypes); err != nil {
		return nil, err
	}
	inspector.Active = active == 1
	return &inspector, nil
}

// ListWindows returns the municipality's bookable day-of-week windows
func (r *InspectorRepository) ListWindows(ctx context.Context, municipalityID string) ([]entity.DayWindow, error) {
	query := `
		SELECT weekday, start_minutes, end_minutes
		FROM inspection_hours
		WHERE municipality_id = ?
		ORDER BY weekday, start_minutes
	`

	rows, err := r.db.QueryContext(ctx, query, municipalityID)
	if err != nil {
		r.logger.Error("Failed to list inspection hours", zap.String("municipality_id", municipalityID), zap.Error(err))
		return nil, fmt.Errorf("failed to list inspection hours: %w", err)
	}
	defer rows.Close()

	var windows []entity.DayWindow
	for rows.Next() {
		var window entity.DayWindow
		var weekday int
		if err := rows.Scan(&weekday, &window.StartMinutes, &window.EndMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan inspection hours: %w", err)
		}
		window.Weekday = time.Weekday(weekday)
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

// SetWindows replaces the municipality's booking windows
func (r *InspectorRepository) SetWindows(ctx context.Context, municipalityID string, windows []entity.DayWindow) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM inspection_hours WHERE municipality_id = ?`, municipalityID); err != nil {
			return fmt.Errorf("failed to clear inspection hours: %w", err)
		}
		for _, window := range windows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inspection_hours (municipality_id, weekday, start_minutes, end_minutes)
				VALUES (?, ?, ?, ?)
			`, municipalityID, int(window.Weekday), window.StartMinutes, window.EndMinutes); err != nil {
				return fmt.Errorf("failed to insert inspection hours: %w", err)
			}
		}
		return nil
	})
}
