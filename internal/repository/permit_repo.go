package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/permit"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// PermitRepository handles permit database operations
type PermitRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewPermitRepository creates a new permit repository
func NewPermitRepository(db *database.DB, logger *zap.Logger) *PermitRepository {
	return &PermitRepository{
		db:     db,
		logger: logger,
	}
}

const permitColumns = `id, municipality_id, permit_number, property_id, permit_type_id, type, status,
	applicant, contractor_id, submitted_by, fees, fee_snapshot, permit_data, custom_fields,
	department_reviews, sla, is_project, parent_permit_id, status_history, viewed_by,
	submitted_at, review_start_date, approval_date, approved_by, expiration_date,
	denied_by, denial_reason, completion_date,
	active, deleted_at, deleted_by, created_at, updated_at`

// Create inserts a permit, allocating its permit number from the
// per-(municipality, type, year) counter in the same transaction. The
// INSERT .. ON CONFLICT .. RETURNING upsert makes concurrent allocations
// serialize in the database, so two submissions can never draw the same
// sequence.
func (r *PermitRepository) Create(ctx context.Context, p *entity.Permit) error {
	doc, err := marshalPermitDoc(p)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var prefix string
		if err := tx.QueryRowContext(ctx,
			`SELECT prefix FROM permit_types WHERE id = ?`, p.PermitTypeID,
		).Scan(&prefix); err != nil {
			return fmt.Errorf("failed to resolve permit type prefix: %w", err)
		}

		year := p.CreatedAt.Year()
		var sequence int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO permit_counters (municipality_id, permit_type_id, year, sequence)
			VALUES (?, ?, ?, 1)
			ON CONFLICT (municipality_id, permit_type_id, year)
			DO UPDATE SET sequence = sequence + 1
			RETURNING sequence
		`, p.MunicipalityID, p.PermitTypeID, year).Scan(&sequence); err != nil {
			return fmt.Errorf("failed to allocate permit number: %w", err)
		}

		p.PermitNumber = permit.FormatPermitNumber(year, prefix, sequence)

		result, err := tx.ExecContext(ctx, `
			INSERT INTO permits (
				municipality_id, permit_number, property_id, permit_type_id, type, status,
				applicant, contractor_id, submitted_by, fees, fee_snapshot, permit_data,
				custom_fields, department_reviews, sla, is_project, parent_permit_id,
				status_history, viewed_by, submitted_at, active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`,
			p.MunicipalityID,
			p.PermitNumber,
			p.PropertyID,
			p.PermitTypeID,
			p.Type,
			p.Status,
			doc.applicant,
			p.ContractorID,
			p.SubmittedBy,
			doc.fees,
			doc.feeSnapshot,
			doc.permitData,
			doc.customFields,
			doc.reviews,
			doc.sla,
			boolToInt(p.IsProject),
			p.ParentPermitID,
			doc.statusHistory,
			doc.viewedBy,
			p.SubmittedAt,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create permit", zap.Error(err))
			return fmt.Errorf("failed to create permit: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		p.ID = id

		// A new child joins the parent's rollup in its initial bucket
		if p.ParentPermitID != nil {
			if err := applyProjectDelta(ctx, tx, *p.ParentPermitID, "", p.Status); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetByID retrieves a permit by ID, nil if missing
func (r *PermitRepository) GetByID(ctx context.Context, id int64) (*entity.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE id = ?`

	p, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get permit", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get permit: %w", err)
	}
	return p, nil
}

// List retrieves active permits for a municipality, filtered
func (r *PermitRepository) List(ctx context.Context, municipalityID string, filter permit.ListFilter) ([]*entity.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE municipality_id = ? AND active = 1`
	args := []interface{}{municipalityID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.PermitTypeID != 0 {
		query += ` AND permit_type_id = ?`
		args = append(args, filter.PermitTypeID)
	}
	if filter.SubmittedBy != "" {
		query += ` AND submitted_by = ?`
		args = append(args, filter.SubmittedBy)
	}
	if filter.ContractorID != "" {
		query += ` AND contractor_id = ?`
		args = append(args, filter.ContractorID)
	}
	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list permits", zap.String("municipality_id", municipalityID), zap.Error(err))
		return nil, fmt.Errorf("failed to list permits: %w", err)
	}
	defer rows.Close()

	var permits []*entity.Permit
	for rows.Next() {
		p, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permit: %w", err)
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

// Update persists the full permit document
func (r *PermitRepository) Update(ctx context.Context, p *entity.Permit) error {
	doc, err := marshalPermitDoc(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE permits
		SET property_id = ?, status = ?, applicant = ?, fees = ?, fee_snapshot = ?,
			permit_data = ?, custom_fields = ?, department_reviews = ?, sla = ?,
			status_history = ?, viewed_by = ?, submitted_at = ?, review_start_date = ?,
			approval_date = ?, approved_by = ?, expiration_date = ?, denied_by = ?,
			denial_reason = ?, completion_date = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		p.PropertyID,
		p.Status,
		doc.applicant,
		doc.fees,
		doc.feeSnapshot,
		doc.permitData,
		doc.customFields,
		doc.reviews,
		doc.sla,
		doc.statusHistory,
		doc.viewedBy,
		p.SubmittedAt,
		p.ReviewStartDate,
		p.ApprovalDate,
		p.ApprovedBy,
		p.ExpirationDate,
		p.DeniedBy,
		p.DenialReason,
		p.CompletionDate,
		p.UpdatedAt,
		p.ID,
	); err != nil {
		r.logger.Error("Failed to update permit", zap.Int64("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to update permit: %w", err)
	}
	return nil
}

// SoftDelete marks the permit deleted; the row and its history stay
func (r *PermitRepository) SoftDelete(ctx context.Context, id int64, userID string, at time.Time) error {
	query := `UPDATE permits SET active = 0, deleted_at = ?, deleted_by = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, at, userID, at, id); err != nil {
		r.logger.Error("Failed to delete permit", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete permit: %w", err)
	}
	return nil
}

// ApplyProjectDelta moves one child between status buckets on the parent's
// rollup. The two upserts are atomic increments, so concurrent children
// updating the same parent never lose counts.
func (r *PermitRepository) ApplyProjectDelta(ctx context.Context, parentID int64, fromStatus, toStatus string) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return applyProjectDelta(ctx, tx, parentID, fromStatus, toStatus)
	})
}

func applyProjectDelta(ctx context.Context, tx *sql.Tx, parentID int64, fromStatus, toStatus string) error {
	if fromStatus != "" {
		if _, err := tx.ExecContext(ctx, `
			UPDATE project_child_counts SET count = count - 1
			WHERE parent_permit_id = ? AND status = ? AND count > 0
		`, parentID, fromStatus); err != nil {
			return fmt.Errorf("failed to decrement project bucket: %w", err)
		}
	}
	if toStatus != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_child_counts (parent_permit_id, status, count)
			VALUES (?, ?, 1)
			ON CONFLICT (parent_permit_id, status)
			DO UPDATE SET count = count + 1
		`, parentID, toStatus); err != nil {
			return fmt.Errorf("failed to increment project bucket: %w", err)
		}
	}
	return nil
}

// GetProjectStats reads the parent's rollup buckets
func (r *PermitRepository) GetProjectStats(ctx context.Context, parentID int64) (*entity.ProjectStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count FROM project_child_counts WHERE parent_permit_id = ? AND count > 0`, parentID)
	if err != nil {
		r.logger.Error("Failed to get project stats", zap.Int64("parent_id", parentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get project stats: %w", err)
	}
	defer rows.Close()

	stats := &entity.ProjectStats{ChildrenByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan project stats: %w", err)
		}
		stats.ChildrenByStatus[status] = count
		stats.TotalChildren += count
	}
	return stats, rows.Err()
}

// permitDoc holds the marshalled JSON columns of a permit row
type permitDoc struct {
	applicant     string
	fees          string
	feeSnapshot   sql.NullString
	permitData    string
	customFields  string
	reviews       string
	sla           string
	statusHistory string
	viewedBy      string
}

func marshalPermitDoc(p *entity.Permit) (*permitDoc, error) {
	var doc permitDoc
	var err error

	if doc.applicant, err = marshalJSON(p.Applicant); err != nil {
		return nil, err
	}
	if doc.fees, err = marshalJSON(p.Fees); err != nil {
		return nil, err
	}
	if p.FeeSnapshot != nil {
		snapshot, err := marshalJSON(p.FeeSnapshot)
		if err != nil {
			return nil, err
		}
		doc.feeSnapshot = sql.NullString{String: snapshot, Valid: true}
	}
	if doc.permitData, err = marshalJSON(p.PermitData); err != nil {
		return nil, err
	}
	if doc.customFields, err = marshalJSON(p.CustomFields); err != nil {
		return nil, err
	}
	if doc.reviews, err = marshalJSON(p.DepartmentReviews); err != nil {
		return nil, err
	}
	if doc.sla, err = marshalJSON(p.SLA); err != nil {
		return nil, err
	}
	if doc.statusHistory, err = marshalJSON(p.StatusHistory); err != nil {
		return nil, err
	}
	if doc.viewedBy, err = marshalJSON(p.ViewedBy); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *PermitRepository) scanOne(row rowScanner) (*entity.Permit, error) {
	var p entity.Permit
	var applicant, fees, permitData, customFields, reviews, sla, statusHistory, viewedBy string
	var feeSnapshot, contractorID, approvedBy, deniedBy, denialReason, deletedBy sql.NullString
	var parentPermitID sql.NullInt64
	var isProject, active int
	var submittedAt, reviewStart, approvalDate, expirationDate, completionDate, deletedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.MunicipalityID,
		&p.PermitNumber,
		&p.PropertyID,
		&p.PermitTypeID,
		&p.Type,
		&p.Status,
		&applicant,
		&contractorID,
		&p.SubmittedBy,
		&fees,
		&feeSnapshot,
		&permitData,
		&customFields,
		&reviews,
		&sla,
		&isProject,
		&parentPermitID,
		&statusHistory,
		&viewedBy,
		&submittedAt,
		&reviewStart,
		&approvalDate,
		&approvedBy,
		&expirationDate,
		&deniedBy,
		&denialReason,
		&completionDate,
		&active,
		&deletedAt,
		&deletedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(applicant, &p.Applicant); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(fees, &p.Fees); err != nil {
		return nil, err
	}
	if feeSnapshot.Valid {
		p.FeeSnapshot = &entity.FeeSnapshot{}
		if err := unmarshalJSON(feeSnapshot.String, p.FeeSnapshot); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(permitData, &p.PermitData); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(customFields, &p.CustomFields); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(reviews, &p.DepartmentReviews); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(sla, &p.SLA); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(statusHistory, &p.StatusHistory); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(viewedBy, &p.ViewedBy); err != nil {
		return nil, err
	}

	p.ContractorID = contractorID.String
	p.IsProject = isProject == 1
	if parentPermitID.Valid {
		p.ParentPermitID = &parentPermitID.Int64
	}
	if submittedAt.Valid {
		p.SubmittedAt = &submittedAt.Time
	}
	if reviewStart.Valid {
		p.ReviewStartDate = &reviewStart.Time
	}
	if approvalDate.Valid {
		p.ApprovalDate = &approvalDate.Time
	}
	p.ApprovedBy = approvedBy.String
	if expirationDate.Valid {
		p.ExpirationDate = &expirationDate.Time
	}
	p.DeniedBy = deniedBy.String
	p.DenialReason = denialReason.String
	if completionDate.Valid {
		p.CompletionDate = &completionDate.Time
	}
	p.Lifecycle.Active = active == 1
	if deletedAt.Valid {
		p.Lifecycle.DeletedAt = &deletedAt.Time
	}
	p.Lifecycle.DeletedBy = deletedBy.String

	return &p, nil
}

func marshalJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	return string(raw), nil
}

func unmarshalJSON(raw string, v interface{}) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
