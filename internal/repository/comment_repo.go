package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
)

// CommentRepository handles review comment database operations
type CommentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.DB, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a review comment
func (r *CommentRepository) Create(ctx context.Context, c *entity.ReviewComment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO review_comments (permit_id, department, author_id, visibility, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		c.PermitID,
		c.Department,
		c.AuthorID,
		c.Visibility,
		c.Body,
		c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// ListForReview returns a review's comments in the given visibilities,
// oldest first. Private comments are additionally scoped to their author.
func (r *CommentRepository) ListForReview(ctx context.Context, permitID int64, department string, visibilities []string) ([]*entity.ReviewComment, error) {
	if len(visibilities) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(visibilities)), ", ")
	query := `
		SELECT id, permit_id, department, author_id, visibility, body, created_at
		FROM review_comments
		WHERE permit_id = ? AND department = ? AND visibility IN (` + placeholders + `)
		ORDER BY created_at ASC
	`

	args := []interface{}{permitID, department}
	for _, v := range visibilities {
		args = append(args, v)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Int64("permit_id", permitID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.ReviewComment
	for rows.Next() {
		var c entity.ReviewComment
		if err := rows.Scan(&c.ID, &c.PermitID, &c.Department, &c.AuthorID, &c.Visibility, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
