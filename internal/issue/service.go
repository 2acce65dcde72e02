// Package issue implements the inspection issue (field defect) tracker:
// pre-generated QR card batches, one-shot linking, the correction and
// verification sub-workflow, and batch print/delete lifecycle.
package issue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
	"github.com/chadRoberge/avitar-suite-sub001/internal/storage"
)

// Repository persists issue cards and batches
type Repository interface {
	CreateBatch(ctx context.Context, batch *entity.IssueBatch, issues []*entity.InspectionIssue) error
	GetBatch(ctx context.Context, municipalityID, batchID string) (*entity.IssueBatch, error)
	ListBatches(ctx context.Context, municipalityID string) ([]*entity.IssueBatch, error)
	ListByBatch(ctx context.Context, batchID string) ([]*entity.InspectionIssue, error)
	// DeleteBatch removes the batch and its cards in one transaction. It
	// fails with apperr.ErrState if any card has left pending status.
	DeleteBatch(ctx context.Context, batchID string) error
	MarkBatchPrinted(ctx context.Context, batchID string, at time.Time) error

	GetByNumber(ctx context.Context, municipalityID, issueNumber string) (*entity.InspectionIssue, error)
	ListForInspection(ctx context.Context, inspectionID int64) ([]*entity.InspectionIssue, error)
	Update(ctx context.Context, issue *entity.InspectionIssue) error
}

// InspectionReader resolves the inspection a card is being linked to
type InspectionReader interface {
	GetByID(ctx context.Context, id int64) (*entity.PermitInspection, error)
}

// Service orchestrates the issue-card lifecycle
type Service struct {
	repo         Repository
	inspections  InspectionReader
	storage      storage.FileStorage
	dispatcher   *notification.Dispatcher
	qrBaseURL    string
	maxBatchSize int
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates the issue service
func NewService(repo Repository, inspections InspectionReader, store storage.FileStorage, dispatcher *notification.Dispatcher, qrBaseURL string, maxBatchSize int, logger *zap.Logger) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &Service{
		repo:         repo,
		inspections:  inspections,
		storage:      store,
		dispatcher:   dispatcher,
		qrBaseURL:    strings.TrimSuffix(qrBaseURL, "/"),
		maxBatchSize: maxBatchSize,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) requireStaff(principal entity.AuthenticatedPrincipal, municipalityID string) error {
	if !principal.IsStaff() || !principal.HasAccessToMunicipality(municipalityID) {
		return apperr.Authorization("access denied")
	}
	return nil
}

// CreateBatch generates quantity pending cards with unique issue numbers,
// renders a QR asset for each card, and persists the batch atomically.
func (s *Service) CreateBatch(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string, quantity int) (*entity.IssueBatch, []*entity.InspectionIssue, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, nil, err
	}
	if quantity < 1 {
		return nil, nil, apperr.Validation("quantity must be at least 1")
	}
	if quantity > s.maxBatchSize {
		return nil, nil, apperr.Validation("quantity exceeds maximum batch size of %d", s.maxBatchSize)
	}

	now := s.now()
	batch := &entity.IssueBatch{
		ID:             uuid.NewString(),
		MunicipalityID: municipalityID,
		Quantity:       quantity,
		CreatedBy:      principal.UserID,
		CreatedAt:      now,
	}

	issues := make([]*entity.InspectionIssue, 0, quantity)
	for i := 0; i < quantity; i++ {
		number := newIssueNumber()
		card := &entity.InspectionIssue{
			IssueNumber:    number,
			BatchID:        batch.ID,
			MunicipalityID: municipalityID,
			Status:         entity.IssueStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		assetPath, err := s.renderQR(municipalityID, batch.ID, number)
		if err != nil {
			// QR assets are print-time conveniences; a render failure
			// must not lose the batch
			s.logger.Warn("QR asset generation failed",
				zap.String("issue_number", number),
				zap.Error(err))
		} else {
			card.QRAssetPath = assetPath
		}

		issues = append(issues, card)
	}

	if err := s.repo.CreateBatch(ctx, batch, issues); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Issue card batch generated",
		zap.String("batch_id", batch.ID),
		zap.String("municipality_id", municipalityID),
		zap.Int("quantity", quantity))

	return batch, issues, nil
}

// ListBatches returns a municipality's card batches
func (s *Service) ListBatches(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID string) ([]*entity.IssueBatch, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, err
	}
	return s.repo.ListBatches(ctx, municipalityID)
}

// DeleteBatch removes a batch of unused cards. Any card that has been
// scanned blocks deletion of the whole batch.
func (s *Service) DeleteBatch(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, batchID string) error {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return err
	}

	batch, err := s.repo.GetBatch(ctx, municipalityID, batchID)
	if err != nil {
		return err
	}

	cards, err := s.repo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return err
	}
	for _, card := range cards {
		if card.Status != entity.IssueStatusPending {
			return apperr.State("batch %s contains card %s in %s status; only batches of unused cards can be deleted", batchID, card.IssueNumber, card.Status)
		}
	}

	if err := s.repo.DeleteBatch(ctx, batch.ID); err != nil {
		return err
	}

	s.cleanupAssets(cards)

	s.logger.Info("Issue card batch deleted",
		zap.String("batch_id", batchID),
		zap.Int("cards", len(cards)))
	return nil
}

// MarkPrinted records the print timestamp and removes the QR image assets
// from storage. Card status is untouched; the physical cards now exist.
func (s *Service) MarkPrinted(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, batchID string) error {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return err
	}

	batch, err := s.repo.GetBatch(ctx, municipalityID, batchID)
	if err != nil {
		return err
	}

	if err := s.repo.MarkBatchPrinted(ctx, batch.ID, s.now()); err != nil {
		return err
	}

	cards, err := s.repo.ListByBatch(ctx, batch.ID)
	if err != nil {
		s.logger.Warn("Printed batch asset cleanup skipped",
			zap.String("batch_id", batchID),
			zap.Error(err))
		return nil
	}
	s.cleanupAssets(cards)

	return nil
}

// cleanupAssets best-effort deletes QR images; failures are logged only
func (s *Service) cleanupAssets(cards []*entity.InspectionIssue) {
	for _, card := range cards {
		if card.QRAssetPath == "" {
			continue
		}
		if err := s.storage.DeleteFile(card.QRAssetPath); err != nil {
			s.logger.Warn("QR asset cleanup failed",
				zap.String("issue_number", card.IssueNumber),
				zap.Error(err))
		}
	}
}

// Get returns one card by its printed number
func (s *Service) Get(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, issueNumber string) (*entity.InspectionIssue, error) {
	if !principal.HasAccessToMunicipality(municipalityID) {
		return nil, apperr.Authorization("access denied")
	}
	return s.repo.GetByNumber(ctx, municipalityID, issueNumber)
}

// LinkInput carries the field data captured when a card is scanned
type LinkInput struct {
	InspectionID int64               `json:"inspectionId"`
	Description  string              `json:"description"`
	Location     string              `json:"location"`
	Severity     string              `json:"severity"`
	Photos       []entity.IssuePhoto `json:"photos"`
}

// Link attaches a pending card to a live inspection. The transition is
// one-way and exactly-once: a card in any other status is rejected.
func (s *Service) Link(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, issueNumber string, input LinkInput) (*entity.InspectionIssue, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, err
	}

	card, err := s.repo.GetByNumber(ctx, municipalityID, issueNumber)
	if err != nil {
		return nil, err
	}
	if card.Status != entity.IssueStatusPending {
		return nil, apperr.State("issue card %s has already been used (status %s); cards can be linked exactly once", issueNumber, card.Status)
	}

	inspection, err := s.inspections.GetByID(ctx, input.InspectionID)
	if err != nil {
		return nil, err
	}
	if inspection == nil {
		return nil, apperr.NotFound("inspection %d not found", input.InspectionID)
	}
	if input.Description == "" {
		return nil, apperr.Validation("description is required when linking an issue card")
	}

	now := s.now()
	card.Status = entity.IssueStatusOpen
	card.InspectionID = &inspection.ID
	card.PermitID = &inspection.PermitID
	card.PropertyID = inspection.PropertyID
	card.LinkedBy = principal.UserID
	card.LinkedAt = &now
	card.Description = input.Description
	card.Location = input.Location
	card.Severity = input.Severity
	card.Photos = input.Photos
	card.UpdatedAt = now

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("Issue card linked",
		zap.String("issue_number", issueNumber),
		zap.Int64("inspection_id", inspection.ID),
		zap.Int64("permit_id", inspection.PermitID))

	return card, nil
}

// AddCorrection appends a fix attempt to an open issue
func (s *Service) AddCorrection(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, issueNumber, notes string, photos []entity.IssuePhoto) (*entity.InspectionIssue, error) {
	if !principal.HasAccessToMunicipality(municipalityID) {
		return nil, apperr.Authorization("access denied")
	}

	card, err := s.repo.GetByNumber(ctx, municipalityID, issueNumber)
	if err != nil {
		return nil, err
	}
	if card.Status != entity.IssueStatusOpen {
		return nil, apperr.State("corrections can only be submitted on open issues; issue %s is %s", issueNumber, card.Status)
	}

	now := s.now()
	card.Corrections = append(card.Corrections, entity.Correction{
		SubmittedBy: principal.UserID,
		SubmittedAt: now,
		Notes:       notes,
		Photos:      photos,
	})
	card.UpdatedAt = now

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}

	// Tell the inspector who recorded the issue that a fix is waiting
	s.dispatcher.Dispatch(notification.Notification{
		UserID:       card.LinkedBy,
		TemplateType: notification.TemplateIssueCorrection,
		Data: map[string]string{
			"issueNumber": issueNumber,
			"submittedBy": principal.UserID,
		},
	})

	return card, nil
}

// VerifyCorrection inspects the most recent correction. Approval moves the
// issue to verified; rejection records feedback and keeps it open.
func (s *Service) VerifyCorrection(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, issueNumber string, approved bool, notes string) (*entity.InspectionIssue, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, err
	}

	card, err := s.repo.GetByNumber(ctx, municipalityID, issueNumber)
	if err != nil {
		return nil, err
	}
	if card.Status != entity.IssueStatusOpen {
		return nil, apperr.State("issue %s is %s; only open issues have corrections to verify", issueNumber, card.Status)
	}

	correction := card.LatestCorrection()
	if correction == nil {
		return nil, apperr.State("issue %s has no correction to verify", issueNumber)
	}
	if correction.Verified != nil {
		return nil, apperr.State("the latest correction on issue %s has already been verified", issueNumber)
	}

	now := s.now()
	correction.Verified = &approved
	correction.VerifiedBy = principal.UserID
	correction.VerifiedAt = &now
	correction.VerifyNotes = notes
	if approved {
		card.Status = entity.IssueStatusVerified
	}
	card.UpdatedAt = now

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}

	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	s.dispatcher.Dispatch(notification.Notification{
		UserID:       correction.SubmittedBy,
		TemplateType: notification.TemplateIssueVerified,
		Data: map[string]string{
			"issueNumber": issueNumber,
			"outcome":     outcome,
		},
	})

	return card, nil
}

// Close terminates the issue. Closing is allowed from open or verified and
// is final.
func (s *Service) Close(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, issueNumber, notes string) (*entity.InspectionIssue, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, err
	}

	card, err := s.repo.GetByNumber(ctx, municipalityID, issueNumber)
	if err != nil {
		return nil, err
	}
	switch card.Status {
	case entity.IssueStatusOpen, entity.IssueStatusVerified:
	default:
		return nil, apperr.State("issue %s is %s and cannot be closed", issueNumber, card.Status)
	}

	now := s.now()
	card.Status = entity.IssueStatusClosed
	card.ClosedBy = principal.UserID
	card.ClosedAt = &now
	card.CloseNotes = notes
	card.UpdatedAt = now

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("Issue closed",
		zap.String("issue_number", issueNumber),
		zap.String("closed_by", principal.UserID))

	return card, nil
}

// newIssueNumber mints a card number. Uniqueness is enforced by the
// database; a collision on the 12-hex-char space surfaces as a conflict at
// batch insert.
func newIssueNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("IC-%s", strings.ToUpper(raw[:12]))
}
