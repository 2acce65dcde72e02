package issue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
	"github.com/chadRoberge/avitar-suite-sub001/internal/storage"
)

type mockIssueRepo struct {
	batches map[string]*entity.IssueBatch
	cards   map[string]*entity.InspectionIssue
	deleted []string
	printed map[string]time.Time
}

func newMockIssueRepo() *mockIssueRepo {
	return &mockIssueRepo{
		batches: map[string]*entity.IssueBatch{},
		cards:   map[string]*entity.InspectionIssue{},
		printed: map[string]time.Time{},
	}
}

func (m *mockIssueRepo) CreateBatch(ctx context.Context, batch *entity.IssueBatch, issues []*entity.InspectionIssue) error {
	m.batches[batch.ID] = batch
	for i, card := range issues {
		card.ID = int64(len(m.cards) + i + 1)
		m.cards[card.IssueNumber] = card
	}
	return nil
}

func (m *mockIssueRepo) GetBatch(ctx context.Context, municipalityID, batchID string) (*entity.IssueBatch, error) {
	batch, ok := m.batches[batchID]
	if !ok || batch.MunicipalityID != municipalityID {
		return nil, apperr.NotFound("batch %s not found", batchID)
	}
	return batch, nil
}

func (m *mockIssueRepo) ListBatches(ctx context.Context, municipalityID string) ([]*entity.IssueBatch, error) {
	var out []*entity.IssueBatch
	for _, b := range m.batches {
		if b.MunicipalityID == municipalityID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockIssueRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.InspectionIssue, error) {
	var out []*entity.InspectionIssue
	for _, card := range m.cards {
		if card.BatchID == batchID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (m *mockIssueRepo) DeleteBatch(ctx context.Context, batchID string) error {
	delete(m.batches, batchID)
	m.deleted = append(m.deleted, batchID)
	return nil
}

func (m *mockIssueRepo) MarkBatchPrinted(ctx context.Context, batchID string, at time.Time) error {
	m.printed[batchID] = at
	return nil
}

func (m *mockIssueRepo) GetByNumber(ctx context.Context, municipalityID, issueNumber string) (*entity.InspectionIssue, error) {
	card, ok := m.cards[issueNumber]
	if !ok || card.MunicipalityID != municipalityID {
		return nil, apperr.NotFound("issue %s not found", issueNumber)
	}
	return card, nil
}

func (m *mockIssueRepo) ListForInspection(ctx context.Context, inspectionID int64) ([]*entity.InspectionIssue, error) {
	var out []*entity.InspectionIssue
	for _, card := range m.cards {
		if card.InspectionID != nil && *card.InspectionID == inspectionID {
			out = append(out, card)
		}
	}
	return out, nil
}

func (m *mockIssueRepo) Update(ctx context.Context, issue *entity.InspectionIssue) error {
	m.cards[issue.IssueNumber] = issue
	return nil
}

type mockInspectionReader struct {
	inspections map[int64]*entity.PermitInspection
}

func (m *mockInspectionReader) GetByID(ctx context.Context, id int64) (*entity.PermitInspection, error) {
	return m.inspections[id], nil
}

type mockStorage struct {
	uploads    []string
	deletes    []string
	uploadFunc func(content []byte, path string, metadata map[string]string) (*storage.StoredFile, error)
}

func (m *mockStorage) UploadFile(content []byte, path string, metadata map[string]string) (*storage.StoredFile, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(content, path, metadata)
	}
	m.uploads = append(m.uploads, path)
	return &storage.StoredFile{URL: "https://files.example.gov/" + path}, nil
}

func (m *mockStorage) DeleteFile(path string) error {
	m.deletes = append(m.deletes, path)
	return nil
}

type issueFixture struct {
	svc   *Service
	repo  *mockIssueRepo
	store *mockStorage
}

func newIssueFixture() *issueFixture {
	repo := newMockIssueRepo()
	store := &mockStorage{}
	inspections := &mockInspectionReader{inspections: map[int64]*entity.PermitInspection{
		3: {ID: 3, PermitID: 1, MunicipalityID: "nashua", PropertyID: "parcel-42"},
	}}
	dispatcher := notification.NewDispatcher(notification.NewLogNotifier(zap.NewNop()), time.Second, false, zap.NewNop())

	svc := NewService(repo, inspections, store, dispatcher, "https://permits.example.gov/i/", 10, zap.NewNop())
	return &issueFixture{svc: svc, repo: repo, store: store}
}

func staffPrincipal() entity.AuthenticatedPrincipal {
	return entity.AuthenticatedPrincipal{
		UserID:     "staff-1",
		GlobalRole: entity.RoleStaff,
		Permissions: []entity.ModulePermission{
			{MunicipalityID: "nashua", Module: "inspections", Action: "admin"},
		},
	}
}

func pendingCard(f *issueFixture) *entity.InspectionIssue {
	card := &entity.InspectionIssue{
		ID:             1,
		IssueNumber:    "IC-0123456789AB",
		BatchID:        "batch-1",
		MunicipalityID: "nashua",
		Status:         entity.IssueStatusPending,
	}
	f.repo.cards[card.IssueNumber] = card
	f.repo.batches["batch-1"] = &entity.IssueBatch{ID: "batch-1", MunicipalityID: "nashua", Quantity: 1}
	return card
}

func TestService_CreateBatch(t *testing.T) {
	f := newIssueFixture()

	batch, cards, err := f.svc.CreateBatch(context.Background(), staffPrincipal(), "nashua", 5)
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	if batch.Quantity != 5 || batch.CreatedBy != "staff-1" {
		t.Errorf("batch = %+v", batch)
	}
	if len(cards) != 5 {
		t.Fatalf("len(cards) = %d, want 5", len(cards))
	}

	seen := map[string]bool{}
	for _, card := range cards {
		if card.Status != entity.IssueStatusPending {
			t.Errorf("card %s status = %s, want pending", card.IssueNumber, card.Status)
		}
		if !strings.HasPrefix(card.IssueNumber, "IC-") || len(card.IssueNumber) != 15 {
			t.Errorf("malformed issue number %q", card.IssueNumber)
		}
		if seen[card.IssueNumber] {
			t.Errorf("duplicate issue number %s", card.IssueNumber)
		}
		seen[card.IssueNumber] = true
		if card.QRAssetPath == "" {
			t.Errorf("card %s has no QR asset", card.IssueNumber)
		}
	}
	if len(f.store.uploads) != 5 {
		t.Errorf("QR uploads = %d, want 5", len(f.store.uploads))
	}
}

func TestService_CreateBatch_QuantityBounds(t *testing.T) {
	f := newIssueFixture()

	if _, _, err := f.svc.CreateBatch(context.Background(), staffPrincipal(), "nashua", 0); !apperr.IsValidation(err) {
		t.Errorf("quantity 0 error = %v, want validation error", err)
	}
	if _, _, err := f.svc.CreateBatch(context.Background(), staffPrincipal(), "nashua", 11); !apperr.IsValidation(err) {
		t.Errorf("quantity over cap error = %v, want validation error", err)
	}
}

func TestService_CreateBatch_SurvivesQRFailure(t *testing.T) {
	f := newIssueFixture()
	f.store.uploadFunc = func(content []byte, path string, metadata map[string]string) (*storage.StoredFile, error) {
		return nil, errors.New("storage unavailable")
	}

	_, cards, err := f.svc.CreateBatch(context.Background(), staffPrincipal(), "nashua", 2)
	if err != nil {
		t.Fatalf("CreateBatch() error = %v, want batch to survive QR failures", err)
	}
	for _, card := range cards {
		if card.QRAssetPath != "" {
			t.Errorf("card %s should have no asset path after upload failure", card.IssueNumber)
		}
	}
}

func TestService_CreateBatch_RequiresStaff(t *testing.T) {
	f := newIssueFixture()
	citizen := entity.AuthenticatedPrincipal{UserID: "c1", GlobalRole: entity.RoleCitizen}

	if _, _, err := f.svc.CreateBatch(context.Background(), citizen, "nashua", 1); !apperr.IsAuthorization(err) {
		t.Errorf("CreateBatch() error = %v, want authorization error", err)
	}
}

func TestService_Link_ExactlyOnce(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)

	linked, err := f.svc.Link(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, LinkInput{
		InspectionID: 3,
		Description:  "cracked foundation at north wall",
		Location:     "north wall",
		Severity:     "major",
	})
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	if linked.Status != entity.IssueStatusOpen {
		t.Errorf("Status = %s, want open", linked.Status)
	}
	if linked.InspectionID == nil || *linked.InspectionID != 3 {
		t.Errorf("InspectionID = %v, want 3", linked.InspectionID)
	}
	if linked.PermitID == nil || *linked.PermitID != 1 {
		t.Errorf("PermitID = %v, want inherited from inspection", linked.PermitID)
	}
	if linked.PropertyID != "parcel-42" || linked.LinkedBy != "staff-1" || linked.LinkedAt == nil {
		t.Errorf("link fields = %+v", linked)
	}

	// The transition is one-way; a used card can never be linked again.
	_, err = f.svc.Link(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, LinkInput{
		InspectionID: 3,
		Description:  "something else",
	})
	if !apperr.IsState(err) {
		t.Errorf("second Link() error = %v, want state error", err)
	}
}

func TestService_Link_Validation(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)

	if _, err := f.svc.Link(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, LinkInput{
		InspectionID: 99,
		Description:  "x",
	}); !apperr.IsNotFound(err) {
		t.Errorf("unknown inspection error = %v, want not found", err)
	}

	if _, err := f.svc.Link(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, LinkInput{
		InspectionID: 3,
	}); !apperr.IsValidation(err) {
		t.Errorf("missing description error = %v, want validation error", err)
	}

	if _, err := f.svc.Link(context.Background(), staffPrincipal(), "nashua", "IC-FFFFFFFFFFFF", LinkInput{
		InspectionID: 3,
		Description:  "x",
	}); !apperr.IsNotFound(err) {
		t.Errorf("unknown card error = %v, want not found", err)
	}
}

func TestService_AddCorrection(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.Status = entity.IssueStatusOpen

	got, err := f.svc.AddCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, "re-poured section", nil)
	if err != nil {
		t.Fatalf("AddCorrection() error = %v", err)
	}
	if len(got.Corrections) != 1 || got.Corrections[0].SubmittedBy != "staff-1" {
		t.Errorf("Corrections = %+v", got.Corrections)
	}

	card.Status = entity.IssueStatusClosed
	if _, err := f.svc.AddCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, "too late", nil); !apperr.IsState(err) {
		t.Errorf("correction on closed issue error = %v, want state error", err)
	}
}

func TestService_VerifyCorrection(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.Status = entity.IssueStatusOpen
	card.Corrections = []entity.Correction{{SubmittedBy: "contractor-1", SubmittedAt: time.Now()}}

	// Rejection records feedback and keeps the issue open.
	got, err := f.svc.VerifyCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, false, "still out of plumb")
	if err != nil {
		t.Fatalf("VerifyCorrection() error = %v", err)
	}
	if got.Status != entity.IssueStatusOpen {
		t.Errorf("Status = %s, want open after rejection", got.Status)
	}
	c := got.LatestCorrection()
	if c.Verified == nil || *c.Verified || c.VerifiedBy != "staff-1" || c.VerifyNotes != "still out of plumb" {
		t.Errorf("correction verification = %+v", c)
	}

	// The same correction cannot be verified twice.
	if _, err := f.svc.VerifyCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, true, ""); !apperr.IsState(err) {
		t.Errorf("double verification error = %v, want state error", err)
	}

	// A fresh correction can be approved, moving the issue to verified.
	card.Corrections = append(card.Corrections, entity.Correction{SubmittedBy: "contractor-1", SubmittedAt: time.Now()})
	got, err = f.svc.VerifyCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, true, "looks good")
	if err != nil {
		t.Fatalf("VerifyCorrection() error = %v", err)
	}
	if got.Status != entity.IssueStatusVerified {
		t.Errorf("Status = %s, want verified", got.Status)
	}
}

func TestService_VerifyCorrection_NothingToVerify(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.Status = entity.IssueStatusOpen

	if _, err := f.svc.VerifyCorrection(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, true, ""); !apperr.IsState(err) {
		t.Errorf("VerifyCorrection() with no corrections error = %v, want state error", err)
	}
}

func TestService_Close(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.Status = entity.IssueStatusVerified

	got, err := f.svc.Close(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, "resolved on site")
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got.Status != entity.IssueStatusClosed || got.ClosedBy != "staff-1" || got.CloseNotes != "resolved on site" {
		t.Errorf("closed card = %+v", got)
	}

	// Closing is final.
	if _, err := f.svc.Close(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, ""); !apperr.IsState(err) {
		t.Errorf("re-close error = %v, want state error", err)
	}
}

func TestService_Close_PendingCardRejected(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)

	if _, err := f.svc.Close(context.Background(), staffPrincipal(), "nashua", card.IssueNumber, ""); !apperr.IsState(err) {
		t.Errorf("closing a pending card error = %v, want state error", err)
	}
}

func TestService_DeleteBatch_BlockedByUsedCard(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.Status = entity.IssueStatusOpen

	err := f.svc.DeleteBatch(context.Background(), staffPrincipal(), "nashua", "batch-1")
	if !apperr.IsState(err) {
		t.Errorf("DeleteBatch() error = %v, want state error", err)
	}
	if len(f.repo.deleted) != 0 {
		t.Errorf("batch must not be deleted when a card is in use")
	}
}

func TestService_DeleteBatch_CleansAssets(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.QRAssetPath = "issue-cards/nashua/batch-1/" + card.IssueNumber + ".png"

	if err := f.svc.DeleteBatch(context.Background(), staffPrincipal(), "nashua", "batch-1"); err != nil {
		t.Fatalf("DeleteBatch() error = %v", err)
	}
	if len(f.repo.deleted) != 1 {
		t.Errorf("batch was not deleted")
	}
	if len(f.store.deletes) != 1 || f.store.deletes[0] != card.QRAssetPath {
		t.Errorf("asset deletes = %v, want the card's QR asset", f.store.deletes)
	}
}

func TestService_MarkPrinted(t *testing.T) {
	f := newIssueFixture()
	card := pendingCard(f)
	card.QRAssetPath = "issue-cards/nashua/batch-1/" + card.IssueNumber + ".png"

	if err := f.svc.MarkPrinted(context.Background(), staffPrincipal(), "nashua", "batch-1"); err != nil {
		t.Fatalf("MarkPrinted() error = %v", err)
	}
	if _, ok := f.repo.printed["batch-1"]; !ok {
		t.Errorf("print timestamp was not recorded")
	}
	// Printing removes the rendered assets; the physical cards exist now.
	if len(f.store.deletes) != 1 {
		t.Errorf("asset deletes = %v, want 1", f.store.deletes)
	}
	if card.Status != entity.IssueStatusPending {
		t.Errorf("printing must not change card status, got %s", card.Status)
	}
}
