package issue

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

// PrintSheet builds the xlsx manifest the print shop works from: one row
// per card with its number, scan URL and QR asset reference. Returns the
// workbook bytes.
func (s *Service) PrintSheet(ctx context.Context, principal entity.AuthenticatedPrincipal, municipalityID, batchID string) ([]byte, error) {
	if err := s.requireStaff(principal, municipalityID); err != nil {
		return nil, err
	}

	batch, err := s.repo.GetBatch(ctx, municipalityID, batchID)
	if err != nil {
		return nil, err
	}
	cards, err := s.repo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Issue Cards"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	s.setCell(f, sheetName, "A1", "Batch")
	s.setCell(f, sheetName, "B1", batch.ID)
	s.setCell(f, sheetName, "A2", "Generated")
	s.setCell(f, sheetName, "B2", batch.CreatedAt.Format("2006-01-02 15:04"))
	s.setCell(f, sheetName, "A3", "Quantity")
	s.setCell(f, sheetName, "B3", fmt.Sprintf("%d", batch.Quantity))

	s.setCell(f, sheetName, "A5", "Card Number")
	s.setCell(f, sheetName, "B5", "Scan URL")
	s.setCell(f, sheetName, "C5", "QR Asset")

	for i, card := range cards {
		row := 6 + i
		scanURL := fmt.Sprintf("%s/municipalities/%s/inspection-issues/%s", s.qrBaseURL, municipalityID, card.IssueNumber)
		s.setCell(f, sheetName, fmt.Sprintf("A%d", row), card.IssueNumber)
		s.setCell(f, sheetName, fmt.Sprintf("B%d", row), scanURL)
		s.setCell(f, sheetName, fmt.Sprintf("C%d", row), card.QRAssetPath)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write print sheet: %w", err)
	}

	s.logger.Info("Print sheet generated",
		zap.String("batch_id", batchID),
		zap.Int("cards", len(cards)))

	return buf.Bytes(), nil
}

func (s *Service) setCell(f *excelize.File, sheet, cell, value string) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		s.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
