package issue

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrPixels is the rendered size of one card code. 512px keeps the code
// scannable after thermal printing at card scale.
const qrPixels = 512

// renderQR encodes the scan URL for one card and writes the PNG through the
// storage adapter. Returns the storage-relative asset path.
func (s *Service) renderQR(municipalityID, batchID, issueNumber string) (string, error) {
	scanURL := fmt.Sprintf("%s/municipalities/%s/inspection-issues/%s", s.qrBaseURL, municipalityID, issueNumber)

	png, err := qrcode.Encode(scanURL, qrcode.Medium, qrPixels)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	assetPath := fmt.Sprintf("issue-cards/%s/%s/%s.png", municipalityID, batchID, issueNumber)
	if _, err := s.storage.UploadFile(png, assetPath, map[string]string{
		"batchId":     batchID,
		"issueNumber": issueNumber,
	}); err != nil {
		return "", err
	}

	return assetPath, nil
}
