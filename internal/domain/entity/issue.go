package entity

import "time"

// Issue card statuses. pending→open is the one-way link transition.
const (
	IssueStatusPending  = "pending"
	IssueStatusOpen     = "open"
	IssueStatusVerified = "verified"
	IssueStatusClosed   = "closed"
)

// IssuePhoto is a stored photo reference on an issue or correction
type IssuePhoto struct {
	URL        string    `json:"url"`
	Hash       string    `json:"hash,omitempty"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Correction is one submitted fix attempt on an open issue
type Correction struct {
	SubmittedBy string       `json:"submittedBy"`
	SubmittedAt time.Time    `json:"submittedAt"`
	Notes       string       `json:"notes,omitempty"`
	Photos      []IssuePhoto `json:"photos,omitempty"`
	Verified    *bool        `json:"verified,omitempty"`
	VerifiedBy  string       `json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time   `json:"verifiedAt,omitempty"`
	VerifyNotes string       `json:"verifyNotes,omitempty"`
}

// InspectionIssue is a field defect addressable by a pre-printed card
// number. A pending card exists before it is linked to any inspection.
type InspectionIssue struct {
	ID             int64  `json:"id"`
	IssueNumber    string `json:"issueNumber"`
	BatchID        string `json:"batchId"`
	MunicipalityID string `json:"municipalityId"`
	Status         string `json:"status"`

	// Populated when the card is scanned and linked
	InspectionID *int64     `json:"inspectionId,omitempty"`
	PermitID     *int64     `json:"permitId,omitempty"`
	PropertyID   string     `json:"propertyId,omitempty"`
	LinkedBy     string     `json:"linkedBy,omitempty"`
	LinkedAt     *time.Time `json:"linkedAt,omitempty"`

	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Severity    string       `json:"severity,omitempty"`
	Photos      []IssuePhoto `json:"photos,omitempty"`

	Corrections []Correction `json:"corrections,omitempty"`

	ClosedBy   string     `json:"closedBy,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	CloseNotes string     `json:"closeNotes,omitempty"`

	QRAssetPath string `json:"qrAssetPath,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LatestCorrection returns the most recent correction, or nil
func (i *InspectionIssue) LatestCorrection() *Correction {
	if len(i.Corrections) == 0 {
		return nil
	}
	return &i.Corrections[len(i.Corrections)-1]
}

// IssueBatch groups cards generated and printed together
type IssueBatch struct {
	ID             string     `json:"id"`
	MunicipalityID string     `json:"municipalityId"`
	Quantity       int        `json:"quantity"`
	CreatedBy      string     `json:"createdBy"`
	PrintedAt      *time.Time `json:"printedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
