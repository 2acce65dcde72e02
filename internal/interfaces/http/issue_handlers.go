package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/issue"
)

// CreateIssueBatchRequest asks for N blank cards
type CreateIssueBatchRequest struct {
	Quantity int `json:"quantity"`
}

// CreateIssueBatch handles POST .../inspection-issue-batches
func (h *Handlers) CreateIssueBatch(c *gin.Context) {
	var req CreateIssueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	batch, cards, err := h.issues.CreateBatch(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, gin.H{"batch": batch, "issues": cards})
}

// ListIssueBatches handles GET .../inspection-issue-batches
func (h *Handlers) ListIssueBatches(c *gin.Context) {
	batches, err := h.issues.ListBatches(c.Request.Context(), principalFrom(c), c.Param("municipalityID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, batches)
}

// DeleteIssueBatch handles DELETE .../inspection-issue-batches/:batchID
func (h *Handlers) DeleteIssueBatch(c *gin.Context) {
	err := h.issues.DeleteBatch(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("batchID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil)
}

// MarkIssueBatchPrinted handles POST .../inspection-issue-batches/:batchID/printed
func (h *Handlers) MarkIssueBatchPrinted(c *gin.Context) {
	err := h.issues.MarkPrinted(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("batchID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil)
}

// IssueBatchPrintSheet handles GET .../inspection-issue-batches/:batchID/print-sheet
func (h *Handlers) IssueBatchPrintSheet(c *gin.Context) {
	sheet, err := h.issues.PrintSheet(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("batchID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="issue-cards-`+c.Param("batchID")+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", sheet)
}

// GetIssue handles GET .../inspection-issues/:issueNumber
func (h *Handlers) GetIssue(c *gin.Context) {
	card, err := h.issues.Get(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("issueNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, card)
}

// LinkIssueRequest carries the field data captured at scan time
type LinkIssueRequest struct {
	InspectionID int64               `json:"inspectionId"`
	Description  string              `json:"description"`
	Location     string              `json:"location,omitempty"`
	Severity     string              `json:"severity,omitempty"`
	Photos       []entity.IssuePhoto `json:"photos,omitempty"`
}

// LinkIssue handles POST .../inspection-issues/:issueNumber/link
func (h *Handlers) LinkIssue(c *gin.Context) {
	var req LinkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	card, err := h.issues.Link(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("issueNumber"), issue.LinkInput{
		InspectionID: req.InspectionID,
		Description:  req.Description,
		Location:     req.Location,
		Severity:     req.Severity,
		Photos:       req.Photos,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, card)
}

// AddIssueCorrectionRequest carries one fix attempt
type AddIssueCorrectionRequest struct {
	Notes  string              `json:"notes,omitempty"`
	Photos []entity.IssuePhoto `json:"photos,omitempty"`
}

// AddIssueCorrection handles POST .../inspection-issues/:issueNumber/corrections
func (h *Handlers) AddIssueCorrection(c *gin.Context) {
	var req AddIssueCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	card, err := h.issues.AddCorrection(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("issueNumber"), req.Notes, req.Photos)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, card)
}

// VerifyIssueCorrectionRequest carries the inspector's verdict
type VerifyIssueCorrectionRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty"`
}

// VerifyIssueCorrection handles POST .../inspection-issues/:issueNumber/verify
func (h *Handlers) VerifyIssueCorrection(c *gin.Context) {
	var req VerifyIssueCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	card, err := h.issues.VerifyCorrection(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("issueNumber"), req.Approved, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, card)
}

// CloseIssueRequest carries closing notes
type CloseIssueRequest struct {
	Notes string `json:"notes,omitempty"`
}

// CloseIssue handles POST .../inspection-issues/:issueNumber/close
func (h *Handlers) CloseIssue(c *gin.Context) {
	var req CloseIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBadRequest(c, "invalid request body")
		return
	}

	card, err := h.issues.Close(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), c.Param("issueNumber"), req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, card)
}
