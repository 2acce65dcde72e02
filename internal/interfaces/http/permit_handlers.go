package http

import (
	"github.com/gin-gonic/gin"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/permit"
)

// CreatePermitRequest carries a new permit application
type CreatePermitRequest struct {
	PermitTypeID   int64             `json:"permitTypeId"`
	PropertyID     string            `json:"propertyId"`
	Applicant      entity.Applicant  `json:"applicant"`
	PermitData     entity.PermitData `json:"permitData"`
	CustomFields   map[string]string `json:"customFields,omitempty"`
	ParentPermitID *int64            `json:"parentPermitId,omitempty"`
	Submit         bool              `json:"submit,omitempty"`
}

// CreatePermit handles POST .../permits
func (h *Handlers) CreatePermit(c *gin.Context) {
	var req CreatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	p, err := h.permits.Create(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), permit.CreateInput{
		PermitTypeID:   req.PermitTypeID,
		PropertyID:     req.PropertyID,
		Applicant:      req.Applicant,
		PermitData:     req.PermitData,
		CustomFields:   req.CustomFields,
		ParentPermitID: req.ParentPermitID,
		Submit:         req.Submit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, p)
}

// ListPermits handles GET .../permits
func (h *Handlers) ListPermits(c *gin.Context) {
	var filter permit.ListFilter
	filter.Status = c.Query("status")
	filter.PropertyID = c.Query("propertyId")
	if v, ok := queryInt64(c, "permitTypeId"); ok {
		filter.PermitTypeID = v
	}
	if v, ok := queryInt(c, "limit"); ok {
		filter.Limit = v
	}
	if v, ok := queryInt(c, "offset"); ok {
		filter.Offset = v
	}

	permits, err := h.permits.List(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, permits)
}

// GetPermit handles GET .../permits/:permitID
func (h *Handlers) GetPermit(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	p, err := h.permits.Get(c.Request.Context(), principalFrom(c), permitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, p)
}

// UpdatePermitRequest carries mutable permit fields
type UpdatePermitRequest struct {
	Applicant    *entity.Applicant  `json:"applicant,omitempty"`
	PermitData   *entity.PermitData `json:"permitData,omitempty"`
	CustomFields map[string]string  `json:"customFields,omitempty"`
	PropertyID   *string            `json:"propertyId,omitempty"`
}

// UpdatePermit handles PUT .../permits/:permitID
func (h *Handlers) UpdatePermit(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req UpdatePermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	p, err := h.permits.Update(c.Request.Context(), principalFrom(c), permitID, permit.UpdateInput{
		Applicant:    req.Applicant,
		PermitData:   req.PermitData,
		CustomFields: req.CustomFields,
		PropertyID:   req.PropertyID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, p)
}

// DeletePermit handles DELETE .../permits/:permitID
func (h *Handlers) DeletePermit(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	if err := h.permits.Delete(c.Request.Context(), principalFrom(c), permitID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil)
}

// UpdatePermitStatusRequest carries one state-machine transition
type UpdatePermitStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// UpdatePermitStatus handles PATCH .../permits/:permitID/status
func (h *Handlers) UpdatePermitStatus(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req UpdatePermitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	p, err := h.permits.UpdateStatus(c.Request.Context(), principalFrom(c), permitID, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, p)
}

// PayPermitFeeRequest marks one fee line item paid
type PayPermitFeeRequest struct {
	FeeName string `json:"feeName"`
}

// PayPermitFee handles POST .../permits/:permitID/fees/pay, called by the
// payment collaborator after a transfer settles.
func (h *Handlers) PayPermitFee(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req PayPermitFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeeName == "" {
		respondBadRequest(c, "feeName is required")
		return
	}

	p, err := h.permits.MarkFeePaid(c.Request.Context(), principalFrom(c), permitID, req.FeeName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, p)
}

// UpdateReviewRequest carries a department review decision
type UpdateReviewRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateReview handles PUT .../permits/:permitID/reviews/:department
func (h *Handlers) UpdateReview(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	p, err := h.permits.UpdateReview(c.Request.Context(), principalFrom(c), permitID, c.Param("department"), req.Status, req.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, p)
}

// AddReviewCommentRequest carries a visibility-scoped comment
type AddReviewCommentRequest struct {
	Visibility string `json:"visibility"`
	Body       string `json:"body"`
}

// AddReviewComment handles POST .../reviews/:department/comments
func (h *Handlers) AddReviewComment(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req AddReviewCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	comment, err := h.permits.AddComment(c.Request.Context(), principalFrom(c), permitID, c.Param("department"), req.Visibility, req.Body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, comment)
}

// ListReviewComments handles GET .../reviews/:department/comments
func (h *Handlers) ListReviewComments(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	comments, err := h.permits.ListComments(c.Request.Context(), principalFrom(c), permitID, c.Param("department"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, comments)
}
