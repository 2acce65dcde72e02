package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
	"github.com/chadRoberge/avitar-suite-sub001/internal/inspection"
)

// BookInspectionRequest carries a booking request
type BookInspectionRequest struct {
	Type string          `json:"type"`
	Slot entity.TimeSlot `json:"slot"`
}

// BookInspection handles POST .../permits/:permitID/inspections
func (h *Handlers) BookInspection(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	var req BookInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	insp, err := h.inspections.Book(c.Request.Context(), principalFrom(c), permitID, inspection.BookInput{
		Type: req.Type,
		Slot: req.Slot,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, insp)
}

// ListInspections handles GET .../permits/:permitID/inspections
func (h *Handlers) ListInspections(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	inspections, err := h.inspections.ListForPermit(c.Request.Context(), principalFrom(c), permitID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, inspections)
}

// ListAvailableSlots handles GET .../inspections/available-slots with query
// parameters type, from and to (RFC 3339 dates).
func (h *Handlers) ListAvailableSlots(c *gin.Context) {
	permitID, ok := paramInt64(c, "permitID")
	if !ok {
		return
	}

	inspectionType := c.Query("type")
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		respondBadRequest(c, "invalid from date")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		respondBadRequest(c, "invalid to date")
		return
	}

	slots, err := h.inspections.AvailableSlots(c.Request.Context(), principalFrom(c), permitID, inspectionType, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, slots)
}

// GetInspection handles GET .../inspections/:inspectionID
func (h *Handlers) GetInspection(c *gin.Context) {
	inspectionID, ok := paramInt64(c, "inspectionID")
	if !ok {
		return
	}

	insp, err := h.inspections.Get(c.Request.Context(), principalFrom(c), inspectionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, insp)
}

// UpdateInspectionStatusRequest records progress or an outcome
type UpdateInspectionStatusRequest struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateInspectionStatus handles PATCH .../inspections/:inspectionID/status
func (h *Handlers) UpdateInspectionStatus(c *gin.Context) {
	inspectionID, ok := paramInt64(c, "inspectionID")
	if !ok {
		return
	}

	var req UpdateInspectionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	insp, err := h.inspections.UpdateStatus(c.Request.Context(), principalFrom(c), inspectionID, inspection.StatusInput{
		Status: req.Status,
		Result: req.Result,
		Notes:  req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, insp)
}

// RescheduleInspectionRequest moves the inspection to a new slot
type RescheduleInspectionRequest struct {
	Slot   entity.TimeSlot `json:"slot"`
	Reason string          `json:"reason,omitempty"`
}

// RescheduleInspection handles PATCH .../inspections/:inspectionID/reschedule
func (h *Handlers) RescheduleInspection(c *gin.Context) {
	inspectionID, ok := paramInt64(c, "inspectionID")
	if !ok {
		return
	}

	var req RescheduleInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	insp, err := h.inspections.Reschedule(c.Request.Context(), principalFrom(c), inspectionID, req.Slot, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, insp)
}

// AddViolation handles POST .../inspections/:inspectionID/violations
func (h *Handlers) AddViolation(c *gin.Context) {
	inspectionID, ok := paramInt64(c, "inspectionID")
	if !ok {
		return
	}

	var violation entity.Violation
	if err := c.ShouldBindJSON(&violation); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	insp, err := h.inspections.AddViolation(c.Request.Context(), principalFrom(c), inspectionID, violation)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, insp)
}
