package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// ListFeeSchedules handles GET .../fee-schedules
func (h *Handlers) ListFeeSchedules(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	schedules, err := h.schedules.List(c.Request.Context(), principalFrom(c), permitTypeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, schedules)
}

// CreateFeeScheduleRequest carries a new schedule version
type CreateFeeScheduleRequest struct {
	FeeConfiguration entity.FeeConfiguration `json:"feeConfiguration"`
	EffectiveDate    *time.Time              `json:"effectiveDate,omitempty"`
}

// CreateFeeSchedule handles POST .../fee-schedules
func (h *Handlers) CreateFeeSchedule(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	var req CreateFeeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	schedule, err := h.schedules.Create(c.Request.Context(), principalFrom(c), permitTypeID, req.FeeConfiguration, req.EffectiveDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, schedule)
}

// GetActiveFeeSchedule handles GET .../fee-schedules/active
func (h *Handlers) GetActiveFeeSchedule(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	schedule, err := h.schedules.GetActiveSchedule(c.Request.Context(), permitTypeID, time.Now().UTC())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, schedule)
}

// GetFeeSchedule handles GET .../fee-schedules/:scheduleID
func (h *Handlers) GetFeeSchedule(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}
	scheduleID, ok := paramInt64(c, "scheduleID")
	if !ok {
		return
	}

	schedule, err := h.schedules.Get(c.Request.Context(), principalFrom(c), permitTypeID, scheduleID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, schedule)
}

// ActivateFeeScheduleRequest optionally defers activation
type ActivateFeeScheduleRequest struct {
	ScheduleFor *time.Time `json:"scheduleFor,omitempty"`
}

// ActivateFeeSchedule handles POST .../fee-schedules/:scheduleID/activate.
// With scheduleFor the version is queued for future activation; without it
// the swap happens immediately.
func (h *Handlers) ActivateFeeSchedule(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}
	scheduleID, ok := paramInt64(c, "scheduleID")
	if !ok {
		return
	}

	var req ActivateFeeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBadRequest(c, "invalid request body")
		return
	}

	var schedule interface{}
	var err error
	if req.ScheduleFor != nil {
		schedule, err = h.schedules.Schedule(c.Request.Context(), principalFrom(c), permitTypeID, scheduleID, *req.ScheduleFor)
	} else {
		schedule, err = h.schedules.Activate(c.Request.Context(), principalFrom(c), permitTypeID, scheduleID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, schedule)
}

// CreateFeeScheduleVersion handles POST .../fee-schedules/:scheduleID/versions
func (h *Handlers) CreateFeeScheduleVersion(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}
	scheduleID, ok := paramInt64(c, "scheduleID")
	if !ok {
		return
	}

	clone, err := h.schedules.CreateNewVersion(c.Request.Context(), principalFrom(c), permitTypeID, scheduleID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, clone)
}

// CalculateFees handles POST .../fee-schedules/calculate: a dry run against
// the active schedule, without touching any permit.
func (h *Handlers) CalculateFees(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	var data entity.PermitData
	if err := c.ShouldBindJSON(&data); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	breakdown, err := h.schedules.CalculateForType(c.Request.Context(), permitTypeID, data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, breakdown)
}
