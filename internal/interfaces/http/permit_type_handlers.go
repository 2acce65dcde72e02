package http

import (
	"github.com/gin-gonic/gin"

	"github.com/chadRoberge/avitar-suite-sub001/internal/permit"
)

// CreatePermitType handles POST .../permit-types
func (h *Handlers) CreatePermitType(c *gin.Context) {
	var in permit.TypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	pt, err := h.permitTypes.CreateType(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, pt)
}

// ListPermitTypes handles GET .../permit-types
func (h *Handlers) ListPermitTypes(c *gin.Context) {
	types, err := h.permitTypes.ListTypes(c.Request.Context(), principalFrom(c), c.Param("municipalityID"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, types)
}

// GetPermitType handles GET .../permit-types/:permitTypeID
func (h *Handlers) GetPermitType(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	pt, err := h.permitTypes.GetType(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), permitTypeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, pt)
}

// UpdatePermitType handles PUT .../permit-types/:permitTypeID
func (h *Handlers) UpdatePermitType(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	var in permit.TypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	pt, err := h.permitTypes.UpdateType(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), permitTypeID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, pt)
}

// DeletePermitType handles DELETE .../permit-types/:permitTypeID
func (h *Handlers) DeletePermitType(c *gin.Context) {
	permitTypeID, ok := paramInt64(c, "permitTypeID")
	if !ok {
		return
	}

	if err := h.permitTypes.DeleteType(c.Request.Context(), principalFrom(c), c.Param("municipalityID"), permitTypeID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil)
}
