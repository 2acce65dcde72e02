package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/apperr"
)

// Response is the uniform JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// respondError maps the error taxonomy onto HTTP statuses. Validation,
// conflict and state errors all return 400 with the message verbatim;
// anything unclassified is a 500 with a generic body.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case apperr.IsValidation(err), apperr.IsConflict(err), apperr.IsState(err):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case apperr.IsAuthorization(err):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "access denied"})
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	default:
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}
