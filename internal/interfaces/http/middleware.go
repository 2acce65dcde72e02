package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/domain/entity"
)

const principalKey = "principal"

// principalClaims is the token payload issued by the platform identity
// service.
type principalClaims struct {
	Role         string                    `json:"role"`
	ContractorID string                    `json:"contractorId,omitempty"`
	Permissions  []entity.ModulePermission `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// authMiddleware verifies the bearer token and attaches the resulting
// AuthenticatedPrincipal to the request context. Services receive the
// principal explicitly; nothing below this layer reads the token.
func authMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "missing bearer token"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims := &principalClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			logger.Debug("Token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid token"})
			return
		}

		c.Set(principalKey, entity.AuthenticatedPrincipal{
			UserID:       claims.Subject,
			GlobalRole:   claims.Role,
			ContractorID: claims.ContractorID,
			Permissions:  claims.Permissions,
		})
		c.Next()
	}
}

// principalFrom returns the authenticated principal set by authMiddleware
func principalFrom(c *gin.Context) entity.AuthenticatedPrincipal {
	v, _ := c.Get(principalKey)
	principal, _ := v.(entity.AuthenticatedPrincipal)
	return principal
}

// loggingMiddleware logs method, path, status and latency per request
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
