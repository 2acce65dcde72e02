// Package http is the REST adapter: it parses requests, resolves the
// authenticated principal, calls the services and renders the uniform
// response envelope. No business rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/config"
	"github.com/chadRoberge/avitar-suite-sub001/internal/feeschedule"
	"github.com/chadRoberge/avitar-suite-sub001/internal/inspection"
	"github.com/chadRoberge/avitar-suite-sub001/internal/issue"
	"github.com/chadRoberge/avitar-suite-sub001/internal/permit"
)

// Server is the HTTP server adapter
type Server struct {
	config     config.ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	jwtSecret  string
	logger     *zap.Logger
}

// Handlers bundles the services the routes dispatch to
type Handlers struct {
	schedules   *feeschedule.Service
	permits     *permit.Service
	permitTypes *permit.TypeService
	inspections *inspection.Service
	issues      *issue.Service
	logger      *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(
	schedules *feeschedule.Service,
	permits *permit.Service,
	permitTypes *permit.TypeService,
	inspections *inspection.Service,
	issues *issue.Service,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		schedules:   schedules,
		permits:     permits,
		permitTypes: permitTypes,
		inspections: inspections,
		issues:      issues,
		logger:      logger,
	}
}

// NewServer creates the HTTP server
func NewServer(cfg config.ServerConfig, jwtSecret string, handlers *Handlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:    cfg,
		router:    gin.New(),
		handlers:  handlers,
		jwtSecret: jwtSecret,
		logger:    logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.jwtSecret, s.logger))

	muni := api.Group("/municipalities/:municipalityID")
	{
		types := muni.Group("/permit-types")
		{
			types.GET("", h.ListPermitTypes)
			types.POST("", h.CreatePermitType)
			types.GET("/:permitTypeID", h.GetPermitType)
			types.PUT("/:permitTypeID", h.UpdatePermitType)
			types.DELETE("/:permitTypeID", h.DeletePermitType)
		}

		schedules := muni.Group("/permit-types/:permitTypeID/fee-schedules")
		{
			schedules.GET("", h.ListFeeSchedules)
			schedules.POST("", h.CreateFeeSchedule)
			schedules.GET("/active", h.GetActiveFeeSchedule)
			schedules.POST("/calculate", h.CalculateFees)
			schedules.GET("/:scheduleID", h.GetFeeSchedule)
			schedules.POST("/:scheduleID/activate", h.ActivateFeeSchedule)
			schedules.POST("/:scheduleID/versions", h.CreateFeeScheduleVersion)
		}

		permits := muni.Group("/permits")
		{
			permits.GET("", h.ListPermits)
			permits.POST("", h.CreatePermit)
			permits.GET("/:permitID", h.GetPermit)
			permits.PUT("/:permitID", h.UpdatePermit)
			permits.DELETE("/:permitID", h.DeletePermit)
			permits.PATCH("/:permitID/status", h.UpdatePermitStatus)
			permits.POST("/:permitID/fees/pay", h.PayPermitFee)
			permits.PUT("/:permitID/reviews/:department", h.UpdateReview)
			permits.GET("/:permitID/reviews/:department/comments", h.ListReviewComments)
			permits.POST("/:permitID/reviews/:department/comments", h.AddReviewComment)
			permits.GET("/:permitID/inspections", h.ListInspections)
			permits.POST("/:permitID/inspections", h.BookInspection)
			permits.GET("/:permitID/inspections/available-slots", h.ListAvailableSlots)
		}

		inspections := muni.Group("/inspections")
		{
			inspections.GET("/:inspectionID", h.GetInspection)
			inspections.PATCH("/:inspectionID/status", h.UpdateInspectionStatus)
			inspections.PATCH("/:inspectionID/reschedule", h.RescheduleInspection)
			inspections.POST("/:inspectionID/violations", h.AddViolation)
		}

		batches := muni.Group("/inspection-issue-batches")
		{
			batches.GET("", h.ListIssueBatches)
			batches.POST("", h.CreateIssueBatch)
			batches.DELETE("/:batchID", h.DeleteIssueBatch)
			batches.POST("/:batchID/printed", h.MarkIssueBatchPrinted)
			batches.GET("/:batchID/print-sheet", h.IssueBatchPrintSheet)
		}

		issues := muni.Group("/inspection-issues")
		{
			issues.GET("/:issueNumber", h.GetIssue)
			issues.POST("/:issueNumber/link", h.LinkIssue)
			issues.POST("/:issueNumber/corrections", h.AddIssueCorrection)
			issues.POST("/:issueNumber/verify", h.VerifyIssueCorrection)
			issues.POST("/:issueNumber/close", h.CloseIssue)
		}
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
