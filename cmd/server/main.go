package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/chadRoberge/avitar-suite-sub001/internal/config"
	"github.com/chadRoberge/avitar-suite-sub001/internal/feeschedule"
	"github.com/chadRoberge/avitar-suite-sub001/internal/inspection"
	httpadapter "github.com/chadRoberge/avitar-suite-sub001/internal/interfaces/http"
	"github.com/chadRoberge/avitar-suite-sub001/internal/issue"
	"github.com/chadRoberge/avitar-suite-sub001/internal/notification"
	"github.com/chadRoberge/avitar-suite-sub001/internal/permit"
	"github.com/chadRoberge/avitar-suite-sub001/internal/repository"
	"github.com/chadRoberge/avitar-suite-sub001/internal/storage"
	"github.com/chadRoberge/avitar-suite-sub001/internal/worker"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/database"
	"github.com/chadRoberge/avitar-suite-sub001/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting permit lifecycle engine",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Issues.QROutputDir, 0755); err != nil {
		logger.Fatal("Failed to create QR output directory", zap.Error(err))
	}

	// Repositories
	permitTypeRepo := repository.NewPermitTypeRepository(db, logger)
	feeScheduleRepo := repository.NewFeeScheduleRepository(db, logger)
	permitRepo := repository.NewPermitRepository(db, logger)
	commentRepo := repository.NewCommentRepository(db, logger)
	inspectionRepo := repository.NewInspectionRepository(db, logger)
	inspectorRepo := repository.NewInspectorRepository(db, logger)
	templateRepo := repository.NewChecklistTemplateRepository(db, logger)
	issueRepo := repository.NewIssueRepository(db, logger)

	// Notifications and file storage
	dispatcher := notification.NewDispatcher(
		notification.NewLogNotifier(logger),
		cfg.Notifications.Timeout,
		cfg.Notifications.Enabled,
		logger,
	)
	fileStorage := storage.NewLocalFileStorage(cfg.Issues.QROutputDir, cfg.Issues.QRBaseURL, logger)

	// Services
	scheduleService := feeschedule.NewService(feeScheduleRepo, permitTypeRepo, logger)
	permitService := permit.NewService(
		permitRepo,
		commentRepo,
		permitTypeRepo,
		feeScheduleRepo,
		dispatcher,
		cfg.Permits.ExpirationDays,
		logger,
	)
	typeService := permit.NewTypeService(permitTypeRepo, logger)
	inspectionService := inspection.NewService(
		inspectionRepo,
		inspectorRepo,
		inspectorRepo,
		templateRepo,
		permitRepo,
		permitTypeRepo,
		inspection.NewScheduler(inspectionRepo, logger),
		dispatcher,
		cfg.Inspections.DefaultBufferDays,
		cfg.Inspections.DefaultSlotMinutes,
		logger,
	)
	issueService := issue.NewService(
		issueRepo,
		inspectionRepo,
		fileStorage,
		dispatcher,
		cfg.Issues.QRBaseURL,
		cfg.Issues.MaxBatchSize,
		logger,
	)

	// Background workers
	sweeper := worker.NewActivationSweeper(scheduleService, cfg.Inspections.SweepInterval, logger)

	handlers := httpadapter.NewHandlers(
		scheduleService,
		permitService,
		typeService,
		inspectionService,
		issueService,
		logger,
	)
	server := httpadapter.NewServer(cfg.Server, cfg.Auth.JWTSecret, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("Failed to start activation sweeper", zap.Error(err))
	}

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	sweeper.Stop()

	logger.Info("Shutdown complete")
}
