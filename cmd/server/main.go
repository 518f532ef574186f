package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/northdocs/docflow/internal/application/service"
	"github.com/northdocs/docflow/internal/config"
	"github.com/northdocs/docflow/internal/infrastructure/auth"
	"github.com/northdocs/docflow/internal/infrastructure/persistence/repository"
	"github.com/northdocs/docflow/internal/infrastructure/storage"
	httpadapter "github.com/northdocs/docflow/internal/interfaces/http"
	"github.com/northdocs/docflow/pkg/database"
	"github.com/northdocs/docflow/pkg/utils"
)

func main() {
	// Local development convenience; missing .env is fine
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
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

	logger.Info("Starting document approval service",
		zap.String("version", "1.0.0"),
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

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create blob directory", zap.Error(err))
	}

	// Infrastructure
	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	stepRepo := repository.NewStepRepository(db.DB, logger)
	attachmentRepo := repository.NewAttachmentRepository(db.DB, logger)
	activityRepo := repository.NewActivityLogRepository(db.DB, logger)
	documentRepo := repository.NewDocumentRepository(db.DB, logger)

	blobStore := storage.NewLocalBlobStore(cfg.Storage.BaseDir, cfg.Storage.SigningKey, logger)
	authResolver := auth.NewTokenResolver(cfg.Auth.TokenSecret, logger)

	// Application services
	appLogger := utils.NewAppLogger(logger)
	activityService := service.NewActivityService(activityRepo, appLogger)
	attachmentService := service.NewAttachmentService(
		attachmentRepo,
		stepRepo,
		workflowRepo,
		documentRepo,
		blobStore,
		cfg.Storage.StoreTimeout,
		cfg.Storage.DownloadTTL,
		appLogger,
	)
	workflowService := service.NewWorkflowService(
		workflowRepo,
		stepRepo,
		documentRepo,
		attachmentService,
		activityService,
		db,
		appLogger,
	)
	exportService := service.NewAuditExportService(activityRepo, documentRepo, appLogger)

	server := httpadapter.NewServer(
		httpadapter.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		workflowService,
		activityService,
		attachmentService,
		exportService,
		authResolver,
		appLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("DOCFLOW_CONFIG"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
