package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/api"
	"github.com/yourusername/plugin-hub/internal/app"
	"github.com/yourusername/plugin-hub/internal/domain"
	"github.com/yourusername/plugin-hub/internal/infrastructure"
	"github.com/yourusername/plugin-hub/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search standard locations)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize multi-logger (3 categories: download, sync, error)
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer multiLog.Close()

	log := multiLog.General()

	log.Info("Starting plugin-hub server",
		zap.String("version", config.Host.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Int("repositories", len(config.Repositories)))

	if err := createDirectories(config); err != nil {
		log.Fatal("Failed to create directories", zap.Error(err))
	}

	// Initialize task repository
	repo, err := infrastructure.NewSQLiteTaskRepository(config.Download.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	// Initialize transferer and download manager
	transferer := infrastructure.NewHTTPTransferer(config.Sync.RequestTimeout, multiLog.Download())
	manager := app.NewDownloadManager(repo, transferer, &config.Download, multiLog.Download())

	// Route download events to category logs
	manager.SubscribeStatus(func(ev domain.TaskStatusEvent) {
		multiLog.LogDownloadEvent("status_changed",
			zap.String("task_id", ev.TaskID),
			zap.String("old_status", string(ev.OldStatus)),
			zap.String("new_status", string(ev.NewStatus)),
			zap.String("reason", ev.Reason))
	})
	manager.SubscribeProgress(func(ev domain.TaskProgressEvent) {
		multiLog.LogDownloadEvent("progress",
			zap.String("task_id", ev.TaskID),
			zap.Int("progress", ev.Progress),
			zap.Int64("bytes_transferred", ev.BytesTransferred),
			zap.Float64("speed", ev.Speed))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start download manager", zap.Error(err))
	}

	// Initialize sync service with one engine per configured repository
	syncService := app.NewSyncService(multiLog.SyncEvents())
	for _, repoConfig := range config.Repositories {
		source := infrastructure.NewCatalogClient(repoConfig.Endpoint, config.Sync.RequestTimeout)
		engine := app.NewSyncEngine(repoConfig, source, config.Host.Version, multiLog.SyncEvents())
		engine.SubscribeStatus(func(ev domain.SyncStatusEvent) {
			multiLog.LogSyncEvent("sync_status",
				zap.String("repository_id", ev.RepositoryID),
				zap.String("status", string(ev.NewStatus)),
				zap.Int("progress", ev.Progress),
				zap.String("message", ev.Message))
		})
		syncService.Register(engine)
	}

	if err := syncService.InitializeAll(ctx); err != nil {
		// Keep serving with whatever catalogs did sync; repositories can be
		// re-synced through the API once they come back.
		log.Warn("Initial repository sync incomplete", zap.Error(err))
	}

	if err := syncService.StartPeriodic(ctx, config.Sync.Interval); err != nil {
		log.Fatal("Failed to start sync service", zap.Error(err))
	}

	// Setup HTTP router
	paths := infrastructure.NewPathProvider(config.Download.PluginsDir, config.Download.TempDir)
	router := api.SetupRouter(manager, syncService, paths, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	syncService.Stop()
	manager.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.PluginsDir,
		config.Download.TempDir,
		config.Logging.LogsDir,
		filepath.Dir(config.Download.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
