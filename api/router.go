package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/api/handlers"
	"github.com/yourusername/plugin-hub/api/middleware"
	"github.com/yourusername/plugin-hub/internal/app"
)

// SetupRouter sets up the HTTP router with all API routes
func SetupRouter(
	manager *app.DownloadManager,
	syncService *app.SyncService,
	paths handlers.PathProvider,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(manager)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		taskHandler := handlers.NewTaskHandler(manager, syncService, paths, log)
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskHandler.AddTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.POST("/:id/pause", taskHandler.PauseTask)
			tasks.POST("/:id/resume", taskHandler.ResumeTask)
			tasks.POST("/:id/cancel", taskHandler.CancelTask)
			tasks.POST("/:id/retry", taskHandler.RetryTask)
			tasks.POST("/:id/requeue", taskHandler.RequeueTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}

		repoHandler := handlers.NewRepositoryHandler(syncService, log)
		repos := v1.Group("/repositories")
		{
			repos.GET("", repoHandler.ListRepositories)
			repos.POST("/:id/sync", repoHandler.SyncRepository)
			repos.GET("/:id/packages", repoHandler.ListPackages)
			repos.GET("/:id/packages/:pluginId", repoHandler.GetPackage)
			repos.GET("/:id/packages/:pluginId/versions", repoHandler.GetPackageVersions)
			repos.GET("/:id/packages/:pluginId/updates", repoHandler.CheckForUpdates)
			repos.POST("/:id/packages/:pluginId/verify", repoHandler.VerifyPackagePayload)
			repos.POST("/:id/search", repoHandler.SearchPackages)
		}
	}

	return router
}
