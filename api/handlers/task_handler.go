package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/internal/app"
	"github.com/yourusername/plugin-hub/internal/domain"
)

// TaskHandler handles download-task HTTP requests
type TaskHandler struct {
	manager *app.DownloadManager
	sync    *app.SyncService
	paths   PathProvider
	logger  *zap.Logger
}

// PathProvider supplies final and temp storage locations for a plugin version
type PathProvider interface {
	TargetPath(pluginID, version string) string
	TempPath(pluginID, version string) string
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(manager *app.DownloadManager, sync *app.SyncService, paths PathProvider, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		manager: manager,
		sync:    sync,
		paths:   paths,
		logger:  logger,
	}
}

// AddTaskRequest represents a request to enqueue a download
type AddTaskRequest struct {
	PluginID     string `json:"plugin_id" binding:"required"`
	RepositoryID string `json:"repository_id" binding:"required"`
	Version      string `json:"version"`
	Priority     *int   `json:"priority,omitempty"`
	MaxRetries   int    `json:"max_retries,omitempty"`
	Payload      any    `json:"payload,omitempty"`
}

// AddTask handles POST /api/v1/tasks. The version descriptor is resolved
// through the repository's latest committed snapshot; an omitted version
// selects the latest stable release.
func (h *TaskHandler) AddTask(c *gin.Context) {
	var req AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	engine, ok := h.sync.Engine(req.RepositoryID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown repository: " + req.RepositoryID})
		return
	}
	pkg, ok := engine.GetPackage(req.PluginID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "package not found: " + req.PluginID})
		return
	}

	var desc *domain.PluginVersion
	if req.Version == "" {
		desc = pkg.LatestVersion(domain.ReleaseStable)
		if desc == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "package has no stable release"})
			return
		}
	} else {
		desc, ok = pkg.FindVersion(req.Version)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "version not found: " + req.Version})
			return
		}
	}

	priority := domain.PriorityNormal
	if req.Priority != nil {
		priority = domain.TaskPriority(*req.Priority)
	}

	task, err := h.manager.Enqueue(app.EnqueueRequest{
		PluginID:          pkg.ID,
		PluginName:        pkg.Name,
		RepositoryID:      req.RepositoryID,
		Version:           desc.Version,
		DownloadURL:       desc.DownloadURL,
		TargetPath:        h.paths.TargetPath(pkg.ID, desc.Version),
		TempPath:          h.paths.TempPath(pkg.ID, desc.Version),
		Checksum:          desc.Checksum,
		ChecksumAlgorithm: desc.Algorithm(),
		TotalBytes:        desc.FileSize,
		Priority:          priority,
		MaxRetries:        req.MaxRetries,
		Resumable:         true,
		Payload:           req.Payload,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue task", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.manager.Get(c.Param("id"))
	if err != nil || task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if repo := c.Query("repository_id"); repo != "" {
		filters["repository_id"] = repo
	}

	tasks, err := h.manager.List(filters)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// GetStats handles GET /api/v1/tasks/stats
func (h *TaskHandler) GetStats(c *gin.Context) {
	stats, err := h.manager.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PauseTask handles POST /api/v1/tasks/:id/pause
func (h *TaskHandler) PauseTask(c *gin.Context) {
	h.taskAction(c, h.manager.Pause, "paused")
}

// ResumeTask handles POST /api/v1/tasks/:id/resume
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	h.taskAction(c, h.manager.Resume, "resumed")
}

// CancelTask handles POST /api/v1/tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	h.taskAction(c, h.manager.Cancel, "cancelled")
}

// RetryTask handles POST /api/v1/tasks/:id/retry
func (h *TaskHandler) RetryTask(c *gin.Context) {
	h.taskAction(c, h.manager.Retry, "queued for retry")
}

// RequeueTask handles POST /api/v1/tasks/:id/requeue for tasks that failed
// integrity verification
func (h *TaskHandler) RequeueTask(c *gin.Context) {
	h.taskAction(c, h.manager.Requeue, "requeued")
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	h.taskAction(c, h.manager.Delete, "deleted")
}

func (h *TaskHandler) taskAction(c *gin.Context, action func(string) error, message string) {
	id := c.Param("id")
	if err := action(id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "message": message})
}
