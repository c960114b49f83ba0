package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/internal/app"
	"github.com/yourusername/plugin-hub/internal/domain"
)

// RepositoryHandler handles catalog and sync HTTP requests
type RepositoryHandler struct {
	sync   *app.SyncService
	logger *zap.Logger
}

// NewRepositoryHandler creates a new repository handler
func NewRepositoryHandler(sync *app.SyncService, logger *zap.Logger) *RepositoryHandler {
	return &RepositoryHandler{sync: sync, logger: logger}
}

// ListRepositories handles GET /api/v1/repositories
func (h *RepositoryHandler) ListRepositories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"repositories": h.sync.List()})
}

func (h *RepositoryHandler) engine(c *gin.Context) (*app.SyncEngine, bool) {
	id := c.Param("id")
	engine, ok := h.sync.Engine(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown repository: " + id})
		return nil, false
	}
	return engine, true
}

// SyncRepository handles POST /api/v1/repositories/:id/sync
func (h *RepositoryHandler) SyncRepository(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	res := engine.Sync(c.Request.Context())
	if !res.Success {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListPackages handles GET /api/v1/repositories/:id/packages
func (h *RepositoryHandler) ListPackages(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	packages := engine.GetAvailablePackages()
	c.JSON(http.StatusOK, gin.H{"packages": packages, "count": len(packages)})
}

// GetPackage handles GET /api/v1/repositories/:id/packages/:pluginId
func (h *RepositoryHandler) GetPackage(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	pkg, found := engine.GetPackage(c.Param("pluginId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// GetPackageVersions handles GET /api/v1/repositories/:id/packages/:pluginId/versions
func (h *RepositoryHandler) GetPackageVersions(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	versions, found := engine.GetPackageVersions(c.Param("pluginId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// CheckForUpdates handles GET /api/v1/repositories/:id/packages/:pluginId/updates
func (h *RepositoryHandler) CheckForUpdates(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	current := c.Query("current")
	if current == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current version is required"})
		return
	}

	var statuses []domain.ReleaseStatus
	if raw := c.Query("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := domain.ReleaseStatus(strings.TrimSpace(s))
			if !domain.ValidReleaseStatus(status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown release status: " + string(status)})
				return
			}
			statuses = append(statuses, status)
		}
	}

	res := engine.CheckForUpdates(c.Param("pluginId"), current, statuses...)
	if !res.Success {
		c.JSON(http.StatusNotFound, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyPayloadRequest asks for a post-hoc audit of a downloaded file
type VerifyPayloadRequest struct {
	Version   string `json:"version" binding:"required"`
	LocalPath string `json:"local_path" binding:"required"`
}

// VerifyPackagePayload handles POST /api/v1/repositories/:id/packages/:pluginId/verify
func (h *RepositoryHandler) VerifyPackagePayload(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req VerifyPayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := engine.VerifyPackagePayload(c.Param("pluginId"), req.Version, req.LocalPath)
	if !res.Success {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SearchPackages handles POST /api/v1/repositories/:id/search
func (h *RepositoryHandler) SearchPackages(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	filter := domain.DefaultSearchFilter()
	if err := c.ShouldBindJSON(filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := app.SearchPlugins(engine.GetAvailablePackages(), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
