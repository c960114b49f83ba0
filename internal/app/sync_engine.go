package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/internal/domain"
	"github.com/yourusername/plugin-hub/internal/infrastructure"
)

// Catalog is an immutable snapshot of one repository's packages. A new
// snapshot is built off to the side and swapped in atomically, so readers
// never observe a partially merged catalog.
type Catalog struct {
	Packages  []*domain.PluginPackage
	byID      map[string]*domain.PluginPackage
	FetchedAt time.Time
}

func newCatalog(packages []*domain.PluginPackage, fetchedAt time.Time) *Catalog {
	byID := make(map[string]*domain.PluginPackage, len(packages))
	for _, p := range packages {
		byID[p.ID] = p
	}
	return &Catalog{Packages: packages, byID: byID, FetchedAt: fetchedAt}
}

// SyncSummary reports the outcome of one sync
type SyncSummary struct {
	RepositoryID string    `json:"repository_id"`
	PackageCount int       `json:"package_count"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// SyncEngine keeps a local snapshot of one remote repository's catalog and
// answers read queries against the latest committed snapshot without
// blocking on an in-progress sync.
type SyncEngine struct {
	repoConfig  domain.RepositoryConfig
	source      domain.CatalogSource
	hostVersion string
	logger      *zap.Logger

	snapshot atomic.Pointer[Catalog]
	info     atomic.Pointer[domain.RepositoryInfo]

	mu          sync.Mutex // guards status, subscribers, syncing
	status      domain.SyncStatus
	syncing     bool
	initialized bool
	subscribers []domain.SyncStatusSubscriber
}

// NewSyncEngine creates a sync engine for one configured repository
func NewSyncEngine(repoConfig domain.RepositoryConfig, source domain.CatalogSource, hostVersion string, logger *zap.Logger) *SyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &SyncEngine{
		repoConfig:  repoConfig,
		source:      source,
		hostVersion: hostVersion,
		logger:      logger,
		status:      domain.SyncIdle,
	}
	e.snapshot.Store(newCatalog(nil, time.Time{}))
	return e
}

// RepositoryID returns the configured repository identifier
func (e *SyncEngine) RepositoryID() string {
	return e.repoConfig.ID
}

// Status returns the current sync status
func (e *SyncEngine) Status() domain.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SubscribeStatus registers a subscriber for sync status events
func (e *SyncEngine) SubscribeStatus(sub domain.SyncStatusSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// setStatus transitions the sync status and notifies subscribers in order
func (e *SyncEngine) setStatus(status domain.SyncStatus, progress int, message string) {
	e.mu.Lock()
	old := e.status
	e.status = status
	subs := make([]domain.SyncStatusSubscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	event := domain.SyncStatusEvent{
		RepositoryID: e.repoConfig.ID,
		OldStatus:    old,
		NewStatus:    status,
		Progress:     progress,
		Message:      message,
		Timestamp:    time.Now(),
	}
	for _, sub := range subs {
		sub(event)
	}
}

// Initialize establishes the repository identity. It must be called before
// any other operation.
func (e *SyncEngine) Initialize(ctx context.Context) domain.Result[*domain.RepositoryInfo] {
	info, err := e.source.Handshake(ctx)
	if err != nil {
		e.logger.Error("Repository handshake failed",
			zap.String("repository", e.repoConfig.ID),
			zap.Error(err))
		return domain.Fail[*domain.RepositoryInfo](fmt.Sprintf("handshake with repository %s failed", e.repoConfig.ID), err)
	}

	e.info.Store(info)
	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()

	e.logger.Info("Repository initialized",
		zap.String("repository", e.repoConfig.ID),
		zap.String("name", info.Name),
		zap.Strings("capabilities", info.Capabilities))

	return domain.Ok(info, "repository initialized")
}

// Info returns the repository identity established by Initialize
func (e *SyncEngine) Info() *domain.RepositoryInfo {
	return e.info.Load()
}

func (e *SyncEngine) requireInitialized() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return fmt.Errorf("repository %s not initialized", e.repoConfig.ID)
	}
	return nil
}

// Sync fetches the current catalog and atomically swaps the snapshot.
// A failed sync leaves the previous snapshot intact. Only one sync per
// engine runs at a time; a concurrent caller gets a failure result.
func (e *SyncEngine) Sync(ctx context.Context) domain.Result[*SyncSummary] {
	if err := e.requireInitialized(); err != nil {
		return domain.Fail[*SyncSummary]("", err)
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return domain.Fail[*SyncSummary](fmt.Sprintf("sync already in progress for repository %s", e.repoConfig.ID), nil)
	}
	e.syncing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	e.setStatus(domain.SyncRunning, 0, "sync started")

	packages, err := e.source.FetchCatalog(ctx)
	if err != nil {
		e.logger.Error("Catalog fetch failed",
			zap.String("repository", e.repoConfig.ID),
			zap.Error(err))
		e.setStatus(domain.SyncFailed, 100, err.Error())
		return domain.Fail[*SyncSummary](fmt.Sprintf("catalog fetch for repository %s failed", e.repoConfig.ID), err)
	}
	e.setStatus(domain.SyncRunning, 50, "catalog fetched")

	// Build the replacement snapshot off to the side. Invalid entries fail
	// the whole sync so a half-valid catalog is never committed.
	valid := make([]*domain.PluginPackage, 0, len(packages))
	for _, pkg := range packages {
		if err := pkg.Validate(); err != nil {
			e.setStatus(domain.SyncFailed, 100, err.Error())
			return domain.Fail[*SyncSummary](fmt.Sprintf("catalog for repository %s contains an invalid package", e.repoConfig.ID), err)
		}
		pkg.RepositoryID = e.repoConfig.ID
		if pkg.RepositoryName == "" {
			pkg.RepositoryName = e.repoConfig.Name
		}
		valid = append(valid, pkg)
	}
	e.setStatus(domain.SyncRunning, 80, "catalog validated")

	fetchedAt := time.Now()
	e.snapshot.Store(newCatalog(valid, fetchedAt))

	e.logger.Info("Repository synced",
		zap.String("repository", e.repoConfig.ID),
		zap.Int("packages", len(valid)))
	e.setStatus(domain.SyncSynced, 100, fmt.Sprintf("%d packages", len(valid)))

	summary := &SyncSummary{
		RepositoryID: e.repoConfig.ID,
		PackageCount: len(valid),
		FetchedAt:    fetchedAt,
	}
	return domain.Ok(summary, "sync completed")
}

// GetAvailablePackages returns all packages from the latest committed snapshot
func (e *SyncEngine) GetAvailablePackages() []*domain.PluginPackage {
	return e.snapshot.Load().Packages
}

// GetPackage returns one package by id from the latest committed snapshot
func (e *SyncEngine) GetPackage(id string) (*domain.PluginPackage, bool) {
	pkg, ok := e.snapshot.Load().byID[id]
	return pkg, ok
}

// GetPackageVersions returns the version list of one package
func (e *SyncEngine) GetPackageVersions(id string) ([]domain.PluginVersion, bool) {
	pkg, ok := e.GetPackage(id)
	if !ok {
		return nil, false
	}
	return pkg.Versions, true
}

// Snapshot returns the latest committed catalog snapshot
func (e *SyncEngine) Snapshot() *Catalog {
	return e.snapshot.Load()
}

// CheckForUpdates returns the highest version newer than currentVersion
// whose release status is in the allowed set (stable only by default) and
// whose compatibility expression accepts the running host version. A nil
// payload with success means the package is already current.
func (e *SyncEngine) CheckForUpdates(id, currentVersion string, statuses ...domain.ReleaseStatus) domain.Result[*domain.PluginVersion] {
	if err := e.requireInitialized(); err != nil {
		return domain.Fail[*domain.PluginVersion]("", err)
	}

	pkg, ok := e.GetPackage(id)
	if !ok {
		return domain.Fail[*domain.PluginVersion](fmt.Sprintf("package %s not found in repository %s", id, e.repoConfig.ID), nil)
	}

	if len(statuses) == 0 {
		statuses = []domain.ReleaseStatus{domain.ReleaseStable}
	}
	allowed := make(map[domain.ReleaseStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}

	var best *domain.PluginVersion
	for i := range pkg.Versions {
		v := &pkg.Versions[i]
		if !allowed[v.ReleaseStatus] {
			continue
		}
		if domain.CompareVersions(v.Version, currentVersion) <= 0 {
			continue
		}
		if !domain.IsCompatible(v.Compatibility, e.hostVersion) {
			continue
		}
		if best == nil || domain.CompareVersions(v.Version, best.Version) > 0 {
			best = v
		}
	}

	if best == nil {
		return domain.Ok[*domain.PluginVersion](nil, "already current")
	}
	return domain.Ok(best, fmt.Sprintf("update available: %s", best.Version))
}

// VerifyPackagePayload recomputes the checksum of a downloaded file and
// compares it to the version descriptor. Used for post-hoc audits,
// independent of the download manager's own verification step.
func (e *SyncEngine) VerifyPackagePayload(id, version, localPath string) domain.Result[bool] {
	if err := e.requireInitialized(); err != nil {
		return domain.Fail[bool]("", err)
	}

	pkg, ok := e.GetPackage(id)
	if !ok {
		return domain.Fail[bool](fmt.Sprintf("package %s not found in repository %s", id, e.repoConfig.ID), nil)
	}
	desc, ok := pkg.FindVersion(version)
	if !ok {
		return domain.Fail[bool](fmt.Sprintf("package %s has no version %s", id, version), nil)
	}

	match, err := infrastructure.VerifyFileChecksum(localPath, desc.Algorithm(), desc.Checksum)
	if err != nil {
		return domain.Fail[bool]("payload verification failed", err)
	}
	if !match {
		return domain.Result[bool]{
			Success: true,
			Message: "checksum mismatch",
			Data:    false,
		}
	}
	return domain.Ok(true, "checksum verified")
}
