package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/internal/domain"
)

// RepositoryStatus summarizes one repository for listing endpoints
type RepositoryStatus struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Endpoint     string            `json:"endpoint"`
	SyncStatus   domain.SyncStatus `json:"sync_status"`
	PackageCount int               `json:"package_count"`
	FetchedAt    time.Time         `json:"fetched_at"`
}

// SyncService owns the sync engines for all configured repositories and
// drives the optional periodic resync schedule. Per-repository retry of a
// failed sync happens here, on the schedule, not inside the engine.
type SyncService struct {
	engines map[string]*SyncEngine
	order   []string
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	workerWg sync.WaitGroup
}

// NewSyncService creates an empty sync service
func NewSyncService(logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		engines:  make(map[string]*SyncEngine),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Register adds an engine for a configured repository
func (s *SyncService) Register(engine *SyncEngine) {
	id := engine.RepositoryID()
	if _, ok := s.engines[id]; !ok {
		s.order = append(s.order, id)
	}
	s.engines[id] = engine
}

// Engine returns the engine for a repository id
func (s *SyncService) Engine(id string) (*SyncEngine, bool) {
	e, ok := s.engines[id]
	return e, ok
}

// List returns the status of every registered repository in registration order
func (s *SyncService) List() []RepositoryStatus {
	out := make([]RepositoryStatus, 0, len(s.order))
	for _, id := range s.order {
		e := s.engines[id]
		snap := e.Snapshot()
		status := RepositoryStatus{
			ID:           e.repoConfig.ID,
			Name:         e.repoConfig.Name,
			Endpoint:     e.repoConfig.Endpoint,
			SyncStatus:   e.Status(),
			PackageCount: len(snap.Packages),
			FetchedAt:    snap.FetchedAt,
		}
		out = append(out, status)
	}
	return out
}

// InitializeAll performs the handshake for every repository and syncs the
// ones that answered. Individual failures are logged and reported, not fatal.
func (s *SyncService) InitializeAll(ctx context.Context) error {
	var firstErr error
	for _, id := range s.order {
		e := s.engines[id]
		if res := e.Initialize(ctx); !res.Success {
			s.logger.Warn("Repository initialization failed",
				zap.String("repository", id),
				zap.String("error", res.Error))
			if firstErr == nil {
				firstErr = fmt.Errorf("initialize repository %s: %s", id, res.Error)
			}
			continue
		}
		if res := e.Sync(ctx); !res.Success {
			s.logger.Warn("Initial sync failed",
				zap.String("repository", id),
				zap.String("error", res.Error))
			if firstErr == nil {
				firstErr = fmt.Errorf("sync repository %s: %s", id, res.Error)
			}
		}
	}
	return firstErr
}

// StartPeriodic starts the periodic resync loop. An interval of zero
// disables it.
func (s *SyncService) StartPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sync service already running")
	}
	s.running = true
	s.mu.Unlock()

	s.workerWg.Add(1)
	go s.syncLoop(ctx, interval)
	return nil
}

// Stop stops the periodic resync loop
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.workerWg.Wait()
}

func (s *SyncService) syncLoop(ctx context.Context, interval time.Duration) {
	defer s.workerWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			for _, id := range s.order {
				e := s.engines[id]
				if res := e.Sync(ctx); !res.Success {
					s.logger.Warn("Scheduled sync failed",
						zap.String("repository", id),
						zap.String("error", res.Error))
				}
			}
		}
	}
}
