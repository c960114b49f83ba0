package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/plugin-hub/internal/domain"
	"github.com/yourusername/plugin-hub/internal/infrastructure"
)

// EnqueueRequest describes one transfer to add to the queue
type EnqueueRequest struct {
	PluginID          string              `json:"plugin_id"`
	PluginName        string              `json:"plugin_name"`
	RepositoryID      string              `json:"repository_id"`
	Version           string              `json:"version"`
	DownloadURL       string              `json:"download_url"`
	TargetPath        string              `json:"target_path"`
	TempPath          string              `json:"temp_path"`
	Checksum          string              `json:"checksum"`
	ChecksumAlgorithm string              `json:"checksum_algorithm"`
	TotalBytes        int64               `json:"total_bytes"`
	Priority          domain.TaskPriority `json:"priority"`
	MaxRetries        int                 `json:"max_retries"`
	Resumable         bool                `json:"resumable"`
	Payload           any                 `json:"payload,omitempty"`
}

// runHandle tracks one in-flight transfer so pause and cancel requests can
// reach it.
type runHandle struct {
	cancelRun      context.CancelFunc
	pauseRequested bool
}

// DownloadManager owns all download tasks for their full lifetime. It
// schedules transfers under a bounded concurrency limit, drives each task's
// state machine, retries transient failures with backoff and verifies
// completed payloads before publishing them.
type DownloadManager struct {
	repo       domain.TaskRepository
	transferer domain.Transferer
	config     *domain.DownloadConfig
	logger     *zap.Logger

	mu           sync.Mutex
	tasks        map[string]*domain.Task
	ready        []*domain.Task
	runs         map[string]*runHandle
	active       int
	statusSubs   []domain.TaskStatusSubscriber
	progressSubs []domain.TaskProgressSubscriber

	running  bool
	stopping bool
	wake     chan struct{}
	stopChan chan struct{}
	workerWg sync.WaitGroup
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.TaskRepository,
	transferer domain.Transferer,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *DownloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadManager{
		repo:       repo,
		transferer: transferer,
		config:     config,
		logger:     logger,
		tasks:      make(map[string]*domain.Task),
		runs:       make(map[string]*runHandle),
		wake:       make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
	}
}

// SubscribeStatus registers a subscriber for task status transitions.
// Events for a single task are delivered in transition order.
func (m *DownloadManager) SubscribeStatus(sub domain.TaskStatusSubscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusSubs = append(m.statusSubs, sub)
}

// SubscribeProgress registers a subscriber for task progress updates
func (m *DownloadManager) SubscribeProgress(sub domain.TaskProgressSubscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressSubs = append(m.progressSubs, sub)
}

// Start restores unfinished tasks from the repository and starts the
// scheduler
func (m *DownloadManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("download manager already running")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.restore(); err != nil {
		return err
	}

	m.workerWg.Add(1)
	go m.schedule(ctx)
	m.kick()
	return nil
}

// Stop stops the scheduler and waits for in-flight transfers to wind down.
// Interrupted transfers are paused when resumable, failed otherwise.
func (m *DownloadManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.stopping = true
	for _, run := range m.runs {
		run.cancelRun()
	}
	m.mu.Unlock()

	close(m.stopChan)
	m.workerWg.Wait()
}

// IsRunning returns whether the scheduler is running
func (m *DownloadManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// restore reloads tasks left over from a previous run. Transfers
// interrupted mid-flight are reset to pending, persisted, and queued again
// from the start of the state machine along with the tasks that never ran.
func (m *DownloadManager) restore() error {
	stored, err := m.repo.FindAll(nil)
	if err != nil {
		return fmt.Errorf("failed to restore tasks: %w", err)
	}
	m.mu.Lock()
	for _, task := range stored {
		m.tasks[task.ID] = task
		if task.Status == domain.StatusDownloading || task.Status == domain.StatusVerifying {
			task.Status = domain.StatusPending
			task.StartedAt = nil
			if err := m.repo.Update(task); err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to requeue interrupted task %s: %w", task.ID, err)
			}
		}
	}
	m.mu.Unlock()

	pending, err := m.repo.FindPending()
	if err != nil {
		return fmt.Errorf("failed to load pending tasks: %w", err)
	}
	m.mu.Lock()
	for _, p := range pending {
		if task, ok := m.tasks[p.ID]; ok {
			m.ready = append(m.ready, task)
		}
	}
	m.mu.Unlock()

	if total, err := m.repo.Count(); err == nil {
		queued, _ := m.repo.CountByStatus(domain.StatusPending)
		m.logger.Info("Task store restored",
			zap.Int64("total", total),
			zap.Int64("pending", queued))
	}
	return nil
}

// Enqueue validates a request, creates a pending task and wakes the scheduler
func (m *DownloadManager) Enqueue(req EnqueueRequest) (*domain.Task, error) {
	if req.DownloadURL == "" {
		return nil, fmt.Errorf("download URL is required")
	}
	if req.PluginID == "" {
		return nil, fmt.Errorf("plugin id is required")
	}
	if !domain.ValidPriority(req.Priority) {
		return nil, fmt.Errorf("invalid priority: %d", req.Priority)
	}

	task := domain.NewTask(req.PluginID, req.PluginName, req.RepositoryID, req.Version, req.DownloadURL)
	task.TargetPath = req.TargetPath
	task.TempPath = req.TempPath
	task.Checksum = req.Checksum
	if req.ChecksumAlgorithm != "" {
		task.ChecksumAlgorithm = req.ChecksumAlgorithm
	}
	task.TotalBytes = req.TotalBytes
	task.Priority = req.Priority
	task.Resumable = req.Resumable
	if req.MaxRetries > 0 {
		task.MaxRetries = req.MaxRetries
	} else if m.config.MaxRetries > 0 {
		task.MaxRetries = m.config.MaxRetries
	}
	if task.TempPath == "" {
		task.TempPath = task.TargetPath + ".part"
	}
	if req.Payload != nil {
		if err := task.SetPayload(req.Payload); err != nil {
			return nil, fmt.Errorf("failed to encode task payload: %w", err)
		}
	}

	if err := m.repo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.ready = append(m.ready, task)
	m.mu.Unlock()

	m.logger.Info("Task enqueued",
		zap.String("id", task.ID),
		zap.String("plugin", task.PluginID),
		zap.String("version", task.Version),
		zap.Int("priority", int(task.Priority)))

	m.kick()
	return task, nil
}

// Get retrieves a snapshot of a task by ID. The copy is taken under the
// manager lock so callers can read and encode it while the transfer keeps
// mutating the live task.
func (m *DownloadManager) Get(id string) (*domain.Task, error) {
	m.mu.Lock()
	if task, ok := m.tasks[id]; ok {
		snapshot := *task
		m.mu.Unlock()
		return &snapshot, nil
	}
	m.mu.Unlock()
	return m.repo.FindByID(id)
}

// List lists tasks with optional filters. A status-only filter uses the
// indexed status query.
func (m *DownloadManager) List(filters map[string]interface{}) ([]*domain.Task, error) {
	if len(filters) == 1 {
		if status, ok := filters["status"].(string); ok {
			return m.repo.FindByStatus(domain.TaskStatus(status))
		}
	}
	return m.repo.FindAll(filters)
}

// Stats returns task statistics
func (m *DownloadManager) Stats() (*domain.TaskStats, error) {
	return m.repo.GetStats()
}

// Delete removes a terminal task from the manager and the store
func (m *DownloadManager) Delete(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if ok && !task.IsTerminal() {
		m.mu.Unlock()
		return fmt.Errorf("task %s is not in a terminal state: %s", id, task.Status)
	}
	delete(m.tasks, id)
	m.mu.Unlock()
	return m.repo.Delete(id)
}

// Pause pauses an actively downloading task
func (m *DownloadManager) Pause(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if !task.CanPause() {
		m.mu.Unlock()
		return fmt.Errorf("task %s cannot be paused from status %s", id, task.Status)
	}
	run, ok := m.runs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task %s has no active transfer", id)
	}
	run.pauseRequested = true
	run.cancelRun()
	m.mu.Unlock()
	return nil
}

// Resume re-dispatches a paused, resume-capable task
func (m *DownloadManager) Resume(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if !task.CanResume() {
		m.mu.Unlock()
		return fmt.Errorf("task %s cannot be resumed from status %s (resumable=%v)", id, task.Status, task.Resumable)
	}
	task.ResetCancelToken()
	// Leave Paused before queueing so a second resume while the task waits
	// for a slot is refused instead of queueing a duplicate.
	m.transitionLocked(task, func() { task.Status = domain.StatusPending }, "resume requested")
	m.ready = append(m.ready, task)
	m.mu.Unlock()
	m.kick()
	return nil
}

// Cancel cancels a pending, downloading or paused task
func (m *DownloadManager) Cancel(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if !task.CanCancel() {
		m.mu.Unlock()
		return fmt.Errorf("task %s cannot be cancelled from status %s", id, task.Status)
	}

	task.CancelToken().Signal()

	if run, active := m.runs[id]; active {
		// The transfer goroutine observes the signal and finishes the
		// transition itself.
		run.cancelRun()
		m.mu.Unlock()
		return nil
	}

	// Pending or paused: complete the transition here.
	m.removeReadyLocked(id)
	m.transitionLocked(task, task.MarkCancelled, "cancel requested")
	m.mu.Unlock()

	m.cleanupTemp(task)
	return nil
}

// Retry re-queues a failed or cancelled task, counting the attempt
func (m *DownloadManager) Retry(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if !task.CanRetry() {
		m.mu.Unlock()
		return fmt.Errorf("task %s cannot be retried (status %s, %d/%d attempts)",
			id, task.Status, task.RetryCount, task.MaxRetries)
	}

	task.ResetCancelToken()
	m.transitionLocked(task, task.MarkRetrying, "retry requested")
	m.ready = append(m.ready, task)
	m.mu.Unlock()

	m.kick()
	return nil
}

// Requeue explicitly re-queues a verification-failed task. Checksum
// mismatches are never retried automatically; the caller opts in here.
func (m *DownloadManager) Requeue(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("task not found: %s", id)
	}
	if task.Status != domain.StatusVerificationFailed {
		m.mu.Unlock()
		return fmt.Errorf("task %s is not verification-failed: %s", id, task.Status)
	}

	task.ResetCancelToken()
	m.transitionLocked(task, func() {
		task.Status = domain.StatusPending
		task.ErrorMessage = ""
		task.BytesTransferred = 0
		task.Progress = 0
		task.StartedAt = nil
	}, "requeued after verification failure")
	m.ready = append(m.ready, task)
	m.mu.Unlock()

	m.kick()
	return nil
}

// kick wakes the scheduler without blocking
func (m *DownloadManager) kick() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// schedule dispatches ready tasks into free concurrency slots
func (m *DownloadManager) schedule(ctx context.Context) {
	defer m.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-m.wake:
		}

		for {
			m.mu.Lock()
			if m.active >= m.config.ConcurrentLimit || len(m.ready) == 0 {
				m.mu.Unlock()
				break
			}
			task := m.popReadyLocked()
			m.active++
			m.mu.Unlock()

			m.workerWg.Add(1)
			go m.runTask(ctx, task)
		}
	}
}

// popReadyLocked removes and returns the dispatchable task with the highest
// priority; equal priorities dispatch in creation order. Callers hold m.mu.
func (m *DownloadManager) popReadyLocked() *domain.Task {
	best := 0
	for i := 1; i < len(m.ready); i++ {
		cand, cur := m.ready[i], m.ready[best]
		if cand.Priority > cur.Priority ||
			(cand.Priority == cur.Priority && cand.CreatedAt.Before(cur.CreatedAt)) {
			best = i
		}
	}
	task := m.ready[best]
	m.ready = append(m.ready[:best], m.ready[best+1:]...)
	return task
}

func (m *DownloadManager) removeReadyLocked(id string) {
	for i, t := range m.ready {
		if t.ID == id {
			m.ready = append(m.ready[:i], m.ready[i+1:]...)
			return
		}
	}
}

// runTask drives one task through downloading, verification and retries
func (m *DownloadManager) runTask(ctx context.Context, task *domain.Task) {
	defer m.workerWg.Done()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
		m.kick()
	}()

	for {
		done := m.attempt(ctx, task)
		if done {
			return
		}

		// Transient failure with retries left: back off and count the attempt.
		delay := m.backoff(task.RetryCount)
		m.logger.Info("Retrying task",
			zap.String("id", task.ID),
			zap.Int("attempt", task.RetryCount+1),
			zap.Int("max_retries", task.MaxRetries),
			zap.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-task.CancelToken().Done():
			m.mu.Lock()
			m.transitionLocked(task, task.MarkCancelled, "cancelled while waiting to retry")
			m.mu.Unlock()
			m.cleanupTemp(task)
			return
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}

		m.mu.Lock()
		// An explicit Retry during the backoff window already requeued the
		// task; let the scheduler dispatch that one instead.
		if task.Status != domain.StatusFailed {
			m.mu.Unlock()
			return
		}
		m.transitionLocked(task, task.MarkRetrying, "automatic retry")
		m.mu.Unlock()
	}
}

// attempt performs one transfer attempt. It returns true when the task
// reached a state that ends scheduling, false when a retry should follow.
func (m *DownloadManager) attempt(ctx context.Context, task *domain.Task) bool {
	token := task.CancelToken()
	runCtx, cancelRun := context.WithCancel(token.Context())
	defer cancelRun()

	run := &runHandle{cancelRun: cancelRun}
	m.mu.Lock()
	// A cancel may have landed between dispatch and this point.
	if task.Status == domain.StatusCancelled || token.Signaled() {
		if task.Status != domain.StatusCancelled {
			m.transitionLocked(task, task.MarkCancelled, "cancel requested")
		}
		m.mu.Unlock()
		m.cleanupTemp(task)
		return true
	}
	// Only pending tasks are dispatchable. Anything else moved on since it
	// was queued and must not transition here.
	if task.Status != domain.StatusPending {
		m.mu.Unlock()
		return true
	}
	m.runs[task.ID] = run
	m.transitionLocked(task, task.MarkDownloading, "")
	m.mu.Unlock()

	// Shutdown must interrupt the transfer as well.
	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-m.stopChan:
			cancelRun()
		case <-ctx.Done():
			cancelRun()
		case <-stopWatch:
		}
	}()
	defer close(stopWatch)

	err := m.transferer.Transfer(runCtx, task, domain.TransferOptions{
		Resume:     task.Resumable,
		OnProgress: m.progressFunc(task),
	})

	m.mu.Lock()
	delete(m.runs, task.ID)
	paused := run.pauseRequested
	m.mu.Unlock()

	if err == nil {
		return m.finalize(task)
	}

	switch {
	case token.Signaled():
		m.mu.Lock()
		m.transitionLocked(task, task.MarkCancelled, "cancel requested")
		m.mu.Unlock()
		m.cleanupTemp(task)
		return true

	case paused:
		m.mu.Lock()
		m.transitionLocked(task, task.MarkPaused, "pause requested")
		m.mu.Unlock()
		if !task.Resumable {
			m.cleanupTemp(task)
		}
		return true

	case m.isStopping() || ctx.Err() != nil:
		m.mu.Lock()
		if task.Resumable {
			m.transitionLocked(task, task.MarkPaused, "shutdown")
		} else {
			m.transitionLocked(task, func() { task.MarkFailed(fmt.Errorf("interrupted by shutdown")) }, "shutdown")
		}
		m.mu.Unlock()
		return true

	default:
		m.logger.Warn("Transfer attempt failed",
			zap.String("id", task.ID),
			zap.Int("attempt", task.RetryCount),
			zap.Error(err))
		m.mu.Lock()
		m.transitionLocked(task, func() { task.MarkFailed(err) }, "transfer error")
		canRetry := task.RetryCount < task.MaxRetries
		m.mu.Unlock()
		return !canRetry
	}
}

// finalize verifies the downloaded payload and publishes it to the target
// path. A checksum mismatch is an integrity failure, never auto-retried.
func (m *DownloadManager) finalize(task *domain.Task) bool {
	if task.Checksum != "" {
		m.mu.Lock()
		m.transitionLocked(task, task.MarkVerifying, "")
		m.mu.Unlock()

		match, err := infrastructure.VerifyFileChecksum(task.TempPath, task.ChecksumAlgorithm, task.Checksum)
		if err != nil {
			m.mu.Lock()
			m.transitionLocked(task, func() { task.MarkFailed(err) }, "verification error")
			canRetry := task.RetryCount < task.MaxRetries
			m.mu.Unlock()
			return !canRetry
		}
		if !match {
			m.logger.Error("Checksum mismatch",
				zap.String("id", task.ID),
				zap.String("plugin", task.PluginID),
				zap.String("algorithm", task.ChecksumAlgorithm))
			m.mu.Lock()
			m.transitionLocked(task, func() {
				task.MarkVerificationFailed("checksum mismatch")
			}, "integrity check failed")
			m.mu.Unlock()
			os.Remove(task.TempPath)
			return true
		}
	}

	if err := m.publish(task); err != nil {
		m.mu.Lock()
		m.transitionLocked(task, func() { task.MarkFailed(err) }, "publish error")
		canRetry := task.RetryCount < task.MaxRetries
		m.mu.Unlock()
		return !canRetry
	}

	m.mu.Lock()
	m.transitionLocked(task, func() { task.MarkCompleted(task.TargetPath) }, "")
	m.mu.Unlock()

	m.logger.Info("Task completed",
		zap.String("id", task.ID),
		zap.String("plugin", task.PluginID),
		zap.String("file", task.TargetPath))
	return true
}

// publish moves the verified temp file to its final location
func (m *DownloadManager) publish(task *domain.Task) error {
	if task.TargetPath == "" {
		return fmt.Errorf("task %s has no target path", task.ID)
	}
	if err := os.MkdirAll(filepath.Dir(task.TargetPath), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.Rename(task.TempPath, task.TargetPath); err != nil {
		return fmt.Errorf("failed to move completed file: %w", err)
	}
	return nil
}

// cleanupTemp discards partial content unless it can serve a future resume
func (m *DownloadManager) cleanupTemp(task *domain.Task) {
	if task.Resumable {
		return
	}
	if task.TempPath != "" {
		os.Remove(task.TempPath)
	}
}

// progressFunc builds the rate-limited progress callback for one attempt.
// Updates are persisted and emitted at most once per configured interval or
// whole percentage point; coalescing never crosses a status transition
// because the callback only fires while the task is downloading.
func (m *DownloadManager) progressFunc(task *domain.Task) domain.TransferProgress {
	interval := m.config.ProgressInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	var lastEmit time.Time
	lastPct := -1

	return func(transferred, total int64) {
		now := time.Now()

		m.mu.Lock()
		if task.Status != domain.StatusDownloading {
			m.mu.Unlock()
			return
		}
		task.UpdateProgress(transferred, total, now)
		pct := task.Progress
		if pct == lastPct && now.Sub(lastEmit) < interval {
			m.mu.Unlock()
			return
		}
		lastEmit, lastPct = now, pct
		event := domain.TaskProgressEvent{
			TaskID:           task.ID,
			BytesTransferred: task.BytesTransferred,
			TotalBytes:       task.TotalBytes,
			Progress:         task.Progress,
			Speed:            task.Speed,
			ETASeconds:       task.ETASeconds,
			Timestamp:        now,
		}
		subs := make([]domain.TaskProgressSubscriber, len(m.progressSubs))
		copy(subs, m.progressSubs)
		m.mu.Unlock()

		if err := m.repo.Update(task); err != nil {
			m.logger.Error("Failed to persist task progress", zap.String("id", task.ID), zap.Error(err))
		}
		for _, sub := range subs {
			sub(event)
		}
	}
}

// transitionLocked applies a status mutation, persists it and notifies
// subscribers. Callers hold m.mu; subscribers are invoked under it so
// per-task event order matches transition order.
func (m *DownloadManager) transitionLocked(task *domain.Task, mutate func(), reason string) {
	old := task.Status
	mutate()
	if task.Status == old {
		return
	}

	if err := m.repo.Update(task); err != nil {
		m.logger.Error("Failed to persist task status",
			zap.String("id", task.ID),
			zap.String("status", string(task.Status)),
			zap.Error(err))
	}

	event := domain.TaskStatusEvent{
		TaskID:    task.ID,
		OldStatus: old,
		NewStatus: task.Status,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	for _, sub := range m.statusSubs {
		sub(event)
	}
}

func (m *DownloadManager) isStopping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopping
}

// backoff returns the delay before the given retry attempt: exponential
// growth from the base delay, capped at the configured maximum.
func (m *DownloadManager) backoff(attempt int) time.Duration {
	base := m.config.RetryBaseDelay
	if base <= 0 {
		base = 2 * time.Second
	}
	max := m.config.RetryMaxDelay
	if max <= 0 {
		max = 2 * time.Minute
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
