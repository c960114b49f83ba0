package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current status of a download task
type TaskStatus string

const (
	StatusPending            TaskStatus = "pending"
	StatusDownloading        TaskStatus = "downloading"
	StatusPaused             TaskStatus = "paused"
	StatusVerifying          TaskStatus = "verifying"
	StatusCompleted          TaskStatus = "completed"
	StatusFailed             TaskStatus = "failed"
	StatusCancelled          TaskStatus = "cancelled"
	StatusVerificationFailed TaskStatus = "verification_failed"
)

// TaskPriority controls dispatch order when tasks compete for slots
type TaskPriority int

const (
	PriorityLow TaskPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// ValidPriority checks if a priority is within the defined range
func ValidPriority(p TaskPriority) bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Task represents one queued or in-flight plugin transfer
type Task struct {
	ID                string       `json:"id" gorm:"primaryKey"`
	PluginID          string       `json:"plugin_id" gorm:"not null;index"`
	PluginName        string       `json:"plugin_name"`
	RepositoryID      string       `json:"repository_id" gorm:"index"`
	Version           string       `json:"version"`
	DownloadURL       string       `json:"download_url" gorm:"not null"`
	TargetPath        string       `json:"target_path"`
	TempPath          string       `json:"temp_path"`
	Checksum          string       `json:"checksum,omitempty"`
	ChecksumAlgorithm string       `json:"checksum_algorithm,omitempty"`
	Status            TaskStatus   `json:"status" gorm:"not null;index"`
	Priority          TaskPriority `json:"priority" gorm:"default:1;index"`
	TotalBytes        int64        `json:"total_bytes"`
	BytesTransferred  int64        `json:"bytes_transferred"`
	Progress          int          `json:"progress"`
	Speed             float64      `json:"speed"`       // bytes per second
	ETASeconds        float64      `json:"eta_seconds"` // estimated time remaining
	RetryCount        int          `json:"retry_count" gorm:"default:0"`
	MaxRetries        int          `json:"max_retries" gorm:"default:3"`
	Resumable         bool         `json:"resumable" gorm:"default:true"`
	ErrorMessage      string       `json:"error_message,omitempty"`
	Metadata          string       `json:"metadata,omitempty" gorm:"type:text"` // JSON payload supplied by the caller
	CreatedAt         time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt         *time.Time   `json:"started_at,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`

	cancel *CancelToken `gorm:"-" json:"-"`
}

// NewTask creates a new pending download task
func NewTask(pluginID, pluginName, repositoryID, version, downloadURL string) *Task {
	return &Task{
		ID:                uuid.New().String(),
		PluginID:          pluginID,
		PluginName:        pluginName,
		RepositoryID:      repositoryID,
		Version:           version,
		DownloadURL:       downloadURL,
		Status:            StatusPending,
		Priority:          PriorityNormal,
		ChecksumAlgorithm: "SHA256",
		MaxRetries:        3,
		Resumable:         true,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

// CancelToken returns the task's cancellation token, creating it on first use
func (t *Task) CancelToken() *CancelToken {
	if t.cancel == nil {
		t.cancel = NewCancelToken()
	}
	return t.cancel
}

// ResetCancelToken discards the current token so a retried task gets a fresh one
func (t *Task) ResetCancelToken() {
	t.cancel = NewCancelToken()
}

// SetPayload stores a caller-supplied payload as JSON metadata
func (t *Task) SetPayload(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.Metadata = string(data)
	return nil
}

// PayloadInto decodes the caller-supplied payload into v
func (t *Task) PayloadInto(v any) error {
	if t.Metadata == "" {
		return nil
	}
	return json.Unmarshal([]byte(t.Metadata), v)
}

// CalculateProgress returns the whole-percent progress for a byte count.
// Returns 0 whenever the total is unknown or non-positive.
func CalculateProgress(transferred, total int64) int {
	if total <= 0 {
		return 0
	}
	if transferred >= total {
		return 100
	}
	return int(transferred * 100 / total)
}

// CalculateSpeed returns bytes per second since the start time.
// Returns 0 when the task has not started or nothing was transferred.
func CalculateSpeed(transferred int64, startedAt *time.Time, now time.Time) float64 {
	if startedAt == nil || transferred <= 0 {
		return 0
	}
	elapsed := now.Sub(*startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(transferred) / elapsed
}

// CalculateETA returns the estimated seconds remaining.
// Returns 0 when already complete, total unknown, or speed is zero.
func CalculateETA(transferred, total int64, speed float64) float64 {
	if total <= 0 || transferred >= total || speed <= 0 {
		return 0
	}
	return float64(total-transferred) / speed
}

// UpdateProgress records a byte-count update and recomputes progress, speed
// and ETA together so the displayed fields never drift apart.
func (t *Task) UpdateProgress(transferred, total int64, now time.Time) {
	if total > 0 && transferred > total {
		transferred = total
	}
	t.BytesTransferred = transferred
	if total > 0 {
		t.TotalBytes = total
	}
	t.Progress = CalculateProgress(t.BytesTransferred, t.TotalBytes)
	t.Speed = CalculateSpeed(t.BytesTransferred, t.StartedAt, now)
	t.ETASeconds = CalculateETA(t.BytesTransferred, t.TotalBytes, t.Speed)
	t.UpdatedAt = now
}

// MarkDownloading marks the task as actively transferring
func (t *Task) MarkDownloading() {
	t.Status = StatusDownloading
	now := time.Now()
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.UpdatedAt = now
}

// MarkPaused marks the task as paused
func (t *Task) MarkPaused() {
	t.Status = StatusPaused
	t.UpdatedAt = time.Now()
}

// MarkVerifying marks the task as verifying its downloaded payload
func (t *Task) MarkVerifying() {
	t.Status = StatusVerifying
	t.UpdatedAt = time.Now()
}

// MarkCompleted marks the task as completed with its final file path
func (t *Task) MarkCompleted(finalPath string) {
	t.Status = StatusCompleted
	t.TargetPath = finalPath
	if t.TotalBytes > 0 {
		t.BytesTransferred = t.TotalBytes
	}
	t.Progress = 100
	t.ETASeconds = 0
	now := time.Now()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed marks the task as failed with the transfer error
func (t *Task) MarkFailed(err error) {
	t.Status = StatusFailed
	if err != nil {
		t.ErrorMessage = err.Error()
	}
	t.UpdatedAt = time.Now()
}

// MarkCancelled marks the task as cancelled
func (t *Task) MarkCancelled() {
	t.Status = StatusCancelled
	t.UpdatedAt = time.Now()
}

// MarkVerificationFailed marks the task as failed checksum verification
func (t *Task) MarkVerificationFailed(reason string) {
	t.Status = StatusVerificationFailed
	t.ErrorMessage = reason
	t.UpdatedAt = time.Now()
}

// MarkRetrying resets the task to pending for another attempt and counts it
func (t *Task) MarkRetrying() {
	t.Status = StatusPending
	t.RetryCount++
	t.ErrorMessage = ""
	t.Speed = 0
	t.ETASeconds = 0
	t.StartedAt = nil
	t.UpdatedAt = time.Now()
}

// CanRetry reports whether an explicit retry is allowed
func (t *Task) CanRetry() bool {
	if t.RetryCount >= t.MaxRetries {
		return false
	}
	return t.Status == StatusFailed || t.Status == StatusCancelled
}

// CanPause reports whether a pause request is allowed
func (t *Task) CanPause() bool {
	return t.Status == StatusDownloading
}

// CanResume reports whether a resume request is allowed
func (t *Task) CanResume() bool {
	return t.Status == StatusPaused && t.Resumable
}

// CanCancel reports whether a cancel request is allowed
func (t *Task) CanCancel() bool {
	switch t.Status {
	case StatusPending, StatusDownloading, StatusPaused:
		return true
	}
	return false
}

// IsTerminal checks if the task is in a terminal state
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusCancelled, StatusFailed, StatusVerificationFailed:
		return true
	}
	return false
}

// IsActive checks if the task occupies a concurrency slot
func (t *Task) IsActive() bool {
	return t.Status == StatusDownloading || t.Status == StatusVerifying
}
