package domain

import "time"

// TaskStatusEvent records one status transition of a task. Events for a
// single task are delivered in the order the transitions happened.
type TaskStatusEvent struct {
	TaskID    string     `json:"task_id"`
	OldStatus TaskStatus `json:"old_status"`
	NewStatus TaskStatus `json:"new_status"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// TaskProgressEvent reports transfer progress. Emission is rate-limited
// while downloading; it never coalesces across status transitions.
type TaskProgressEvent struct {
	TaskID           string    `json:"task_id"`
	BytesTransferred int64     `json:"bytes_transferred"`
	TotalBytes       int64     `json:"total_bytes"`
	Progress         int       `json:"progress"`
	Speed            float64   `json:"speed"`
	ETASeconds       float64   `json:"eta_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// SyncStatus represents the sync state of one repository
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// SyncStatusEvent reports sync progress for one repository
type SyncStatusEvent struct {
	RepositoryID string     `json:"repository_id"`
	OldStatus    SyncStatus `json:"old_status"`
	NewStatus    SyncStatus `json:"new_status"`
	Progress     int        `json:"progress"` // 0-100
	Message      string     `json:"message,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// TaskStatusSubscriber receives task status transitions
type TaskStatusSubscriber func(TaskStatusEvent)

// TaskProgressSubscriber receives task progress updates
type TaskProgressSubscriber func(TaskProgressEvent)

// SyncStatusSubscriber receives repository sync transitions
type SyncStatusSubscriber func(SyncStatusEvent)
