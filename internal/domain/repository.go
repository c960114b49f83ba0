package domain

// TaskRepository defines the interface for task persistence
type TaskRepository interface {
	// Create creates a new task
	Create(task *Task) error

	// Update updates an existing task
	Update(task *Task) error

	// Delete deletes a task by ID
	Delete(id string) error

	// FindByID finds a task by ID
	FindByID(id string) (*Task, error)

	// FindByStatus finds tasks by status
	FindByStatus(status TaskStatus) ([]*Task, error)

	// FindPending finds pending tasks ordered by priority and creation time
	FindPending() ([]*Task, error)

	// FindAll finds all tasks with optional filters
	FindAll(filters map[string]interface{}) ([]*Task, error)

	// Count returns the total number of tasks
	Count() (int64, error)

	// CountByStatus returns the number of tasks by status
	CountByStatus(status TaskStatus) (int64, error)

	// GetStats returns task statistics
	GetStats() (*TaskStats, error)
}

// TaskStats represents task statistics
type TaskStats struct {
	Total              int64 `json:"total"`
	Pending            int64 `json:"pending"`
	Downloading        int64 `json:"downloading"`
	Paused             int64 `json:"paused"`
	Verifying          int64 `json:"verifying"`
	Completed          int64 `json:"completed"`
	Failed             int64 `json:"failed"`
	Cancelled          int64 `json:"cancelled"`
	VerificationFailed int64 `json:"verification_failed"`
}
