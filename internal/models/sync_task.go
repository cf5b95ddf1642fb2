package models

import "time"

// SyncTask represents a queued synchronization job for the bookings sheet.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	Reference   string     `json:"reference"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncQueueReport summarizes the sheet sync queue for managers.
type SyncQueueReport struct {
	Counts      map[string]int
	LastFailure *SyncTask
}

// Backlog is the number of tasks still waiting to reach the sheet.
func (r SyncQueueReport) Backlog() int {
	return r.Counts[SyncStatusPending] + r.Counts[SyncStatusRetry]
}
