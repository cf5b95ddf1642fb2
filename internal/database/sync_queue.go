package database

import (
	"context"
	"fmt"
	"time"

	"shamshouse/internal/models"
)

const syncColumns = `id, task_type, reference, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

// CreateSyncTask appends a task to the sheet queue and fills in its ID.
func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.SyncStatusPending
	}
	task.CreatedAt = time.Now()

	result, err := db.ExecContext(ctx,
		`INSERT INTO sync_queue (task_type, reference, payload, status, retry_count, last_error, created_at, next_retry_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.Reference, task.Payload, task.Status,
		task.RetryCount, task.LastError, task.CreatedAt, task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	if task.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get sync task id: %w", err)
	}
	return nil
}

// GetPendingSyncTasks returns due tasks, oldest first.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	return db.querySyncTasks(ctx,
		`SELECT `+syncColumns+` FROM sync_queue
		 WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		 ORDER BY created_at, id LIMIT ?`,
		models.SyncStatusPending, models.SyncStatusRetry, time.Now(), limit)
}

// UpdateSyncTaskStatus moves a task along. A retry bumps retry_count; the
// terminal states stamp processed_at.
func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var lastErr *string
	if errMsg != "" {
		lastErr = &errMsg
	}

	var processedAt *time.Time
	bump := 0
	switch status {
	case models.SyncStatusRetry:
		bump = 1
	case models.SyncStatusCompleted, models.SyncStatusFailed:
		now := time.Now()
		processedAt = &now
	}

	_, err := db.ExecContext(ctx,
		`UPDATE sync_queue
		 SET status = ?, last_error = ?, next_retry_at = ?,
		     retry_count = retry_count + ?,
		     processed_at = COALESCE(?, processed_at)
		 WHERE id = ?`,
		status, lastErr, nextRetryAt, bump, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update sync task %d: %w", id, err)
	}
	return nil
}

// GetFailedSyncTasks returns dead tasks, most recently failed first.
func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	return db.querySyncTasks(ctx,
		`SELECT `+syncColumns+` FROM sync_queue WHERE status = ? ORDER BY processed_at DESC, id DESC`,
		models.SyncStatusFailed)
}

// RequeueFailedSyncTasks gives every failed task a fresh retry budget.
func (db *DB) RequeueFailedSyncTasks(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE sync_queue
		 SET status = ?, retry_count = 0, next_retry_at = NULL, processed_at = NULL
		 WHERE status = ?`,
		models.SyncStatusPending, models.SyncStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue sync tasks: %w", err)
	}
	return result.RowsAffected()
}

// PurgeSyncTasks deletes completed tasks processed before the cutoff.
func (db *DB) PurgeSyncTasks(ctx context.Context, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE status = ? AND processed_at < ?`,
		models.SyncStatusCompleted, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync tasks: %w", err)
	}
	return result.RowsAffected()
}

// CountSyncTasks returns queue sizes keyed by status.
func (db *DB) CountSyncTasks(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync tasks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sync count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (db *DB) querySyncTasks(ctx context.Context, query string, args ...interface{}) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		if err := rows.Scan(
			&t.ID, &t.TaskType, &t.Reference, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
