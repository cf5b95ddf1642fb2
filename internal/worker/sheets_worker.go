package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shamshouse/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
	TaskFullSync     = "full_sync"
)

// occupancyWindow is how many nights ahead the occupancy tab shows.
const occupancyWindow = 30

// sheetTaskPayload is persisted in SyncTask.Payload as JSON.
type sheetTaskPayload struct {
	Reference string                `json:"reference,omitempty"`
	Record    *models.BookingRecord `json:"record,omitempty"`
	Status    models.BookingStatus  `json:"status,omitempty"`
}

// SheetsClient is the spreadsheet side of the sync.
type SheetsClient interface {
	UpsertBooking(ctx context.Context, rec *models.BookingRecord) error
	UpdateBookingStatus(ctx context.Context, reference string, status models.BookingStatus) error
	ReplaceBookings(ctx context.Context, records []*models.BookingRecord) error
	UpdateOccupancySheet(ctx context.Context, from, to models.Date, records []*models.BookingRecord) error
}

type usersMirror interface {
	UpdateUsersSheet(ctx context.Context, users []*models.User) error
}

// queueAdmin is the part of the store managers inspect through the bot.
type queueAdmin interface {
	CountSyncTasks(ctx context.Context) (map[string]int, error)
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
	RequeueFailedSyncTasks(ctx context.Context) (int64, error)
	PurgeSyncTasks(ctx context.Context, before time.Time) (int64, error)
}

type userLister interface {
	GetAllUsers(ctx context.Context) ([]*models.User, error)
}

// TaskStore persists sync tasks and reads the journal for full syncs.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetAllBookingRecords(ctx context.Context) ([]*models.BookingRecord, error)
}

// SheetsWorker consumes sync_queue tasks and applies them to Google Sheets.
type SheetsWorker struct {
	db            TaskStore
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	keepCompleted time.Duration
	lastPurge     time.Time
	logger        *zerolog.Logger
	now           func() time.Time
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(db TaskStore, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	retry = retry.withDefaults()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "sheets_worker").Logger()

	return &SheetsWorker{
		db:            db,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "shamshouse:sheets:queue",
		deadLetterKey: "shamshouse:sheets:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		keepCompleted: 7 * 24 * time.Hour,
		logger:        &l,
		now:           time.Now,
	}
}

// EnqueueTask persists a task and schedules it via redis or the in-memory queue.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType, reference string, rec *models.BookingRecord, status models.BookingStatus) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if reference == "" && rec != nil {
		reference = rec.Reference
	}
	if reference == "" && taskType != TaskFullSync {
		return errors.New("booking reference is required")
	}

	return w.enqueue(ctx, taskType, sheetTaskPayload{Reference: reference, Record: rec, Status: status})
}

// EnqueueFullSync asks for the whole journal to be rewritten to the sheet.
func (w *SheetsWorker) EnqueueFullSync(ctx context.Context) error {
	return w.enqueue(ctx, TaskFullSync, sheetTaskPayload{})
}

func (w *SheetsWorker) enqueue(ctx context.Context, taskType string, payload sheetTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType:  taskType,
		Reference: payload.Reference,
		Payload:   string(payloadBytes),
		Status:    models.SyncStatusPending,
	}
	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- syncTask:
	default:
		w.logger.Warn().Int64("task_id", syncTask.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		w.housekeeping(ctx)

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleSheetTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, taskType string, payload sheetTaskPayload) error {
	switch taskType {
	case TaskUpsert:
		if payload.Record == nil {
			return errors.New("booking record missing")
		}
		return w.sheets.UpsertBooking(ctx, payload.Record)
	case TaskUpdateStatus:
		if payload.Reference == "" || payload.Status == "" {
			return errors.New("booking reference or status missing")
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.Reference, payload.Status)
	case TaskFullSync:
		records, err := w.db.GetAllBookingRecords(ctx)
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		if err := w.sheets.ReplaceBookings(ctx, records); err != nil {
			return err
		}
		today := models.DateOf(w.now())
		if err := w.sheets.UpdateOccupancySheet(ctx, today, today.AddDays(occupancyWindow), records); err != nil {
			return err
		}
		return w.mirrorUsers(ctx)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

// mirrorUsers refreshes the users tab when both sides support it.
func (w *SheetsWorker) mirrorUsers(ctx context.Context) error {
	lister, ok := w.db.(userLister)
	if !ok {
		return nil
	}
	mirror, ok := w.sheets.(usersMirror)
	if !ok {
		return nil
	}
	users, err := lister.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	return mirror.UpdateUsersSheet(ctx, users)
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := w.now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("reference", task.Reference).Msg("sync task failed")
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *SheetsWorker) decodePayload(raw string) (sheetTaskPayload, error) {
	var payload sheetTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SheetsWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}

var errNoQueueAdmin = errors.New("sync queue store does not support inspection")

// QueueReport counts tasks by status and returns the latest failure.
func (w *SheetsWorker) QueueReport(ctx context.Context) (models.SyncQueueReport, error) {
	admin, ok := w.db.(queueAdmin)
	if !ok {
		return models.SyncQueueReport{}, errNoQueueAdmin
	}
	counts, err := admin.CountSyncTasks(ctx)
	if err != nil {
		return models.SyncQueueReport{}, err
	}
	report := models.SyncQueueReport{Counts: counts}
	if counts[models.SyncStatusFailed] == 0 {
		return report, nil
	}
	failed, err := admin.GetFailedSyncTasks(ctx)
	if err != nil {
		return report, err
	}
	if len(failed) > 0 {
		report.LastFailure = &failed[0]
	}
	return report, nil
}

// RetryFailed puts failed tasks back in the queue. The worker picks them up
// on its next poll.
func (w *SheetsWorker) RetryFailed(ctx context.Context) (int64, error) {
	admin, ok := w.db.(queueAdmin)
	if !ok {
		return 0, errNoQueueAdmin
	}
	n, err := admin.RequeueFailedSyncTasks(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.Info().Int64("tasks", n).Msg("failed sync tasks requeued")
	}
	return n, nil
}

// housekeeping drops old completed tasks at most once an hour.
func (w *SheetsWorker) housekeeping(ctx context.Context) {
	admin, ok := w.db.(queueAdmin)
	if !ok || w.keepCompleted <= 0 {
		return
	}
	now := w.now()
	if now.Sub(w.lastPurge) < time.Hour {
		return
	}
	w.lastPurge = now

	n, err := admin.PurgeSyncTasks(ctx, now.Add(-w.keepCompleted))
	if err != nil {
		w.logger.Warn().Err(err).Msg("purge completed sync tasks")
		return
	}
	if n > 0 {
		w.logger.Debug().Int64("tasks", n).Msg("completed sync tasks purged")
	}
}
