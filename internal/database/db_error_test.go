package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shamshouse/internal/config"
	"shamshouse/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosedJournalReturnsErrors(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ctx := context.Background()
	day := models.NewDate(2026, time.January, 5)

	ops := map[string]func() error{
		"save record": func() error { return db.SaveBookingRecord(ctx, testRecord("SH-1", 1, day, 1)) },
		"records between": func() error {
			_, err := db.GetRecordsBetween(ctx, day, day.AddDays(7))
			return err
		},
		"records by check-in": func() error {
			_, err := db.GetRecordsByCheckIn(ctx, day)
			return err
		},
		"user activity": func() error { return db.UpdateUserActivity(ctx, 123) },
		"user contacts": func() error { return db.UpdateUserContacts(ctx, 123, "+1", "a@b.c") },
		"all users": func() error {
			_, err := db.GetAllUsers(ctx)
			return err
		},
		"create sync task": func() error { return db.CreateSyncTask(ctx, &models.SyncTask{}) },
		"count sync tasks": func() error {
			_, err := db.CountSyncTasks(ctx)
			return err
		},
		"snapshot": func() error {
			svc := NewBackupService(db, config.BackupConfig{StoragePath: t.TempDir()}, &logger)
			_, err := svc.Snapshot(ctx)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpdateRecordStatusUnknownReference(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.UpdateRecordStatus(context.Background(), "SH-NOPE", models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotIntoUnusableDir(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	logger := zerolog.Nop()
	svc := NewBackupService(db, config.BackupConfig{StoragePath: filepath.Join(blocker, "sub")}, &logger)
	_, err := svc.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestNewDBOnDirectory(t *testing.T) {
	logger := zerolog.New(io.Discard)
	_, err := NewDB(t.TempDir(), &logger)
	assert.Error(t, err)
}
