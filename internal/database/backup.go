package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shamshouse/internal/config"

	"github.com/rs/zerolog"
)

const (
	snapshotPrefix = "journal-"
	snapshotSuffix = ".db"
	snapshotLayout = "20060102T150405"
)

// BackupService snapshots the journal database on a schedule and prunes
// snapshots older than the retention window.
type BackupService struct {
	db     *DB
	cfg    config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	l := logger.With().Str("component", "backup").Logger()
	return &BackupService{db: db, cfg: cfg, logger: &l, now: time.Now}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("journal backups disabled")
		return
	}

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Str("dir", s.cfg.StoragePath).Msg("journal backups started")

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	path, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("journal snapshot failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("journal snapshot written")

	removed, err := s.Prune()
	if err != nil {
		s.logger.Warn().Err(err).Msg("prune journal snapshots")
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("old journal snapshots pruned")
	}
}

// Snapshot writes a consistent copy of the open database with VACUUM INTO
// and returns its path.
func (s *BackupService) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := snapshotPrefix + s.now().UTC().Format(snapshotLayout) + snapshotSuffix
	path := filepath.Join(s.cfg.StoragePath, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("snapshot %s already exists", name)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}

// Prune removes snapshots whose timestamp is older than RetentionDays. The
// newest snapshot is always kept.
func (s *BackupService) Prune() (int, error) {
	if s.cfg.RetentionDays <= 0 {
		return 0, nil
	}

	snaps, err := s.Snapshots()
	if err != nil {
		return 0, err
	}
	if len(snaps) <= 1 {
		return 0, nil
	}

	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, snap := range snaps[:len(snaps)-1] {
		if !snap.TakenAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(snap.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", snap.Path, err)
		}
		removed++
	}
	return removed, nil
}

type Snapshot struct {
	Path    string
	TakenAt time.Time
}

// Snapshots lists journal snapshots oldest first. Files that do not carry a
// snapshot name are ignored.
func (s *BackupService) Snapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.cfg.StoragePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var out []Snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		taken, err := time.ParseInLocation(snapshotLayout, stamp, time.UTC)
		if err != nil {
			continue
		}
		out = append(out, Snapshot{Path: filepath.Join(s.cfg.StoragePath, name), TakenAt: taken})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}
