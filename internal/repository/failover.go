package repository

import (
	"context"
	"sync/atomic"
	"time"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository writes to primary until it errors, then serves from
// fallback and probes primary again once a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Degraded reports whether sessions are currently served from the fallback.
func (r *FailoverStateRepository) Degraded() bool {
	return r.isDown.Load()
}

func (r *FailoverStateRepository) markDown(err error, op string) {
	r.logger.Error().Err(err).Str("op", op).Msg("primary session store failed, using memory")
	r.isDown.Store(true)
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether to try primary: always when healthy, and once
// per recovery interval when down.
func (r *FailoverStateRepository) usePrimary() (probe bool, ok bool) {
	if !r.isDown.Load() {
		return false, true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if r.now().Sub(last) > recoveryInterval {
		r.lastCheck.Store(r.now().UnixNano())
		return true, true
	}
	return false, false
}

func (r *FailoverStateRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("primary session store recovered")
	}
}

// call runs op against primary when allowed and falls back on error. A
// failed probe leaves the recovery clock where usePrimary set it.
func call[T any](r *FailoverStateRepository, name string, op func(domain.StateRepository) (T, error)) (T, error) {
	if probe, ok := r.usePrimary(); ok {
		v, err := op(r.primary)
		if err == nil {
			r.recovered()
			return v, nil
		}
		if !probe {
			r.markDown(err, name)
		}
	}
	return op(r.fallback)
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	return call(r, "get", func(repo domain.StateRepository) (*models.UserState, error) {
		return repo.GetState(ctx, userID)
	})
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	_, err := call(r, "set", func(repo domain.StateRepository) (struct{}, error) {
		return struct{}{}, repo.SetState(ctx, state)
	})
	return err
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	_, err := call(r, "clear", func(repo domain.StateRepository) (struct{}, error) {
		return struct{}{}, repo.ClearState(ctx, userID)
	})
	return err
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return call(r, "rate_limit", func(repo domain.StateRepository) (bool, error) {
		return repo.CheckRateLimit(ctx, userID, limit, window)
	})
}
