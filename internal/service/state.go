package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"
	"shamshouse/internal/wizard"

	"github.com/rs/zerolog"
)

type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *StateService) GetUserState(ctx context.Context, userID int64) (*models.UserState, error) {
	state, err := s.stateRepo.GetState(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user state")
		return nil, err
	}

	return state, nil
}

// mutate loads the session, creating it when missing, applies fn and stores
// it with a fresh UpdatedAt.
func (s *StateService) mutate(ctx context.Context, userID int64, fn func(*models.UserState)) error {
	state, err := s.stateRepo.GetState(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &models.UserState{UserID: userID}
	}
	fn(state)
	state.UpdatedAt = s.now()
	return s.stateRepo.SetState(ctx, state)
}

// SetUserState replaces the conversation step and its data. A running wizard
// is kept.
func (s *StateService) SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error {
	return s.mutate(ctx, userID, func(st *models.UserState) {
		st.CurrentStep = step
		st.TempData = data
	})
}

func (s *StateService) SetStep(ctx context.Context, userID int64, step string) error {
	return s.mutate(ctx, userID, func(st *models.UserState) { st.CurrentStep = step })
}

func (s *StateService) ClearUserState(ctx context.Context, userID int64) error {
	return s.stateRepo.ClearState(ctx, userID)
}

func (s *StateService) UpdateUserStateData(ctx context.Context, userID int64, key string, value interface{}) error {
	return s.mutate(ctx, userID, func(st *models.UserState) {
		if st.TempData == nil {
			st.TempData = make(map[string]interface{})
		}
		st.TempData[key] = value
	})
}

func (s *StateService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, userID, limit, window)
}

// LoadWizard returns the stored wizard, or nil when none is running.
func (s *StateService) LoadWizard(ctx context.Context, userID int64) (*wizard.Wizard, time.Time, error) {
	state, err := s.stateRepo.GetState(ctx, userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if state == nil || len(state.Wizard) == 0 {
		return nil, time.Time{}, nil
	}
	w := new(wizard.Wizard)
	if err := json.Unmarshal(state.Wizard, w); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode wizard: %w", err)
	}
	return w, state.UpdatedAt, nil
}

// SaveWizard stores w and switches the conversation to the wizard step.
func (s *StateService) SaveWizard(ctx context.Context, userID int64, w *wizard.Wizard) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wizard: %w", err)
	}
	return s.mutate(ctx, userID, func(st *models.UserState) {
		st.CurrentStep = models.StepWizard
		st.Wizard = raw
	})
}

// DropWizard forgets the wizard and returns the user to the main menu.
func (s *StateService) DropWizard(ctx context.Context, userID int64) error {
	state, err := s.stateRepo.GetState(ctx, userID)
	if err != nil || state == nil {
		return err
	}
	state.Wizard = nil
	state.CurrentStep = models.StepMainMenu
	state.TempData = nil
	state.UpdatedAt = s.now()
	return s.stateRepo.SetState(ctx, state)
}
