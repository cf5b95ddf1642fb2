package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shamshouse/internal/auth"
	"shamshouse/internal/domain"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/models"

	"github.com/rs/zerolog"
)

var ErrResetTokenRequired = errors.New("reset token is required")

// AccountService manages the back-office account the bot acts as.
// Wrong current passwords count against the manager who typed them.
type AccountService struct {
	api    domain.AccountAPI
	guard  *auth.LoginGuard
	logger *zerolog.Logger
}

func NewAccountService(api domain.AccountAPI, guard *auth.LoginGuard, logger *zerolog.Logger) *AccountService {
	if guard == nil {
		guard = auth.NewLoginGuard(auth.DefaultMaxAttempts, auth.DefaultLockDuration)
	}
	return &AccountService{api: api, guard: guard, logger: logger}
}

func (s *AccountService) Whoami(ctx context.Context) (*models.AdminUser, error) {
	u, err := s.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return u, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, managerID int64, current, next string) error {
	key := strconv.FormatInt(managerID, 10)
	if err := s.guard.Allow(key); err != nil {
		return err
	}
	if err := auth.ValidatePassword(next); err != nil {
		return err
	}

	err := s.api.ChangePassword(ctx, current, next)
	if rejected(err) {
		left := s.guard.Failure(key)
		s.logger.Warn().Int64("manager_id", managerID).Int("attempts_left", left).Msg("password change rejected")
		return err
	}
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.guard.Success(key)
	s.logger.Info().Int64("manager_id", managerID).Msg("back-office password changed")
	return nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}
	return s.api.ForgotPassword(ctx, email)
}

func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetTokenRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	return s.api.ResetPassword(ctx, token, password)
}

// rejected reports a 4xx answer, which the server gives for a wrong password.
func rejected(err error) bool {
	var apiErr *hostelapi.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
}
