package service

import (
	"context"
	"fmt"

	"shamshouse/internal/config"
	"shamshouse/internal/domain"
	"shamshouse/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo         domain.UserRepository
	journal      domain.BookingJournal
	config       *config.Config
	logger       *zerolog.Logger
	managersMap  map[int64]bool
	blacklistMap map[int64]bool
}

func NewUserService(repo domain.UserRepository, journal domain.BookingJournal, config *config.Config, logger *zerolog.Logger) *UserService {
	managersMap := make(map[int64]bool)
	for _, id := range config.Managers {
		managersMap[id] = true
	}

	blacklistMap := make(map[int64]bool)
	for _, id := range config.Blacklist {
		blacklistMap[id] = true
	}

	return &UserService{
		repo:         repo,
		journal:      journal,
		config:       config,
		logger:       logger,
		managersMap:  managersMap,
		blacklistMap: blacklistMap,
	}
}

func (s *UserService) IsManager(userID int64) bool {
	return s.managersMap[userID]
}

func (s *UserService) IsBlacklisted(userID int64) bool {
	return s.blacklistMap[userID]
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	user.IsManager = s.IsManager(user.TelegramID)
	user.IsBlacklisted = s.IsBlacklisted(user.TelegramID)
	return s.repo.CreateOrUpdateUser(ctx, user)
}

// SyncRoles brings the stored manager and blacklist flags in line with the
// configuration and returns how many users changed.
func (s *UserService) SyncRoles(ctx context.Context) (int, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	changed := 0
	for _, u := range users {
		touched := false
		if want := s.IsManager(u.TelegramID); u.IsManager != want {
			if err := s.repo.SetUserManager(ctx, u.TelegramID, want); err != nil {
				return changed, fmt.Errorf("set manager %d: %w", u.TelegramID, err)
			}
			touched = true
		}
		if want := s.IsBlacklisted(u.TelegramID); u.IsBlacklisted != want {
			if err := s.repo.SetUserBlacklisted(ctx, u.TelegramID, want); err != nil {
				return changed, fmt.Errorf("set blacklisted %d: %w", u.TelegramID, err)
			}
			touched = true
		}
		if touched {
			changed++
		}
	}
	return changed, nil
}

func (s *UserService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}

func (s *UserService) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	return s.repo.UpdateUserActivity(ctx, telegramID)
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserService) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	return s.repo.GetActiveUsers(ctx, days)
}

func (s *UserService) GetManagers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetUsersByManagerStatus(ctx, true)
}

// GetUserBookings lists the bookings the user made through the bot, newest
// stay first.
func (s *UserService) GetUserBookings(ctx context.Context, telegramID int64) ([]*models.BookingRecord, error) {
	return s.journal.GetUserBookingRecords(ctx, telegramID)
}
