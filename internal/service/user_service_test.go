package service

import (
	"context"
	"testing"

	"shamshouse/internal/config"
	"shamshouse/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_IsManager(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{
		Managers: []int64{123, 456},
	}

	s := NewUserService(new(mockUsers), new(mockJournal), cfg, &logger)

	assert.True(t, s.IsManager(123))
	assert.True(t, s.IsManager(456))
	assert.False(t, s.IsManager(789))
	assert.False(t, s.IsManager(111))
}

func TestUserService_IsBlacklisted(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{
		Managers:  []int64{123},
		Blacklist: []int64{789, 999},
	}

	s := NewUserService(new(mockUsers), new(mockJournal), cfg, &logger)

	assert.True(t, s.IsBlacklisted(789))
	assert.True(t, s.IsBlacklisted(999))
	assert.False(t, s.IsBlacklisted(123))
	assert.False(t, s.IsBlacklisted(111))
}

func TestUserService_SaveUser(t *testing.T) {
	repo := new(mockUsers)
	logger := zerolog.Nop()
	cfg := &config.Config{Managers: []int64{123}}
	s := NewUserService(repo, new(mockJournal), cfg, &logger)

	user := &models.User{TelegramID: 123, FirstName: "Test"}
	repo.On("CreateOrUpdateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.IsManager && !u.IsBlacklisted
	})).Return(nil)

	err := s.SaveUser(context.Background(), user)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUserService_Delegates(t *testing.T) {
	repo := new(mockUsers)
	journal := new(mockJournal)
	logger := zerolog.Nop()
	s := NewUserService(repo, journal, &config.Config{}, &logger)
	ctx := context.Background()

	managers := []*models.User{{TelegramID: 1, IsManager: true}}
	repo.On("GetUsersByManagerStatus", ctx, true).Return(managers, nil).Once()
	repo.On("GetActiveUsers", ctx, 30).Return([]*models.User{{TelegramID: 2}}, nil).Once()
	repo.On("GetAllUsers", ctx).Return([]*models.User{{TelegramID: 1}, {TelegramID: 2}}, nil).Once()
	repo.On("UpdateUserActivity", ctx, int64(2)).Return(nil).Once()
	repo.On("GetUserByTelegramID", ctx, int64(2)).Return(&models.User{TelegramID: 2}, nil).Once()
	journal.On("GetUserBookingRecords", ctx, int64(2)).Return([]*models.BookingRecord{{Reference: "SH-1"}}, nil).Once()

	got, err := s.GetManagers(ctx)
	require.NoError(t, err)
	assert.Equal(t, managers, got)

	active, err := s.GetActiveUsers(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := s.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.UpdateUserActivity(ctx, 2))

	u, err := s.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.TelegramID)

	recs, err := s.GetUserBookings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "SH-1", recs[0].Reference)

	repo.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestUserService_SyncRoles(t *testing.T) {
	repo := new(mockUsers)
	logger := zerolog.Nop()
	cfg := &config.Config{Managers: []int64{1}, Blacklist: []int64{3}}
	s := NewUserService(repo, new(mockJournal), cfg, &logger)

	repo.On("GetAllUsers", mock.Anything).Return([]*models.User{
		{TelegramID: 1},
		{TelegramID: 2, IsManager: true, IsBlacklisted: true},
		{TelegramID: 3},
		{TelegramID: 4},
	}, nil)
	repo.On("SetUserManager", mock.Anything, int64(1), true).Return(nil)
	repo.On("SetUserManager", mock.Anything, int64(2), false).Return(nil)
	repo.On("SetUserBlacklisted", mock.Anything, int64(2), false).Return(nil)
	repo.On("SetUserBlacklisted", mock.Anything, int64(3), true).Return(nil)

	changed, err := s.SyncRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "SetUserManager", mock.Anything, int64(4), mock.Anything)
}
