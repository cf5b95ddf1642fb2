package database

import (
	"context"
	"testing"
	"time"

	"shamshouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guest(telegramID int64, name string, seen time.Time) *models.User {
	return &models.User{TelegramID: telegramID, FirstName: name, Username: "guest", LastActivity: seen}
}

func TestUpsertKeepsRememberedContacts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(100, "Ana", time.Now())))
	require.NoError(t, db.UpdateUserContacts(ctx, 100, "+34600111222", "ana@example.com"))

	// A later /start carries only the Telegram profile.
	again := guest(100, "Ana María", time.Now())
	again.LanguageCode = "es"
	require.NoError(t, db.CreateOrUpdateUser(ctx, again))

	u, err := db.GetUserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", u.FirstName)
	assert.Equal(t, "es", u.LanguageCode)
	assert.Equal(t, "+34600111222", u.Phone)
	assert.Equal(t, "ana@example.com", u.Email)
}

func TestUpdateUserContactsIgnoresEmptyValues(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(101, "Luis", time.Now())))

	steps := []struct {
		phone, email         string
		wantPhone, wantEmail string
	}{
		{"+351911000111", "", "+351911000111", ""},
		{"", "luis@example.com", "+351911000111", "luis@example.com"},
		{"+351911000222", "", "+351911000222", "luis@example.com"},
	}
	for _, s := range steps {
		require.NoError(t, db.UpdateUserContacts(ctx, 101, s.phone, s.email))
		u, err := db.GetUserByTelegramID(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, s.wantPhone, u.Phone)
		assert.Equal(t, s.wantEmail, u.Email)
	}
}

func TestUpsertDoesNotResetFlags(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(200, "Reception", time.Now())))
	require.NoError(t, db.SetUserManager(ctx, 200, true))
	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(300, "Spam", time.Now())))
	require.NoError(t, db.SetUserBlacklisted(ctx, 300, true))

	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(200, "Reception", time.Now())))
	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(300, "Spam", time.Now())))

	managers, err := db.GetUsersByManagerStatus(ctx, true)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, int64(200), managers[0].TelegramID)

	u, err := db.GetUserByTelegramID(ctx, 300)
	require.NoError(t, err)
	assert.True(t, u.IsBlacklisted)

	require.NoError(t, db.SetUserBlacklisted(ctx, 300, false))
	u, err = db.GetUserByTelegramID(ctx, 300)
	require.NoError(t, err)
	assert.False(t, u.IsBlacklisted)
}

func TestUserLookups(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(400, "Mia", time.Now())))

	byTG, err := db.GetUserByTelegramID(ctx, 400)
	require.NoError(t, err)
	assert.Equal(t, "Mia", byTG.FirstName)
	assert.NotZero(t, byTG.ID)

	_, err = db.GetUserByTelegramID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveUsersAndOrdering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(501, "Older", now.Add(-48*time.Hour))))
	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(502, "Newest", now)))
	require.NoError(t, db.CreateOrUpdateUser(ctx, guest(503, "Gone", now.AddDate(0, 0, -60))))

	active, err := db.GetActiveUsers(ctx, 30)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(502), active[0].TelegramID)
	assert.Equal(t, int64(501), active[1].TelegramID)

	require.NoError(t, db.UpdateUserActivity(ctx, 503))
	all, err := db.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(503), all[0].TelegramID)
}
