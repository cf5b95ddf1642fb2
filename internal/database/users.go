package database

import (
	"context"
	"fmt"
	"time"

	"shamshouse/internal/models"
)

const userColumns = `id, telegram_id, username, first_name, last_name,
	phone, email, is_manager, is_blacklisted, language_code,
	last_activity, created_at, updated_at`

func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (
				telegram_id, username, first_name, last_name, phone, email,
				is_manager, is_blacklisted, language_code,
				last_activity, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                username = excluded.username,
                first_name = excluded.first_name,
                last_name = excluded.last_name,
                language_code = excluded.language_code,
                last_activity = excluded.last_activity,
                updated_at = excluded.updated_at`
	lastActivity := user.LastActivity
	if lastActivity.IsZero() {
		lastActivity = time.Now()
	}
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Email,
		user.IsManager,
		user.IsBlacklisted,
		user.LanguageCode,
		lastActivity,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	err := s.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.Phone, &u.Email,
		&u.IsManager, &u.IsBlacklisted, &u.LanguageCode, &u.LastActivity, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserContacts remembers the phone and email a guest last booked with,
// so the wizard can offer them next time. Empty values are left untouched.
func (db *DB) UpdateUserContacts(ctx context.Context, telegramID int64, phone, email string) error {
	query := `UPDATE users SET
                phone = COALESCE(NULLIF(?, ''), phone),
                email = COALESCE(NULLIF(?, ''), email),
                updated_at = ?
              WHERE telegram_id = ?`
	_, err := db.ExecContext(ctx, query, phone, email, time.Now(), telegramID)
	return err
}

func (db *DB) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	query := `UPDATE users SET last_activity = ?, updated_at = ? WHERE telegram_id = ?`
	now := time.Now()
	_, err := db.ExecContext(ctx, query, now, now, telegramID)
	return err
}

func (db *DB) SetUserManager(ctx context.Context, telegramID int64, isManager bool) error {
	query := `UPDATE users SET is_manager = ?, updated_at = ? WHERE telegram_id = ?`
	_, err := db.ExecContext(ctx, query, isManager, time.Now(), telegramID)
	return err
}

func (db *DB) SetUserBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error {
	query := `UPDATE users SET is_blacklisted = ?, updated_at = ? WHERE telegram_id = ?`
	_, err := db.ExecContext(ctx, query, blacklisted, time.Now(), telegramID)
	return err
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return db.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY last_activity DESC`)
}

func (db *DB) GetUsersByManagerStatus(ctx context.Context, isManager bool) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_manager = ? ORDER BY last_activity DESC`
	return db.queryUsers(ctx, query, isManager)
}

func (db *DB) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	since := time.Now().AddDate(0, 0, -days)
	query := `SELECT ` + userColumns + ` FROM users WHERE last_activity >= ? ORDER BY last_activity DESC`
	return db.queryUsers(ctx, query, since)
}

func (db *DB) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*models.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
