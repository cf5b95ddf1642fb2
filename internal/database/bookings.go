package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shamshouse/internal/models"
)

const recordColumns = `id, telegram_user_id, reference, access_code, guest_name, guest_email,
	guest_phone, room_number, bed_count, pack_name, check_in, check_out,
	total_price, status, created_at, updated_at`

// SaveBookingRecord inserts a journal entry, or refreshes it when the
// reference is already known.
func (db *DB) SaveBookingRecord(ctx context.Context, rec *models.BookingRecord) error {
	query := `INSERT INTO booking_records (
				telegram_user_id, reference, access_code, guest_name, guest_email,
				guest_phone, room_number, bed_count, pack_name, check_in, check_out,
				total_price, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(reference) DO UPDATE SET
				access_code = excluded.access_code,
				guest_name = excluded.guest_name,
				guest_email = excluded.guest_email,
				guest_phone = excluded.guest_phone,
				room_number = excluded.room_number,
				bed_count = excluded.bed_count,
				pack_name = excluded.pack_name,
				check_in = excluded.check_in,
				check_out = excluded.check_out,
				total_price = excluded.total_price,
				status = excluded.status,
				updated_at = excluded.updated_at`
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	_, err := db.ExecContext(ctx, query,
		rec.TelegramUserID,
		rec.Reference,
		rec.AccessCode,
		rec.GuestName,
		rec.GuestEmail,
		rec.GuestPhone,
		rec.RoomNumber,
		rec.BedCount,
		rec.PackName,
		rec.CheckIn.String(),
		rec.CheckOut.String(),
		rec.TotalPrice,
		rec.Status,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking record %s: %w", rec.Reference, err)
	}

	err = db.QueryRowContext(ctx, `SELECT id FROM booking_records WHERE reference = ?`, rec.Reference).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to read booking record id: %w", err)
	}
	return nil
}

func (db *DB) GetBookingRecord(ctx context.Context, reference string) (*models.BookingRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM booking_records WHERE reference = ?`, reference)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

// GetUserBookingRecords lists a user's bookings, newest first.
func (db *DB) GetUserBookingRecords(ctx context.Context, telegramUserID int64) ([]*models.BookingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM booking_records
              WHERE telegram_user_id = ? ORDER BY check_in DESC, id DESC`
	return db.queryRecords(ctx, query, telegramUserID)
}

// GetRecordsByCheckIn lists active bookings arriving on the given day.
func (db *DB) GetRecordsByCheckIn(ctx context.Context, day models.Date) ([]*models.BookingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM booking_records
              WHERE check_in = ? AND status NOT IN (?, ?) ORDER BY id`
	return db.queryRecords(ctx, query, day.String(), models.StatusCancelled, models.StatusCheckedOut)
}

// GetRecordsBetween lists bookings whose check-in falls in [from, to].
func (db *DB) GetRecordsBetween(ctx context.Context, from, to models.Date) ([]*models.BookingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM booking_records
              WHERE check_in >= ? AND check_in <= ? ORDER BY check_in, id`
	return db.queryRecords(ctx, query, from.String(), to.String())
}

func (db *DB) GetAllBookingRecords(ctx context.Context) ([]*models.BookingRecord, error) {
	return db.queryRecords(ctx, `SELECT `+recordColumns+` FROM booking_records ORDER BY check_in, id`)
}

func (db *DB) UpdateRecordStatus(ctx context.Context, reference string, status models.BookingStatus) error {
	query := `UPDATE booking_records SET status = ?, updated_at = ? WHERE reference = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), reference)
	if err != nil {
		return fmt.Errorf("failed to update booking record status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.BookingRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking records: %w", err)
	}
	defer rows.Close()

	var out []*models.BookingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.BookingRecord, error) {
	var (
		rec                          models.BookingRecord
		checkIn, checkOut            string
		accessCode, email, phone     sql.NullString
		roomNumber, packName, status sql.NullString
	)
	err := s.Scan(
		&rec.ID, &rec.TelegramUserID, &rec.Reference, &accessCode, &rec.GuestName, &email,
		&phone, &roomNumber, &rec.BedCount, &packName, &checkIn, &checkOut,
		&rec.TotalPrice, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.AccessCode = accessCode.String
	rec.GuestEmail = email.String
	rec.GuestPhone = phone.String
	rec.RoomNumber = roomNumber.String
	rec.PackName = packName.String
	rec.Status = models.BookingStatus(status.String)

	if rec.CheckIn, err = models.ParseDate(checkIn); err != nil {
		return nil, err
	}
	if rec.CheckOut, err = models.ParseDate(checkOut); err != nil {
		return nil, err
	}
	return &rec, nil
}
