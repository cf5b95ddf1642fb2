// Package google mirrors the bot's booking journal into a Google spreadsheet
// so the front desk can read it without Telegram.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"shamshouse/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsTab  = "Bookings"
	usersTab     = "Users"
	occupancyTab = "Occupancy"

	// Bookings columns A..M; L holds the status, M the last update.
	bookingsLastCol = "M"
	statusCol       = "L"
	updatedCol      = "M"

	maxOccupancyDays = 100
)

var ErrRowNotFound = errors.New("booking row not found")

var updatedRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSimpleSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, spreadsheetID), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}
}

// StartCacheRefresh warms the row index now and then hourly until ctx ends.
func (s *SheetsService) StartCacheRefresh(ctx context.Context, onError func(error)) {
	refresh := func() {
		c, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(c); err != nil && onError != nil {
			onError(err)
		}
	}
	refresh()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsTab+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail is the address the spreadsheet must be shared with.
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

func (s *SheetsService) UpdateUsersSheet(ctx context.Context, users []*models.User) error {
	values := [][]interface{}{
		{"ID", "Telegram ID", "Username", "First Name", "Last Name", "Phone", "Email", "Is Manager", "Is Blacklisted", "Last Activity", "Created At"},
	}
	for _, user := range users {
		values = append(values, []interface{}{
			user.ID,
			user.TelegramID,
			user.Username,
			user.FirstName,
			user.LastName,
			user.Phone,
			user.Email,
			user.IsManager,
			user.IsBlacklisted,
			user.LastActivity.Format("2006-01-02 15:04:05"),
			user.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	rangeData := fmt.Sprintf("%s!A1:K%d", usersTab, len(values))
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// WarmUpCache rebuilds the reference -> row index from column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsTab+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
	for i, row := range resp.Values {
		if ref := cellString(row); ref != "" && i > 0 {
			s.rowCache[ref] = i + 1
		}
	}
	return nil
}

func (s *SheetsService) AppendBooking(ctx context.Context, rec *models.BookingRecord) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsTab+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(rec)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if m := updatedRowRe.FindStringSubmatch(resp.Updates.UpdatedRange); m != nil {
			if row, err := strconv.Atoi(m[1]); err == nil {
				s.setCachedRow(rec.Reference, row)
			}
		}
	}
	return nil
}

// UpsertBooking rewrites the booking's row, appending one when missing.
func (s *SheetsService) UpsertBooking(ctx context.Context, rec *models.BookingRecord) error {
	if rec == nil {
		return errors.New("booking record is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, rec.Reference)
	if errors.Is(err, ErrRowNotFound) {
		return s.AppendBooking(ctx, rec)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", bookingsTab, rowIdx, bookingsLastCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(rec)},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (s *SheetsService) UpdateBookingStatus(ctx context.Context, reference string, status models.BookingStatus) error {
	rowIdx, err := s.FindBookingRow(ctx, reference)
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!%s%d:%s%d", bookingsTab, statusCol, rowIdx, updatedCol, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{{string(status), time.Now().Format("2006-01-02 15:04:05")}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindBookingRow locates the 1-based row of a reference in column A.
func (s *SheetsService) FindBookingRow(ctx context.Context, reference string) (int, error) {
	if reference == "" {
		return 0, errors.New("booking reference is required")
	}
	if row, ok := s.getCachedRow(reference); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsTab+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellString(row) == reference {
			s.setCachedRow(reference, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceBookings rewrites the whole Bookings tab below the header.
func (s *SheetsService) ReplaceBookings(ctx context.Context, records []*models.BookingRecord) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, bookingsTab+"!A2:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %w", err)
	}

	values := [][]interface{}{bookingHeader()}
	for _, rec := range records {
		values = append(values, bookingRowValues(rec))
	}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, bookingsTab+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update bookings sheet: %w", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[string]int, len(records))
	for i, rec := range records {
		s.rowCache[rec.Reference] = i + 2
	}
	s.cacheMu.Unlock()
	return nil
}

// UpdateOccupancySheet draws a room by night grid of booked beds for [from, to].
func (s *SheetsService) UpdateOccupancySheet(ctx context.Context, from, to models.Date, records []*models.BookingRecord) error {
	if to.Before(from) {
		return fmt.Errorf("invalid date range: %s - %s", from, to)
	}
	sheetID, err := s.GetSheetIdByName(ctx, occupancyTab)
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, occupancyTab+"!A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear occupancy sheet: %w", err)
	}

	days := prepareDateHeaders(from, to)
	data := [][]interface{}{
		{fmt.Sprintf("%s - %s", from.Human(), to.Human())},
		{},
		append([]interface{}{"Room"}, headerLabels(days)...),
	}
	for _, row := range occupancyRows(days, records) {
		data = append(data, row)
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, occupancyTab+"!A1", &sheets.ValueRange{Values: data}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to write occupancy sheet: %w", err)
	}

	return s.formatOccupancy(ctx, sheetID, len(days))
}

func (s *SheetsService) formatOccupancy(ctx context.Context, sheetID int64, dateCols int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 1},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					TextFormat: &sheets.TextFormat{Bold: true, FontSize: 14},
				}},
				Fields: "userEnteredFormat(textFormat)",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 2, EndRowIndex: 3, StartColumnIndex: 1, EndColumnIndex: int64(dateCols + 1)},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					HorizontalAlignment: "CENTER",
					TextFormat:          &sheets.TextFormat{Bold: true},
					BackgroundColor:     &sheets.Color{Red: 0.86, Green: 0.92, Blue: 0.97},
				}},
				Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
			},
		},
		columnWidth(sheetID, 0, 1, 120),
		columnWidth(sheetID, 1, int64(dateCols+1), 60),
	}

	_, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to format occupancy sheet: %w", err)
	}
	return nil
}

func columnWidth(sheetID, start, end int64, px int64) *sheets.Request {
	return &sheets.Request{
		UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
			Range:      &sheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS", StartIndex: start, EndIndex: end},
			Properties: &sheets.DimensionProperties{PixelSize: px},
			Fields:     "pixelSize",
		},
	}
}

func (s *SheetsService) GetSheetIdByName(ctx context.Context, sheetName string) (int64, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", sheetName)
}

func (s *SheetsService) getCachedRow(ref string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[ref]
	return row, ok
}

func (s *SheetsService) setCachedRow(ref string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[ref] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func bookingHeader() []interface{} {
	return []interface{}{"Reference", "Telegram User", "Guest", "Email", "Phone", "Room", "Beds", "Pack", "Check-in", "Check-out", "Total", "Status", "Updated At"}
}

func bookingRowValues(rec *models.BookingRecord) []interface{} {
	return []interface{}{
		rec.Reference,
		rec.TelegramUserID,
		rec.GuestName,
		rec.GuestEmail,
		rec.GuestPhone,
		rec.RoomNumber,
		rec.BedCount,
		rec.PackName,
		rec.CheckIn.String(),
		rec.CheckOut.String(),
		rec.TotalPrice,
		string(rec.Status),
		rec.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func cellString(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	switch v := row[0].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(row[0])
}

func prepareDateHeaders(from, to models.Date) []models.Date {
	var days []models.Date
	for d := from; !d.After(to) && len(days) < maxOccupancyDays; d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func headerLabels(days []models.Date) []interface{} {
	out := make([]interface{}, len(days))
	for i, d := range days {
		out[i] = d.Format("02.01")
	}
	return out
}

// occupancyRows counts booked beds per room and night. A guest occupies the
// nights in [checkIn, checkOut); cancelled and pending bookings are skipped.
func occupancyRows(days []models.Date, records []*models.BookingRecord) [][]interface{} {
	counts := make(map[string][]int)
	for _, rec := range records {
		if rec.Status == models.StatusCancelled || rec.Status == models.StatusPending {
			continue
		}
		room := rec.RoomNumber
		if room == "" {
			room = "-"
		}
		if counts[room] == nil {
			counts[room] = make([]int, len(days))
		}
		for i, d := range days {
			if !d.Before(rec.CheckIn) && d.Before(rec.CheckOut) {
				counts[room][i] += rec.BedCount
			}
		}
	}

	rooms := make([]string, 0, len(counts))
	for room := range counts {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	rows := make([][]interface{}, 0, len(rooms))
	for _, room := range rooms {
		row := []interface{}{room}
		for _, n := range counts[room] {
			if n == 0 {
				row = append(row, "")
			} else {
				row = append(row, n)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
