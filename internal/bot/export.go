package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
	usersSheet    = "Users"
)

var bookingHeaders = []string{
	"ID", "Reference", "Guest", "Email", "Phone", "Check-in", "Check-out", "Nights",
	"Rooms", "Beds", "Package", "Total", "Status", "Payment", "Notes",
}

var statusFill = map[models.BookingStatus]string{
	models.StatusPending:    "#FFEB9C",
	models.StatusConfirmed:  "#DDEBF7",
	models.StatusCheckedIn:  "#C6EFCE",
	models.StatusCheckedOut: "#E2EFDA",
	models.StatusCancelled:  "#FFC7CE",
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// buildBookingsWorkbook lays out every booking on one sheet and the totals
// per status on a second one.
func buildBookingsWorkbook(bookings []models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	header := make([]interface{}, len(bookingHeaders))
	for i, h := range bookingHeaders {
		header[i] = h
	}
	if err := writeRow(f, bookingsSheet, 1, header); err != nil {
		f.Close()
		return nil, err
	}
	if style, err := headerStyle(f); err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(bookingHeaders))
		_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", style)
	}

	styles := make(map[models.BookingStatus]int)
	for st, color := range statusFill {
		if id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		}); err == nil {
			styles[st] = id
		}
	}

	counts := make(map[models.BookingStatus]int)
	revenue := make(map[models.BookingStatus]float64)
	for i := range bookings {
		bk := &bookings[i]
		row := i + 2

		beds := make([]string, 0, len(bk.Beds))
		for _, bed := range bk.Beds {
			beds = append(beds, bed.BedNumber)
		}
		packName := ""
		if bk.Pack != nil {
			packName = bk.Pack.Name
		}
		values := []interface{}{
			bk.ID, bk.BookingReference, bk.GuestName, bk.GuestEmail, bk.GuestPhone,
			bk.CheckInDate.String(), bk.CheckOutDate.String(), pricing.Nights(bk.CheckInDate, bk.CheckOutDate),
			strings.Join(bk.RoomNumbers(), ", "), strings.Join(beds, ", "), packName,
			bk.TotalPrice, bk.Status.Label(), string(bk.PaymentStatus), bk.Notes,
		}
		if err := writeRow(f, bookingsSheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		if style, ok := styles[bk.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(13, row)
			_ = f.SetCellStyle(bookingsSheet, cell, cell, style)
		}
		counts[bk.Status]++
		revenue[bk.Status] += bk.TotalPrice
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "E", 22)
	_ = f.SetColWidth(bookingsSheet, "F", "O", 14)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	_ = writeRow(f, summarySheet, 1, []interface{}{"Status", "Bookings", "Total"})
	if style, err := headerStyle(f); err == nil {
		_ = f.SetCellStyle(summarySheet, "A1", "C1", style)
	}
	row := 2
	var allCount int
	var allRevenue float64
	for _, st := range []models.BookingStatus{models.StatusPending, models.StatusConfirmed, models.StatusCheckedIn, models.StatusCheckedOut, models.StatusCancelled} {
		_ = writeRow(f, summarySheet, row, []interface{}{st.Label(), counts[st], revenue[st]})
		allCount += counts[st]
		allRevenue += revenue[st]
		row++
	}
	_ = writeRow(f, summarySheet, row, []interface{}{"All", allCount, allRevenue})
	_ = f.SetColWidth(summarySheet, "A", "C", 16)

	return f, nil
}

// exportBookings writes the workbook to the exports directory and returns
// its name and content.
func (b *Bot) exportBookings(ctx context.Context) (string, []byte, error) {
	bookings, err := b.admin.AllBookings(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("error getting bookings: %w", err)
	}
	f, err := buildBookingsWorkbook(bookings)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	name := fmt.Sprintf("bookings_%s.xlsx", b.now().Format("2006-01-02_1504"))
	return b.saveWorkbook(f, name)
}

func (b *Bot) saveWorkbook(f *excelize.File, name string) (string, []byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("error writing workbook: %w", err)
	}

	if b.config != nil && b.config.Exports.Path != "" {
		if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
			return "", nil, fmt.Errorf("error creating export directory: %w", err)
		}
		filePath := filepath.Join(b.config.Exports.Path, name)
		if err := os.WriteFile(filePath, buf.Bytes(), 0o644); err != nil {
			return "", nil, fmt.Errorf("error saving file: %w", err)
		}
		b.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	}
	return name, buf.Bytes(), nil
}

func (b *Bot) sendBookingsExport(ctx context.Context, chatID int64) {
	name, data, err := b.exportBookings(ctx)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if _, err := b.tgService.SendDocument(chatID, name, data, "📤 Bookings export"); err != nil {
		b.logger.Error().Err(err).Msg("Error sending document")
		b.sendMessage(chatID, "Failed to send the export file.")
	}
}

func buildUsersWorkbook(users []*models.User) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(usersSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = writeRow(f, usersSheet, 1, []interface{}{"Telegram ID", "Username", "First name", "Last name", "Phone", "Email", "Manager", "Blacklisted", "Last activity", "Created"})
	if style, err := headerStyle(f); err == nil {
		_ = f.SetCellStyle(usersSheet, "A1", "J1", style)
	}
	for i, u := range users {
		_ = writeRow(f, usersSheet, i+2, []interface{}{
			u.TelegramID, u.Username, u.FirstName, u.LastName, u.Phone, u.Email,
			u.IsManager, u.IsBlacklisted,
			u.LastActivity.Format("2006-01-02 15:04"), u.CreatedAt.Format("2006-01-02"),
		})
	}
	_ = f.SetColWidth(usersSheet, "A", "J", 16)
	return f, nil
}

// handleExportUsers sends the known users as a spreadsheet.
func (b *Bot) handleExportUsers(ctx context.Context, chatID int64) {
	users, err := b.userService.GetAllUsers(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Error getting users for export")
		b.sendMessage(chatID, "Failed to load users.")
		return
	}
	f, err := buildUsersWorkbook(users)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	defer f.Close()

	name, data, err := b.saveWorkbook(f, fmt.Sprintf("users_%s.xlsx", b.now().Format("2006-01-02")))
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if _, err := b.tgService.SendDocument(chatID, name, data, "📊 Users export"); err != nil {
		b.logger.Error().Err(err).Msg("Error sending document")
		b.sendMessage(chatID, "Failed to send the export file.")
	}
}
