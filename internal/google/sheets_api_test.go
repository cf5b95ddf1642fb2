package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shamshouse/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	return mux, server, newSheetsService(srv, "book_tid")
}

func sampleRecord(ref string) *models.BookingRecord {
	return &models.BookingRecord{
		Reference:  ref,
		GuestName:  "Ana Ruiz",
		RoomNumber: "101",
		BedCount:   2,
		CheckIn:    models.NewDate(2026, time.May, 4),
		CheckOut:   models.NewDate(2026, time.May, 6),
		TotalPrice: 240,
		Status:     models.StatusConfirmed,
		UpdatedAt:  time.Now(),
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"Reference"}}})
	})
	if err := s.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_UpdateUsersSheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Users!A1:K2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	users := []*models.User{{ID: 1, Username: "test", CreatedAt: time.Now(), LastActivity: time.Now()}}
	if err := s.UpdateUsersSheet(ctx, users); err != nil {
		t.Errorf("UpdateUsersSheet failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"Reference"}, {"SH-123"}, {}, {"SH-456"}},
		})
	})
	if err := s.WarmUpCache(ctx); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("SH-123"); !ok || row != 2 {
		t.Errorf("Expected row 2 for SH-123, got %d", row)
	}
	if row, _ := s.getCachedRow("SH-456"); row != 4 {
		t.Errorf("Expected row 4 for SH-456, got %d", row)
	}
	if _, ok := s.getCachedRow("Reference"); ok {
		t.Error("header must not be indexed")
	}
}

func TestSheetsService_AppendBooking(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:M10"},
		})
	})
	if err := s.AppendBooking(ctx, sampleRecord("SH-789")); err != nil {
		t.Fatalf("AppendBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow("SH-789"); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking_Update(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow("SH-123", 2)

	var hit bool
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A2:M2", func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	if err := s.UpsertBooking(ctx, sampleRecord("SH-123")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if !hit {
		t.Error("expected the cached row to be rewritten")
	}
}

func TestSheetsService_UpsertBooking_Appends(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"Reference"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A2:M2"},
		})
	})
	if err := s.UpsertBooking(ctx, sampleRecord("SH-NEW")); err != nil {
		t.Fatalf("UpsertBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow("SH-NEW"); row != 2 {
		t.Errorf("Expected cached row 2, got %d", row)
	}
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow("SH-123", 2)

	var body sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!L2:M2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	if err := s.UpdateBookingStatus(ctx, "SH-123", models.StatusCheckedIn); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
	if len(body.Values) != 1 || body.Values[0][0] != "CHECKED_IN" {
		t.Errorf("unexpected status payload %+v", body.Values)
	}
}

func TestSheetsService_GetSheetIdByName(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			Sheets: []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: "Occupancy", SheetId: 999}}},
		})
	})
	id, err := s.GetSheetIdByName(ctx, "Occupancy")
	if err != nil {
		t.Fatalf("GetSheetIdByName failed: %v", err)
	}
	if id != 999 {
		t.Errorf("Expected 999, got %d", id)
	}
	if _, err := s.GetSheetIdByName(ctx, "Missing"); err == nil {
		t.Error("expected error for unknown sheet")
	}
}

func TestSheetsService_ReplaceBookings(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A2:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	records := []*models.BookingRecord{sampleRecord("SH-1"), sampleRecord("SH-2")}
	if err := s.ReplaceBookings(ctx, records); err != nil {
		t.Fatalf("ReplaceBookings failed: %v", err)
	}
	if row, _ := s.getCachedRow("SH-2"); row != 3 {
		t.Errorf("Expected cached row 3, got %d", row)
	}
}

func TestSheetsService_UpdateOccupancySheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			Sheets: []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: "Occupancy", SheetId: 7}}},
		})
	})
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Occupancy!A:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Occupancy!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	var batched bool
	mux.HandleFunc("/v4/spreadsheets/book_tid:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		batched = true
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{})
	})

	from := models.NewDate(2026, time.May, 4)
	err := s.UpdateOccupancySheet(ctx, from, from.AddDays(6), []*models.BookingRecord{sampleRecord("SH-1")})
	if err != nil {
		t.Fatalf("UpdateOccupancySheet failed: %v", err)
	}
	if !batched {
		t.Error("expected formatting batch update")
	}
}

func TestSheetsService_FindBookingRow_FullScan(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/book_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"Reference"}, {"SH-999"}},
		})
	})
	row, err := s.FindBookingRow(ctx, "SH-999")
	if err != nil {
		t.Fatalf("FindBookingRow failed: %v", err)
	}
	if row != 2 {
		t.Errorf("Expected row 2, got %d", row)
	}
	if _, err := s.FindBookingRow(ctx, "SH-000"); err != ErrRowNotFound {
		t.Errorf("Expected ErrRowNotFound, got %v", err)
	}
}
