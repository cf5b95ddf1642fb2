package api

import (
	"context"
	"errors"
	"testing"

	"shamshouse/internal/config"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/models"
	"shamshouse/internal/service"

	"github.com/rs/zerolog"
)

// fakeQuoter prices every night at 25 per bed and records the last call.
type fakeQuoter struct {
	lastQuote    service.QuoteRequest
	lastRoomType models.RoomType
	err          error
}

func (f *fakeQuoter) Quote(_ context.Context, req service.QuoteRequest) (*service.QuoteResult, error) {
	f.lastQuote = req
	if f.err != nil {
		return nil, f.err
	}
	if req.RoomID == 404 {
		return nil, &hostelapi.APIError{StatusCode: 404, Message: "Room not found"}
	}
	if !req.CheckOut.After(req.CheckIn) {
		return nil, service.ErrInvalidQuote
	}
	nights := int(req.CheckIn.DaysUntil(req.CheckOut))
	total := float64(nights * 25 * max(req.BedCount, 1))
	return &service.QuoteResult{Nights: nights, Total: total, Formatted: "total"}, nil
}

func (f *fakeQuoter) Availability(_ context.Context, _, _ models.Date, roomType models.RoomType) ([]models.Room, error) {
	f.lastRoomType = roomType
	if f.err != nil {
		return nil, f.err
	}
	return []models.Room{
		{ID: 1, RoomNumber: "101", RoomType: models.RoomDormitory, PricePerNight: 25, Beds: []models.Bed{{ID: 11}, {ID: 12}}},
	}, nil
}

var errBackendDown = errors.New("dial tcp: connection refused")

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
	}
}

func authConfig(perms ...string) *config.APIConfig {
	cfg := testAPIConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		HeaderExtra:  "x-api-extra",
		APIKeys: []config.APIClientKey{
			{Key: "valid-key", Extra: "valid-extra", Name: "site", Permissions: perms},
		},
	}
	return cfg
}

func nopLogger(t *testing.T) *zerolog.Logger {
	t.Helper()
	l := zerolog.Nop()
	return &l
}
