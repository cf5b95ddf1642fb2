package service

import (
	"context"
	"errors"
	"fmt"

	"shamshouse/internal/models"
	"shamshouse/internal/pricing"
)

var (
	ErrInvalidQuote   = errors.New("invalid quote request")
	ErrUnknownService = errors.New("unknown service")
)

// QuoteRequest is a priced stay that is not booked.
type QuoteRequest struct {
	RoomID     int64
	CheckIn    models.Date
	CheckOut   models.Date
	BedCount   int
	ServiceIDs []int64
	PackID     *int64
}

type QuoteResult struct {
	Nights    int
	Total     float64
	Formatted string
}

// Quote prices a stay with the same rule the booking wizard uses. A pack
// fixes the dates' length and the price; the room is then optional.
// Check-out may equal check-in, which prices as one night. The bed count is
// bounded by the room's beds, not by the capacity shown to guests.
func (s *CatalogService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if req.CheckIn.IsZero() || req.CheckOut.IsZero() {
		return nil, fmt.Errorf("%w: checkIn and checkOut are required", ErrInvalidQuote)
	}
	if req.CheckOut.Before(req.CheckIn) {
		return nil, fmt.Errorf("%w: checkOut must not be before checkIn", ErrInvalidQuote)
	}

	q := pricing.Quote{CheckIn: req.CheckIn, CheckOut: req.CheckOut, BedCount: req.BedCount}

	if req.PackID != nil {
		pack, err := s.Pack(ctx, *req.PackID)
		if err != nil {
			return nil, fmt.Errorf("get pack %d: %w", *req.PackID, err)
		}
		price := pack.PromoPrice
		q.PackPrice = &price
		q.CheckOut = req.CheckIn.AddDays(pack.DurationDays)
		return s.quoteResult(q), nil
	}

	if req.RoomID <= 0 {
		return nil, fmt.Errorf("%w: roomId is required", ErrInvalidQuote)
	}
	room, err := s.api.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", req.RoomID, err)
	}
	q.Room = room

	if q.BedCount <= 0 {
		q.BedCount = 1
	}
	if beds := len(room.Beds); beds > 0 && q.BedCount > beds {
		return nil, fmt.Errorf("%w: room %s has %d beds", ErrInvalidQuote, room.RoomNumber, beds)
	}

	if len(req.ServiceIDs) > 0 {
		catalog, err := s.api.ListServices(ctx)
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		byID := make(map[int64]models.Service, len(catalog))
		for _, svc := range catalog {
			byID[svc.ID] = svc
		}
		for _, id := range req.ServiceIDs {
			svc, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownService, id)
			}
			q.Services = append(q.Services, svc)
		}
	}

	return s.quoteResult(q), nil
}

func (s *CatalogService) quoteResult(q pricing.Quote) *QuoteResult {
	total := pricing.Total(q)
	return &QuoteResult{
		Nights:    pricing.Nights(q.CheckIn, q.CheckOut),
		Total:     total,
		Formatted: pricing.FormatPrice(total),
	}
}

// Availability lists rooms with a free bed for the stay, optionally of one type.
func (s *CatalogService) Availability(ctx context.Context, checkIn, checkOut models.Date, roomType models.RoomType) ([]models.Room, error) {
	if checkIn.IsZero() || checkOut.IsZero() || checkOut.Before(checkIn) {
		return nil, fmt.Errorf("%w: checkOut must not be before checkIn", ErrInvalidQuote)
	}
	rooms, err := s.api.AvailableRooms(ctx, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("available rooms: %w", err)
	}
	if roomType == "" || roomType == RoomTypeAll {
		return rooms, nil
	}
	filtered := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.RoomType == roomType {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}
