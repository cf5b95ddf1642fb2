package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shamshouse/internal/domain"
	"shamshouse/internal/models"
	"shamshouse/internal/pricing"
	"shamshouse/internal/wizard"

	"github.com/rs/zerolog"
)

// RoomTypeAll disables the room type filter.
const RoomTypeAll models.RoomType = "ALL"

var ErrPackInactive = errors.New("this package is no longer offered")

// CatalogService is the guest-facing view of rooms, packages and services.
type CatalogService struct {
	api    domain.CatalogAPI
	logger *zerolog.Logger
}

func NewCatalogService(api domain.CatalogAPI, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{api: api, logger: logger}
}

func (s *CatalogService) Rooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error) {
	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
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

func (s *CatalogService) Room(ctx context.Context, id int64) (*models.Room, error) {
	return s.api.GetRoom(ctx, id)
}

// ActivePacks lists the packages still on offer.
func (s *CatalogService) ActivePacks(ctx context.Context) ([]models.Pack, error) {
	packs, err := s.api.ListPacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	active := make([]models.Pack, 0, len(packs))
	for _, p := range packs {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *CatalogService) Pack(ctx context.Context, id int64) (*models.Pack, error) {
	p, err := s.api.GetPack(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, ErrPackInactive
	}
	return p, nil
}

// PackDiscount returns the discount percent and the amount saved.
func PackDiscount(p *models.Pack) (percent int, saved float64) {
	return pricing.DiscountPercent(p.OriginalPrice, p.PromoPrice), pricing.Savings(p.OriginalPrice, p.PromoPrice)
}

// ServicesByCategory groups the service catalog. Empty categories are left out.
func (s *CatalogService) ServicesByCategory(ctx context.Context) (map[models.ServiceCategory][]models.Service, error) {
	services, err := s.api.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	grouped := make(map[models.ServiceCategory][]models.Service)
	for _, svc := range services {
		cat := svc.Category
		if !cat.Valid() {
			cat = models.CategoryOther
		}
		grouped[cat] = append(grouped[cat], svc)
	}
	return grouped, nil
}

// PackContext fixes the stay of a package booking arriving on checkIn.
func (s *CatalogService) PackContext(pack *models.Pack, checkIn models.Date) wizard.PackContext {
	return wizard.PackContext{
		PackID:     pack.ID,
		PackName:   pack.Name,
		RoomType:   pack.RoomType,
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDays(pack.DurationDays),
		TotalPrice: pack.PromoPrice,
		Services:   pack.IncludedServices,
	}
}

func (s *CatalogService) Contact(ctx context.Context) (*models.Settings, error) {
	return s.api.PublicSettings(ctx)
}

type hostelInfoSource interface {
	HostelInfo(ctx context.Context) (map[string]any, error)
}

// About returns the public hostel description, or "" when the API has none.
func (s *CatalogService) About(ctx context.Context) string {
	src, ok := s.api.(hostelInfoSource)
	if !ok {
		return ""
	}
	info, err := src.HostelInfo(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("hostel info unavailable")
		return ""
	}
	desc, _ := info["description"].(string)
	return strings.TrimSpace(desc)
}
