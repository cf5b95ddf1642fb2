package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shamshouse/internal/database"
	"shamshouse/internal/domain"
	"shamshouse/internal/events"
	"shamshouse/internal/models"
	"shamshouse/internal/worker"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidStatusTransition = errors.New("booking status cannot change this way")
	ErrDoorCodeRequired        = errors.New("door code is required")
	ErrPromoNotBelowOriginal   = errors.New("promo price must be lower than the regular price")
	ErrPackNeedsService        = errors.New("select at least one service")
	ErrPackDuration            = errors.New("duration must be at least one day")
	ErrPackName                = errors.New("package name is required")
	ErrServiceName             = errors.New("service name is required")
	ErrServicePrice            = errors.New("service price cannot be negative")
	ErrUnknownEnum             = errors.New("unknown price type or category")
	ErrRoomNumber              = errors.New("room number is required")
	ErrRoomPrice               = errors.New("price per night must be above zero")
	ErrRoomBeds                = errors.New("a room needs at least one bed")
	ErrInvalidID               = errors.New("id must be a positive number")
	ErrUnknownSetting          = errors.New("unknown setting")
)

// SettingKeys lists what UpdateSetting accepts.
var SettingKeys = []string{"name", "address", "email", "phone", "wifi", "checkout", "instructions", "24h"}

// nextStatus is the only forward flow a manager may apply.
var nextStatus = map[models.BookingStatus]models.BookingStatus{
	models.StatusConfirmed: models.StatusCheckedIn,
	models.StatusCheckedIn: models.StatusCheckedOut,
}

// AdminService backs the manager commands.
type AdminService struct {
	api      domain.AdminAPI
	journal  domain.BookingJournal
	eventBus domain.EventPublisher
	sheets   domain.SyncWorker
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewAdminService(
	api domain.AdminAPI,
	journal domain.BookingJournal,
	eventBus domain.EventPublisher,
	sheets domain.SyncWorker,
	logger *zerolog.Logger,
) *AdminService {
	return &AdminService{
		api:      api,
		journal:  journal,
		eventBus: eventBus,
		sheets:   sheets,
		logger:   logger,
		now:      time.Now,
	}
}

// Bookings lists bookings for the back office. Without a status filter,
// cancelled and pending bookings are hidden.
func (s *AdminService) Bookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	all, err := s.api.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if filter.Status == "" {
			if b.Status == models.StatusCancelled || b.Status == models.StatusPending {
				continue
			}
		} else if b.Status != filter.Status {
			continue
		}
		if query != "" && !matchesBooking(&b, query) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func matchesBooking(b *models.Booking, query string) bool {
	fields := []string{b.GuestName, b.GuestEmail, b.GuestPhone, b.BookingReference, b.AccessCode}
	for _, bed := range b.Beds {
		fields = append(fields, bed.RoomNumber, bed.BedNumber)
	}
	if b.Pack != nil {
		fields = append(fields, b.Pack.Name)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// AllBookings lists every booking, cancelled and pending included.
func (s *AdminService) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.api.ListBookings(ctx)
}

// Today returns the full lists of today's arrivals and departures.
func (s *AdminService) Today(ctx context.Context) (checkIns, checkOuts []models.Booking, err error) {
	checkIns, err = s.api.TodayCheckIns(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("today check-ins: %w", err)
	}
	checkOuts, err = s.api.TodayCheckOuts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("today check-outs: %w", err)
	}
	return checkIns, checkOuts, nil
}

// StatusCounts counts visible bookings per status.
func (s *AdminService) StatusCounts(ctx context.Context) (map[models.BookingStatus]int, error) {
	visible, err := s.Bookings(ctx, models.BookingFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[models.BookingStatus]int)
	for _, b := range visible {
		counts[b.Status]++
	}
	return counts, nil
}

func (s *AdminService) Booking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.api.GetBooking(ctx, id)
}

func (s *AdminService) CheckIn(ctx context.Context, id, managerID int64) (*models.Booking, error) {
	return s.advance(ctx, id, models.StatusCheckedIn, managerID)
}

func (s *AdminService) CheckOut(ctx context.Context, id, managerID int64) (*models.Booking, error) {
	return s.advance(ctx, id, models.StatusCheckedOut, managerID)
}

func (s *AdminService) advance(ctx context.Context, id int64, to models.BookingStatus, managerID int64) (*models.Booking, error) {
	current, err := s.api.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if nextStatus[current.Status] != to {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current.Status, to)
	}
	updated, err := s.api.UpdateBookingStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	if updated.Status == "" {
		updated.Status = to
	}
	s.statusChanged(ctx, updated, events.EventBookingStatusChanged, managerID)
	return updated, nil
}

func (s *AdminService) MarkPaid(ctx context.Context, id, managerID int64) (*models.Booking, error) {
	updated, err := s.api.UpdatePaymentStatus(ctx, id, models.PaymentPaid)
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingPaymentUpdate, updated, managerID)
	return updated, nil
}

func (s *AdminService) Cancel(ctx context.Context, id, managerID int64) error {
	b, err := s.api.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == models.StatusCancelled || b.Status == models.StatusCheckedOut {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, b.Status, models.StatusCancelled)
	}
	if err := s.api.CancelBooking(ctx, id); err != nil {
		return err
	}
	b.Status = models.StatusCancelled
	s.statusChanged(ctx, b, events.EventBookingCancelled, managerID)
	return nil
}

// statusChanged mirrors a new status into the journal and the sheet, when the
// booking was made through the bot.
func (s *AdminService) statusChanged(ctx context.Context, b *models.Booking, eventType string, managerID int64) {
	s.publish(eventType, b, managerID)
	if b.BookingReference == "" {
		return
	}
	if s.journal != nil {
		err := s.journal.UpdateRecordStatus(ctx, b.BookingReference, b.Status)
		if err != nil && !isNotFound(err) {
			s.logger.Error().Err(err).Str("reference", b.BookingReference).Msg("journal status update")
		}
	}
	if s.sheets != nil {
		if err := s.sheets.EnqueueTask(ctx, worker.TaskUpdateStatus, b.BookingReference, nil, b.Status); err != nil {
			s.logger.Error().Err(err).Str("reference", b.BookingReference).Msg("sheets enqueue")
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

func (s *AdminService) publish(eventType string, b *models.Booking, managerID int64) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		Reference:   b.BookingReference,
		GuestName:   b.GuestName,
		RoomNumber:  strings.Join(b.RoomNumbers(), ","),
		CheckIn:     b.CheckInDate.String(),
		CheckOut:    b.CheckOutDate.String(),
		TotalPrice:  b.TotalPrice,
		Status:      string(b.Status),
		Payment:     string(b.PaymentStatus),
		ChangedBy:   "manager",
		ChangedByID: managerID,
		At:          s.now(),
	}
	if b.Pack != nil {
		payload.PackName = b.Pack.Name
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

// Dashboard gathers the back-office summary. Revenue sums every booking
// returned by the API.
func (s *AdminService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	bookings, err := s.api.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	checkIns, err := s.api.TodayCheckIns(ctx)
	if err != nil {
		return nil, fmt.Errorf("today check-ins: %w", err)
	}
	checkOuts, err := s.api.TodayCheckOuts(ctx)
	if err != nil {
		return nil, fmt.Errorf("today check-outs: %w", err)
	}

	stats := &models.DashboardStats{
		TotalRooms:     len(rooms),
		TotalBookings:  len(bookings),
		TodayCheckIns:  len(checkIns),
		TodayCheckOuts: len(checkOuts),
		CheckIns:       preview(checkIns),
		CheckOuts:      preview(checkOuts),
	}
	for _, b := range bookings {
		stats.Revenue += b.TotalPrice
	}
	return stats, nil
}

func preview(list []models.Booking) []models.Booking {
	if len(list) > models.DashboardPreviewSize {
		return list[:models.DashboardPreviewSize]
	}
	return list
}

func (s *AdminService) UpdateDoorCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrDoorCodeRequired
	}
	return s.api.UpdateDoorCode(ctx, code)
}

func (s *AdminService) Settings(ctx context.Context) (*models.Settings, error) {
	return s.api.AdminSettings(ctx)
}

// SavePack creates the pack when id is zero and updates it otherwise.
func (s *AdminService) SavePack(ctx context.Context, id int64, in models.PackInput) (*models.Pack, error) {
	if err := ValidatePack(in); err != nil {
		return nil, err
	}
	if id == 0 {
		return s.api.CreatePack(ctx, in)
	}
	return s.api.UpdatePack(ctx, id, in)
}

func ValidatePack(in models.PackInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return ErrPackName
	case in.DurationDays < 1:
		return ErrPackDuration
	case !in.RoomType.Valid():
		return ErrUnknownEnum
	case in.OriginalPrice != nil && in.PromoPrice >= *in.OriginalPrice:
		return ErrPromoNotBelowOriginal
	case len(in.IncludedServiceIDs) == 0:
		return ErrPackNeedsService
	}
	return nil
}

// SaveService creates the service when id is zero and updates it otherwise.
func (s *AdminService) SaveService(ctx context.Context, id int64, svc models.Service) (*models.Service, error) {
	if err := ValidateService(svc); err != nil {
		return nil, err
	}
	if id == 0 {
		return s.api.CreateService(ctx, svc)
	}
	return s.api.UpdateService(ctx, id, svc)
}

func ValidateService(svc models.Service) error {
	switch {
	case strings.TrimSpace(svc.Name) == "":
		return ErrServiceName
	case svc.Price < 0:
		return ErrServicePrice
	case svc.PriceType != models.PriceFixed && svc.PriceType != models.PricePerNight:
		return ErrUnknownEnum
	case !svc.Category.Valid():
		return ErrUnknownEnum
	}
	return nil
}

// SaveRoom creates the room when id is zero and updates it otherwise.
func (s *AdminService) SaveRoom(ctx context.Context, id int64, in models.RoomInput) (*models.Room, error) {
	if err := ValidateRoom(in); err != nil {
		return nil, err
	}
	if id == 0 {
		return s.api.CreateRoom(ctx, in)
	}
	return s.api.UpdateRoom(ctx, id, in)
}

func ValidateRoom(in models.RoomInput) error {
	switch {
	case strings.TrimSpace(in.RoomNumber) == "":
		return ErrRoomNumber
	case !in.RoomType.Valid():
		return ErrUnknownEnum
	case in.PricePerNight <= 0:
		return ErrRoomPrice
	case in.NumberOfBeds < 1:
		return ErrRoomBeds
	}
	return nil
}

func (s *AdminService) DeleteCatalogItem(ctx context.Context, kind domain.CatalogKind, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	var err error
	switch kind {
	case domain.KindRoom:
		err = s.api.DeleteRoom(ctx, id)
	case domain.KindService:
		err = s.api.DeleteService(ctx, id)
	case domain.KindPack:
		err = s.api.DeletePack(ctx, id)
	default:
		return fmt.Errorf("unknown catalog kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	s.logger.Info().Str("kind", string(kind)).Int64("id", id).Msg("catalog item deleted")
	return nil
}

// UpdateSetting changes one hostel setting and saves the rest unchanged.
func (s *AdminService) UpdateSetting(ctx context.Context, key, value string) (*models.Settings, error) {
	current, err := s.api.AdminSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	next := *current
	value = strings.TrimSpace(value)

	switch strings.ToLower(key) {
	case "name":
		next.HostelName = value
	case "address":
		next.Address = value
	case "email":
		next.Email = value
	case "phone":
		next.Phone = value
	case "wifi":
		next.WifiPassword = value
	case "checkout":
		next.CheckOutTime = value
	case "instructions":
		next.CheckInInstructions = value
	case "24h":
		on, err := parseSwitch(value)
		if err != nil {
			return nil, err
		}
		next.CheckIn24h = on
	default:
		return nil, ErrUnknownSetting
	}
	return s.api.UpdateSettings(ctx, next)
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: use on or off", ErrUnknownSetting)
}
