package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"shamshouse/internal/domain"
	"shamshouse/internal/events"
	"shamshouse/internal/metrics"
	"shamshouse/internal/models"
	"shamshouse/internal/wizard"
	"shamshouse/internal/worker"

	"github.com/rs/zerolog"
)

// staleSubmitAfter is how long a stored Submitting wizard may wait for its
// outcome before it is rolled back to GuestDetails.
const staleSubmitAfter = 2 * time.Minute

var (
	ErrNoWizard          = errors.New("no booking in progress")
	ErrReferenceRequired = errors.New("booking reference is required")
)

// BookingBackend is the part of the hostel API behind the guest flow.
type BookingBackend interface {
	wizard.Backend
	BookingByReference(ctx context.Context, reference string) (*models.Booking, error)
}

type BookingService struct {
	states   *StateService
	backend  BookingBackend
	journal  domain.BookingJournal
	users    domain.UserRepository
	eventBus domain.EventPublisher
	sheets   domain.SyncWorker
	logger   *zerolog.Logger
	locks    sync.Map
	now      func() time.Time
}

func NewBookingService(
	states *StateService,
	backend BookingBackend,
	journal domain.BookingJournal,
	users domain.UserRepository,
	eventBus domain.EventPublisher,
	sheets domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		states:   states,
		backend:  backend,
		journal:  journal,
		users:    users,
		eventBus: eventBus,
		sheets:   sheets,
		logger:   logger,
		now:      time.Now,
	}
}

// lock serializes operations of one user inside this process.
func (s *BookingService) lock(userID int64) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// load returns the stored wizard. A submission left in flight longer than
// staleSubmitAfter is failed so the guest can retry.
func (s *BookingService) load(ctx context.Context, userID int64) (*wizard.Wizard, error) {
	w, updatedAt, err := s.states.LoadWizard(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNoWizard
	}
	if w.Step() == wizard.Submitting && s.now().Sub(updatedAt) > staleSubmitAfter {
		if err := w.FailSubmit(w.SubmitToken(), nil); err != nil {
			return nil, err
		}
		s.logger.Warn().Int64("user_id", userID).Msg("rolled back stale submission")
		if err := s.states.SaveWizard(ctx, userID, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (s *BookingService) Current(ctx context.Context, userID int64) (*wizard.Wizard, error) {
	defer s.lock(userID)()
	return s.load(ctx, userID)
}

// Start replaces any unfinished wizard with a fresh one.
func (s *BookingService) Start(ctx context.Context, userID int64) (*wizard.Wizard, error) {
	defer s.lock(userID)()

	if err := s.guardInFlight(ctx, userID); err != nil {
		return nil, err
	}
	w := wizard.New()
	if err := s.states.SaveWizard(ctx, userID, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *BookingService) StartPack(ctx context.Context, userID int64, pc wizard.PackContext) (*wizard.Wizard, error) {
	defer s.lock(userID)()

	if err := s.guardInFlight(ctx, userID); err != nil {
		return nil, err
	}
	w, err := wizard.NewFromPack(ctx, s.backend, pc)
	if err != nil {
		return nil, err
	}
	if err := s.states.SaveWizard(ctx, userID, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *BookingService) guardInFlight(ctx context.Context, userID int64) error {
	w, err := s.load(ctx, userID)
	if errors.Is(err, ErrNoWizard) {
		return nil
	}
	if err != nil {
		return err
	}
	if w.Step() == wizard.Submitting {
		return wizard.ErrSubmissionInFlight
	}
	return nil
}

// Apply runs op on the stored wizard and saves the result. A failing op
// leaves the stored wizard untouched.
func (s *BookingService) Apply(ctx context.Context, userID int64, op func(w *wizard.Wizard) error) (*wizard.Wizard, error) {
	defer s.lock(userID)()

	w, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := op(w); err != nil {
		return w, err
	}
	if err := s.states.SaveWizard(ctx, userID, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *BookingService) SearchRooms(ctx context.Context, userID int64) (*wizard.Wizard, error) {
	defer s.lock(userID)()

	w, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	searchErr := w.SearchRooms(ctx, s.backend)
	if err := s.states.SaveWizard(ctx, userID, w); err != nil {
		return nil, err
	}
	if searchErr != nil {
		zerolog.Ctx(ctx).Debug().Err(searchErr).Int64("user_id", userID).Msg("room search")
	}
	return w, searchErr
}

// Submit sends the draft. The wizard is stored as Submitting before the API
// call so a second update cannot submit it again.
func (s *BookingService) Submit(ctx context.Context, user *models.User) (*wizard.Wizard, error) {
	defer s.lock(user.TelegramID)()

	w, err := s.load(ctx, user.TelegramID)
	if err != nil {
		return nil, err
	}
	token, req, err := w.BeginSubmit()
	if err != nil {
		return w, err
	}
	if err := s.states.SaveWizard(ctx, user.TelegramID, w); err != nil {
		return nil, err
	}

	mode := "direct"
	if w.IsPack() {
		mode = "pack"
	}

	conf, apiErr := s.backend.CreateBooking(ctx, req, token)
	if apiErr != nil {
		metrics.IncBookingSubmission(mode, "error")
		if err := w.FailSubmit(token, apiErr); err != nil {
			return nil, err
		}
		if err := s.states.SaveWizard(ctx, user.TelegramID, w); err != nil {
			return nil, err
		}
		return w, fmt.Errorf("%w: %w", wizard.ErrSubmitFailed, apiErr)
	}

	if err := w.CompleteSubmit(token, conf); err != nil {
		return nil, err
	}
	if err := s.states.SaveWizard(ctx, user.TelegramID, w); err != nil {
		s.logger.Error().Err(err).Str("reference", conf.BookingReference).Msg("save confirmed wizard")
	}
	metrics.IncBookingSubmission(mode, "ok")

	s.afterConfirm(ctx, user, w, conf)
	return w, nil
}

// afterConfirm journals the booking and fans it out. Failures here are logged;
// the booking already exists on the server.
func (s *BookingService) afterConfirm(ctx context.Context, user *models.User, w *wizard.Wizard, conf *models.BookingConfirmation) {
	rec := bookingRecord(user.TelegramID, w, conf)
	l := s.logger.With().Str("reference", rec.Reference).Int64("user_id", user.TelegramID).Logger()

	if s.journal != nil {
		if err := s.journal.SaveBookingRecord(ctx, rec); err != nil {
			l.Error().Err(err).Msg("journal booking")
		}
	}
	if s.users != nil {
		if err := s.users.UpdateUserContacts(ctx, user.TelegramID, rec.GuestPhone, rec.GuestEmail); err != nil {
			l.Warn().Err(err).Msg("update user contacts")
		}
	}
	if s.eventBus != nil {
		payload := events.BookingEventPayload{
			Reference:  rec.Reference,
			UserID:     user.TelegramID,
			GuestName:  rec.GuestName,
			RoomNumber: rec.RoomNumber,
			PackName:   rec.PackName,
			CheckIn:    rec.CheckIn.String(),
			CheckOut:   rec.CheckOut.String(),
			TotalPrice: rec.TotalPrice,
			Status:     string(rec.Status),
			ChangedBy:  "guest",
			At:         s.now(),
		}
		if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
			l.Error().Err(err).Msg("publish booking.created")
		}
	}
	if s.sheets != nil {
		if err := s.sheets.EnqueueTask(ctx, worker.TaskUpsert, rec.Reference, rec, rec.Status); err != nil {
			l.Error().Err(err).Msg("sheets enqueue")
		}
	}
	l.Info().Float64("total", rec.TotalPrice).Msg("booking confirmed")
}

func bookingRecord(userID int64, w *wizard.Wizard, conf *models.BookingConfirmation) *models.BookingRecord {
	d := w.Draft()
	rec := &models.BookingRecord{
		TelegramUserID: userID,
		Reference:      conf.BookingReference,
		AccessCode:     conf.AccessCode,
		GuestName:      firstNonEmpty(conf.GuestName, d.GuestName),
		GuestEmail:     firstNonEmpty(conf.GuestEmail, d.GuestEmail),
		GuestPhone:     firstNonEmpty(conf.GuestPhone, d.GuestPhone),
		BedCount:       len(d.BedIDs),
		CheckIn:        conf.CheckInDate,
		CheckOut:       conf.CheckOutDate,
		TotalPrice:     conf.TotalPrice,
		Status:         conf.Status,
	}
	if room := w.Room(); room != nil {
		rec.RoomNumber = room.RoomNumber
	}
	if pc := w.Pack(); pc != nil {
		rec.PackName = pc.PackName
	}
	if rec.CheckIn.IsZero() {
		rec.CheckIn = d.CheckIn
	}
	if rec.CheckOut.IsZero() {
		rec.CheckOut = d.CheckOut
	}
	if rec.TotalPrice == 0 {
		rec.TotalPrice = w.Total()
	}
	if rec.Status == "" {
		rec.Status = models.StatusConfirmed
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Discard drops the wizard. A submission in flight cannot be discarded.
func (s *BookingService) Discard(ctx context.Context, userID int64) error {
	defer s.lock(userID)()

	if err := s.guardInFlight(ctx, userID); err != nil {
		return err
	}
	return s.states.DropWizard(ctx, userID)
}

// Lookup finds a booking by its public reference.
func (s *BookingService) Lookup(ctx context.Context, reference string) (*models.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrReferenceRequired
	}
	return s.backend.BookingByReference(ctx, reference)
}
