package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shamshouse/internal/events"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/models"
	"shamshouse/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testRooms = []models.Room{
		{
			ID: 1, RoomNumber: "101", RoomType: models.RoomDormitory, PricePerNight: 25,
			Beds: []models.Bed{{ID: 11, BedNumber: "A"}, {ID: 12, BedNumber: "B"}},
		},
		{
			ID: 2, RoomNumber: "201", RoomType: models.RoomDouble, PricePerNight: 70,
			Beds: []models.Bed{{ID: 21, BedNumber: "1"}},
		},
	}
	testServices = []models.Service{
		{ID: 5, Name: "Breakfast", Price: 8, PriceType: models.PricePerNight, Category: models.CategoryMeal},
	}
	testGuest = &models.User{TelegramID: 42, FirstName: "Ana"}
)

type bookingFixture struct {
	svc     *BookingService
	hostel  *mockHostel
	journal *mockJournal
	users   *mockUsers
	bus     *mockEventBus
	worker  *mockWorker
}

func newBookingFixture() *bookingFixture {
	logger := zerolog.Nop()
	f := &bookingFixture{
		hostel:  new(mockHostel),
		journal: new(mockJournal),
		users:   new(mockUsers),
		bus:     new(mockEventBus),
		worker:  new(mockWorker),
	}
	f.svc = NewBookingService(newMemoryStates(), f.hostel, f.journal, f.users, f.bus, f.worker, &logger)
	return f
}

// ready walks a direct booking up to GuestDetails with one bed and a complete guest.
func (f *bookingFixture) ready(t *testing.T, userID int64) {
	t.Helper()
	ctx := context.Background()
	f.hostel.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return(testRooms, nil)
	f.hostel.On("ListServices", mock.Anything).Return(testServices, nil)

	_, err := f.svc.Start(ctx, userID)
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, userID, func(w *wizard.Wizard) error {
		return w.SetDates(futureDate(3), futureDate(5))
	})
	require.NoError(t, err)
	w, err := f.svc.SearchRooms(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, wizard.RoomSelection, w.Step())

	w, err = f.svc.Apply(ctx, userID, func(w *wizard.Wizard) error {
		return errors.Join(
			w.SelectRoom(1),
			w.ToggleBed(11),
			w.SetGuestName("Ana Silva"),
			w.SetGuestEmail("ana@example.com"),
			w.SetGuestPhone("+33 6 12 34 56 78"),
		)
	})
	require.NoError(t, err)
	require.Equal(t, wizard.GuestDetails, w.Step())
}

func TestBookingService_SubmitSuccess(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	conf := &models.BookingConfirmation{
		ID:               9,
		BookingReference: "SH-1",
		AccessCode:       "4821",
		GuestName:        "Ana Silva",
		TotalPrice:       50,
		Status:           models.StatusConfirmed,
	}
	f.hostel.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req models.BookingRequest) bool {
		return req.RoomID == 1 && len(req.BedIDs) == 1 && req.PackID == nil
	}), mock.AnythingOfType("string")).Return(conf, nil).Once()
	f.journal.On("SaveBookingRecord", mock.Anything, mock.MatchedBy(func(rec *models.BookingRecord) bool {
		return rec.Reference == "SH-1" && rec.RoomNumber == "101" && rec.BedCount == 1 &&
			rec.TelegramUserID == 42 && rec.GuestEmail == "ana@example.com"
	})).Return(nil).Once()
	f.users.On("UpdateUserContacts", mock.Anything, int64(42), "+33 6 12 34 56 78", "ana@example.com").Return(nil).Once()
	f.bus.On("PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.Reference == "SH-1" && p.TotalPrice == 50 && p.ChangedBy == "guest"
	})).Return(nil).Once()
	f.worker.On("EnqueueTask", mock.Anything, "upsert", "SH-1", mock.Anything, models.StatusConfirmed).Return(nil).Once()

	w, err := f.svc.Submit(ctx, testGuest)
	require.NoError(t, err)
	assert.Equal(t, wizard.Confirmation, w.Step())
	assert.Equal(t, "4821", w.Confirmation().AccessCode)

	stored, err := f.svc.Current(ctx, testGuest.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, wizard.Confirmation, stored.Step())

	f.hostel.AssertExpectations(t)
	f.journal.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

func TestBookingService_SubmitServerError(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	f.hostel.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &hostelapi.APIError{StatusCode: 409, Message: "Bed already booked"}).Once()

	w, err := f.svc.Submit(ctx, testGuest)
	require.Error(t, err)
	assert.ErrorIs(t, err, wizard.ErrSubmitFailed)
	assert.Equal(t, wizard.GuestDetails, w.Step())
	assert.Equal(t, "Bed already booked", w.LastError())
	assert.Equal(t, "Ana Silva", w.Draft().GuestName)

	f.journal.AssertNotCalled(t, "SaveBookingRecord", mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestBookingService_SubmitWithoutBeds(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	_, err := f.svc.Apply(ctx, testGuest.TelegramID, func(w *wizard.Wizard) error { return w.ToggleBed(11) })
	require.NoError(t, err)

	w, err := f.svc.Submit(ctx, testGuest)
	assert.ErrorIs(t, err, wizard.ErrNoBedsSelected)
	assert.Equal(t, wizard.GuestDetails, w.Step())
	f.hostel.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ConcurrentSubmitCallsAPIOnce(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	conf := &models.BookingConfirmation{BookingReference: "SH-2", Status: models.StatusConfirmed}
	f.hostel.On("CreateBooking", mock.Anything, mock.Anything, mock.Anything).Return(conf, nil)
	f.journal.On("SaveBookingRecord", mock.Anything, mock.Anything).Return(nil)
	f.users.On("UpdateUserContacts", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
	f.worker.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Submit(ctx, testGuest)
		}(i)
	}
	wg.Wait()

	f.hostel.AssertNumberOfCalls(t, "CreateBooking", 1)
	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestBookingService_InFlightGuards(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	_, err := f.svc.Apply(ctx, testGuest.TelegramID, func(w *wizard.Wizard) error {
		_, _, err := w.BeginSubmit()
		return err
	})
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, testGuest.TelegramID)
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)

	assert.ErrorIs(t, f.svc.Discard(ctx, testGuest.TelegramID), wizard.ErrSubmissionInFlight)

	_, err = f.svc.Apply(ctx, testGuest.TelegramID, func(w *wizard.Wizard) error { return w.SetNotes("late") })
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)

	_, err = f.svc.Submit(ctx, testGuest)
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)
}

func TestBookingService_StaleSubmissionIsRolledBack(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, testGuest.TelegramID)

	_, err := f.svc.Apply(ctx, testGuest.TelegramID, func(w *wizard.Wizard) error {
		_, _, err := w.BeginSubmit()
		return err
	})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(staleSubmitAfter + time.Minute) }

	w, err := f.svc.Current(ctx, testGuest.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, wizard.GuestDetails, w.Step())
	assert.Equal(t, wizard.FallbackSubmitMessage, w.LastError())
	assert.Equal(t, "Ana Silva", w.Draft().GuestName)
}

func TestBookingService_SearchRoomsEmptyStays(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.hostel.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return([]models.Room{}, nil)

	_, err := f.svc.Start(ctx, 7)
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, 7, func(w *wizard.Wizard) error {
		return w.SetDates(futureDate(1), futureDate(2))
	})
	require.NoError(t, err)

	w, err := f.svc.SearchRooms(ctx, 7)
	assert.ErrorIs(t, err, wizard.ErrNoRoomsAvailable)
	assert.Equal(t, wizard.DateSelection, w.Step())
}

func TestBookingService_NoWizard(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.svc.Current(ctx, 99)
	assert.ErrorIs(t, err, ErrNoWizard)

	_, err = f.svc.Apply(ctx, 99, func(w *wizard.Wizard) error { return nil })
	assert.ErrorIs(t, err, ErrNoWizard)

	assert.NoError(t, f.svc.Discard(ctx, 99))
}

func TestBookingService_StartPack(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.hostel.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return(testRooms, nil)

	pc := wizard.PackContext{
		PackID:     3,
		PackName:   "Surf week",
		RoomType:   models.RoomDormitory,
		CheckIn:    futureDate(10),
		CheckOut:   futureDate(17),
		TotalPrice: 399,
	}
	w, err := f.svc.StartPack(ctx, 8, pc)
	require.NoError(t, err)
	assert.Equal(t, wizard.GuestDetails, w.Step())
	assert.True(t, w.IsPack())
	require.Len(t, w.Rooms(), 1)
	assert.Equal(t, "101", w.Rooms()[0].RoomNumber)

	stored, err := f.svc.Current(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 399.0, stored.Total())
}

func TestBookingService_StartPackUnavailable(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.hostel.On("AvailableRooms", mock.Anything, mock.Anything, mock.Anything).Return(testRooms[1:], nil)

	_, err := f.svc.StartPack(ctx, 8, wizard.PackContext{
		PackID:   3,
		RoomType: models.RoomDormitory,
		CheckIn:  futureDate(10),
		CheckOut: futureDate(17),
	})
	assert.ErrorIs(t, err, wizard.ErrPackUnavailable)

	_, err = f.svc.Current(ctx, 8)
	assert.ErrorIs(t, err, ErrNoWizard)
}

func TestBookingService_Lookup(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.svc.Lookup(ctx, "  ")
	assert.ErrorIs(t, err, ErrReferenceRequired)

	f.hostel.On("BookingByReference", mock.Anything, "SH-7").Return(&models.Booking{BookingReference: "SH-7"}, nil).Once()
	b, err := f.svc.Lookup(ctx, " SH-7 ")
	require.NoError(t, err)
	assert.Equal(t, "SH-7", b.BookingReference)
}

func TestBookingRecordFallsBackToDraft(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	f.ready(t, 1)

	w, err := f.svc.Current(ctx, 1)
	require.NoError(t, err)

	rec := bookingRecord(1, w, &models.BookingConfirmation{BookingReference: "SH-9"})
	assert.Equal(t, "Ana Silva", rec.GuestName)
	assert.Equal(t, w.Draft().CheckIn, rec.CheckIn)
	assert.Equal(t, 50.0, rec.TotalPrice)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
}
