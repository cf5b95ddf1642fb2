package service

import (
	"context"
	"io"
	"time"

	"shamshouse/internal/models"

	"github.com/stretchr/testify/mock"
)

// mockHostel fakes the hostel REST client.
type mockHostel struct {
	mock.Mock
}

func (m *mockHostel) AvailableRooms(ctx context.Context, in, out models.Date) ([]models.Room, error) {
	args := m.Called(ctx, in, out)
	rooms, _ := args.Get(0).([]models.Room)
	return rooms, args.Error(1)
}

func (m *mockHostel) ListServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	services, _ := args.Get(0).([]models.Service)
	return services, args.Error(1)
}

func (m *mockHostel) CreateBooking(ctx context.Context, req models.BookingRequest, key string) (*models.BookingConfirmation, error) {
	args := m.Called(ctx, req, key)
	conf, _ := args.Get(0).(*models.BookingConfirmation)
	return conf, args.Error(1)
}

func (m *mockHostel) BookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	args := m.Called(ctx, ref)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	rooms, _ := args.Get(0).([]models.Room)
	return rooms, args.Error(1)
}

func (m *mockHostel) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *mockHostel) ListPacks(ctx context.Context) ([]models.Pack, error) {
	args := m.Called(ctx)
	packs, _ := args.Get(0).([]models.Pack)
	return packs, args.Error(1)
}

func (m *mockHostel) GetPack(ctx context.Context, id int64) (*models.Pack, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Pack)
	return p, args.Error(1)
}

func (m *mockHostel) PublicSettings(ctx context.Context) (*models.Settings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*models.Settings)
	return s, args.Error(1)
}

func (m *mockHostel) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) TodayCheckIns(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) TodayCheckOuts(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	args := m.Called(ctx, id, status)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Booking, error) {
	args := m.Called(ctx, id, status)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockHostel) CancelBooking(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockHostel) AdminSettings(ctx context.Context) (*models.Settings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*models.Settings)
	return s, args.Error(1)
}

func (m *mockHostel) UpdateDoorCode(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockHostel) CreatePack(ctx context.Context, in models.PackInput) (*models.Pack, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*models.Pack)
	return p, args.Error(1)
}

func (m *mockHostel) UpdatePack(ctx context.Context, id int64, in models.PackInput) (*models.Pack, error) {
	args := m.Called(ctx, id, in)
	p, _ := args.Get(0).(*models.Pack)
	return p, args.Error(1)
}

func (m *mockHostel) CreateService(ctx context.Context, s models.Service) (*models.Service, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.Service)
	return out, args.Error(1)
}

func (m *mockHostel) UpdateService(ctx context.Context, id int64, s models.Service) (*models.Service, error) {
	args := m.Called(ctx, id, s)
	out, _ := args.Get(0).(*models.Service)
	return out, args.Error(1)
}

func (m *mockHostel) CreateRoom(ctx context.Context, in models.RoomInput) (*models.Room, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *mockHostel) UpdateRoom(ctx context.Context, id int64, in models.RoomInput) (*models.Room, error) {
	args := m.Called(ctx, id, in)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *mockHostel) DeleteRoom(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockHostel) DeleteService(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockHostel) DeletePack(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockHostel) UpdateSettings(ctx context.Context, s models.Settings) (*models.Settings, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(*models.Settings)
	return out, args.Error(1)
}

func (m *mockHostel) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, filename, r)
	return args.String(0), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) SaveBookingRecord(ctx context.Context, rec *models.BookingRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockJournal) GetBookingRecord(ctx context.Context, ref string) (*models.BookingRecord, error) {
	args := m.Called(ctx, ref)
	rec, _ := args.Get(0).(*models.BookingRecord)
	return rec, args.Error(1)
}

func (m *mockJournal) GetUserBookingRecords(ctx context.Context, userID int64) ([]*models.BookingRecord, error) {
	args := m.Called(ctx, userID)
	recs, _ := args.Get(0).([]*models.BookingRecord)
	return recs, args.Error(1)
}

func (m *mockJournal) GetRecordsByCheckIn(ctx context.Context, day models.Date) ([]*models.BookingRecord, error) {
	args := m.Called(ctx, day)
	recs, _ := args.Get(0).([]*models.BookingRecord)
	return recs, args.Error(1)
}

func (m *mockJournal) GetRecordsBetween(ctx context.Context, from, to models.Date) ([]*models.BookingRecord, error) {
	args := m.Called(ctx, from, to)
	recs, _ := args.Get(0).([]*models.BookingRecord)
	return recs, args.Error(1)
}

func (m *mockJournal) GetAllBookingRecords(ctx context.Context) ([]*models.BookingRecord, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]*models.BookingRecord)
	return recs, args.Error(1)
}

func (m *mockJournal) UpdateRecordStatus(ctx context.Context, ref string, status models.BookingStatus) error {
	return m.Called(ctx, ref, status).Error(0)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) CreateOrUpdateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) GetUserByTelegramID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) UpdateUserContacts(ctx context.Context, id int64, phone, email string) error {
	return m.Called(ctx, id, phone, email).Error(0)
}

func (m *mockUsers) UpdateUserActivity(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *mockUsers) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	args := m.Called(ctx, days)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *mockUsers) GetUsersByManagerStatus(ctx context.Context, isManager bool) ([]*models.User, error) {
	args := m.Called(ctx, isManager)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *mockUsers) SetUserManager(ctx context.Context, id int64, isManager bool) error {
	return m.Called(ctx, id, isManager).Error(0)
}

func (m *mockUsers) SetUserBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	return m.Called(ctx, id, blacklisted).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt, ref string, rec *models.BookingRecord, s models.BookingStatus) error {
	return m.Called(ctx, tt, ref, rec, s).Error(0)
}

func (m *mockWorker) EnqueueFullSync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func futureDate(days int) models.Date {
	return models.DateOf(time.Now()).AddDays(days)
}
