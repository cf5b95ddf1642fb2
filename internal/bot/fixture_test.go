package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shamshouse/internal/auth"
	"shamshouse/internal/config"
	"shamshouse/internal/database"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/mail"
	"shamshouse/internal/models"
	"shamshouse/internal/repository"
	"shamshouse/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	guestID   int64 = 42
	managerID int64 = 7
)

// fakeSender records everything the bot sends.
type fakeSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stopped bool
	nextID  int
	fileURL string
}

func newFakeSender() *fakeSender {
	return &fakeSender{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeSender) GetFileDirectURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "", fmt.Errorf("no file %s", fileID)
	}
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeSender) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "hostel_test_bot"}
}

func (f *fakeSender) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

// texts returns the text of every message, edit and caption sent so far.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.DocumentConfig:
			out = append(out, m.Caption)
		case tgbotapi.PhotoConfig:
			out = append(out, m.Caption)
		}
	}
	return out
}

func (f *fakeSender) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (f *fakeSender) contains(sub string) bool {
	for _, t := range f.texts() {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

func (f *fakeSender) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			docs = append(docs, d)
		}
	}
	return docs
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// fakeHostel stands in for the hostel REST API.
type fakeHostel struct {
	mu        sync.Mutex
	rooms     []models.Room
	services  []models.Service
	packs     []models.Pack
	settings  models.Settings
	bookings  map[int64]*models.Booking
	requests  []models.BookingRequest
	createErr error
	availErr  error
	uploads   []string
	about     string
	password  string
	roomsIn   []models.RoomInput
	deleted   []string
}

func newFakeHostel() *fakeHostel {
	return &fakeHostel{
		rooms: []models.Room{
			{
				ID: 1, RoomNumber: "101", RoomType: models.RoomDormitory, PricePerNight: 25,
				Beds: []models.Bed{{ID: 11, BedNumber: "A"}, {ID: 12, BedNumber: "B"}},
			},
			{
				ID: 2, RoomNumber: "201", RoomType: models.RoomDouble, PricePerNight: 70,
				Beds: []models.Bed{{ID: 21, BedNumber: "1"}},
			},
		},
		services: []models.Service{
			{ID: 5, Name: "Breakfast", Price: 8, PriceType: models.PricePerNight, Category: models.CategoryMeal},
			{ID: 6, Name: "Surf lesson", Price: 40, PriceType: models.PriceFixed, Category: models.CategoryActivity},
		},
		settings: models.Settings{HostelName: "Sham's House", Address: "1 Beach Road", Phone: "+33 1 23 45 67 89"},
		about:    "Surf hostel by the ocean.",
		password: "desk-pass",
		bookings: map[int64]*models.Booking{
			9: {
				ID: 9, BookingReference: "SH-0009", GuestName: "Bob Lee", GuestEmail: "bob@example.com",
				CheckInDate: models.DateOf(time.Now()), CheckOutDate: models.DateOf(time.Now()).AddDays(2),
				Beds:       []models.Bed{{ID: 11, BedNumber: "A", RoomNumber: "101"}},
				TotalPrice: 50, Status: models.StatusConfirmed, PaymentStatus: models.PaymentPending,
			},
		},
	}
}

func (h *fakeHostel) ListRooms(context.Context) ([]models.Room, error) {
	return h.rooms, nil
}

func (h *fakeHostel) GetRoom(_ context.Context, id int64) (*models.Room, error) {
	for i := range h.rooms {
		if h.rooms[i].ID == id {
			r := h.rooms[i]
			return &r, nil
		}
	}
	return nil, hostelapi.ErrNotFound
}

func (h *fakeHostel) AvailableRooms(context.Context, models.Date, models.Date) ([]models.Room, error) {
	if h.availErr != nil {
		return nil, h.availErr
	}
	return h.rooms, nil
}

func (h *fakeHostel) ListServices(context.Context) ([]models.Service, error) {
	return h.services, nil
}

func (h *fakeHostel) ListPacks(context.Context) ([]models.Pack, error) {
	return h.packs, nil
}

func (h *fakeHostel) GetPack(_ context.Context, id int64) (*models.Pack, error) {
	for i := range h.packs {
		if h.packs[i].ID == id {
			p := h.packs[i]
			return &p, nil
		}
	}
	return nil, hostelapi.ErrNotFound
}

func (h *fakeHostel) PublicSettings(context.Context) (*models.Settings, error) {
	s := h.settings
	return &s, nil
}

func (h *fakeHostel) HostelInfo(context.Context) (map[string]any, error) {
	return map[string]any{"description": h.about}, nil
}

func (h *fakeHostel) CurrentUser(context.Context) (*models.AdminUser, error) {
	return &models.AdminUser{ID: 1, Email: "desk@shamshouse.ma", Role: "ADMIN"}, nil
}

func (h *fakeHostel) ChangePassword(_ context.Context, current, next string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current != h.password {
		return &hostelapi.APIError{StatusCode: http.StatusBadRequest, Message: "Current password is incorrect"}
	}
	h.password = next
	return nil
}

func (h *fakeHostel) ForgotPassword(context.Context, string) error { return nil }

func (h *fakeHostel) ResetPassword(_ context.Context, _, password string) error {
	h.mu.Lock()
	h.password = password
	h.mu.Unlock()
	return nil
}

func (h *fakeHostel) CreateBooking(_ context.Context, req models.BookingRequest, _ string) (*models.BookingConfirmation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, req)
	if h.createErr != nil {
		return nil, h.createErr
	}
	return &models.BookingConfirmation{
		ID:               100,
		BookingReference: "SH-0100",
		AccessCode:       "4821",
		GuestName:        req.GuestName,
		CheckInDate:      req.CheckInDate,
		CheckOutDate:     req.CheckOutDate,
		Status:           models.StatusConfirmed,
	}, nil
}

func (h *fakeHostel) BookingByReference(_ context.Context, ref string) (*models.Booking, error) {
	for _, b := range h.bookings {
		if b.BookingReference == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, hostelapi.ErrNotFound
}

func (h *fakeHostel) ListBookings(context.Context) ([]models.Booking, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Booking, 0, len(h.bookings))
	for _, b := range h.bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (h *fakeHostel) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.bookings[id]
	if !ok {
		return nil, hostelapi.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (h *fakeHostel) TodayCheckIns(ctx context.Context) ([]models.Booking, error) {
	return h.ListBookings(ctx)
}

func (h *fakeHostel) TodayCheckOuts(context.Context) ([]models.Booking, error) {
	return nil, nil
}

func (h *fakeHostel) UpdateBookingStatus(_ context.Context, id int64, status models.BookingStatus) (*models.Booking, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.bookings[id]
	if !ok {
		return nil, hostelapi.ErrNotFound
	}
	b.Status = status
	cp := *b
	return &cp, nil
}

func (h *fakeHostel) UpdatePaymentStatus(_ context.Context, id int64, status models.PaymentStatus) (*models.Booking, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.bookings[id]
	if !ok {
		return nil, hostelapi.ErrNotFound
	}
	b.PaymentStatus = status
	cp := *b
	return &cp, nil
}

func (h *fakeHostel) CancelBooking(_ context.Context, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.bookings[id]; ok {
		b.Status = models.StatusCancelled
	}
	return nil
}

func (h *fakeHostel) AdminSettings(ctx context.Context) (*models.Settings, error) {
	return h.PublicSettings(ctx)
}

func (h *fakeHostel) UpdateDoorCode(_ context.Context, code string) error {
	h.settings.DoorCode = code
	return nil
}

func (h *fakeHostel) CreatePack(_ context.Context, in models.PackInput) (*models.Pack, error) {
	return &models.Pack{ID: 30, Name: in.Name, DurationDays: in.DurationDays, RoomType: in.RoomType, PromoPrice: in.PromoPrice}, nil
}

func (h *fakeHostel) UpdatePack(_ context.Context, id int64, in models.PackInput) (*models.Pack, error) {
	return &models.Pack{ID: id, Name: in.Name}, nil
}

func (h *fakeHostel) CreateService(_ context.Context, s models.Service) (*models.Service, error) {
	s.ID = 50
	return &s, nil
}

func (h *fakeHostel) UpdateService(_ context.Context, id int64, s models.Service) (*models.Service, error) {
	s.ID = id
	return &s, nil
}

func (h *fakeHostel) CreateRoom(_ context.Context, in models.RoomInput) (*models.Room, error) {
	h.roomsIn = append(h.roomsIn, in)
	return &models.Room{ID: 3, RoomNumber: in.RoomNumber, RoomType: in.RoomType, PricePerNight: in.PricePerNight, Photos: in.Photos}, nil
}

func (h *fakeHostel) UpdateRoom(_ context.Context, id int64, in models.RoomInput) (*models.Room, error) {
	h.roomsIn = append(h.roomsIn, in)
	return &models.Room{ID: id, RoomNumber: in.RoomNumber, RoomType: in.RoomType, PricePerNight: in.PricePerNight}, nil
}

func (h *fakeHostel) DeleteRoom(_ context.Context, id int64) error {
	for i, r := range h.rooms {
		if r.ID == id {
			h.rooms = append(h.rooms[:i], h.rooms[i+1:]...)
			h.deleted = append(h.deleted, fmt.Sprintf("room:%d", id))
			return nil
		}
	}
	return hostelapi.ErrNotFound
}

func (h *fakeHostel) DeleteService(_ context.Context, id int64) error {
	h.deleted = append(h.deleted, fmt.Sprintf("service:%d", id))
	return nil
}

func (h *fakeHostel) DeletePack(_ context.Context, id int64) error {
	h.deleted = append(h.deleted, fmt.Sprintf("pack:%d", id))
	return nil
}

func (h *fakeHostel) UpdateSettings(_ context.Context, s models.Settings) (*models.Settings, error) {
	h.settings = s
	return &s, nil
}

func (h *fakeHostel) UploadPhoto(_ context.Context, filename string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, filename)
	return "https://cdn.example.com/" + filename, nil
}

type fakeMailer struct {
	digests []mail.Digest
}

func (m *fakeMailer) SendDigest(_ context.Context, d mail.Digest) error {
	m.digests = append(m.digests, d)
	return nil
}

type testBot struct {
	*Bot
	sender  *fakeSender
	hostel  *fakeHostel
	db      *database.DB
	states  *service.StateService
	mailer  *fakeMailer
	metrics *Metrics
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Managers:         []int64{managerID},
		ManagersContacts: []string{"@reception"},
		Blacklist:        []int64{666},
		Bot:              config.BotConfig{PaginationSize: 5, RateLimitMessages: 100, RateLimitWindow: 60},
	}

	hostel := newFakeHostel()
	sender := newFakeSender()
	states := service.NewStateService(repository.NewMemoryStateRepository(time.Hour), &logger)
	users := service.NewUserService(db, db, cfg, &logger)
	bookings := service.NewBookingService(states, hostel, db, db, nil, nil, &logger)
	mailer := &fakeMailer{}
	metrics := NewMetrics(prometheus.NewRegistry())

	b, err := NewBot(service.NewTelegramService(sender), cfg, Deps{
		States:   states,
		Bookings: bookings,
		Catalog:  service.NewCatalogService(hostel, &logger),
		Admin:    service.NewAdminService(hostel, db, nil, nil, &logger),
		Account:  service.NewAccountService(hostel, auth.NewLoginGuard(2, time.Minute), &logger),
		Photos:   service.NewPhotoService(hostel, &logger),
		Users:    users,
		Journal:  db,
		Mailer:   mailer,
	}, metrics, &logger)
	require.NoError(t, err)

	return &testBot{Bot: b, sender: sender, hostel: hostel, db: db, states: states, mailer: mailer, metrics: metrics}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ana"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID, FirstName: "Ana"},
		Message: &tgbotapi.Message{
			MessageID: 99,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
		Data: data,
	}}
}

func (tb *testBot) send(u tgbotapi.Update) {
	tb.processUpdate(context.Background(), u)
}

func (tb *testBot) step(t *testing.T, userID int64) string {
	t.Helper()
	state, err := tb.states.GetUserState(context.Background(), userID)
	require.NoError(t, err)
	if state == nil {
		return ""
	}
	return state.CurrentStep
}

func dayAhead(days int) models.Date {
	return models.DateOf(time.Now()).AddDays(days)
}
