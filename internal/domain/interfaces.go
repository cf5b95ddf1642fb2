package domain

import (
	"context"
	"io"
	"time"

	"shamshouse/internal/models"
	"shamshouse/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type StateManager interface {
	GetUserState(ctx context.Context, userID int64) (*models.UserState, error)
	SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error
	SetStep(ctx context.Context, userID int64, step string) error
	UpdateUserStateData(ctx context.Context, userID int64, key string, value interface{}) error
	ClearUserState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// BookingJournal is the local record of bookings made through the bot.
type BookingJournal interface {
	SaveBookingRecord(ctx context.Context, rec *models.BookingRecord) error
	GetBookingRecord(ctx context.Context, reference string) (*models.BookingRecord, error)
	GetUserBookingRecords(ctx context.Context, telegramUserID int64) ([]*models.BookingRecord, error)
	GetRecordsByCheckIn(ctx context.Context, day models.Date) ([]*models.BookingRecord, error)
	GetRecordsBetween(ctx context.Context, from, to models.Date) ([]*models.BookingRecord, error)
	GetAllBookingRecords(ctx context.Context) ([]*models.BookingRecord, error)
	UpdateRecordStatus(ctx context.Context, reference string, status models.BookingStatus) error
}

type UserRepository interface {
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserContacts(ctx context.Context, telegramID int64, phone, email string) error
	UpdateUserActivity(ctx context.Context, telegramID int64) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	GetActiveUsers(ctx context.Context, days int) ([]*models.User, error)
	GetUsersByManagerStatus(ctx context.Context, isManager bool) ([]*models.User, error)
	SetUserManager(ctx context.Context, telegramID int64, isManager bool) error
	SetUserBlacklisted(ctx context.Context, telegramID int64, blacklisted bool) error
}

// CatalogAPI is the read side of the hostel API used by guests.
type CatalogAPI interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	AvailableRooms(ctx context.Context, checkIn, checkOut models.Date) ([]models.Room, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	ListPacks(ctx context.Context) ([]models.Pack, error)
	GetPack(ctx context.Context, id int64) (*models.Pack, error)
	PublicSettings(ctx context.Context) (*models.Settings, error)
}

// AdminAPI is the back-office side of the hostel API.
type AdminAPI interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	TodayCheckIns(ctx context.Context) ([]models.Booking, error)
	TodayCheckOuts(ctx context.Context) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) (*models.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	AdminSettings(ctx context.Context) (*models.Settings, error)
	UpdateDoorCode(ctx context.Context, code string) error
	CreatePack(ctx context.Context, in models.PackInput) (*models.Pack, error)
	UpdatePack(ctx context.Context, id int64, in models.PackInput) (*models.Pack, error)
	CreateService(ctx context.Context, s models.Service) (*models.Service, error)
	UpdateService(ctx context.Context, id int64, s models.Service) (*models.Service, error)
	CreateRoom(ctx context.Context, in models.RoomInput) (*models.Room, error)
	UpdateRoom(ctx context.Context, id int64, in models.RoomInput) (*models.Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	DeleteService(ctx context.Context, id int64) error
	DeletePack(ctx context.Context, id int64) error
	UpdateSettings(ctx context.Context, s models.Settings) (*models.Settings, error)
}

// AccountAPI is the back-office account side of the hostel API.
type AccountAPI interface {
	CurrentUser(ctx context.Context) (*models.AdminUser, error)
	ChangePassword(ctx context.Context, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type PhotoAPI interface {
	UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType, reference string, rec *models.BookingRecord, status models.BookingStatus) error
	EnqueueFullSync(ctx context.Context) error
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, filename string, data []byte, caption string) (tgbotapi.Message, error)
	SendPhoto(chatID int64, url, caption string) (tgbotapi.Message, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// BookingService runs a guest's wizard across Telegram updates.
type BookingService interface {
	Current(ctx context.Context, userID int64) (*wizard.Wizard, error)
	Start(ctx context.Context, userID int64) (*wizard.Wizard, error)
	StartPack(ctx context.Context, userID int64, pc wizard.PackContext) (*wizard.Wizard, error)
	Apply(ctx context.Context, userID int64, op func(w *wizard.Wizard) error) (*wizard.Wizard, error)
	SearchRooms(ctx context.Context, userID int64) (*wizard.Wizard, error)
	Submit(ctx context.Context, user *models.User) (*wizard.Wizard, error)
	Discard(ctx context.Context, userID int64) error
	Lookup(ctx context.Context, reference string) (*models.Booking, error)
}

type CatalogService interface {
	Rooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error)
	Room(ctx context.Context, id int64) (*models.Room, error)
	ActivePacks(ctx context.Context) ([]models.Pack, error)
	Pack(ctx context.Context, id int64) (*models.Pack, error)
	ServicesByCategory(ctx context.Context) (map[models.ServiceCategory][]models.Service, error)
	PackContext(pack *models.Pack, checkIn models.Date) wizard.PackContext
	Contact(ctx context.Context) (*models.Settings, error)
	About(ctx context.Context) string
}

type AdminService interface {
	Bookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	AllBookings(ctx context.Context) ([]models.Booking, error)
	Today(ctx context.Context) (checkIns, checkOuts []models.Booking, err error)
	StatusCounts(ctx context.Context) (map[models.BookingStatus]int, error)
	Booking(ctx context.Context, id int64) (*models.Booking, error)
	CheckIn(ctx context.Context, id int64, managerID int64) (*models.Booking, error)
	CheckOut(ctx context.Context, id int64, managerID int64) (*models.Booking, error)
	MarkPaid(ctx context.Context, id int64, managerID int64) (*models.Booking, error)
	Cancel(ctx context.Context, id int64, managerID int64) error
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
	UpdateDoorCode(ctx context.Context, code string) error
	Settings(ctx context.Context) (*models.Settings, error)
	SavePack(ctx context.Context, id int64, in models.PackInput) (*models.Pack, error)
	SaveService(ctx context.Context, id int64, svc models.Service) (*models.Service, error)
	SaveRoom(ctx context.Context, id int64, in models.RoomInput) (*models.Room, error)
	DeleteCatalogItem(ctx context.Context, kind CatalogKind, id int64) error
	UpdateSetting(ctx context.Context, key, value string) (*models.Settings, error)
}

// CatalogKind names what a manager deletes.
type CatalogKind string

const (
	KindRoom    CatalogKind = "room"
	KindService CatalogKind = "service"
	KindPack    CatalogKind = "pack"
)

type AccountService interface {
	Whoami(ctx context.Context) (*models.AdminUser, error)
	ChangePassword(ctx context.Context, managerID int64, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type PhotoUploader interface {
	Upload(ctx context.Context, files []PhotoFile, progress func(done, total int)) ([]string, error)
}

// PhotoFile is one picture waiting to be uploaded.
type PhotoFile struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

type UserService interface {
	IsManager(userID int64) bool
	IsBlacklisted(userID int64) bool
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserActivity(ctx context.Context, telegramID int64) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	GetActiveUsers(ctx context.Context, days int) ([]*models.User, error)
	GetManagers(ctx context.Context) ([]*models.User, error)
	GetUserBookings(ctx context.Context, telegramID int64) ([]*models.BookingRecord, error)
}
