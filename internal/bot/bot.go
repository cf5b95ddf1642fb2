package bot

import (
	"context"
	"errors"
	"os"
	"time"

	"shamshouse/internal/config"
	"shamshouse/internal/domain"
	"shamshouse/internal/mail"
	"shamshouse/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DigestMailer sends the managers' morning digest by email.
type DigestMailer interface {
	SendDigest(ctx context.Context, d mail.Digest) error
}

// Deps groups the services the bot talks to. Account, Mailer and
// SheetsWorker are optional.
type Deps struct {
	States       domain.StateManager
	Bookings     domain.BookingService
	Catalog      domain.CatalogService
	Admin        domain.AdminService
	Account      domain.AccountService
	Photos       domain.PhotoUploader
	Users        domain.UserService
	Journal      domain.BookingJournal
	SheetsWorker domain.SyncWorker
	Mailer       DigestMailer
}

type Bot struct {
	tgService      domain.TelegramService
	config         *config.Config
	stateService   domain.StateManager
	bookingService domain.BookingService
	catalog        domain.CatalogService
	admin          domain.AdminService
	account        domain.AccountService
	photos         domain.PhotoUploader
	userService    domain.UserService
	journal        domain.BookingJournal
	sheetsWorker   domain.SyncWorker
	mailer         DigestMailer
	metrics        *Metrics
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	deps Deps,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tgService == nil {
		return nil, errors.New("telegram service is required")
	}
	if deps.States == nil || deps.Bookings == nil || deps.Catalog == nil || deps.Users == nil {
		return nil, errors.New("states, bookings, catalog and users are required")
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tgService:      tgService,
		config:         cfg,
		stateService:   deps.States,
		bookingService: deps.Bookings,
		catalog:        deps.Catalog,
		admin:          deps.Admin,
		account:        deps.Account,
		photos:         deps.Photos,
		userService:    deps.Users,
		journal:        deps.Journal,
		sheetsWorker:   deps.SheetsWorker,
		mailer:         deps.Mailer,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops long polling. Start returns once the update channel closes.
func (b *Bot) Stop() {
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil && update.Message.From != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
			userID = update.CallbackQuery.From.ID
		}

		if userID == 0 {
			return
		}

		if b.userService.IsBlacklisted(userID) {
			return
		}

		b.trackActivity(userID)

		if !b.allow(updateCtx, userID) {
			if update.Message != nil {
				b.sendMessage(update.Message.Chat.ID, "⚠️ You are sending messages too fast. Please wait a moment.")
			}
			return
		}

		if b.metrics != nil {
			b.metrics.MessagesProcessed.Inc()
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) isManager(userID int64) bool {
	return b.userService.IsManager(userID)
}

func (b *Bot) rateLimit() (int, time.Duration) {
	limit, window := models.RateLimitMessages, models.RateLimitWindow
	if b.config != nil {
		if b.config.Bot.RateLimitMessages > 0 {
			limit = b.config.Bot.RateLimitMessages
		}
		if b.config.Bot.RateLimitWindow > 0 {
			window = b.config.Bot.RateLimitWindow
		}
	}
	return limit, time.Duration(window) * time.Second
}

func (b *Bot) pageSize() int {
	if b.config != nil && b.config.Bot.PaginationSize > 0 {
		return b.config.Bot.PaginationSize
	}
	return models.DefaultPaginationSize
}

// telegramUser maps the sender of an update to our user model.
func telegramUser(from *tgbotapi.User) *models.User {
	if from == nil {
		return nil
	}
	return &models.User{
		TelegramID:   from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	}
}
