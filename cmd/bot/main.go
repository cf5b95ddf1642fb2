package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shamshouse/internal/api"
	"shamshouse/internal/auth"
	"shamshouse/internal/bot"
	"shamshouse/internal/config"
	"shamshouse/internal/database"
	"shamshouse/internal/domain"
	"shamshouse/internal/events"
	"shamshouse/internal/google"
	"shamshouse/internal/hostelapi"
	"shamshouse/internal/logging"
	"shamshouse/internal/mail"
	"shamshouse/internal/metrics"
	"shamshouse/internal/repository"
	"shamshouse/internal/service"
	"shamshouse/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	if err := cfg.ValidateBot(); err != nil {
		logger.Error().Err(err).Msg("Set telegram.bot_token in config.yaml")
		return err
	}
	if err := prepareDirectories(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	stateService := initStateService(cfg, redisClient, logger)

	hostel := initHostelClient(cfg, redisClient, logger)
	defer hostel.Close()

	var syncWorker domain.SyncWorker
	if sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, logger); sheetsWorker != nil {
		go sheetsWorker.Start(ctx)
		syncWorker = sheetsWorker
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	bookingService := service.NewBookingService(stateService, hostel, db, db, eventBus, syncWorker, logger)
	adminService := service.NewAdminService(hostel, db, eventBus, syncWorker, logger)
	catalogService := service.NewCatalogService(hostel, logger)
	photoService := service.NewPhotoService(hostel, logger)
	accountService := service.NewAccountService(hostel, auth.NewLoginGuard(auth.DefaultMaxAttempts, auth.DefaultLockDuration), logger)
	userService := service.NewUserService(db, db, cfg, logger)
	if changed, err := userService.SyncRoles(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to sync user roles")
	} else if changed > 0 {
		logger.Info().Int("users", changed).Msg("User roles synced with config")
	}

	metrics.Register()
	botMetrics := bot.NewMetrics(prometheus.DefaultRegisterer)
	startMetricsServer(ctx, cfg, logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logger)
		go backupService.Start(ctx)
	}

	if cfg.API.Enabled && cfg.API.HTTP.Enabled {
		apiServer := api.NewHTTPServer(&cfg.API, catalogService, redisClient, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
	}

	deps := bot.Deps{
		States:       stateService,
		Bookings:     bookingService,
		Catalog:      catalogService,
		Admin:        adminService,
		Account:      accountService,
		Photos:       photoService,
		Users:        userService,
		Journal:      db,
		SheetsWorker: syncWorker,
	}
	if cfg.Mail.Enabled {
		deps.Mailer = mail.New(cfg.Mail, logger)
	}

	return startBot(ctx, cfg, deps, eventBus, botMetrics, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()
	return cfg, &logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("create export directory")
			return err
		}
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		// The failover repository keeps probing; sessions live in memory meanwhile.
		logger.Warn().Err(err).Msg("Redis unavailable")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initStateService(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *service.StateService {
	ttl := time.Duration(cfg.Bot.SessionTTL) * time.Second
	fallback := repository.NewMemoryStateRepository(ttl)
	if redisClient == nil {
		return service.NewStateService(fallback, logger)
	}
	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return service.NewStateService(repository.NewFailoverStateRepository(primary, fallback, logger), logger)
}

func initHostelClient(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *hostelapi.Client {
	l := logger.With().Str("component", "hostelapi").Logger()
	client := hostelapi.NewClient(cfg.HostelAPI.BaseURL, cfg.HostelAPI.Timeout, auth.NewSession(), &l)
	if cfg.HostelAPI.AdminEmail != "" {
		client.UseServiceAccount(cfg.HostelAPI.AdminEmail, cfg.HostelAPI.AdminPassword)
	} else {
		logger.Warn().Msg("hostel_api.admin_email is empty; manager commands will fail")
	}
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.HostelAPI.CacheTTL)
	}
	client.UseLocalCache(cfg.HostelAPI.LocalCacheSize, cfg.HostelAPI.CacheTTL)
	return client
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if !cfg.Google.Enabled() {
		logger.Info().Msg("Google Sheets mirror disabled")
		return nil
	}

	sheetsSvc, err := google.NewSimpleSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}
	if err := sheetsSvc.TestConnection(ctx); err != nil {
		if email, emailErr := google.GetServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
			logger.Error().Err(err).Str("share_with", email).Msg("Google Sheets connection test failed")
		} else {
			logger.Error().Err(err).Msg("Google Sheets connection test failed")
		}
		return nil
	}

	go sheetsSvc.StartCacheRefresh(ctx, func(err error) {
		logger.Warn().Err(err).Msg("sheets row index refresh failed")
	})

	logger.Info().Msg("Google Sheets service initialized")
	return worker.NewSheetsWorker(db, sheetsSvc, redisClient, worker.DefaultRetryPolicy(), logger)
}

func startMetricsServer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	deps bot.Deps,
	eventBus *events.EventBus,
	botMetrics *bot.Metrics,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewBotWrapper(botAPI))
	telegramBot, err := bot.NewBot(tgService, cfg, deps, botMetrics, logger)
	if err != nil {
		logger.Error().Err(err).Msg("create bot")
		return err
	}

	telegramBot.SubscribeEvents(eventBus)
	telegramBot.StartReminders(ctx)
	telegramBot.StartDigest(ctx)

	logger.Info().Str("bot", botAPI.Self.UserName).Msg("Bot started")
	telegramBot.Start(ctx)
	telegramBot.Stop()

	logger.Info().Msg("Shutdown complete")
	return nil
}
