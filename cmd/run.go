package cmd

import (
	"context"
	"fmt"
	"time"

	"adledger/api"
	"adledger/application"
	"adledger/bot"
	"adledger/config"
	"adledger/database"
	"adledger/events"
	"adledger/infrastructure"
	"adledger/infrastructure/observability"
	"adledger/repository"
	"adledger/service"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	configureLogging(cfg)

	log.Info("Starting adledger...")

	// Initialize metrics
	log.Info("Initializing metrics...")
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()
	log.Info("Metrics initialized successfully")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event bus
	log.Info("Initializing event bus...")
	eventBus := events.NewBus()
	log.Info("Event bus initialized successfully")

	// Initialize unit of work factory
	log.Info("Initializing unit of work factory...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	log.Info("Unit of work factory initialized successfully")

	ledgerOpts := []service.Option{
		service.WithOperationRecorder(metrics),
		service.WithStorageTimeout(cfg.StorageTimeout),
	}

	// Initialize read cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		log.Info("Connecting to Redis...")
		redisClient, err = infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		ledgerOpts = append(ledgerOpts, service.WithCache(infrastructure.NewRedisCache(redisClient, cfg.CacheTTL)))
		log.WithField("ttl", cfg.CacheTTL).Info("Read cache enabled")
	} else {
		log.Info("Redis not configured, reads go straight to the database")
	}

	// Initialize ledger service
	log.Info("Initializing ledger service...")
	ledger, err := service.NewLedgerService(uowFactory, cfg.Ledger, ledgerOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger service: %w", err)
	}
	log.Info("Ledger service initialized successfully")

	// Initialize NATS event stream
	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		log.Info("Connecting to NATS...")
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
			return fmt.Errorf("failed to ensure NATS stream: %w", err)
		}

		infrastructure.NewNATSEventPublisher(natsClient, mapper, metrics).Attach(eventBus)
		log.Info("Ledger events are forwarded to NATS")
	}

	// Initialize Telegram bot
	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		log.Info("Initializing Telegram bot...")
		telegramBot, err = bot.New(bot.Config{
			Token:       cfg.TelegramToken,
			AdminChatID: cfg.TelegramAdminChatID,
		}, ledger)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		if err := telegramBot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start Telegram bot: %w", err)
		}
		log.Info("Telegram bot initialized successfully")
	}

	// Initialize withdrawal notifier
	log.Info("Initializing withdrawal notifier...")
	var webhook application.WithdrawalNotifier
	if cfg.WithdrawalWebhookURL != "" {
		webhook = infrastructure.NewWebhookNotifier(cfg.WithdrawalWebhookURL, cfg.WebhookTimeout)
	} else {
		log.Warn("WITHDRAWAL_WEBHOOK_URL not set, withdrawal requests will stay pending")
	}

	var announcers []application.WithdrawalNotifier
	if telegramBot != nil {
		if notifier := telegramBot.AdminNotifier(); notifier != nil {
			announcers = append(announcers, notifier)
		}
	}
	if cfg.DiscordToken != "" && cfg.DiscordAdminChannelID != "" {
		session, err := infrastructure.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Discord session: %w", err)
		}
		announcers = append(announcers, infrastructure.NewDiscordNotifier(session, cfg.DiscordAdminChannelID))
	}

	notifierWorker := application.NewWithdrawalNotifierWorker(
		ledger,
		webhook,
		announcers,
		metrics,
		cfg.WithdrawalNotifyInterval,
		cfg.WithdrawalNotifyBatch,
	)
	notifierWorker.Subscribe(eventBus)
	stopNotifier := notifierWorker.Start(ctx)
	log.WithField("announcers", len(announcers)).Info("Withdrawal notifier initialized successfully")

	// Initialize HTTP API
	var httpServer *api.Server
	serverErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		log.Info("Initializing HTTP API...")
		httpServer = api.NewServer(ledger, db, cfg.AdminAPIKey)
		go func() {
			serverErr <- httpServer.Start(cfg.HTTPAddr)
		}()
	}

	// Wait for context cancellation
	log.Infof("adledger is running in %s mode...", cfg.Environment)
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("HTTP API stopped: %w", err)
		}
	}

	// Cleanup resources
	log.Info("Shutting down adledger...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down HTTP API")
		}
	}

	if telegramBot != nil {
		if err := telegramBot.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("Error stopping Telegram bot")
		}
	}

	stopNotifier()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return runErr
}
