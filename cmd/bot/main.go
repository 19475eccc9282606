package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/vattur/sectorbot/internal/bot"
	"github.com/vattur/sectorbot/internal/checkwx"
	"github.com/vattur/sectorbot/internal/config"
	"github.com/vattur/sectorbot/internal/database"
	"github.com/vattur/sectorbot/internal/logging"
	"github.com/vattur/sectorbot/internal/notify"
	"github.com/vattur/sectorbot/internal/roster"
	"github.com/vattur/sectorbot/internal/scheduler"
	"github.com/vattur/sectorbot/internal/tracker"
	"github.com/vattur/sectorbot/internal/vateud"
	"github.com/vattur/sectorbot/internal/vatsim"
	"github.com/vattur/sectorbot/internal/watchlist"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run wires every component, blocks until a signal or /shutdown, and returns
// the process exit code
func run(ctx context.Context) int {
	configPath := flag.String("config", "config.yaml", "Path to optional YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	// Set up logging
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer logger.Close()
	logger.Info("Configuration loaded", "keys", cfg.Keys())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Connect to database
	var store database.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			return 1
		}
		defer pool.Close()

		// Run migrations
		if err := database.Migrate(pool); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			return 1
		}
		store = database.NewRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, sessions and roster snapshots are kept in memory")
		store = database.NewMemoryStore()
	}

	// Clients
	feed := vatsim.NewClient(cfg.VATSIMDataURL, cfg.HTTPTimeout)
	weather := checkwx.NewClient(cfg.CheckWXBaseURL, cfg.CheckWXAPIKey, cfg.HTTPTimeout, cfg.WeatherCacheTTL, cfg.WeatherCacheSize)
	rosterClient := vateud.NewClient(cfg.VATEUDRosterURL, cfg.VATEUDAPIKey, cfg.HTTPTimeout)

	watch, err := watchlist.Load(cfg.CallsignsFile)
	if err != nil {
		logger.Error("Failed to load callsigns", "file", cfg.CallsignsFile, "error", err)
	}
	logger.Info("Watching callsigns", "count", watch.Len(), "callsigns", watch.Callsigns())

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Error("Failed to create Discord session", "error", err)
		return 1
	}

	senders := []notify.Sender{notify.NewDiscord(session, cfg.ChannelID)}
	if cfg.TelegramEnabled() {
		tg, err := tgbot.New(cfg.TelegramToken)
		if err != nil {
			logger.Error("Failed to create Telegram bot", "error", err)
			return 1
		}
		senders = append(senders, notify.NewTelegram(tg, cfg.TelegramChannelID, notify.TelegramOptions{
			MaxAttempts:    cfg.TelegramMaxRetries,
			RetryDelay:     cfg.TelegramRetryDelay,
			AttemptTimeout: cfg.HTTPTimeout,
		}))
	} else {
		logger.Info("TELEGRAM_TOKEN not set, announcements go to Discord only")
	}
	notifier := notify.New(senders...)

	rosterSvc := roster.NewService(rosterClient, store)
	track := tracker.New(feed, watch, rosterSvc, notifier, store)

	sched, err := scheduler.New(logger.Logger)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		return 1
	}

	// Create and start bot
	b := bot.New(session, bot.Deps{
		Config:    cfg,
		Store:     store,
		Weather:   weather,
		Feed:      feed,
		Tracker:   track,
		Roster:    rosterSvc,
		Watchlist: watch,
		Scheduler: sched,
		Shutdown:  cancel,
	})

	if err := b.Start(ctx); err != nil {
		logger.Error("Failed to start bot", "error", err)
		return 1
	}

	logger.Info("Bot is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	logger.Info("Shutting down...")
	if err := b.Stop(); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}
	return 0
}
