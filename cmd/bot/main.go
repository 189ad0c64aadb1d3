package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/groupmind-tgbot-go/internal/config"
	"github.com/groupmind-tgbot-go/internal/handlers"
	"github.com/groupmind-tgbot-go/internal/middleware"
	"github.com/groupmind-tgbot-go/internal/services/ai"
	"github.com/groupmind-tgbot-go/internal/services/analyzer"
	"github.com/groupmind-tgbot-go/internal/services/cache"
	"github.com/groupmind-tgbot-go/internal/services/contextstore"
	"github.com/groupmind-tgbot-go/internal/services/history"
	"github.com/groupmind-tgbot-go/internal/worker"
	"github.com/groupmind-tgbot-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting GroupMind bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contexts, err := contextstore.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize context store")
	}

	historyRepo, err := history.Open(cfg.Database.Path, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open interaction log")
	}
	log.WithField("path", cfg.Database.Path).Info("Interaction log ready")

	metrics := middleware.NewMetrics()

	completionCache, err := cache.New(&cfg.Cache, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize completion cache")
	}

	aiClient := ai.NewClient(&cfg.OpenAI, completionCache, metrics, log)
	responder := ai.NewResponder(cfg, aiClient, log)
	safety := ai.NewSafetyChecker(&cfg.OpenAI, metrics, log)
	contextAnalyzer := analyzer.New(&cfg.OpenAI, aiClient, log)

	rateLimiter := middleware.NewRateLimiter(cfg, log)

	pool := worker.NewPool(cfg.Worker.Count, cfg.Worker.QueueSize, metrics, log)
	pool.Start(ctx)

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	messageHandler := handlers.NewMessageHandler(
		cfg,
		bot,
		contexts,
		handlers.NewDecisionPolicy(&cfg.Behavior),
		responder,
		safety,
		contextAnalyzer,
		historyRepo,
		pool,
		rateLimiter,
		metrics,
		log,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for update := range updates {
			update := update
			if err := messageHandler.HandleMessage(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle message")
				metrics.RecordMessageProcessed("error")
			} else {
				metrics.RecordMessageProcessed("success")
			}
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	bot.StopReceivingUpdates()

	// Drain accepted background jobs before stopping the workers.
	pool.Wait()
	cancel()

	log.Info("Bot stopped")
}
