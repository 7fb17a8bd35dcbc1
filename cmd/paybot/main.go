// main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/izzddalfk/telepay/internal/paybot/config"
	"github.com/izzddalfk/telepay/internal/paybot/core"
	"github.com/izzddalfk/telepay/internal/paybot/infra/errorlog"
	"github.com/izzddalfk/telepay/internal/paybot/infra/ratelimiter"
	"github.com/izzddalfk/telepay/internal/paybot/infra/telegram"
	"github.com/izzddalfk/telepay/internal/paybot/presentation/poller"
	"github.com/izzddalfk/telepay/internal/paybot/presentation/rest"
)

func main() {
	// Setup context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logger
	logger := setupLogger(cfg.ApplicationConfig.LogLevel)

	// Initialize dependencies
	deps, err := initializeDependencies(cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize dependencies", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Starting payment bot",
		"mode", cfg.ApplicationConfig.Mode,
		"log_errors", cfg.ApplicationConfig.LogErrors,
		"proxy", cfg.Proxy() != nil,
	)

	if err := run(ctx, cfg, deps, logger); err != nil {
		logger.ErrorContext(ctx, "Bot stopped with error", "error", err)
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Application shutdown completed")
}

// Dependencies holds all initialized dependencies
type Dependencies struct {
	Client         *telegram.Client
	PaymentService core.PaymentService
}

// clientProvider binds the shared client to each webhook request body
type clientProvider struct {
	client *telegram.Client
}

func (p clientProvider) ForUpdate(body io.Reader) core.BotAPI {
	return p.client.ForInput(body)
}

// setupLogger creates and configures the logger
func setupLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return logger
}

// initializeDependencies initializes all external dependencies
func initializeDependencies(cfg *config.Configs, logger *slog.Logger) (*Dependencies, error) {
	app := cfg.ApplicationConfig

	errLogger := errorlog.New(errorlog.Config{
		Dir:    app.ErrorLogDir,
		Name:   app.ErrorLogName,
		Logger: logger,
	})

	client, err := telegram.NewClient(telegram.ClientConfig{
		BaseURL:     app.TelegramBaseURL,
		BotToken:    app.TelegramBotToken,
		LogErrors:   app.LogErrors,
		ErrorLogger: errLogger,
		Proxy:       cfg.Proxy(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	serviceCfg := core.ServiceConfig{
		Invoice: cfg.Invoice(),
		Logger:  logger,
	}
	if rate := cfg.InvoiceConfig.RatePerMinute; rate > 0 {
		serviceCfg.Limiter = ratelimiter.New(ratelimiter.Config{
			RequestsPerMinute: rate,
			Logger:            logger,
		})
	}

	service, err := core.NewService(serviceCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment service: %w", err)
	}

	return &Dependencies{
		Client:         client,
		PaymentService: service,
	}, nil
}

func run(ctx context.Context, cfg *config.Configs, deps *Dependencies, logger *slog.Logger) error {
	if cfg.ApplicationConfig.Mode == config.ModePolling {
		p, err := poller.New(poller.Config{
			Bot:            deps.Client,
			PaymentService: deps.PaymentService,
			Logger:         logger,
			Timeout:        cfg.ApplicationConfig.PollTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize poller: %w", err)
		}
		return p.Run(ctx)
	}

	server, err := rest.NewServer(rest.ServerConfig{
		PaymentService: deps.PaymentService,
		Bots:           clientProvider{client: deps.Client},
		Logger:         logger,
		Port:           cfg.ServerConfig.Address(),
		WebhookSecret:  cfg.ServerConfig.WebhookSecret,
		ReadTimeout:    cfg.ServerConfig.ReadTimeoutDuration(),
		WriteTimeout:   cfg.ServerConfig.WriteTimeoutDuration(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	return server.Start(ctx)
}
