package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mfonseca/dcaflow-backend/internal/adapter/httpapi"
	"github.com/mfonseca/dcaflow-backend/internal/adapter/pricesource"
	"github.com/mfonseca/dcaflow-backend/internal/adapter/repository/postgres"
	"github.com/mfonseca/dcaflow-backend/internal/config"
	"github.com/mfonseca/dcaflow-backend/internal/domain"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/backtest"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/rules"
	"github.com/mfonseca/dcaflow-backend/internal/usecase/schedule"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	logger := newLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Logging.Level)

	// 1. Setup Database
	db, err := postgres.NewDB(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	ruleRepo := postgres.NewRuleRepository(db)
	priceRepo := postgres.NewPriceHistoryRepository(db)

	// 3. Initialize Services (Use Cases)
	localizer := schedule.NewLocalizer(cfg.Scheduler.FallbackUTCOffsetHours, logger)
	scheduler := schedule.NewScheduler(localizer, logger)
	ruleService := rules.NewService(ruleRepo, scheduler, domain.ClockFunc(time.Now), logger)

	// Prefer the Alpaca feed when credentials are configured; otherwise serve
	// prices from the ingested price_history rows.
	var prices domain.PriceSource = priceRepo
	if cfg.Alpaca.APIKey != "" {
		prices = pricesource.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed)
		logger.Info().Msg("using alpaca market data as price source")
	}

	tolerance := time.Duration(cfg.Backtest.ToleranceHours) * time.Hour
	backtestService := backtest.NewService(prices, localizer, tolerance, cfg.Backtest.MaxPeriods, logger)

	// 4. Start HTTP Server
	api := httpapi.NewServer(ruleService, backtestService, cfg.Server.APIToken, logger)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(srv, logger)
}

// newLogger builds the process logger at the configured level
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(srv *http.Server, logger zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
	logger.Info().Msg("http server stopped")
}
