// Command lab runs the weir rating lab service: the shared parameter board,
// its HTTP API, the SQLite history, and the optional Kafka and Telegram
// surfaces.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/couchcryptid/weir-rating-lab/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weir-rating-lab/internal/adapter/kafka"
	"github.com/couchcryptid/weir-rating-lab/internal/adapter/telegram"
	"github.com/couchcryptid/weir-rating-lab/internal/board"
	"github.com/couchcryptid/weir-rating-lab/internal/config"
	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/observability"
	"github.com/couchcryptid/weir-rating-lab/internal/store"
)

func main() {
	godotenv.Load() //nolint:errcheck // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Telemetry publisher (feature-flagged via KAFKA_ENABLED).
	var publisher board.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		publisher = writer
		logger.Info("kafka telemetry enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka telemetry disabled")
	}

	initial := domain.Params{Cd: cfg.StartCd, CrestWidth: cfg.StartCrestWidth, MaxHead: cfg.StartMaxHead}
	sampling := domain.Sampling{Count: cfg.SampleCount, MinHead: cfg.MinHead}

	b, err := board.New(initial, domain.DefaultBounds(), sampling, st, publisher, logger, metrics)
	if err != nil {
		logger.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg, b, st, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// History retention sweep.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.SweepSchedule, func() {
		sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().Add(-cfg.HistoryRetention)
		pruned, err := st.PruneEvaluationsBefore(sweepCtx, cutoff)
		if err != nil {
			logger.Error("history sweep failed", "error", err)
			return
		}
		logger.Info("history sweep complete", "pruned", pruned, "cutoff", cutoff)
	}); err != nil {
		logger.Error("failed to schedule history sweep", "schedule", cfg.SweepSchedule, "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start Telegram bot (feature-flagged via TELEGRAM_ENABLED / TELEGRAM_TOKEN).
	if cfg.TelegramEnabled {
		bot, err := telegram.New(cfg.TelegramToken, b, logger)
		if err != nil {
			logger.Error("failed to create telegram bot", "error", err)
			os.Exit(1)
		}
		go bot.Run(ctx)
	} else {
		logger.Info("telegram bot disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	<-sweeper.Stop().Done()

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
