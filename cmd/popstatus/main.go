package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/pop-status-service/internal/adapter/fastly"
	httpadapter "github.com/couchcryptid/pop-status-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pop-status-service/internal/adapter/kafka"
	"github.com/couchcryptid/pop-status-service/internal/adapter/memory"
	redisadapter "github.com/couchcryptid/pop-status-service/internal/adapter/redis"
	"github.com/couchcryptid/pop-status-service/internal/adapter/scraper"
	"github.com/couchcryptid/pop-status-service/internal/config"
	"github.com/couchcryptid/pop-status-service/internal/observability"
	"github.com/couchcryptid/pop-status-service/internal/statuspage"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	logger.Info("starting pop status service",
		"version", cfg.ServiceVersion,
		"pop", cfg.CurrentPOP,
		"override_backend", cfg.OverrideBackend,
	)

	catalog := fastly.NewCatalogClient(cfg.FastlyAPIURL, cfg.FastlyAPIToken, cfg.UpstreamTimeout, logger)
	feed := scraper.NewClient(cfg.StatusFeedURL, cfg.UpstreamTimeout, logger)

	store, closeStore := newOverrideStore(cfg, logger)
	defer closeStore()

	svc := statuspage.New(catalog, feed, store, logger, metrics).WithCurrentPOP(cfg.CurrentPOP)

	var writer *kafkaadapter.Writer
	if cfg.EventsEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		svc.WithPublisher(writer)
		logger.Info("override change events enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("override change events disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newOverrideStore builds the configured backend and a func that releases it.
func newOverrideStore(cfg *config.Config, logger *slog.Logger) (statuspage.OverrideStore, func()) {
	switch cfg.OverrideBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("override store: redis", "addr", cfg.RedisAddr, "key", cfg.OverrideKey)
		return redisadapter.NewStore(client, cfg.OverrideKey, logger), func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}
	case config.BackendMemory:
		logger.Warn("override store: memory; overrides are lost on restart and not shared between instances")
		return memory.NewStore(), func() {}
	default:
		logger.Info("override store: fastly dictionary",
			"service_id", cfg.FastlyServiceID,
			"dictionary_id", cfg.FastlyDictionaryID,
			"key", cfg.OverrideKey,
		)
		return fastly.NewDictionaryStore(
			cfg.FastlyAPIURL,
			cfg.FastlyAPIToken,
			cfg.FastlyServiceID,
			cfg.FastlyDictionaryID,
			cfg.OverrideKey,
			cfg.UpstreamTimeout,
			logger,
		), func() {}
	}
}
