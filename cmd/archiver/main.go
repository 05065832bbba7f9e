package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/statwatch-io/statwatch/internal/adapter/api"
	"github.com/statwatch-io/statwatch/internal/adapter/api/handler"
	"github.com/statwatch-io/statwatch/internal/adapter/api/middleware"
	"github.com/statwatch-io/statwatch/internal/adapter/lookup"
	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/adapter/notify"
	"github.com/statwatch-io/statwatch/internal/adapter/repository/postgres"
	redisrepo "github.com/statwatch-io/statwatch/internal/adapter/repository/redis"
	"github.com/statwatch-io/statwatch/internal/adapter/repository/sqlite"
	"github.com/statwatch-io/statwatch/internal/domain"
	"github.com/statwatch-io/statwatch/internal/pkg/config"
	"github.com/statwatch-io/statwatch/internal/pkg/logger"
	"github.com/statwatch-io/statwatch/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting archiver")

	m := metrics.NewArchiverMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Redis Connection ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// --- Archive Connection ---
	var (
		db      *sql.DB
		archive domain.ArchiveRepository
	)
	switch cfg.ArchiveDriver {
	case "sqlite":
		db, err = sqlite.Open(cfg.SQLitePath)
		if err == nil {
			archive, err = sqlite.NewArchiveRepository(db, log)
		}
	case "postgres":
		db, err = postgres.Open(cfg.PostgresURL)
		if err == nil {
			archive, err = postgres.NewArchiveRepository(db, log)
		}
	default:
		log.Error("unknown archive driver", "driver", cfg.ArchiveDriver)
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to open archive", "driver", cfg.ArchiveDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("connected to archive", "driver", cfg.ArchiveDriver)

	// --- Initialize Repositories ---
	frameBuffer, err := redisrepo.NewFrameBuffer(redisClient, log, cfg.FrameStream, cfg.FrameDLQStream, cfg.ConsumerGroup, nil, nil)
	if err != nil {
		log.Error("failed to initialize frame buffer", "error", err)
		os.Exit(1)
	}

	locators := lookup.NewArchiveLocatorSource(archive, cfg.LookupCacheTTL, log)

	// --- Initialize Notifiers ---
	sseBroker := handler.NewSSEBroker(log)

	fanout := notify.NewFanout(m, log)
	fanout.Add("log", notify.NewLogNotifier(log))
	fanout.Add("sse", sseBroker)
	if cfg.MQTTBrokerURL != "" {
		mqttNotifier, err := notify.NewMQTTNotifier(cfg.MQTTBrokerURL, cfg.MQTTTopicPrefix, log)
		if err != nil {
			log.Warn("mqtt notifier disabled", "error", err)
		} else {
			defer mqttNotifier.Close()
			fanout.Add("mqtt", mqttNotifier)
		}
	}

	// --- Initialize Use Cases ---
	decodeUseCase := usecase.NewDecodeFramesUseCase(
		frameBuffer,
		archive,
		locators,
		fanout,
		m,
		log,
		cfg.ConsumerGroup,
		cfg.ConsumerName,
		int(cfg.DecodeBatchSize),
		cfg.LookupTimeout,
		cfg.StationGrid,
	)

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	redisAdminRepo := redisrepo.NewAdminRepository(redisClient, log)
	adminUseCase := usecase.NewAdminStreamUseCase(redisAdminRepo)
	adminMux.Handle("/", api.NewAdminRouter(adminUseCase, log))

	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: adminMux,
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize API Server ---
	apiRouter := api.NewArchiverRouter(cfg, log, archive, sseBroker)
	apiServer := &http.Server{
		Addr:        cfg.APIServerAddr,
		Handler:     middleware.Logging(log)(apiRouter),
		ReadTimeout: 5 * time.Second,
		// WriteTimeout stays zero: it would cut off the event stream.
		IdleTimeout: 15 * time.Second,
		// Event-stream handlers run until their request context dies, so
		// tie request contexts to the shutdown signal or Shutdown would
		// wait out its full timeout.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("starting api server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server failed", "error", err)
			stop()
		}
	}()

	// --- Decode Loop ---
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	log.Info("archiver started, decoding frames...", "group", cfg.ConsumerGroup, "consumer", cfg.ConsumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := decodeUseCase.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("error processing batch", "error", err)
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down decode loop")
			break Loop
		}
	}

	// --- Shutdown ---
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err)
	}

	log.Info("archiver shut down gracefully")
}
