package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/statwatch-io/statwatch/internal/adapter/api"
	"github.com/statwatch-io/statwatch/internal/adapter/api/middleware"
	"github.com/statwatch-io/statwatch/internal/adapter/js8call"
	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	redisrepo "github.com/statwatch-io/statwatch/internal/adapter/repository/redis"
	"github.com/statwatch-io/statwatch/internal/adapter/repository/wal"
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

	m := metrics.NewListenerMetrics()

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

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

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Redis Connection ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("could not connect to redis, will proceed in journal-only mode", "error", err)
	}

	// --- Initialize Repositories ---
	journal, err := wal.NewJournal(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize journal", "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	frameBuffer, err := redisrepo.NewFrameBuffer(redisClient, log, cfg.FrameStream, cfg.FrameDLQStream, cfg.ConsumerGroup, journal, m)
	if err != nil {
		log.Error("failed to initialize frame buffer", "error", err)
		os.Exit(1)
	}

	// Start Redis health check and journal replay loop
	go frameBuffer.StartHealthCheck(ctx, 5*time.Second)

	// --- Initialize Admin API ---
	redisAdminRepo := redisrepo.NewAdminRepository(redisClient, log)
	adminUseCase := usecase.NewAdminStreamUseCase(redisAdminRepo)
	adminRouter := api.NewAdminRouter(adminUseCase, log)
	adminMux.Handle("/", adminRouter) // Mount admin router at the root of the admin server

	// --- Initialize Use Cases ---
	captureUseCase := usecase.NewCaptureFrameUseCase(frameBuffer, strings.Split(cfg.MonitoredGroups, ","), log)

	// --- Initialize Radio Client ---
	radioHandler := func(ctx context.Context, frame domain.RawFrame) {
		size := len(frame.Text)
		err := captureUseCase.Capture(ctx, &frame)
		switch {
		case err == nil:
			m.FramesTotal.WithLabelValues("accepted").Inc()
			m.BytesTotal.Add(float64(size))
		case errors.Is(err, domain.ErrFrameFiltered):
			m.FramesTotal.WithLabelValues("filtered").Inc()
		case errors.Is(err, domain.ErrMalformedFrame):
			m.FramesTotal.WithLabelValues("empty").Inc()
		default:
			m.FramesTotal.WithLabelValues("error_buffer").Inc()
			log.Error("failed to capture radio frame", "error", err, "frame_id", frame.ID)
		}
	}
	if cfg.JS8CallAddr == "" {
		log.Info("no radio address configured, accepting frames over HTTP only")
	} else {
		radioClient := js8call.NewClient(cfg.JS8CallAddr, cfg.JS8CallInactivity, radioHandler, log, m)
		go func() {
			if err := radioClient.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("radio client stopped", "error", err)
				stop()
			}
		}()
	}

	// --- Initialize Ingest Server ---
	ingestRouter := api.NewListenerRouter(cfg, log, captureUseCase, m)
	ingestServer := &http.Server{
		Addr:         cfg.IngestServerAddr,
		Handler:      middleware.Logging(log)(ingestRouter),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting ingest server", "addr", ingestServer.Addr)
		if err := ingestServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ingest server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := ingestServer.Shutdown(shutdownCtx); err != nil {
		log.Error("ingest server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}
