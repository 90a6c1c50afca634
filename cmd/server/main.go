package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/benstrumeyer/snowex-frame-service/internal/api"
	"github.com/benstrumeyer/snowex-frame-service/internal/harness"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/config"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/ffmpeg"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/metrics"
	miniostorage "github.com/benstrumeyer/snowex-frame-service/internal/infra/minio"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/overlay"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/postgres"
	"github.com/benstrumeyer/snowex-frame-service/internal/infra/tracing"
	"github.com/benstrumeyer/snowex-frame-service/internal/renderer"
	"github.com/benstrumeyer/snowex-frame-service/internal/usecase"
	"github.com/benstrumeyer/snowex-frame-service/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting snowex frame server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, "migrations")
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:    cfg.MinIOEndpoint,
		AccessKey:   cfg.MinIOAccessKey,
		SecretKey:   cfg.MinIOSecretKey,
		UseSSL:      cfg.MinIOUseSSL,
		VideoBucket: cfg.MinIOVideoBucket,
		TrackBucket: cfg.MinIOTrackBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// Frame rendering
	videos := postgres.NewVideoRepository(pool)
	extractor := ffmpeg.NewExtractor(cfg.FFmpegFPS, cfg.FFmpegFormat, log)
	compositor := overlay.NewCompositor()
	renderUC := usecase.NewRenderFrameUseCase(videos, storage, extractor, compositor, log, cfg.FrameCacheDir)

	// HTTP surface: frame API plus the selection harness, which calls the
	// frame API back over loopback the same way an external client would.
	mux := http.NewServeMux()
	api.NewHandler(renderUC, videos, log).Register(mux)

	selfURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTPPort)
	frameClient := renderer.NewClient(selfURL, time.Duration(cfg.RenderRequestTimeout)*time.Millisecond)
	harness.NewHandler(frameClient, log).Register(mux)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		metricsSrv.Shutdown(shutdownCtx)
	}()

	log.Info("snowex frame server listening", zap.Int("port", cfg.HTTPPort))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http server error", zap.Error(err))
	}

	log.Info("snowex frame server stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
