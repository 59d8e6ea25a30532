package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytepress/bytepress/internal/api"
	"github.com/bytepress/bytepress/internal/cache"
	"github.com/bytepress/bytepress/internal/config"
	"github.com/bytepress/bytepress/internal/logger"
	"github.com/bytepress/bytepress/internal/processor"
	imgproc "github.com/bytepress/bytepress/internal/processor/image"
	"github.com/bytepress/bytepress/internal/processor/video"
	"github.com/bytepress/bytepress/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()
	log.Info("configuration loaded", "environment", cfg.Environment)

	ctx := context.Background()

	var store storage.Storage
	if cfg.MinIOEndpoint != "" {
		minioStore, err := storage.NewMinIOStorage(&storage.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			Region:    cfg.MinIORegion,
		})
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure bucket: %w", err)
		}
		store = minioStore
		log.Info("storage connected", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
	} else {
		store = storage.NewMemoryStorage()
		log.Warn("MINIO_ENDPOINT not set, using in-memory storage")
	}

	var resultCache cache.Cache
	if cfg.RedisURL != "" {
		resultCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create cache: %w", err)
		}
		log.Info("result cache connected", "backend", "redis")
	} else {
		resultCache = cache.NewMemoryCache()
		log.Info("result cache created", "backend", "memory")
	}
	defer func() { _ = resultCache.Close() }()

	procCfg := &processor.Config{
		MaxFileSize:  cfg.MaxUploadSize,
		TempDir:      cfg.TempDir,
		Quality:      cfg.DefaultQuality,
		MaxDimension: cfg.MaxDimension,
	}

	registry := processor.NewRegistry()
	registry.Register(imgproc.NewCompressProcessor(procCfg))
	registry.Register(imgproc.NewResizeProcessor(procCfg))
	registry.Register(imgproc.NewCropProcessor(procCfg))
	registry.Register(imgproc.NewRotateProcessor(procCfg))
	registry.Register(imgproc.NewConvertProcessor(procCfg))
	registry.Register(imgproc.NewMetadataProcessor(procCfg))
	log.Info("processors registered", "names", registry.List())

	videoProcCfg := *procCfg
	videoProcCfg.MaxFileSize = cfg.MaxVideoUploadSize

	videoCfg := video.DefaultVideoConfig()
	videoCfg.Config = &videoProcCfg
	videoCfg.FFmpegPath = cfg.FFmpegPath
	videoCfg.FFprobePath = cfg.FFprobePath
	videoCfg.MaxDuration = int(cfg.MaxVideoDuration.Seconds())

	engine, err := video.NewEngine(videoCfg)
	if err != nil {
		log.Warn("video engine unavailable, video endpoints disabled", "error", err)
		engine = nil
	}

	server := api.NewServer(cfg, store, resultCache, registry, engine)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
