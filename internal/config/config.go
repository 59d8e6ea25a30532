package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	MaxUploadSize int64
	BaseURL       string

	Environment string
	LogLevel    string

	// Whole-request processing deadline; the compression search coordinates
	// its attempt budget against it.
	RequestTimeout time.Duration

	// Result cache.
	RedisURL  string // empty = in-memory cache
	CacheTTL  time.Duration
	CacheSize int

	// Blob storage. Empty endpoint = in-memory storage (dev mode).
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string

	// Processing defaults.
	DefaultQuality     int
	MaxDimension       int
	MaxVideoUploadSize int64
	MaxVideoDuration   time.Duration
	TempDir            string
	FFmpegPath         string
	FFprobePath        string
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 100*1024*1024)
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")

	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheSize = getEnvInt("CACHE_SIZE", 1024)

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinIOEndpoint != "" {
		cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
		if cfg.MinIOAccessKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY is required when MINIO_ENDPOINT is set")
		}
		cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
		if cfg.MinIOSecretKey == "" {
			return nil, fmt.Errorf("MINIO_SECRET_KEY is required when MINIO_ENDPOINT is set")
		}
	}
	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "media")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")

	cfg.DefaultQuality = getEnvInt("DEFAULT_QUALITY", 85)
	cfg.MaxDimension = getEnvInt("MAX_DIMENSION", 4096)
	cfg.MaxVideoUploadSize = getEnvInt64("MAX_VIDEO_UPLOAD_SIZE", 500*1024*1024)
	cfg.MaxVideoDuration, err = getEnvDuration("MAX_VIDEO_DURATION", "30m")
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_VIDEO_DURATION: %w", err)
	}
	cfg.TempDir = getEnvString("TEMP_DIR", "/tmp/bytepress")
	cfg.FFmpegPath = getEnvString("FFMPEG_PATH", "ffmpeg")
	cfg.FFprobePath = getEnvString("FFPROBE_PATH", "ffprobe")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return fmt.Errorf("default quality %d out of range", c.DefaultQuality)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}
