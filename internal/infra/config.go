package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	DBMaxConns     int
	AllowedOrigins []string

	ProviderBaseURL  string
	ProviderAPIToken string
	PollInterval     time.Duration
	PollMaxAttempts  int

	StoragePath    string
	StorageBaseURL string
	PresignSecret  string

	CacheMaxBytes      int64
	CacheMaxEntryBytes int64

	TempMaxAge         time.Duration
	UploadMaxAge       time.Duration
	DiskThresholdBytes int64
	CleanupSecret      string
	CleanupBudget      time.Duration
	SweepInterval      time.Duration

	FFmpegBin        string
	PreviewWidth     int
	PreviewHeight    int
	PreviewFrameRate int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     getEnvInt("DB_MAX_CONNS", 10),
		AllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ProviderBaseURL:  getEnv("PROVIDER_BASE_URL", "https://api.replicate.com/v1"),
		ProviderAPIToken: os.Getenv("PROVIDER_API_TOKEN"),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:  getEnvInt("POLL_MAX_ATTEMPTS", 60),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/v1/artifacts/serve"),
		PresignSecret:  getEnv("PRESIGN_SECRET", "dev-presign-secret"),

		CacheMaxBytes:      getEnvInt64("CACHE_MAX_BYTES", 500*1024*1024),
		CacheMaxEntryBytes: getEnvInt64("CACHE_MAX_ENTRY_BYTES", 100*1024*1024),

		TempMaxAge:         time.Hour * time.Duration(getEnvInt("TEMP_MAX_AGE_HOURS", 24)),
		UploadMaxAge:       time.Hour * time.Duration(getEnvInt("UPLOAD_MAX_AGE_HOURS", 168)),
		DiskThresholdBytes: getEnvInt64("DISK_THRESHOLD_BYTES", 5*1024*1024*1024),
		CleanupSecret:      os.Getenv("CLEANUP_SECRET"),
		CleanupBudget:      time.Second * time.Duration(getEnvInt("CLEANUP_BUDGET_SECONDS", 300)),
		SweepInterval:      time.Minute * time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 60)),

		FFmpegBin:        getEnv("FFMPEG_BIN", "ffmpeg"),
		PreviewWidth:     getEnvInt("PREVIEW_WIDTH", 640),
		PreviewHeight:    getEnvInt("PREVIEW_HEIGHT", 360),
		PreviewFrameRate: getEnvInt("PREVIEW_FRAME_RATE", 24),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
