package config

import (
	"fmt"
	"os"
	"strconv"

	"realm-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	BatchSize           int
	DepartureCutoffDays int
	DeparturePowerFloor int64
	MaxUploadBytes      int64
	DefaultSeason       string

	WebhookURL    string
	InboxDir      string
	InboxSchedule string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "realm.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DefaultSeason: getEnv("DEFAULT_SEASON", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		InboxDir:      getEnv("INBOX_DIR", ""),
		InboxSchedule: getEnv("INBOX_SCHEDULE", constants.DefaultInboxSchedule),
	}

	var err error
	if cfg.BatchSize, err = getEnvInt("INGEST_BATCH_SIZE", constants.DBBatchSize); err != nil {
		return nil, err
	}
	if cfg.DepartureCutoffDays, err = getEnvInt("DEPARTURE_CUTOFF_DAYS", constants.DefaultDepartureCutoffDays); err != nil {
		return nil, err
	}
	floor, err := getEnvInt("DEPARTURE_POWER_FLOOR", 0)
	if err != nil {
		return nil, err
	}
	cfg.DeparturePowerFloor = int64(floor)
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", constants.DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("INGEST_BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}
	if cfg.DepartureCutoffDays <= 0 {
		return nil, fmt.Errorf("DEPARTURE_CUTOFF_DAYS must be positive, got %d", cfg.DepartureCutoffDays)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("batch_size", cfg.BatchSize).
		Int("departure_cutoff_days", cfg.DepartureCutoffDays).
		Int64("departure_power_floor", cfg.DeparturePowerFloor).
		Bool("webhook_enabled", cfg.WebhookURL != "").
		Str("inbox_dir", cfg.InboxDir).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)
