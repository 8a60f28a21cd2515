package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the harvester.
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string

	ReportsRoot        string
	MaxRetries         int
	Release51Cutover   string // "YYYY-MM"; empty when no cutover is configured
	RawFileKey         []byte
	HTTPTimeout        time.Duration
	MinRequestInterval time.Duration // Per provider
	PendingRepoll      time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	TelegramToken   string
	AdminTelegramID int64

	CronSpecLoader string
	CronSpecWorker string
	Consortia      []int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	cfg.ReportsRoot = getEnv("REPORTS_ROOT", "./reports")

	if cfg.MaxRetries, err = getInt("MAX_HARVEST_RETRIES", 10); err != nil {
		return nil, err
	}
	if cfg.MaxRetries < 1 {
		return nil, errors.Newf("MAX_HARVEST_RETRIES must be positive, got %d", cfg.MaxRetries)
	}

	cfg.Release51Cutover = os.Getenv("RELEASE_51_CUTOVER")
	if cfg.Release51Cutover != "" {
		if _, err := time.Parse("2006-01", cfg.Release51Cutover); err != nil {
			return nil, errors.Wrap(err, "invalid RELEASE_51_CUTOVER")
		}
	}

	keyHex := os.Getenv("RAWFILE_KEY")
	if keyHex == "" {
		return nil, errors.New("RAWFILE_KEY is not set")
	}
	if cfg.RawFileKey, err = hex.DecodeString(keyHex); err != nil {
		return nil, errors.Wrap(err, "invalid RAWFILE_KEY")
	}
	if len(cfg.RawFileKey) != 32 {
		return nil, errors.Newf("RAWFILE_KEY must be 32 bytes, got %d", len(cfg.RawFileKey))
	}

	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MinRequestInterval, err = getDuration("MIN_REQUEST_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.PendingRepoll, err = getDuration("PENDING_REPOLL", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR") // Optional; catalog cache disabled when empty
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "harvest.ready")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN") // Optional; alerts disabled when empty
	if idStr := os.Getenv("ADMIN_TELEGRAM_ID"); idStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid ADMIN_TELEGRAM_ID")
		}
	}

	cfg.CronSpecLoader = getEnv("CRON_SPEC_LOADER", "0 1 * * *")    // Default: 01:00 daily
	cfg.CronSpecWorker = getEnv("CRON_SPEC_WORKER", "*/10 * * * *") // Default: every 10 minutes

	for _, s := range splitList(os.Getenv("CONSORTIA")) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid consortium id %q in CONSORTIA", s)
		}
		cfg.Consortia = append(cfg.Consortia, id)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
