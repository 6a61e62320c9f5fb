package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Initial board state and sampling policy.
	SampleCount     int
	MinHead         float64
	StartCd         float64
	StartCrestWidth float64
	StartMaxHead    float64

	// Evaluation history.
	DBPath           string
	HistoryRetention time.Duration
	SweepSchedule    string

	// Optional Kafka telemetry sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Optional Telegram chat interface.
	TelegramToken   string
	TelegramEnabled bool

	// Public API rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	sampleCount, err := parseInt("SAMPLE_COUNT", 300)
	if err != nil {
		return nil, err
	}

	minHead, err := parseFloat("MIN_HEAD", 0.01)
	if err != nil {
		return nil, err
	}
	startCd, err := parseFloat("START_CD", 0.6)
	if err != nil {
		return nil, err
	}
	startWidth, err := parseFloat("START_CREST_WIDTH", 2.0)
	if err != nil {
		return nil, err
	}
	startMaxHead, err := parseFloat("START_MAX_HEAD", 1.0)
	if err != nil {
		return nil, err
	}

	retention, err := parseDuration("HISTORY_RETENTION", "720h")
	if err != nil {
		return nil, err
	}

	rps, err := parseFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := parseInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}

	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	telegramEnabled := telegramToken != ""
	if v := os.Getenv("TELEGRAM_ENABLED"); v != "" {
		telegramEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SampleCount:     sampleCount,
		MinHead:         minHead,
		StartCd:         startCd,
		StartCrestWidth: startWidth,
		StartMaxHead:    startMaxHead,

		DBPath:           envOrDefault("DB_PATH", "data/weirlab.db"),
		HistoryRetention: retention,
		SweepSchedule:    envOrDefault("SWEEP_SCHEDULE", "0 * * * *"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "weir-evaluations"),

		TelegramToken:   telegramToken,
		TelegramEnabled: telegramEnabled,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}

	if cfg.SampleCount < 2 {
		return nil, errors.New("SAMPLE_COUNT must be at least 2")
	}
	if cfg.MinHead <= 0 {
		return nil, errors.New("MIN_HEAD must be positive")
	}
	if cfg.StartCd <= 0 || cfg.StartCrestWidth <= 0 || cfg.StartMaxHead <= 0 {
		return nil, errors.New("START_CD, START_CREST_WIDTH, and START_MAX_HEAD must be positive")
	}
	if cfg.MinHead >= cfg.StartMaxHead {
		return nil, errors.New("MIN_HEAD must be below START_MAX_HEAD")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.SweepSchedule == "" {
		return nil, errors.New("SWEEP_SCHEDULE is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}
	if cfg.TelegramEnabled && cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_ENABLED is true but TELEGRAM_TOKEN is not set")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
