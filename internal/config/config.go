package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Reading and alert store.
	DBPath            string
	RetentionPeriod   time.Duration
	RetentionSchedule string

	// DashboardWindow is the default number of readings assessed by the risk endpoint.
	DashboardWindow int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	retentionPeriod, err := parseRetentionPeriod()
	if err != nil {
		return nil, err
	}

	window, err := parseDashboardWindow()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "glof-sensor-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "glof-risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "glof-risk-service"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DBPath:            sharedcfg.EnvOrDefault("DB_PATH", "data/glof.db"),
		RetentionPeriod:   retentionPeriod,
		RetentionSchedule: sharedcfg.EnvOrDefault("RETENTION_SCHEDULE", "@daily"),

		DashboardWindow: window,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// parseRetentionPeriod reads RETENTION_PERIOD. Default: 720h (30 days).
func parseRetentionPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault("RETENTION_PERIOD", "720h"))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid RETENTION_PERIOD: must be a positive duration")
	}
	return d, nil
}

// parseDashboardWindow reads DASHBOARD_WINDOW. Default: 3. Range: 1-30.
func parseDashboardWindow() (int, error) {
	s := os.Getenv("DASHBOARD_WINDOW")
	if s == "" {
		return 3, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 30 {
		return 0, fmt.Errorf("invalid DASHBOARD_WINDOW: must be 1-30, got %q", s)
	}
	return n, nil
}
