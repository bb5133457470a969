// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the subscription directory and delivery log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// VAPIDPublicKey is the base64url uncompressed P-256 public point (65 bytes decoded).
	VAPIDPublicKey string `mapstructure:"VAPID_PUBLIC_KEY"`
	// VAPIDPrivateKey is the base64url raw P-256 scalar (32 bytes decoded).
	VAPIDPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	// VAPIDSubject is the sender contact URI for the sub claim (e.g. mailto:ops@example.com).
	VAPIDSubject string `mapstructure:"VAPID_SUBJECT"`
	// DispatchConcurrency bounds parallel deliveries within one fan-out call (1-512).
	DispatchConcurrency int `mapstructure:"DISPATCH_CONCURRENCY"`
	// DispatchTimeout is the per-request timeout against push relays (e.g. "10s").
	DispatchTimeout string `mapstructure:"DISPATCH_TIMEOUT"`
	// DispatchMaxAttempts is how many times a transient delivery is tried (1-10).
	DispatchMaxAttempts int `mapstructure:"DISPATCH_MAX_ATTEMPTS"`
	// PushTTLSeconds is the TTL header sent to push relays.
	PushTTLSeconds int `mapstructure:"PUSH_TTL_SECONDS"`
	// OTLPEndpoint enables OTel export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Events (optional). When Kafka brokers are set, the server publishes a
	// delivery event per fan-out call.
	// KafkaBrokers is a comma-separated list of broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for delivery events.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("VAPID_PUBLIC_KEY", "")
	v.SetDefault("VAPID_PRIVATE_KEY", "")
	v.SetDefault("VAPID_SUBJECT", "")
	v.SetDefault("DISPATCH_CONCURRENCY", 32)
	v.SetDefault("DISPATCH_TIMEOUT", "10s")
	v.SetDefault("DISPATCH_MAX_ATTEMPTS", 3)
	v.SetDefault("PUSH_TTL_SECONDS", 86400)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "push-delivery-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "push-delivery-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.DispatchConcurrency == 0 {
		cfg.DispatchConcurrency = 32
	}
	if cfg.DispatchConcurrency < 1 || cfg.DispatchConcurrency > 512 {
		return nil, errors.New("config: DISPATCH_CONCURRENCY must be between 1 and 512")
	}

	if cfg.DispatchMaxAttempts == 0 {
		cfg.DispatchMaxAttempts = 3
	}
	if cfg.DispatchMaxAttempts < 1 || cfg.DispatchMaxAttempts > 10 {
		return nil, errors.New("config: DISPATCH_MAX_ATTEMPTS must be between 1 and 10")
	}

	if cfg.PushTTLSeconds < 0 {
		return nil, errors.New("config: PUSH_TTL_SECONDS must not be negative")
	}

	return &cfg, nil
}

// DispatchRequestTimeout parses DispatchTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) DispatchRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.DispatchTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if the event pipeline is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
