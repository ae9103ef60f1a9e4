// Package config centralises configuration parsing for the activities API and
// the roster audit consumer.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress       string        `env:"HTTP_ADDRESS"          envDefault:":8000"`
	StaticDir         string        `env:"STATIC_DIR"            envDefault:"static"`
	CORSAllowedOrigin string        `env:"CORS_ALLOWED_ORIGIN"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"15s"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS"         envSeparator:","`
	RosterTopic       string        `env:"ROSTER_TOPIC"          envDefault:"roster_events"`
	SchemaRegistryURL string        `env:"SCHEMA_REGISTRY_URL"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT"          envDefault:"5s"`
	OutboxBufferSize  int           `env:"OUTBOX_BUFFER_SIZE"    envDefault:"256"`
	OutboxBatchSize   int           `env:"OUTBOX_BATCH_SIZE"     envDefault:"25"`
	OutboxFlushEvery  time.Duration `env:"OUTBOX_FLUSH_INTERVAL" envDefault:"1s"`
	ConsumerGroup     string        `env:"CONSUMER_GROUP_ID"     envDefault:"roster-audit"`
	ConsumerAttempts  int           `env:"CONSUMER_MAX_ATTEMPTS" envDefault:"5"`
	ConsumerBackoff   time.Duration `env:"CONSUMER_RETRY_BACKOFF" envDefault:"200ms"`
	MetricsAddress    string        `env:"METRICS_ADDRESS"       envDefault:":9196"`
}

// Defaults returns the configuration used when no environment overrides apply.
func Defaults() Config {
	return Config{
		HTTPAddress:      ":8000",
		StaticDir:        "static",
		ShutdownTimeout:  15 * time.Second,
		RosterTopic:      "roster_events",
		HTTPTimeout:      5 * time.Second,
		OutboxBufferSize: 256,
		OutboxBatchSize:  25,
		OutboxFlushEvery: time.Second,
		ConsumerGroup:    "roster-audit",
		ConsumerAttempts: 5,
		ConsumerBackoff:  200 * time.Millisecond,
		MetricsAddress:   ":9196",
	}
}

// Load reads environment variables into Config. Any malformed value is an
// error naming the offending field; nothing falls back silently.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	return cfg, nil
}

// EventsEnabled reports whether roster events should be published.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
