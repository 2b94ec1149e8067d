// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct. It is passed
// explicitly into the orchestrator and connectors at construction; nothing
// reads ambient global state, so concurrent runs with different tunings are
// safe.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	APIs          APIsConfig          `mapstructure:"apis"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Events        EventsConfig        `mapstructure:"events"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ObservabilityConfig holds the trace exporter settings. An empty endpoint
// disables span export.
type ObservabilityConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the HTTP ingestion endpoint settings.
type ServerConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	// Index holds the pre-built knowledge-base index name.
	Index string `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIsConfig holds settings for the external completion and fleet-data
// services.
type APIsConfig struct {
	GenAI struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxRetries  int     `mapstructure:"max_retries"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"genai"`

	Samsara struct {
		BaseURL  string `mapstructure:"base_url"`
		APIToken string `mapstructure:"api_token"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"samsara"`
}

// WorkflowConfig tunes the per-message decision workflow.
type WorkflowConfig struct {
	// MaxRevisions bounds the revise-on-reject loop.
	MaxRevisions int `mapstructure:"max_revisions"`
	// MaxConcurrency bounds parallel runs, primarily to respect completion
	// service rate limits.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// TopK passages requested per retrieval query.
	TopK int `mapstructure:"top_k"`
	// MinScore excludes low-relevance passages.
	MinScore float64 `mapstructure:"min_score"`
	// MinToneScore is the gate's accept floor for the tone review.
	MinToneScore float64 `mapstructure:"min_tone_score"`
	// MinDraftLength / MaxDraftLength bound structural completeness checks.
	MinDraftLength int `mapstructure:"min_draft_length"`
	MaxDraftLength int `mapstructure:"max_draft_length"`
	// DedupeTTLHours keeps processed-message marks long enough to cover the
	// mailbox poller's retry horizon.
	DedupeTTLHours int `mapstructure:"dedupe_ttl_hours"`
}

// EventsConfig holds the result event stream settings.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// NotificationConfig holds the escalation notifier settings.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool   `mapstructure:"enabled"`
		ToPhone string `mapstructure:"to_phone"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
