// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV overrides like DATABASE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay (config.development.yaml etc.), ignored
	// when absent.
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the usual locations so credentials stay out of
// the YAML files. Missing files are fine.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	for _, p := range possiblePaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "triage-manager"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "kb_articles"
	}
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 30000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 1024
	}
	if cfg.APIs.Samsara.Timeout == 0 {
		cfg.APIs.Samsara.Timeout = 10000
	}
	if cfg.Workflow.MaxRevisions == 0 {
		cfg.Workflow.MaxRevisions = 3
	}
	if cfg.Workflow.MaxConcurrency == 0 {
		cfg.Workflow.MaxConcurrency = 8
	}
	if cfg.Workflow.TopK == 0 {
		cfg.Workflow.TopK = 3
	}
	if cfg.Workflow.MinScore == 0 {
		cfg.Workflow.MinScore = 0.3
	}
	if cfg.Workflow.MinToneScore == 0 {
		cfg.Workflow.MinToneScore = 0.6
	}
	if cfg.Workflow.MinDraftLength == 0 {
		cfg.Workflow.MinDraftLength = 120
	}
	if cfg.Workflow.MaxDraftLength == 0 {
		cfg.Workflow.MaxDraftLength = 4000
	}
	if cfg.Workflow.DedupeTTLHours == 0 {
		cfg.Workflow.DedupeTTLHours = 72
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "triage.results"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.APIs.GenAI.BaseURL == "" {
		return fmt.Errorf("apis.genai.base_url is required")
	}
	if cfg.Workflow.MaxRevisions < 1 {
		return fmt.Errorf("workflow.max_revisions must be >= 1")
	}
	if cfg.Workflow.MinScore < 0 || cfg.Workflow.MinScore > 1 {
		return fmt.Errorf("workflow.min_score must be within [0,1]")
	}
	if cfg.Events.Enabled && len(cfg.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events are enabled")
	}
	return nil
}
