// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Source     SourceConfig     `mapstructure:"source"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the trigger endpoint.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

// SourceConfig configures access to the upstream video API.
type SourceConfig struct {
	APIKey              string `mapstructure:"api_key"`
	PageSize            int    `mapstructure:"page_size"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"`
	PaceIntervalMs      int    `mapstructure:"pace_interval_ms"`
}

// CollectorConfig governs which feeds a run walks.
type CollectorConfig struct {
	Regions          []string `mapstructure:"regions"`
	CategoryTTLHours int      `mapstructure:"category_ttl_hours"`
}

// ThresholdsConfig sets the views-per-hour bucket boundaries per form.
type ThresholdsConfig struct {
	LongViral   float64 `mapstructure:"long_viral"`
	LongStable  float64 `mapstructure:"long_stable"`
	ShortViral  float64 `mapstructure:"short_viral"`
	ShortStable float64 `mapstructure:"short_stable"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory stores.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	MaxConns            int32  `mapstructure:"max_conns"`
	MinConns            int32  `mapstructure:"min_conns"`
	ConnLifetimeMinutes int    `mapstructure:"conn_lifetime_minutes"`
}

// PubSubConfig holds metadata for run event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// StorageConfig sets the bucket for raw payload snapshots.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.page_size", 50)
	v.SetDefault("source.fetch_timeout_seconds", 30)
	v.SetDefault("source.pace_interval_ms", 100)
	v.SetDefault("collector.regions", []string{"US", "CA", "GB", "AU", "DE", "CH"})
	v.SetDefault("collector.category_ttl_hours", 24)
	v.SetDefault("thresholds.long_viral", 50000)
	v.SetDefault("thresholds.long_stable", 10000)
	v.SetDefault("thresholds.short_viral", 100000)
	v.SetDefault("thresholds.short_stable", 25000)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.prefix", "runs")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Collector.Regions) == 0 {
		return fmt.Errorf("collector.regions must not be empty")
	}
	if c.Source.PageSize <= 0 || c.Source.PageSize > 50 {
		return fmt.Errorf("source.page_size must be in 1..50")
	}
	if c.Source.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("source.fetch_timeout_seconds must be > 0")
	}
	if c.Collector.CategoryTTLHours <= 0 {
		return fmt.Errorf("collector.category_ttl_hours must be > 0")
	}
	if c.Thresholds.LongViral <= c.Thresholds.LongStable {
		return fmt.Errorf("thresholds.long_viral must exceed thresholds.long_stable")
	}
	if c.Thresholds.ShortViral <= c.Thresholds.ShortStable {
		return fmt.Errorf("thresholds.short_viral must exceed thresholds.short_stable")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret must be set when auth is enabled")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Storage.Enabled && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage is enabled")
	}
	return nil
}

// FetchTimeout converts the source timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.FetchTimeoutSeconds) * time.Second
}

// PaceInterval converts the pacing knob into a duration. Zero disables
// pacing.
func (c Config) PaceInterval() time.Duration {
	return time.Duration(c.Source.PaceIntervalMs) * time.Millisecond
}

// CategoryTTL converts the category cache TTL into a duration.
func (c Config) CategoryTTL() time.Duration {
	return time.Duration(c.Collector.CategoryTTLHours) * time.Hour
}

// ConnLifetime converts the pool lifetime knob into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetimeMinutes) * time.Minute
}
