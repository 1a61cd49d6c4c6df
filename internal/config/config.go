// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Render   RenderConfig   `mapstructure:"render"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	Verify   VerifyConfig   `mapstructure:"verify"`
	Store    StoreConfig    `mapstructure:"store"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Database DatabaseConfig `mapstructure:"database"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig locates the shared token compared against caller keys.
type AuthConfig struct {
	KeyFile string `mapstructure:"key_file"`
}

// RenderConfig points at the external page-render service.
type RenderConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	KeyFile          string `mapstructure:"key_file"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	JSTimeoutSeconds int    `mapstructure:"js_timeout_seconds"`
	WaitTimeout      int    `mapstructure:"wait_timeout"`
	AdditionalWait   int    `mapstructure:"additional_wait"`
	UserAgent        string `mapstructure:"user_agent"`
}

// HarvestConfig governs the harvesting phase.
type HarvestConfig struct {
	MaxPage       int      `mapstructure:"max_page"`
	Categories    []string `mapstructure:"categories"`
	SearchURL     string   `mapstructure:"search_url"`
	ItemDelayMs   int      `mapstructure:"item_delay_ms"`
	RetryAttempts int      `mapstructure:"retry_attempts"`
	RetryDelayMs  int      `mapstructure:"retry_delay_ms"`
}

// VerifyConfig governs the verification phase.
type VerifyConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	ExpectedFields   int `mapstructure:"expected_fields"`
	ItemDelayMs      int `mapstructure:"item_delay_ms"`
}

// StoreConfig locates the durable record table.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// DedupConfig bounds key-index staleness.
type DedupConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// LoopConfig controls controller recovery and housekeeping cadence.
type LoopConfig struct {
	CooldownSeconds        int `mapstructure:"cooldown_seconds"`
	RestartIntervalSeconds int `mapstructure:"restart_interval_seconds"`
}

// DatabaseConfig selects the optional Postgres checkpoint backend.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SnapshotConfig selects the optional GCS table snapshot sink.
type SnapshotConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("auth.key_file", "endpointkey.txt")
	v.SetDefault("render.base_url", "https://petfinder-scraper.onrender.com")
	v.SetDefault("render.key_file", "scrapingkey.txt")
	v.SetDefault("render.timeout_seconds", 60)
	v.SetDefault("render.js_timeout_seconds", 120)
	v.SetDefault("render.wait_timeout", 20)
	v.SetDefault("render.additional_wait", 5)
	v.SetDefault("render.user_agent", "pet-harvester/0.1")
	v.SetDefault("harvest.max_page", 10000)
	v.SetDefault("harvest.categories", []string{"dog", "cat"})
	v.SetDefault("harvest.search_url",
		"https://www.petfinder.com/search/%s-for-adoption/us/ny/newyork/?distance=anywhere&page=%d")
	v.SetDefault("harvest.item_delay_ms", 1000)
	v.SetDefault("harvest.retry_attempts", 3)
	v.SetDefault("harvest.retry_delay_ms", 5000)
	v.SetDefault("verify.failure_threshold", 3)
	v.SetDefault("verify.expected_fields", 15)
	v.SetDefault("verify.item_delay_ms", 500)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("dedup.ttl_seconds", 300)
	v.SetDefault("loop.cooldown_seconds", 60)
	v.SetDefault("loop.restart_interval_seconds", 3600)
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Harvest.MaxPage <= 0 {
		return fmt.Errorf("harvest.max_page must be > 0")
	}
	if len(c.Harvest.Categories) == 0 {
		return fmt.Errorf("harvest.categories must not be empty")
	}
	if c.Verify.FailureThreshold <= 0 {
		return fmt.Errorf("verify.failure_threshold must be > 0")
	}
	if c.Verify.ExpectedFields < c.Verify.FailureThreshold {
		return fmt.Errorf("verify.expected_fields must be >= verify.failure_threshold")
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Render.BaseURL == "" {
		return fmt.Errorf("render.base_url is required")
	}
	return nil
}

// ItemDelay returns the fixed pause between harvested items.
func (c HarvestConfig) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMs) * time.Millisecond
}

// RetryDelay returns the fixed pause between page-listing retries.
func (c HarvestConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ItemDelay returns the fixed pause between verified records.
func (c VerifyConfig) ItemDelay() time.Duration {
	return time.Duration(c.ItemDelayMs) * time.Millisecond
}

// TTL returns the dedup index staleness bound.
func (c DedupConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Cooldown returns the pause after an error escapes a phase.
func (c LoopConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// RestartInterval returns the housekeeping restart cadence.
func (c LoopConfig) RestartInterval() time.Duration {
	return time.Duration(c.RestartIntervalSeconds) * time.Second
}
