package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`
	// metrics server
	MetricsHost string `toml:"metrics_host"`
	MetricsPort string `toml:"metrics_port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// storage
	Storage        string `toml:"storage"` // postgres | sqlite | memory
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	SqlitePath     string `toml:"sqlite_path"`
	RunMigrations  bool   `toml:"run_migrations"`
	// redis
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`
	KVCacheSizeMB  int    `toml:"kv_cache_size_mb"`
	KVCacheTTLSecs int    `toml:"kv_cache_ttl_secs"`
	// workout engine
	DefaultRestSecs            int      `toml:"default_rest_secs"`
	WriteDebounceMillis        int      `toml:"write_debounce_millis"`
	OrphanSessionAfterHours    int      `toml:"orphan_session_after_hours"`
	OrphanSessionEstimateHours int      `toml:"orphan_session_estimate_hours"`
	NotificationPollMillis     int      `toml:"notification_poll_millis"`
	NotificationWebhookURL     string   `toml:"notification_webhook_url"`
	RateLimitRequestsPerMinute int      `toml:"rate_limit_requests_per_minute"`
	AllowedOrigins             []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load decodes the TOML file at path and returns the section for env with
// defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for in-memory TOML.
func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] missing", env)
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "2112"
	}
	if c.Storage == "" {
		c.Storage = "postgres"
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = "gymsession"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
	if c.KVCacheSizeMB == 0 {
		c.KVCacheSizeMB = 8
	}
	if c.KVCacheTTLSecs == 0 {
		c.KVCacheTTLSecs = 600
	}
	if c.DefaultRestSecs == 0 {
		c.DefaultRestSecs = 90
	}
	if c.WriteDebounceMillis == 0 {
		c.WriteDebounceMillis = 1000
	}
	if c.OrphanSessionAfterHours == 0 {
		c.OrphanSessionAfterHours = 6
	}
	if c.OrphanSessionEstimateHours == 0 {
		c.OrphanSessionEstimateHours = 3
	}
	if c.NotificationPollMillis == 0 {
		c.NotificationPollMillis = 500
	}
	if c.RateLimitRequestsPerMinute == 0 {
		c.RateLimitRequestsPerMinute = 300
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case "postgres":
		if c.PostgresHost == "" {
			return errors.New("postgres_host is required for postgres storage")
		}
	case "sqlite":
		if c.SqlitePath == "" {
			return errors.New("sqlite_path is required for sqlite storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage [%s]", c.Storage)
	}
	if c.OrphanSessionEstimateHours > c.OrphanSessionAfterHours {
		return errors.New("orphan_session_estimate_hours must not exceed orphan_session_after_hours")
	}
	if c.DefaultRestSecs < 0 || c.WriteDebounceMillis < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

func (c *Config) DefaultRest() time.Duration {
	return time.Duration(c.DefaultRestSecs) * time.Second
}

func (c *Config) WriteDebounce() time.Duration {
	return time.Duration(c.WriteDebounceMillis) * time.Millisecond
}

func (c *Config) NotificationPollInterval() time.Duration {
	return time.Duration(c.NotificationPollMillis) * time.Millisecond
}

func (c *Config) OrphanStaleAfter() time.Duration {
	return time.Duration(c.OrphanSessionAfterHours) * time.Hour
}

func (c *Config) OrphanEstimatedDuration() time.Duration {
	return time.Duration(c.OrphanSessionEstimateHours) * time.Hour
}
