package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type ServerConfig struct {
	Port                   string `mapstructure:"port"`
	ReadOnly               bool   `mapstructure:"read_only"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type UpstreamConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryWaitMinMs int    `mapstructure:"retry_wait_min_ms"`
	RetryWaitMaxMs int    `mapstructure:"retry_wait_max_ms"`
}

type CacheConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	Backend                string `mapstructure:"backend"` // memory | redis | leveldb
	TTLSeconds             int    `mapstructure:"ttl_seconds"`
	MaxEntries             int    `mapstructure:"max_entries"`
	LevelDBPath            string `mapstructure:"leveldb_path"`
	CleanupIntervalSeconds int    `mapstructure:"cleanup_interval_seconds"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	CachePrefix  string `mapstructure:"cache_prefix"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
}

type AuditConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SinkURL     string `mapstructure:"sink_url"`
	TimeoutMs   int    `mapstructure:"timeout_ms"`
	QueueSize   int    `mapstructure:"queue_size"`
	Workers     int    `mapstructure:"workers"`
	BufferSize  int    `mapstructure:"buffer_size"`
	DatabaseDSN string `mapstructure:"database_dsn"`
}

type IdentityConfig struct {
	// upstream: ask staffs/me for the display name. basic: decode a Basic credential locally.
	DisplayNameSource string `mapstructure:"display_name_source"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"` // 0 disables limiting
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. BLIPGATE_UPSTREAM_BASE_URL
	v.SetEnvPrefix("blipgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers every key so AutomaticEnv can override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5001")
	v.SetDefault("server.read_only", false)
	v.SetDefault("server.shutdown_timeout_seconds", 5)
	v.SetDefault("log.level", "info")

	v.SetDefault("upstream.base_url", "http://localhost:8000/")
	v.SetDefault("upstream.timeout_ms", 5000)
	v.SetDefault("upstream.max_attempts", 3)
	v.SetDefault("upstream.retry_wait_min_ms", 0)
	v.SetDefault("upstream.retry_wait_max_ms", 0)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.leveldb_path", "./data/cache")
	v.SetDefault("cache.cleanup_interval_seconds", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_prefix", "blipgate:cache:")
	v.SetDefault("redis.audit_list_key", "blipgate:audit")
	v.SetDefault("redis.audit_list_max", 10000)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.sink_url", "")
	v.SetDefault("audit.timeout_ms", 3000)
	v.SetDefault("audit.queue_size", 1000)
	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.database_dsn", "")

	v.SetDefault("identity.display_name_source", "upstream")

	v.SetDefault("rate_limit.qps", 0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("auth.admin_key", "")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("upstream.max_attempts must be at least 1, got %d", c.Upstream.MaxAttempts)
	}
	switch c.Cache.Backend {
	case "memory", "leveldb":
	case "redis":
		if c.Cache.Enabled && c.Redis.Addr == "" {
			return fmt.Errorf("cache.backend is redis but redis.addr is empty")
		}
	default:
		return fmt.Errorf("cache.backend must be memory, redis or leveldb, got %q", c.Cache.Backend)
	}
	switch c.Identity.DisplayNameSource {
	case "upstream", "basic":
	default:
		return fmt.Errorf("identity.display_name_source must be upstream or basic, got %q", c.Identity.DisplayNameSource)
	}
	return nil
}

// UpstreamBase returns the base URL with exactly one trailing slash.
func (c *Config) UpstreamBase() string {
	return strings.TrimRight(c.Upstream.BaseURL, "/") + "/"
}

func (c *Config) UpstreamTimeout() time.Duration {
	return millis(c.Upstream.TimeoutMs, 5*time.Second)
}

func (c *Config) AuditTimeout() time.Duration {
	return millis(c.Audit.TimeoutMs, 3*time.Second)
}

func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
