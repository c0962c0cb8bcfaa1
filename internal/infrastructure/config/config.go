package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Cache     CacheConfig
	Stream    StreamConfig
	Connector ConnectorConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. An empty host selects the
// in-memory snapshot cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// SyncConfig holds the sync orchestrator and scheduler settings
type SyncConfig struct {
	SchedulerEnabled bool
	Interval         time.Duration
	HistoryKeep      int
	ShutdownTimeout  time.Duration
}

// CacheConfig holds snapshot cache settings
type CacheConfig struct {
	TTL       time.Duration
	Retention time.Duration
	// InMemoryFallback keeps the service up when Redis is unreachable at
	// startup. Disable for multi-instance deployments.
	InMemoryFallback bool
}

// StreamConfig holds SSE gateway settings
type StreamConfig struct {
	Heartbeat  time.Duration
	MaxClients int
	// DebounceWindow is the trailing collapse window per tenant+event type
	DebounceWindow time.Duration
}

// ConnectorConfig holds the shared vendor HTTP client settings
type ConnectorConfig struct {
	Timeout           time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier int
	// OrderWindowDays bounds the Amazon order fetch lookback
	OrderWindowDays int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CAPLIQUIFY_ prefix (e.g., CAPLIQUIFY_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CAPLIQUIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			SchedulerEnabled: v.GetBool("sync.scheduler_enabled"),
			Interval:         v.GetDuration("sync.interval"),
			HistoryKeep:      v.GetInt("sync.history_keep"),
			ShutdownTimeout:  v.GetDuration("sync.shutdown_timeout"),
		},
		Cache: CacheConfig{
			TTL:              v.GetDuration("cache.ttl"),
			Retention:        v.GetDuration("cache.retention"),
			InMemoryFallback: v.GetBool("cache.in_memory_fallback"),
		},
		Stream: StreamConfig{
			Heartbeat:      v.GetDuration("stream.heartbeat"),
			MaxClients:     v.GetInt("stream.max_clients"),
			DebounceWindow: v.GetDuration("stream.debounce_window"),
		},
		Connector: ConnectorConfig{
			Timeout:           v.GetDuration("connector.timeout"),
			MaxAttempts:       v.GetInt("connector.max_attempts"),
			BackoffBase:       v.GetDuration("connector.backoff_base"),
			BackoffMultiplier: v.GetInt("connector.backoff_multiplier"),
			OrderWindowDays:   v.GetInt("connector.order_window_days"),
		},
	}

	// viper's GetBool default is false; the scheduler is on unless the key
	// explicitly disables it.
	if !v.IsSet("sync.scheduler_enabled") {
		cfg.Sync.SchedulerEnabled = true
	}
	if !v.IsSet("cache.in_memory_fallback") {
		cfg.Cache.InMemoryFallback = true
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "capliquify-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "capliquify"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// SSE responses stay open; the write timeout must not cut streams
		cfg.HTTP.WriteTimeout = 0
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 15 * time.Minute
	}
	if cfg.Sync.HistoryKeep == 0 {
		cfg.Sync.HistoryKeep = 50
	}
	if cfg.Sync.ShutdownTimeout == 0 {
		cfg.Sync.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 20 * time.Minute
	}
	if cfg.Cache.Retention == 0 {
		cfg.Cache.Retention = 7 * 24 * time.Hour
	}
	if cfg.Stream.Heartbeat == 0 {
		cfg.Stream.Heartbeat = 30 * time.Second
	}
	if cfg.Stream.MaxClients == 0 {
		cfg.Stream.MaxClients = 10000
	}
	if cfg.Stream.DebounceWindow == 0 {
		cfg.Stream.DebounceWindow = 2 * time.Second
	}
	if cfg.Connector.Timeout == 0 {
		cfg.Connector.Timeout = 10 * time.Second
	}
	if cfg.Connector.MaxAttempts == 0 {
		cfg.Connector.MaxAttempts = 4
	}
	if cfg.Connector.BackoffBase == 0 {
		cfg.Connector.BackoffBase = time.Second
	}
	if cfg.Connector.BackoffMultiplier == 0 {
		cfg.Connector.BackoffMultiplier = 4
	}
	if cfg.Connector.OrderWindowDays == 0 {
		cfg.Connector.OrderWindowDays = 30
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync.interval must be at least 1 minute, got %v", c.Sync.Interval)
	}
	if c.Cache.TTL >= c.Cache.Retention {
		return fmt.Errorf("cache.ttl (%v) must be shorter than cache.retention (%v)",
			c.Cache.TTL, c.Cache.Retention)
	}
	if c.Connector.MaxAttempts < 1 {
		return fmt.Errorf("connector.max_attempts must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
