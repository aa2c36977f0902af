package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/engagement-hub/internal/email"
	"github.com/jwalitptl/engagement-hub/internal/repository/cached"
	"github.com/jwalitptl/engagement-hub/internal/repository/postgres"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/messaging/redis"
	"github.com/jwalitptl/engagement-hub/pkg/worker"
)

// EnvPrefix prefixes every environment override, e.g. EVENTHUB_SERVER_PORT.
const EnvPrefix = "EVENTHUB"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ModeSync  = "sync"
	ModeQueue = "queue"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server" envconfig:"server"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"database"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"redis"`
	Dispatch      DispatchConfig      `mapstructure:"dispatch" envconfig:"dispatch"`
	Worker        WorkerConfig        `mapstructure:"worker" envconfig:"worker"`
	Retention     RetentionConfig     `mapstructure:"retention" envconfig:"retention"`
	SMTP          SMTPConfig          `mapstructure:"smtp" envconfig:"smtp"`
	JWT           JWTConfig           `mapstructure:"jwt" envconfig:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" envconfig:"rate_limit"`
	Log           LogConfig           `mapstructure:"log" envconfig:"log"`
	TemplateCache TemplateCacheConfig `mapstructure:"template_cache" envconfig:"template_cache"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"shutdown_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path" envconfig:"metrics_path"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" envconfig:"driver"`
	Host            string        `mapstructure:"host" envconfig:"host"`
	Port            int           `mapstructure:"port" envconfig:"port"`
	User            string        `mapstructure:"user" envconfig:"user"`
	Password        string        `mapstructure:"password" envconfig:"password"`
	Name            string        `mapstructure:"name" envconfig:"name"`
	SSLMode         string        `mapstructure:"sslmode" envconfig:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"url"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
}

type DispatchConfig struct {
	Mode            string `mapstructure:"mode" envconfig:"mode"`
	Queue           string `mapstructure:"queue" envconfig:"queue"`
	DeadLetterQueue string `mapstructure:"dead_letter_queue" envconfig:"dead_letter_queue"`
}

type WorkerConfig struct {
	Concurrency   int           `mapstructure:"concurrency" envconfig:"concurrency"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"retry_delay"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout" envconfig:"poll_timeout"`
	HealthPort    int           `mapstructure:"health_port" envconfig:"health_port"`
}

type RetentionConfig struct {
	EventTTL        time.Duration `mapstructure:"event_ttl" envconfig:"event_ttl"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl" envconfig:"notification_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" envconfig:"sweep_interval"`
}

type SMTPConfig struct {
	Host          string  `mapstructure:"host" envconfig:"host"`
	Port          int     `mapstructure:"port" envconfig:"port"`
	Username      string  `mapstructure:"username" envconfig:"username"`
	Password      string  `mapstructure:"password" envconfig:"password"`
	FromName      string  `mapstructure:"from_name" envconfig:"from_name"`
	FromEmail     string  `mapstructure:"from_email" envconfig:"from_email"`
	UseTLS        bool    `mapstructure:"use_tls" envconfig:"use_tls"`
	RatePerSecond float64 `mapstructure:"rate_per_second" envconfig:"rate_per_second"`
	Burst         int     `mapstructure:"burst" envconfig:"burst"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret" envconfig:"secret"`
	Issuer string        `mapstructure:"issuer" envconfig:"issuer"`
	TTL    time.Duration `mapstructure:"ttl" envconfig:"ttl"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"level"`
	JSON  bool   `mapstructure:"json" envconfig:"json"`
}

type TemplateCacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl" envconfig:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" envconfig:"cleanup_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("dispatch.mode", ModeSync)
	v.SetDefault("dispatch.queue", "eventhub:tasks")
	v.SetDefault("dispatch.dead_letter_queue", "eventhub:tasks:dead")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.retry_attempts", 3)
	v.SetDefault("worker.retry_delay", 2*time.Second)
	v.SetDefault("worker.poll_timeout", 5*time.Second)
	v.SetDefault("worker.health_port", 8081)

	v.SetDefault("retention.event_ttl", 72*time.Hour)
	v.SetDefault("retention.notification_ttl", 72*time.Hour)
	v.SetDefault("retention.sweep_interval", time.Hour)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.use_tls", true)
	v.SetDefault("smtp.rate_per_second", 5)
	v.SetDefault("smtp.burst", 10)

	v.SetDefault("jwt.issuer", "engagement-hub")
	v.SetDefault("jwt.ttl", time.Hour)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("log.level", "info")

	v.SetDefault("template_cache.ttl", 5*time.Minute)
	v.SetDefault("template_cache.cleanup_interval", 10*time.Minute)
}

// LoadConfig reads config.yml from the working directory, ./config or
// /app/config, or from the file named by CONFIG_FILE. A missing file is not
// an error; defaults and EVENTHUB_* variables still apply.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load reads the given file, or searches the default paths when file is
// empty, then applies environment overrides.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Dispatch.Mode = strings.ToLower(cfg.Dispatch.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q: want %s or %s", c.Database.Driver, DriverPostgres, DriverMemory)
	}
	switch c.Dispatch.Mode {
	case ModeSync:
	case ModeQueue:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when dispatch.mode is queue")
		}
		if c.Dispatch.Queue == "" || c.Dispatch.DeadLetterQueue == "" {
			return errors.New("dispatch.queue and dispatch.dead_letter_queue are required in queue mode")
		}
	default:
		return fmt.Errorf("invalid dispatch.mode %q: want %s or %s", c.Dispatch.Mode, ModeSync, ModeQueue)
	}
	if c.Retention.EventTTL <= 0 || c.Retention.NotificationTTL <= 0 {
		return errors.New("retention ttls must be positive")
	}
	if c.Retention.SweepInterval <= 0 {
		return errors.New("retention.sweep_interval must be positive")
	}
	return nil
}

func (c *DatabaseConfig) ToPostgresConfig() postgres.DatabaseConfig {
	return postgres.DatabaseConfig{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Name:            c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

// ToConsumerConfig merges the queue names with the worker pool settings.
func (c *Config) ToConsumerConfig() worker.TaskConsumerConfig {
	return worker.TaskConsumerConfig{
		Queue:           c.Dispatch.Queue,
		DeadLetterQueue: c.Dispatch.DeadLetterQueue,
		Concurrency:     c.Worker.Concurrency,
		RetryAttempts:   c.Worker.RetryAttempts,
		RetryDelay:      c.Worker.RetryDelay,
		PollTimeout:     c.Worker.PollTimeout,
	}
}

func (c *SMTPConfig) ToMailerConfig() email.Config {
	return email.Config{
		Host:          c.Host,
		Port:          c.Port,
		Username:      c.Username,
		Password:      c.Password,
		FromName:      c.FromName,
		FromEmail:     c.FromEmail,
		UseTLS:        c.UseTLS,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
	}
}

func (c *TemplateCacheConfig) ToCacheConfig() cached.TemplateConfig {
	return cached.TemplateConfig{
		CacheDuration:   c.TTL,
		CleanupInterval: c.CleanupInterval,
	}
}

func (c *LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.ParseLevel(c.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       c.JSON,
	}
}
