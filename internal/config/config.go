package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// QueueConfig configures the job worker.
type QueueConfig struct {
	MaxRetries         int           `yaml:"max_retries" mapstructure:"max_retries"`
	PollInterval       time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	Budget             time.Duration `yaml:"budget" mapstructure:"budget"`
	Lease              time.Duration `yaml:"lease" mapstructure:"lease"`
	MaxBackoff         time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	ProfileConcurrency int           `yaml:"profile_concurrency" mapstructure:"profile_concurrency"`
}

// BatchConfig configures the batch runner.
type BatchConfig struct {
	OrgConcurrency int `yaml:"org_concurrency" mapstructure:"org_concurrency"`
}

// EventsConfig selects the lifecycle event backends.
type EventsConfig struct {
	Backends         []string      `yaml:"backends" mapstructure:"backends"`
	RedisAddr        string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword    string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB          int           `yaml:"redis_db" mapstructure:"redis_db"`
	NATSURL          string        `yaml:"nats_url" mapstructure:"nats_url"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// MonitoringConfig configures queue health alerting.
type MonitoringConfig struct {
	WebhookURL          string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	DeadLetterThreshold int64         `yaml:"dead_letter_threshold" mapstructure:"dead_letter_threshold"`
	MaxPendingAge       time.Duration `yaml:"max_pending_age" mapstructure:"max_pending_age"`
	CheckInterval       time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
}

var (
	validDrivers  = map[string]bool{"postgres": true, "sqlite": true}
	validBackends = map[string]bool{"postgres": true, "redis": true, "nats": true, "none": true}
)

// Load reads configuration from an optional .env file, an optional
// config.yaml and DOFFIN_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOFFIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.poll_interval", "2s")
	v.SetDefault("queue.budget", "50s")
	v.SetDefault("queue.lease", "2m")
	v.SetDefault("queue.max_backoff", "1h")
	v.SetDefault("queue.profile_concurrency", 4)
	v.SetDefault("batch.org_concurrency", 2)
	v.SetDefault("events.backends", []string{"postgres"})
	v.SetDefault("events.redis_addr", "localhost:6379")
	v.SetDefault("events.redis_password", "")
	v.SetDefault("events.redis_db", 0)
	v.SetDefault("events.nats_url", "nats://localhost:4222")
	v.SetDefault("events.failure_threshold", 5)
	v.SetDefault("events.reset_timeout", "30s")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.dead_letter_threshold", 0)
	v.SetDefault("monitoring.max_pending_age", "15m")
	v.SetDefault("monitoring.check_interval", "5m")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode and reports
// every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	if !validDrivers[c.Store.Driver] {
		errs = append(errs, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "migrate", "seed", "enqueue", "jobs":
	case "evaluate":
		if c.Batch.OrgConcurrency < 1 || c.Batch.OrgConcurrency > 32 {
			errs = append(errs, "batch.org_concurrency must be between 1 and 32")
		}
	case "worker", "serve":
		errs = append(errs, c.validateQueue()...)
		errs = append(errs, c.validateEvents()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "monitor":
		if c.Monitoring.MaxPendingAge <= 0 {
			errs = append(errs, "monitoring.max_pending_age must be positive")
		}
		if c.Monitoring.DeadLetterThreshold < 0 {
			errs = append(errs, "monitoring.dead_letter_threshold must be >= 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateQueue() []string {
	var errs []string
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, "queue.max_retries must be >= 0")
	}
	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"queue.poll_interval", c.Queue.PollInterval},
		{"queue.budget", c.Queue.Budget},
		{"queue.lease", c.Queue.Lease},
		{"queue.max_backoff", c.Queue.MaxBackoff},
	} {
		if d.val <= 0 {
			errs = append(errs, d.name+" must be positive")
		}
	}
	if c.Queue.ProfileConcurrency < 1 {
		errs = append(errs, "queue.profile_concurrency must be >= 1")
	}
	return errs
}

func (c *Config) validateEvents() []string {
	var errs []string
	for _, b := range c.Events.Backends {
		if !validBackends[b] {
			errs = append(errs, fmt.Sprintf("unknown events backend %q", b))
			continue
		}
		if b == "postgres" && c.Store.Driver != "postgres" {
			errs = append(errs, "events backend postgres requires store.driver postgres")
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
