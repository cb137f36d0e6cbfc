package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
)

type Config struct {
	HTTPAddr          string        `env:"BACKEND_HTTP_ADDR" envDefault:":8081"`
	DataDir           string        `env:"BACKEND_DATA_DIR" envDefault:"/app/data"`
	DataDirPoll       time.Duration `env:"BACKEND_DATA_DIR_POLL_INTERVAL" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"BACKEND_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	HeartbeatSchedule string        `env:"BACKEND_HEARTBEAT_SCHEDULE" envDefault:"@every 1m"`
	ReadinessTimeout  time.Duration `env:"BACKEND_READINESS_TIMEOUT" envDefault:"2s"`
	MetricsEnabled    bool          `env:"BACKEND_METRICS_ENABLED" envDefault:"true"`
	Log               LogConfig
}

type LogConfig struct {
	Level  string `env:"BACKEND_LOG_LEVEL" envDefault:"info"`
	Format string `env:"BACKEND_LOG_FORMAT" envDefault:"json"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from the given environment map.
// A nil map means the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("BACKEND_HTTP_ADDR must not be empty"))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("BACKEND_DATA_DIR must not be empty"))
	}
	if c.DataDirPoll <= 0 {
		errs = append(errs, fmt.Errorf("BACKEND_DATA_DIR_POLL_INTERVAL must be positive, got %s", c.DataDirPoll))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("BACKEND_SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	if c.ReadinessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("BACKEND_READINESS_TIMEOUT must be positive, got %s", c.ReadinessTimeout))
	}
	if _, err := cron.ParseStandard(c.HeartbeatSchedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid BACKEND_HEARTBEAT_SCHEDULE %q: %w", c.HeartbeatSchedule, err))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid BACKEND_LOG_LEVEL %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid BACKEND_LOG_FORMAT %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
