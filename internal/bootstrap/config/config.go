package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"privflow/internal/bootstrap/logging"
	"privflow/internal/errs"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Escalation   EscalationConfig   `mapstructure:"escalation"`
	Notification NotificationConfig `mapstructure:"notification"`
	HTTP         HTTPConfig         `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type WorkflowConfig struct {
	// AutoApproveCore approves all-core requests at submission instead of
	// rejecting them as invalid.
	AutoApproveCore bool `mapstructure:"auto_approve_core"`
}

type EscalationConfig struct {
	WarningDays    int `mapstructure:"warning_days"`
	EscalationDays int `mapstructure:"escalation_days"`
	MaxLevel       int `mapstructure:"max_level"`
	SweepWorkers   int `mapstructure:"sweep_workers"`
}

type NotificationConfig struct {
	Driver        string `mapstructure:"driver"`
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("PF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("notification_driver", cfg.Notification.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	e := c.Escalation
	if e.WarningDays <= 0 || e.EscalationDays <= 0 {
		return errors.New("escalation.warning_days and escalation.escalation_days must be positive")
	}
	if e.WarningDays >= e.EscalationDays {
		return fmt.Errorf("escalation.warning_days (%d) must be below escalation.escalation_days (%d)", e.WarningDays, e.EscalationDays)
	}
	if e.MaxLevel <= 0 {
		return errors.New("escalation.max_level must be positive")
	}
	if e.SweepWorkers <= 0 {
		return errors.New("escalation.sweep_workers must be positive")
	}
	switch strings.ToLower(c.Notification.Driver) {
	case "log", "nats":
	default:
		return fmt.Errorf("unsupported notification.driver %q", c.Notification.Driver)
	}
	return nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "privflow")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".privflow/state/privflow.sqlite")
	v.SetDefault("workflow.auto_approve_core", false)
	v.SetDefault("escalation.warning_days", 7)
	v.SetDefault("escalation.escalation_days", 14)
	v.SetDefault("escalation.max_level", 3)
	v.SetDefault("escalation.sweep_workers", 4)
	v.SetDefault("notification.driver", "log")
	v.SetDefault("notification.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("notification.subject_prefix", "privflow.notify")
	v.SetDefault("http.addr", ":8080")
}
