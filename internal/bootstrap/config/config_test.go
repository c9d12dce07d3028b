package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  name: privflow-test
database:
  dsn: /tmp/privflow-test.sqlite
escalation:
  warning_days: 3
  escalation_days: 10
notification:
  driver: nats
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PF_ESCALATION_MAX_LEVEL", "5")
	t.Setenv("PF_WORKFLOW_AUTO_APPROVE_CORE", "true")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "privflow-test" || cfg.Escalation.WarningDays != 3 || cfg.Escalation.EscalationDays != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Escalation.MaxLevel != 5 || !cfg.Workflow.AutoApproveCore {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Escalation.SweepWorkers != 4 || cfg.Notification.SubjectPrefix != "privflow.notify" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Database:     DatabaseConfig{DSN: "x.sqlite"},
		Escalation:   EscalationConfig{WarningDays: 7, EscalationDays: 14, MaxLevel: 3, SweepWorkers: 2},
		Notification: NotificationConfig{Driver: "log"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "dsn", mutate: func(c *Config) { c.Database.DSN = "" }, want: "database.dsn"},
		{name: "order", mutate: func(c *Config) { c.Escalation.WarningDays = 14 }, want: "must be below"},
		{name: "max level", mutate: func(c *Config) { c.Escalation.MaxLevel = 0 }, want: "max_level"},
		{name: "driver", mutate: func(c *Config) { c.Notification.Driver = "smtp" }, want: "notification.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
