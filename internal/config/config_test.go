package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(naverClientIDEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scheduler.CronExpression != "0 2 * * *" || !cfg.Scheduler.RunOnStart {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Location().String() != "Asia/Seoul" {
		t.Fatalf("unexpected timezone %s", cfg.Scheduler.Location())
	}
	if len(cfg.Locations) != 12 || cfg.Locations[5] != "신림" {
		t.Fatalf("unexpected default locations %v", cfg.Locations)
	}
	if cfg.Pipeline.Mode != "latest" {
		t.Fatalf("latest must be the default mode, got %q", cfg.Pipeline.Mode)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  timezone: UTC
  runOnStart: false
pipeline:
  callTimeout: 5s
ocr:
  backend: http
  crop:
    enabled: false
locations: [신림, 강남]
`)
	t.Setenv(configPathEnv, path)
	t.Setenv(ocrEndpointEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scheduler.RunOnStart {
		t.Fatalf("file should turn runOnStart off")
	}
	if cfg.Scheduler.CronExpression != "0 2 * * *" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.Location() != time.UTC {
		t.Fatalf("unexpected location %v", cfg.Scheduler.Location())
	}
	if cfg.Pipeline.CallTimeout != 5*time.Second || cfg.Pipeline.Concurrency != 4 {
		t.Fatalf("unexpected pipeline config %+v", cfg.Pipeline)
	}
	if cfg.OCR.Backend != "http" || cfg.OCR.Crop.Enabled || cfg.OCR.Crop.TopRatio != 0.35 {
		t.Fatalf("unexpected ocr config %+v", cfg.OCR)
	}
	if strings.Join(cfg.Locations, ",") != "신림,강남" {
		t.Fatalf("unexpected locations %v", cfg.Locations)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDriverEnv, "postgres")
	t.Setenv(databaseDSNEnv, "postgres://u:p@db/status")
	t.Setenv(naverClientIDEnv, "id")
	t.Setenv(naverClientSecretEnv, "secret")
	t.Setenv(telegramTokenEnv, "token")
	t.Setenv(telegramChatIDEnv, "42")
	t.Setenv(logLevelEnv, "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://u:p@db/status" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Source.Naver.ClientID != "id" || cfg.Source.Naver.ClientSecret != "secret" {
		t.Fatalf("unexpected naver config %+v", cfg.Source.Naver)
	}
	if !cfg.Notifications.Telegram.Enabled() {
		t.Fatalf("telegram should be enabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing file")
	}

	t.Setenv(configPathEnv, writeConfig(t, "scheduler: [broken"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv(configPathEnv, writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := defaultConfig()
	valid.Source.Naver.ClientID = "id"
	valid.Source.Naver.ClientSecret = "secret"
	valid.Locations = []string{"신림"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"mode", func(c *Config) { c.Pipeline.Mode = "weekly" }},
		{"backend", func(c *Config) { c.OCR.Backend = "cloud" }},
		{"http endpoint", func(c *Config) { c.OCR.Backend = "http"; c.OCR.Endpoint = "" }},
		{"strategy", func(c *Config) { c.Source.Strategy = "scrape" }},
		{"rss url", func(c *Config) { c.Source.Strategy = "rss" }},
		{"credentials", func(c *Config) { c.Source.Naver.ClientSecret = "" }},
		{"no locations", func(c *Config) { c.Locations = nil }},
		{"bad location", func(c *Config) { c.Locations = []string{"../etc"} }},
		{"crop ratio", func(c *Config) { c.OCR.Crop.TopRatio = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			cfg.Locations = append([]string(nil), valid.Locations...)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
