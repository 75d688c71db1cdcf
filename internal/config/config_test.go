package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE",
	"TEMPO_PROFILE", "TEMPO_SPEED", "TEMPO_CLOCK", "TEMPO_LOG_LEVEL", "TEMPO_METRICS_LISTEN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfigWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadConfigWithDefaults()

	if cfg.Timeline.Profile != "once" {
		t.Errorf("expected profile 'once', got %q", cfg.Timeline.Profile)
	}
	if cfg.Driver.Clock != "real" {
		t.Errorf("expected clock 'real', got %q", cfg.Driver.Clock)
	}
	if cfg.Driver.TickInterval.Std() != 16*time.Millisecond {
		t.Errorf("expected tick interval 16ms, got %v", cfg.Driver.TickInterval)
	}
	if cfg.Driver.TimeScale != 1 {
		t.Errorf("expected time scale 1, got %v", cfg.Driver.TimeScale)
	}
	if cfg.Output.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Output.Format)
	}
	if cfg.Database.Enabled {
		t.Error("expected database to be disabled by default")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("expected port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("expected info/text logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadConfigValidYAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.yaml", `
timeline:
  profile: pingpong
  duration: 2.5
  iterations: .inf
  speed: -0.5
  persist: true
  events: script.yaml

driver:
  clock: simulated
  tick_interval: 10ms
  time_scale: 4
  max_run_time: 30s

output:
  report: out.json
  trace: trace.csv
  format: json

database:
  enabled: true
  host: testhost
  port: 5433
  user: testuser
  dbname: testdb

metrics:
  listen: ":9102"

log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Timeline.Profile != "pingpong" {
		t.Errorf("expected profile 'pingpong', got %q", cfg.Timeline.Profile)
	}
	if cfg.Timeline.Duration != 2.5 {
		t.Errorf("expected duration 2.5, got %v", cfg.Timeline.Duration)
	}
	if !math.IsInf(cfg.Timeline.Iterations, 1) {
		t.Errorf("expected infinite iterations, got %v", cfg.Timeline.Iterations)
	}
	if cfg.Timeline.Speed == nil || *cfg.Timeline.Speed != -0.5 {
		t.Errorf("expected speed -0.5, got %v", cfg.Timeline.Speed)
	}
	if cfg.Timeline.Persist == nil || !*cfg.Timeline.Persist {
		t.Error("expected persist true")
	}
	if cfg.Timeline.Pingpong != nil {
		t.Error("expected pingpong to stay unset")
	}
	if cfg.Driver.TickInterval.Std() != 10*time.Millisecond {
		t.Errorf("expected tick interval 10ms, got %v", cfg.Driver.TickInterval)
	}
	if cfg.Driver.MaxRunTime.Std() != 30*time.Second {
		t.Errorf("expected max run time 30s, got %v", cfg.Driver.MaxRunTime)
	}
	if cfg.Database.Port != 5433 || !cfg.Database.Enabled {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Metrics.Listen != ":9102" {
		t.Errorf("expected metrics listen ':9102', got %q", cfg.Metrics.Listen)
	}
}

func TestLoadConfigValidTOML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.toml", `
[timeline]
profile = "loop"
iterations = 3.0

[driver]
clock = "manual"
tick_interval = "20ms"
time_scale = 1.0

[log]
level = "warn"
format = "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timeline.Profile != "loop" || cfg.Timeline.Iterations != 3 {
		t.Errorf("unexpected timeline config %+v", cfg.Timeline)
	}
	if cfg.Driver.Clock != "manual" {
		t.Errorf("expected manual clock, got %q", cfg.Driver.Clock)
	}
	if cfg.Driver.TickInterval.Std() != 20*time.Millisecond {
		t.Errorf("expected 20ms tick interval, got %v", cfg.Driver.TickInterval)
	}
	// Untouched sections keep their defaults.
	if cfg.Output.Format != "console" {
		t.Errorf("expected default format, got %q", cfg.Output.Format)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEMPO_PROFILE", "boomerang")
	t.Setenv("TEMPO_SPEED", "2")
	t.Setenv("TEMPO_CLOCK", "simulated")
	t.Setenv("PGHOST", "envhost")
	t.Setenv("PGPORT", "5434")

	cfg := LoadConfigWithDefaults()

	if cfg.Timeline.Profile != "boomerang" {
		t.Errorf("expected profile 'boomerang', got %q", cfg.Timeline.Profile)
	}
	if cfg.Timeline.Speed == nil || *cfg.Timeline.Speed != 2 {
		t.Errorf("expected speed 2, got %v", cfg.Timeline.Speed)
	}
	if cfg.Driver.Clock != "simulated" {
		t.Errorf("expected clock 'simulated', got %q", cfg.Driver.Clock)
	}
	if cfg.Database.Host != "envhost" || cfg.Database.Port != 5434 {
		t.Errorf("expected envhost:5434, got %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, ".env", "TEMPO_PROFILE=slowmo\nPGUSER=dotenv\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TEMPO_PROFILE")
		os.Unsetenv("PGUSER")
	})

	cfg := LoadConfigWithDefaults()
	if cfg.Timeline.Profile != "slowmo" {
		t.Errorf("expected profile from .env, got %q", cfg.Timeline.Profile)
	}
	if cfg.Database.User != "dotenv" {
		t.Errorf("expected user from .env, got %q", cfg.Database.User)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeFile(t, "invalid.yaml", "{{invalid yaml")

	_, err := LoadConfig(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bad.yaml", "driver:\n  tick_interval: soon\n")

	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("expected invalid duration error, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "no profile and no duration",
			modify:  func(c *Config) { c.Timeline.Profile = "" },
			wantErr: "timeline.profile or timeline.duration is required",
		},
		{
			name:    "negative duration",
			modify:  func(c *Config) { c.Timeline.Duration = -1 },
			wantErr: "timeline.duration must be a finite value >= 0",
		},
		{
			name:    "fractional iterations below one",
			modify:  func(c *Config) { c.Timeline.Iterations = 0.5 },
			wantErr: "timeline.iterations must be >= 1",
		},
		{
			name:    "nan speed",
			modify:  func(c *Config) { c.Timeline.Speed = &nan },
			wantErr: "timeline.speed must be finite",
		},
		{
			name:    "unknown clock",
			modify:  func(c *Config) { c.Driver.Clock = "sundial" },
			wantErr: "driver.clock must be 'real', 'simulated' or 'manual'",
		},
		{
			name:    "zero tick interval",
			modify:  func(c *Config) { c.Driver.TickInterval = 0 },
			wantErr: "driver.tick_interval must be > 0",
		},
		{
			name:    "zero time scale",
			modify:  func(c *Config) { c.Driver.TimeScale = 0 },
			wantErr: "driver.time_scale must be > 0",
		},
		{
			name:    "bad output format",
			modify:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "output.format must be 'console' or 'json'",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level must be one of debug, info, warn, error",
		},
		{
			name: "enabled database without host",
			modify: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Host = ""
			},
			wantErr: "database.host is required",
		},
		{
			name: "enabled database with invalid port",
			modify: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Port = 0
			},
			wantErr: "database.port must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			cfg := LoadConfigWithDefaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Errorf("expected error containing %q", tt.wantErr)
				return
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateIgnoresDisabledDatabase(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfigWithDefaults()
	cfg.Database.Host = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled database should not be validated: %v", err)
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "myhost",
		Port:     5432,
		User:     "myuser",
		Password: "mypass",
		DBName:   "mydb",
		SSLMode:  "require",
	}

	connStr := db.ConnectionString()
	expected := "host=myhost port=5432 user=myuser dbname=mydb password=mypass sslmode=require"
	if connStr != expected {
		t.Errorf("expected %q, got %q", expected, connStr)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfigWithDefaults()
	cfg.Timeline.Iterations = 4

	for _, name := range []string{"out.yaml", "out.toml"} {
		data, err := cfg.Marshal(name)
		if err != nil {
			t.Fatalf("Marshal(%s) failed: %v", name, err)
		}
		path := writeFile(t, name, string(data))

		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig(%s) failed: %v", name, err)
		}
		if loaded.Timeline.Iterations != 4 {
			t.Errorf("%s: iterations = %v, want 4", name, loaded.Timeline.Iterations)
		}
		if loaded.Driver.TickInterval != cfg.Driver.TickInterval {
			t.Errorf("%s: tick interval = %v, want %v", name, loaded.Driver.TickInterval, cfg.Driver.TickInterval)
		}
	}
}
