package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Timeline TimelineConfig `yaml:"timeline" toml:"timeline"`
	Driver   DriverConfig   `yaml:"driver" toml:"driver"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// TimelineConfig describes the timeline a run plays. Explicit fields
// override the named profile.
type TimelineConfig struct {
	Profile    string   `yaml:"profile" toml:"profile"`
	Duration   float64  `yaml:"duration,omitempty" toml:"duration,omitempty"`
	Iterations float64  `yaml:"iterations,omitempty" toml:"iterations,omitempty"`
	Speed      *float64 `yaml:"speed,omitempty" toml:"speed,omitempty"`
	Persist    *bool    `yaml:"persist,omitempty" toml:"persist,omitempty"`
	Pingpong   *bool    `yaml:"pingpong,omitempty" toml:"pingpong,omitempty"`
	Pongping   *bool    `yaml:"pongping,omitempty" toml:"pongping,omitempty"`
	StartAt    float64  `yaml:"start_at,omitempty" toml:"start_at,omitempty"`
	Events     string   `yaml:"events,omitempty" toml:"events,omitempty"`
}

// DriverConfig holds tick loop settings.
type DriverConfig struct {
	Clock        string   `yaml:"clock" toml:"clock"`
	TickInterval Duration `yaml:"tick_interval" toml:"tick_interval"`
	TimeScale    float64  `yaml:"time_scale" toml:"time_scale"`
	MaxRunTime   Duration `yaml:"max_run_time" toml:"max_run_time"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Report string `yaml:"report" toml:"report"`
	Trace  string `yaml:"trace" toml:"trace"`
	Format string `yaml:"format" toml:"format"`
}

// DatabaseConfig holds PostgreSQL trace store settings.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	DBName   string `yaml:"dbname" toml:"dbname"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode"`
}

// MetricsConfig holds Prometheus exporter settings. An empty Listen address
// disables the HTTP endpoint.
type MetricsConfig struct {
	Listen    string `yaml:"listen" toml:"listen"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// LogConfig holds slog handler settings.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// LoadConfig reads configuration from a YAML or TOML file (chosen by
// extension) and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := LoadConfigWithDefaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithDefaults returns a Config with default values.
func LoadConfigWithDefaults() *Config {
	cfg := &Config{
		Timeline: TimelineConfig{
			Profile: "once",
		},
		Driver: DriverConfig{
			Clock:        "real",
			TickInterval: Duration(16 * time.Millisecond),
			TimeScale:    1,
			MaxRunTime:   Duration(time.Minute),
		},
		Output: OutputConfig{
			Format: "console",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "postgres",
			SSLMode: "prefer",
		},
		Metrics: MetricsConfig{
			Namespace: "tempo",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	applyEnvOverrides(cfg)
	return cfg
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TEMPO_PROFILE"); v != "" {
		cfg.Timeline.Profile = v
	}
	if v := os.Getenv("TEMPO_SPEED"); v != "" {
		if speed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Timeline.Speed = &speed
		}
	}
	if v := os.Getenv("TEMPO_CLOCK"); v != "" {
		cfg.Driver.Clock = v
	}
	if v := os.Getenv("TEMPO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TEMPO_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("PGHOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("PGUSER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		cfg.Database.DBName = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	t := c.Timeline
	if t.Profile == "" && t.Duration <= 0 {
		return fmt.Errorf("timeline.profile or timeline.duration is required")
	}
	if t.Duration < 0 || math.IsNaN(t.Duration) || math.IsInf(t.Duration, 0) {
		return fmt.Errorf("timeline.duration must be a finite value >= 0")
	}
	if t.Iterations != 0 && (t.Iterations < 1 || math.IsNaN(t.Iterations)) {
		return fmt.Errorf("timeline.iterations must be >= 1")
	}
	if t.Speed != nil && (math.IsNaN(*t.Speed) || math.IsInf(*t.Speed, 0)) {
		return fmt.Errorf("timeline.speed must be finite")
	}
	switch c.Driver.Clock {
	case "real", "simulated", "manual":
	default:
		return fmt.Errorf("driver.clock must be 'real', 'simulated' or 'manual'")
	}
	if c.Driver.TickInterval <= 0 {
		return fmt.Errorf("driver.tick_interval must be > 0")
	}
	if c.Driver.TimeScale <= 0 {
		return fmt.Errorf("driver.time_scale must be > 0")
	}
	if c.Driver.MaxRunTime < 0 {
		return fmt.Errorf("driver.max_run_time must be >= 0")
	}
	switch c.Output.Format {
	case "console", "json":
	default:
		return fmt.Errorf("output.format must be 'console' or 'json'")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	if c.Database.Enabled {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the database settings.
func (d *DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if d.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if d.DBName == "" {
		return fmt.Errorf("database.dbname is required")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (d *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s",
		d.Host, d.Port, d.User, d.DBName)
	if d.Password != "" {
		connStr += fmt.Sprintf(" password=%s", d.Password)
	}
	if d.SSLMode != "" {
		connStr += fmt.Sprintf(" sslmode=%s", d.SSLMode)
	}
	return connStr
}

// Marshal renders the configuration in the format matching path's
// extension (TOML for .toml, YAML otherwise).
func (c *Config) Marshal(path string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		return toml.Marshal(c)
	}
	return yaml.Marshal(c)
}
