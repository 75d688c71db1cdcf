package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/myorg/tempo/internal/config"
)

// appCfg is the effective configuration, loaded before any command runs.
var appCfg *config.Config

// loadConfig loads the dotenv file and the config file named by the root
// flags, falling back to defaults plus environment overrides.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(rootCfg.EnvFile); err != nil {
		return nil, err
	}
	if rootCfg.ConfigFile == "" {
		return config.LoadConfigWithDefaults(), nil
	}
	return config.LoadConfig(rootCfg.ConfigFile)
}

func setupLogging(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appCfg = cfg

	if rootCfg.LogLevel != "" {
		cfg.Log.Level = rootCfg.LogLevel
	}
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	initLogger(level, cfg.Log.Format)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func initLogger(level slog.Level, format string) {
	var h slog.Handler
	if rootCfg.Quiet {
		h = slog.DiscardHandler
	} else {
		var (
			addSource   bool
			replaceAttr func(groups []string, a slog.Attr) slog.Attr
		)
		if rootCfg.Verbose {
			_, f, _, ok := runtime.Caller(0)
			var basepath string
			if ok {
				basepath = filepath.Dir(f)
			}
			addSource = true
			level = slog.LevelDebug
			replaceAttr = func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.SourceKey {
					source := a.Value.Any().(*slog.Source)
					if basepath == "" {
						source.File = filepath.Base(source.File)
					} else if relpath, err := filepath.Rel(basepath, source.File); err != nil {
						source.File = filepath.Base(source.File)
					} else {
						source.File = relpath
					}
				}
				return a
			}
		}
		opts := &slog.HandlerOptions{
			AddSource:   addSource,
			Level:       level,
			ReplaceAttr: replaceAttr,
		}
		if format == "json" {
			h = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			h = slog.NewTextHandler(os.Stderr, opts)
		}
	}
	slog.SetDefault(slog.New(h))
}
