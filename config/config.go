// Package config loads runtime tuning from file and environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fwojciec/mvu"
)

// Runtime holds runtime tuning.
type Runtime struct {
	PollInterval time.Duration
	Shell        string
	Log          LogConfig
}

// LogConfig holds diagnostic-sink settings.
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from file and env. Env var overrides use prefix
// MVU_; an explicit config file path can be given via MVU_CONFIG.
func Load() (Runtime, error) {
	v := viper.New()

	// default values
	v.SetDefault("poll_interval", "16ms")
	v.SetDefault("shell", "sh")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MVU_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "mvu"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MVU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	poll, err := time.ParseDuration(v.GetString("poll_interval"))
	if err != nil {
		return Runtime{}, fmt.Errorf("config: poll_interval: %w", err)
	}

	return Runtime{
		PollInterval: poll,
		Shell:        v.GetString("shell"),
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}, nil
}

// Options converts the loaded tuning into program options.
func (r Runtime) Options() []mvu.Option {
	return []mvu.Option{
		mvu.WithPollInterval(r.PollInterval),
		mvu.WithShell(r.Shell),
	}
}

// Logger builds the diagnostic sink described by the log settings. With no
// file configured the sink discards records; the tty belongs to the
// renderer, so there is no stderr fallback.
func (r Runtime) Logger() (*slog.Logger, error) {
	var w io.Writer = io.Discard
	if r.Log.File != "" {
		f, err := os.OpenFile(r.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("config: open log file: %w", err)
		}
		w = f
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(r.Log.Level),
	})), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
