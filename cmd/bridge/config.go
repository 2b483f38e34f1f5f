package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls a bridge run. Flags override the environment.
type Config struct {
	Script      string        `env:"BRIDGE_SCRIPT"`
	Lua         string        `env:"BRIDGE_LUA"`
	LogLevel    string        `env:"BRIDGE_LOG_LEVEL"      envDefault:"warn"`
	Workers     int           `env:"BRIDGE_WORKERS"        envDefault:"2"`
	Frames      int           `env:"BRIDGE_FRAMES"         envDefault:"3"`
	Interval    time.Duration `env:"BRIDGE_FRAME_INTERVAL" envDefault:"16ms"`
	Timeout     time.Duration `env:"BRIDGE_TIMEOUT"        envDefault:"30s"`
	List        bool
	Interactive bool
}

// loadConfig reads the environment, then args. A nil environ reads the
// process environment.
func loadConfig(args []string, environ map[string]string, stderr io.Writer) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("bridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Script, "script", cfg.Script, "JavaScript file to run on every runtime")
	fs.StringVar(&cfg.Lua, "lua", cfg.Lua, "Lua file to run against the demo objects")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of background runtimes")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "Number of frames to tick after the script ran")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Frame interval")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall run timeout")
	fs.BoolVar(&cfg.List, "list", false, "List demo object members as WIT and exit")
	fs.BoolVar(&cfg.Interactive, "i", false, "Interactive mode with TUI")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: bridge -script <file.js> [-workers N] [-frames N]")
		fmt.Fprintln(stderr, "       bridge -lua <file.lua>")
		fmt.Fprintln(stderr, "       bridge -list")
		fmt.Fprintln(stderr, "       bridge -i  (interactive mode)")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Frames < 0 {
		return Config{}, fmt.Errorf("frames must not be negative, got %d", cfg.Frames)
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	if lvl > zapcore.DebugLevel {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
