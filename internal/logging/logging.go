// Package logging builds the zerolog loggers used across the exporter.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment overrides applied by FromEnv.
const (
	EnvLevel   = "OCTEXPORT_LOG_LEVEL"
	EnvNoColor = "OCTEXPORT_LOG_NOCOLOR"
	EnvJSON    = "OCTEXPORT_LOG_JSON"
)

// Config describes how a logger is built.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	JSON      bool // JSON lines instead of console output
}

// Runtime is the profile used by the CLI: console output on stderr, info level.
func Runtime() Config {
	return Config{Level: zerolog.InfoLevel, Timestamp: true}
}

// Test is a quiet profile for tests: warnings and above, no colour, no timestamps.
func Test() Config {
	return Config{Level: zerolog.WarnLevel, NoColor: true}
}

// ParseLevel accepts zerolog level names, case-insensitively. "warning" is an
// alias for "warn".
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// FromEnv returns cfg with any environment overrides applied. Unparseable
// values are reported and leave the field unchanged.
func FromEnv(cfg Config) (Config, error) {
	if v, ok := os.LookupEnv(EnvLevel); ok {
		level, err := ParseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.Level = level
	}
	for env, field := range map[string]*bool{EnvNoColor: &cfg.NoColor, EnvJSON: &cfg.JSON} {
		v, ok := os.LookupEnv(env)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", env, v, err)
		}
		*field = b
	}
	return cfg, nil
}

// New builds a logger writing to w.
func New(w io.Writer, cfg Config) zerolog.Logger {
	if !cfg.JSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	ctx := zerolog.New(w).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Init builds the process logger on stderr for app.
func Init(app string, cfg Config) zerolog.Logger {
	return New(os.Stderr, cfg).With().Str("app", app).Logger()
}
