// Package log configures the process-wide zerolog logger used by every stage
// of a merge run.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
	Console bool      // human-readable console output instead of JSON
}

var (
	mu   sync.Mutex
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger. Only the first call takes effect;
// Reset allows tests to reconfigure.
func Configure(cfg Config) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		base = build(cfg)
	})
}

// Reset drops the configured logger so the next Configure call applies again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
}

func build(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	service := cfg.Service
	if service == "" {
		service = "iptv-merge"
	}
	return zerolog.New(writer).With().
		Timestamp().
		Str(FieldService, service).
		Logger()
}

func logger() zerolog.Logger {
	Configure(Config{})
	mu.Lock()
	defer mu.Unlock()
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}
