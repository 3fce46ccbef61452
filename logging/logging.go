package logging

import (
	"log/slog"
	"os"
	"time"
)

// New builds a logger for cfg. Empty fields are filled: service "roomsync",
// env dev, a hostname-based instance ID, and the std backend in dev or zap
// elsewhere.
func New(cfg Config) *slog.Logger {
	if cfg.Service == "" {
		cfg.Service = "roomsync"
	}
	if cfg.Env == "" {
		cfg.Env = EnvDev
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	return slog.New(h.WithAttrs(baseAttrs(cfg, time.Now())))
}

// Init builds a logger with New and installs it as the slog default.
func Init(cfg Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}
