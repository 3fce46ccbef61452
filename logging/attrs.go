package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// baseAttrs are attached to every record. An empty InstanceID becomes
// "<hostname>-<first uuid group>"; version is omitted when unset.
func baseAttrs(cfg Config, startedAt time.Time) []slog.Attr {
	id := cfg.InstanceID
	if id == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = cfg.Service
		}
		group, _, _ := strings.Cut(uuid.NewString(), "-")
		id = host + "-" + group
	}

	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", id),
		slog.Time("started_at", startedAt),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
