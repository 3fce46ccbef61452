package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/roomsync/game/room"
	"github.com/wricardo/mcp-training/roomsync/logging"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultPingPeriod     = 54 * time.Second
	DefaultWriteWait      = 10 * time.Second
	DefaultMaxMessageSize = 4096
	DefaultSendBuffer     = 64
)

type Server struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type WebSocket struct {
	IdleTimeout    time.Duration `yaml:"idleTimeout"` // 0 disables heartbeats
	PingPeriod     time.Duration `yaml:"pingPeriod"`
	WriteWait      time.Duration `yaml:"writeWait"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
	SendBuffer     int           `yaml:"sendBuffer"`
}

type Rooms struct {
	IDDigits   int            `yaml:"idDigits"`
	IDAttempts int            `yaml:"idAttempts"`
	Spawn      *room.Position `yaml:"spawn"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // roomsync
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
}

type Ngrok struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"authToken"`
	Domain    string `yaml:"domain"`
}

// Config is the full server configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	WebSocket WebSocket `yaml:"websocket"`
	Rooms     Rooms     `yaml:"rooms"`
	Logging   Logging   `yaml:"logging"`
	Ngrok     Ngrok     `yaml:"ngrok"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. A missing file fails with ErrConfigNotFound unless optional is
// set, in which case the defaults are returned. The result is not validated;
// callers apply env and flag overrides first and then call Validate.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if optional {
				return cfg, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs error

	if v, ok := lookup("ROOMSYNC_HOST"); ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := lookup("ROOMSYNC_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ROOMSYNC_PORT: %w", err))
		} else {
			c.Server.Port = port
		}
	}
	if v, ok := lookup("ROOMSYNC_IDLE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ROOMSYNC_IDLE_TIMEOUT: %w", err))
		} else {
			c.WebSocket.IdleTimeout = d
		}
	}
	if v, ok := lookup("APP_ENV"); ok && v != "" {
		c.Logging.Env = string(logging.ParseEnv(v))
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_BACKEND"); ok && v != "" {
		c.Logging.Backend = v
	}
	if v, ok := lookup("NGROK_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("NGROK_ENABLED: %w", err))
		} else {
			c.Ngrok.Enabled = enabled
		}
	}
	if v, ok := lookup("NGROK_AUTHTOKEN"); ok && v != "" {
		c.Ngrok.AuthToken = v
	}
	if v, ok := lookup("NGROK_DOMAIN"); ok && v != "" {
		c.Ngrok.Domain = v
	}

	return errs
}

// Validate fills defaults for empty fields and reports every invalid value.
func (c *Config) Validate() error {
	c.fillDefaults()

	var errs error
	invalid := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		invalid("server.port %d out of range 1..65535", c.Server.Port)
	}
	if c.Rooms.IDDigits < 1 || c.Rooms.IDDigits > 9 {
		invalid("rooms.idDigits %d out of range 1..9", c.Rooms.IDDigits)
	}
	if c.Rooms.IDAttempts < 1 {
		invalid("rooms.idAttempts must be positive, got %d", c.Rooms.IDAttempts)
	}

	ws := c.WebSocket
	for name, d := range map[string]time.Duration{
		"websocket.idleTimeout": ws.IdleTimeout,
		"websocket.pingPeriod":  ws.PingPeriod,
		"websocket.writeWait":   ws.WriteWait,
	} {
		if d < 0 {
			invalid("%s must not be negative, got %s", name, d)
		}
	}
	if ws.IdleTimeout > 0 && ws.PingPeriod >= ws.IdleTimeout {
		invalid("websocket.pingPeriod %s must be shorter than websocket.idleTimeout %s", ws.PingPeriod, ws.IdleTimeout)
	}
	if ws.MaxMessageSize < 1 {
		invalid("websocket.maxMessageSize must be positive, got %d", ws.MaxMessageSize)
	}
	if ws.SendBuffer < 1 {
		invalid("websocket.sendBuffer must be positive, got %d", ws.SendBuffer)
	}

	if _, err := logging.ParseBackend(c.Logging.Backend); err != nil {
		invalid("logging.backend: %v", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		invalid("logging.level: %v", err)
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		invalid("ngrok.authToken is required when ngrok is enabled")
	}

	return errs
}

// Addr returns the listen address host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Spawn returns the configured spawn position.
func (c *Config) Spawn() room.Position {
	if c.Rooms.Spawn == nil {
		return room.DefaultSpawn
	}
	return *c.Rooms.Spawn
}

// LoggingConfig converts the logging section for logging.New.
func (c *Config) LoggingConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	backend, _ := logging.ParseBackend(c.Logging.Backend)
	return logging.Config{
		Service:   c.Logging.Service,
		Version:   c.Logging.Version,
		Env:       logging.ParseEnv(c.Logging.Env),
		Level:     level,
		Backend:   backend,
		AddSource: c.Logging.AddSource,
	}
}

// LogValue keeps the ngrok token out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Addr()),
		slog.String("allowed_origins", strings.Join(c.Server.AllowedOrigins, ",")),
		slog.Duration("idle_timeout", c.WebSocket.IdleTimeout),
		slog.Int("id_digits", c.Rooms.IDDigits),
		slog.String("log_backend", c.Logging.Backend),
		slog.Bool("ngrok", c.Ngrok.Enabled),
	)
}

func (c *Config) fillDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.WebSocket.PingPeriod == 0 {
		c.WebSocket.PingPeriod = DefaultPingPeriod
	}
	if c.WebSocket.WriteWait == 0 {
		c.WebSocket.WriteWait = DefaultWriteWait
	}
	if c.WebSocket.MaxMessageSize == 0 {
		c.WebSocket.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = DefaultSendBuffer
	}
	if c.Rooms.IDDigits == 0 {
		c.Rooms.IDDigits = room.DefaultIDDigits
	}
	if c.Rooms.IDAttempts == 0 {
		c.Rooms.IDAttempts = room.DefaultIDAttempts
	}
	if c.Rooms.Spawn == nil {
		spawn := room.DefaultSpawn
		c.Rooms.Spawn = &spawn
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "roomsync"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = string(logging.EnvDev)
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = string(logging.BackendStd)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
