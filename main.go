// Command roomsync starts the two-player room synchronization server.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing the websocket protocol, the
//     read-only REST API, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP server if none is available
//  3. "validate" – loads the configuration and reports every problem in it
//
// Settings come from a YAML file, then environment variables (a .env file is
// loaded first), then flags. An optional ngrok tunnel makes a local server
// reachable for a second player on another network.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/roomsync/api"
	"github.com/wricardo/mcp-training/roomsync/game/config"
	"github.com/wricardo/mcp-training/roomsync/game/registry"
	"github.com/wricardo/mcp-training/roomsync/game/room"
	"github.com/wricardo/mcp-training/roomsync/game/service"
	"github.com/wricardo/mcp-training/roomsync/game/session"
	"github.com/wricardo/mcp-training/roomsync/logging"
	"github.com/wricardo/mcp-training/roomsync/transport/mcp"
	"github.com/wricardo/mcp-training/roomsync/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "roomsync"
)

const (
	defaultConfigPath = "roomsync.yaml"
	defaultAPIURL     = "http://localhost:8080"
	shutdownTimeout   = 10 * time.Second
)

// main loads .env, then runs the command line.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the root command. Flags on the root apply to every
// subcommand.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "Two-player room position sync server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Value:   defaultConfigPath,
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.StringFlag{Name: "host", Usage: "listen host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "listen port"},
			&cli.DurationFlag{Name: "idle-timeout", Usage: "close connections silent for this long (0 disables)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-backend", Usage: "std or zap"},
			&cli.BoolFlag{Name: "debug", Usage: "shorthand for --log-level debug"},
			&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel"},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token (or NGROK_AUTHTOKEN)",
				Sources: cli.EnvVars("NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain"},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the websocket, REST API and /mcp HTTP server (default)",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server backed by the REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "REST API to inspect; an internal server starts when unreachable",
						Value:   defaultAPIURL,
						Sources: cli.EnvVars("ROOMSYNC_API_URL"),
					},
				},
				Action: mcpAction,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration and exit",
				Action: validateAction,
			},
		},
	}
}

// loadConfig resolves the configuration: file, then environment, then flags.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"), !cmd.IsSet("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	applyFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cfg *config.Config, cmd *cli.Command) {
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}
	if cmd.IsSet("idle-timeout") {
		cfg.WebSocket.IdleTimeout = cmd.Duration("idle-timeout")
	}
	if cmd.IsSet("log-level") {
		cfg.Logging.Level = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		cfg.Logging.Level = "debug"
	}
	if cmd.IsSet("log-backend") {
		cfg.Logging.Backend = cmd.String("log-backend")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}
	if cfg.Logging.Version == "" {
		cfg.Logging.Version = Version
	}
}

// app holds one fully wired server.
type app struct {
	rooms   *room.Store
	conns   *registry.Registry
	hub     *websocket.Hub
	service service.RoomService
	api     *api.Server
}

// newApp wires the room store, session handler, websocket hub and REST API.
func newApp(cfg *config.Config, logger *slog.Logger) *app {
	rooms := room.NewStore(
		room.WithIDGenerator(room.NewNumericIDGenerator(cfg.Rooms.IDDigits)),
		room.WithIDAttempts(cfg.Rooms.IDAttempts),
		room.WithSpawn(cfg.Spawn()),
	)
	conns := registry.New()
	handler := session.NewHandler(rooms, conns, logger)

	hub := websocket.NewHub(handler, websocket.Options{
		IdleTimeout:    cfg.WebSocket.IdleTimeout,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		CheckOrigin:    func(r *http.Request) bool { return true },
	}, logger)

	svc := service.NewRoomService(rooms, conns)

	return &app{
		rooms:   rooms,
		conns:   conns,
		hub:     hub,
		service: svc,
		api: api.NewServer(svc, hub, api.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Version:        Version,
		}, logger),
	}
}

// routes mounts the API at the root and the MCP endpoint at /mcp.
func (a *app) routes(mcpBaseURL string) http.Handler {
	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.api)
	mainRouter.Handle("/mcp", mcpClient.HTTPHandler())
	return mainRouter
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.LoggingConfig())
	logger.Info("starting", "app", AppName, "version", Version, "config", cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, cfg, logger)
}

// runServer serves until ctx is done, then closes every websocket with a
// normal close frame and drains the HTTP server.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a := newApp(cfg, logger)
	addr := cfg.Addr()
	handler := a.routes("http://" + loopbackAddr(cfg))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			"addr", addr,
			"websocket", fmt.Sprintf("ws://%s/", addr),
			"rest_api", fmt.Sprintf("http://%s/api", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(gctx, cfg.Ngrok, handler, logger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return multierr.Combine(
			a.hub.Shutdown(shutdownCtx),
			httpServer.Shutdown(shutdownCtx),
		)
	})

	err := g.Wait()
	logger.Info("server stopped", "rooms", a.rooms.Count())
	return err
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged; the local server keeps running.
func serveNgrok(ctx context.Context, cfg config.Ngrok, handler http.Handler, logger *slog.Logger) {
	logger = logger.With("component", "ngrok")
	logger.Info("starting ngrok tunnel")

	// Configure ngrok endpoint
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("using custom ngrok domain", "domain", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", ngrokURL,
		"rest_api", ngrokURL+"/api",
		"mcp", ngrokURL+"/mcp",
	)

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// loopbackAddr is the address in-process clients use to reach the server.
func loopbackAddr(cfg *config.Config) string {
	host := cfg.Server.Host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
}

// mcpAction runs an MCP stdio server. It reuses the REST API at --api-url
// when reachable; otherwise it starts an internal server on a random
// loopback port and targets that.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol
	logCfg := cfg.LoggingConfig()
	logCfg.Output = os.Stderr
	logger := logging.Init(logCfg)

	baseURL := cmd.String("api-url")
	logger.Info("checking for external API server", "url", baseURL)

	if !apiReachable(ctx, baseURL) {
		logger.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		a := newApp(cfg, logger)
		go a.hub.Run(ctx)

		httpServer := &http.Server{Handler: a.api, ReadHeaderTimeout: 15 * time.Second}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := multierr.Combine(a.hub.Shutdown(shutdownCtx), httpServer.Shutdown(shutdownCtx)); err != nil {
				logger.Warn("internal server shutdown", "error", err)
			}
		}()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("internal HTTP server started", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiReachable reports whether a roomsync REST API answers at baseURL.
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(cmd.Root().ErrWriter, e)
		}
		return errors.New("configuration is invalid")
	}
	fmt.Fprintf(cmd.Root().Writer, "configuration ok: listening on %s, idle timeout %s, %d-digit room IDs\n",
		cfg.Addr(), cfg.WebSocket.IdleTimeout, cfg.Rooms.IDDigits)
	return nil
}
