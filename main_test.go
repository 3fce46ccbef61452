package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/roomsync/game/config"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "roomsync", AppName)
}

// resolveConfig runs the root command with args and returns the config its
// action would have served with.
func resolveConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg *config.Config
		err error
	)
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, err = loadConfig(cmd)
		return nil
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{AppName}, args...)))
	return cfg, err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roomsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := resolveConfig(t)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Zero(t, cfg.WebSocket.IdleTimeout)
	assert.Equal(t, Version, cfg.Logging.Version)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 7000
websocket:
  idleTimeout: 90s
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := resolveConfig(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Server.Port)
		assert.Equal(t, 90*time.Second, cfg.WebSocket.IdleTimeout)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("ROOMSYNC_PORT", "7100")
		cfg, err := resolveConfig(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, 7100, cfg.Server.Port)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("ROOMSYNC_PORT", "7100")
		cfg, err := resolveConfig(t, "--config", path, "--port", "7200", "--idle-timeout", "0s", "--debug")
		require.NoError(t, err)
		assert.Equal(t, 7200, cfg.Server.Port)
		assert.Zero(t, cfg.WebSocket.IdleTimeout)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("ngrok token kept out of the file", func(t *testing.T) {
		ngrokFile := writeConfig(t, "ngrok:\n  enabled: true\n")
		t.Setenv("NGROK_AUTHTOKEN", "secret")
		cfg, err := resolveConfig(t, "--config", ngrokFile)
		require.NoError(t, err)
		assert.True(t, cfg.Ngrok.Enabled)
		assert.Equal(t, "secret", cfg.Ngrok.AuthToken)
	})

	t.Run("flag fixes an invalid file value", func(t *testing.T) {
		badPort := writeConfig(t, "server:\n  port: 70000\n")
		cfg, err := resolveConfig(t, "--config", badPort, "--port", "8081")
		require.NoError(t, err)
		assert.Equal(t, 8081, cfg.Server.Port)

		_, err = resolveConfig(t, "--config", badPort)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("config path from env", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", path)
		cfg, err := resolveConfig(t)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Server.Port)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("explicit missing file", func(t *testing.T) {
		_, err := resolveConfig(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, config.ErrConfigNotFound)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, err := resolveConfig(t, "--port", "70000")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("ngrok without token", func(t *testing.T) {
		t.Chdir(t.TempDir())
		_, err := resolveConfig(t, "--ngrok")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newCommand()
		cmd.Writer = &out

		path := writeConfig(t, "server:\n  port: 9090\n")
		require.NoError(t, cmd.Run(context.Background(), []string{AppName, "--config", path, "validate"}))
		assert.Contains(t, out.String(), "configuration ok")
		assert.Contains(t, out.String(), ":9090")
	})

	t.Run("invalid lists every problem", func(t *testing.T) {
		var errOut bytes.Buffer
		cmd := newCommand()
		cmd.ErrWriter = &errOut

		path := writeConfig(t, "rooms:\n  idDigits: 12\nwebsocket:\n  writeWait: -1s\n")
		err := cmd.Run(context.Background(), []string{AppName, "--config", path, "validate"})
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "rooms.idDigits")
		assert.Contains(t, errOut.String(), "websocket.writeWait")
	})
}

func TestLoopbackAddr(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"0.0.0.0", "127.0.0.1:8080"},
		{"", "127.0.0.1:8080"},
		{"::", "127.0.0.1:8080"},
		{"localhost", "localhost:8080"},
		{"10.0.0.5", "10.0.0.5:8080"},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Server.Host = tt.host
		assert.Equal(t, tt.want, loopbackAddr(cfg), tt.host)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunServer(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	base := fmt.Sprintf("http://%s", cfg.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- runServer(ctx, cfg, slog.New(slog.DiscardHandler)) }()

	require.Eventually(t, func() bool { return apiReachable(context.Background(), base) },
		5*time.Second, 20*time.Millisecond)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+cfg.Addr()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"type":"create-room"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"room-created"`)

	t.Run("mcp endpoint", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"server_stats","arguments":{}}}`
		resp, err := http.Post(base+"/mcp", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()

		var rpc map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
		assert.Contains(t, fmt.Sprint(rpc["result"]), "Rooms: 1")
	})

	cancel()

	for {
		_, _, err = conn.ReadMessage()
		if err != nil {
			break
		}
	}
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.CloseNormalClosure), "got %v", err)

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
