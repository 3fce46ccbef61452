package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"

	"github.com/wricardo/mcp-training/roomsync/game/registry"
	"github.com/wricardo/mcp-training/roomsync/game/session"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Send pings to peer with this period when an idle timeout is set.
	defaultPingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096

	// Frames queued per client before it is treated as too slow.
	defaultSendBuffer = 64
)

// Options tunes connection handling. Zero values use the defaults.
type Options struct {
	// IdleTimeout closes a connection that sends nothing, not even a pong,
	// for this long. Zero disables pings and idle disconnects.
	IdleTimeout    time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.PingPeriod <= 0 {
		o.PingPeriod = defaultPingPeriod
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return o
}

// SessionHandler runs the room protocol for connections accepted by the hub.
type SessionHandler interface {
	Connect(conn registry.Conn) *session.Session
	HandleMessage(s *session.Session, data []byte)
	Disconnect(s *session.Session)
}

// Hub maintains the set of active clients
type Hub struct {
	handler  SessionHandler
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger

	// Registered clients, owned by Run
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	closeErr error

	active atomic.Int64
	wg     sync.WaitGroup
}

// NewHub creates a new WebSocket hub
func NewHub(handler SessionHandler, opts Options, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Hub{
		handler: handler,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		logger:     logger.With("component", "websocket"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is done or Shutdown
// is called, after sending every client a close frame.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.active.Add(1)
			h.logger.Debug("client registered", "player_id", client.session.ID(), "clients", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				delete(h.clients, client)
				h.active.Add(-1)
				h.logger.Debug("client unregistered", "player_id", client.session.ID(), "clients", len(h.clients))
			}

		case <-ctx.Done():
			h.closeErr = h.closeAll()
			return h.closeErr

		case <-h.stop:
			h.closeErr = h.closeAll()
			return h.closeErr
		}
	}
}

// Shutdown stops Run and waits until every client's pumps have exited and
// its cleanup has run, or ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	drained := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return h.closeErr
	case <-ctx.Done():
		return multierr.Append(h.closeErr, ctx.Err())
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	return int(h.active.Load())
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.stop:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
	}
	client.session = h.handler.Connect(client)

	h.wg.Add(2)
	select {
	case h.register <- client:
	case <-h.done:
		h.handler.Disconnect(client.session)
		conn.Close()
		h.wg.Done()
		h.wg.Done()
		return
	}

	go client.writePump()
	go client.readPump()
}

// remove asks Run to forget c, unless Run has already exited.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) closeAll() error {
	var errs error
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")

	for client := range h.clients {
		deadline := time.Now().Add(h.opts.WriteWait)
		if err := client.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", client.session.ID(), err))
		}
		client.Close()
		client.conn.Close()
		delete(h.clients, client)
		h.active.Add(-1)
	}

	h.logger.Info("websocket hub stopped")
	return errs
}
