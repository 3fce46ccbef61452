package session

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/wricardo/mcp-training/roomsync/game/broadcast"
	"github.com/wricardo/mcp-training/roomsync/game/protocol"
	"github.com/wricardo/mcp-training/roomsync/game/registry"
	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// Handler runs the session protocol for every connection of one server.
type Handler struct {
	rooms  *room.Store
	conns  *registry.Registry
	fanout *broadcast.Broadcaster
	logger *slog.Logger

	// mu serializes message processing so each message runs
	// parse -> validate -> mutate -> broadcast to completion.
	mu sync.Mutex
}

// NewHandler wires a handler to its room store and connection registry.
func NewHandler(rooms *room.Store, conns *registry.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		rooms:  rooms,
		conns:  conns,
		fanout: broadcast.New(rooms, conns, logger),
		logger: logger.With("component", "session"),
	}
}

// HandleMessage processes one inbound frame from s. It never fails: bad
// frames and refused requests are logged or answered, and a panic is
// contained to this message.
func (h *Handler) HandleMessage(s *Session, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling message",
				"player_id", s.ID(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	msg, err := protocol.Decode(data)
	if err != nil {
		h.logger.Warn("ignoring malformed message", "player_id", s.ID(), "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state := s.State()
	switch Decide(state, msg.Kind()) {
	case Drop:
		h.logger.Debug("dropping message", "player_id", s.ID(), "state", state, "type", msg.Kind())
		return
	case Reject:
		h.logger.Debug("rejecting message", "player_id", s.ID(), "state", state, "type", msg.Kind())
		h.reply(s, protocol.NewError(room.ErrAlreadyInRoom))
		return
	}

	switch m := msg.(type) {
	case protocol.CreateRoom:
		h.createRoom(s)
	case protocol.JoinRoom:
		h.joinRoom(s, m)
	case protocol.Update:
		h.update(s, m)
	case protocol.Noclip:
		h.relay(s, protocol.NewTriggerNoclip(s.ID()))
	case protocol.LevelComplete:
		h.relay(s, protocol.NewTriggerLevelComplete(m.Level, s.ID()))
	}
}

func (h *Handler) createRoom(s *Session) {
	roomID, err := h.rooms.CreateRoom(s.ID())
	if err != nil {
		h.logger.Warn("create room failed", "player_id", s.ID(), "error", err)
		h.reply(s, protocol.NewError(err))
		return
	}

	s.bind(roomID)
	h.logger.Info("room created", "room_id", roomID, "player_id", s.ID())

	h.reply(s, protocol.NewRoomCreated(roomID, s.ID()))
	h.fanout.State(roomID)
}

func (h *Handler) joinRoom(s *Session, m protocol.JoinRoom) {
	if err := h.rooms.JoinRoom(m.RoomID, s.ID()); err != nil {
		h.logger.Info("join refused", "room_id", m.RoomID, "player_id", s.ID(), "error", err)
		h.reply(s, protocol.NewError(err))
		return
	}

	s.bind(m.RoomID)
	h.logger.Info("player joined room", "room_id", m.RoomID, "player_id", s.ID())

	h.reply(s, protocol.NewRoomJoined(m.RoomID, s.ID()))
	h.fanout.State(m.RoomID)
}

func (h *Handler) update(s *Session, m protocol.Update) {
	roomID, err := h.rooms.UpdatePosition(s.ID(), m.Position)
	if err != nil {
		h.logger.Debug("dropping update", "player_id", s.ID(), "error", err)
		return
	}

	h.logger.Debug("position updated",
		"room_id", roomID,
		"player_id", s.ID(),
		"x", m.Position.X, "y", m.Position.Y, "z", m.Position.Z)
	h.fanout.State(roomID)
}

func (h *Handler) relay(s *Session, msg any) {
	roomID, ok := h.rooms.RoomOf(s.ID())
	if !ok {
		h.logger.Debug("dropping relay", "player_id", s.ID(), "error", room.ErrNotInRoom)
		return
	}

	n := h.fanout.Relay(roomID, msg)
	h.logger.Info("event relayed", "room_id", roomID, "player_id", s.ID(), "delivered", n)
}

func (h *Handler) reply(s *Session, msg any) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("encode reply", "player_id", s.ID(), "error", err)
		return
	}
	if err := s.conn.Send(data); err != nil {
		h.logger.Debug("reply not delivered", "player_id", s.ID(), "error", err)
	}
}
