package session

import (
	"time"

	"github.com/wricardo/mcp-training/roomsync/game/registry"
)

// Connect assigns a player identity to conn and returns its Unbound session.
func (h *Handler) Connect(conn registry.Conn) *Session {
	s := &Session{
		id:          h.conns.Register(conn),
		conn:        conn,
		connectedAt: time.Now(),
		state:       Unbound,
	}
	h.logger.Info("player connected", "player_id", s.id)
	return s
}

// Disconnect moves s to Closed and releases everything it held. Remaining
// room members are sent the new state; a room left empty is deleted. Calling
// Disconnect more than once is a no-op.
func (h *Handler) Disconnect(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !s.close() {
		return
	}
	h.conns.Unregister(s.id)

	removal, ok := h.rooms.RemovePlayer(s.id)
	if !ok {
		h.logger.Info("player disconnected", "player_id", s.id)
		return
	}

	h.logger.Info("player disconnected", "player_id", s.id, "room_id", removal.RoomID)
	if removal.RoomDeleted {
		h.logger.Info("room deleted", "room_id", removal.RoomID)
		return
	}
	h.fanout.State(removal.RoomID)
}
