package session

import (
	"sync"
	"time"

	"github.com/wricardo/mcp-training/roomsync/game/registry"
)

// Session is the server-side view of one client connection.
type Session struct {
	id          string
	conn        registry.Conn
	connectedAt time.Time

	mu     sync.Mutex
	state  State
	roomID string
}

// ID returns the player identity assigned at connect time.
func (s *Session) ID() string { return s.id }

// ConnectedAt returns when the connection was accepted.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the room the session is bound to, or "".
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) bind(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Bound
	s.roomID = roomID
}

// close marks the session Closed and reports whether it was open.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return false
	}
	s.state = Closed
	s.roomID = ""
	return true
}
