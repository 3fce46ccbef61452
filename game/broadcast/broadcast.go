package broadcast

import (
	"log/slog"

	"github.com/wricardo/mcp-training/roomsync/game/protocol"
	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// Snapshotter reads the current state of a room.
type Snapshotter interface {
	Snapshot(roomID string) (room.Snapshot, error)
}

// Directory delivers a frame to a player by identity.
type Directory interface {
	Send(playerID string, data []byte) error
}

// Broadcaster pushes frames to every member of a room.
type Broadcaster struct {
	rooms  Snapshotter
	conns  Directory
	logger *slog.Logger
}

// New creates a broadcaster over the given room store and connection directory.
func New(rooms Snapshotter, conns Directory, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		rooms:  rooms,
		conns:  conns,
		logger: logger.With("component", "broadcast"),
	}
}

// State sends the room's membership and positions to each member and returns
// how many sends succeeded. A missing room is a no-op.
func (b *Broadcaster) State(roomID string) int {
	snap, err := b.rooms.Snapshot(roomID)
	if err != nil {
		b.logger.Debug("state broadcast skipped", "room_id", roomID, "error", err)
		return 0
	}
	return b.fanout(snap, protocol.NewState(snap))
}

// Relay sends msg to each member of the room and returns how many sends
// succeeded.
func (b *Broadcaster) Relay(roomID string, msg any) int {
	snap, err := b.rooms.Snapshot(roomID)
	if err != nil {
		b.logger.Debug("relay skipped", "room_id", roomID, "error", err)
		return 0
	}
	return b.fanout(snap, msg)
}

func (b *Broadcaster) fanout(snap room.Snapshot, msg any) int {
	data, err := protocol.Encode(msg)
	if err != nil {
		b.logger.Error("encode broadcast", "room_id", snap.RoomID, "error", err)
		return 0
	}

	delivered := 0
	for _, playerID := range snap.PlayerIDs() {
		// A failed send is followed by that connection's own disconnect.
		if err := b.conns.Send(playerID, data); err != nil {
			b.logger.Debug("send failed", "room_id", snap.RoomID, "player_id", playerID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
