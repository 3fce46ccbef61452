package service

import (
	"context"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// RoomService is the read-only view of the server used by the REST API and
// the MCP tools. Rooms are only changed through the websocket protocol.
type RoomService interface {
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetRoom(ctx context.Context, roomID string) (*RoomDetail, error)
	Stats(ctx context.Context) (*Stats, error)
}

// RoomStore defines the room queries the service needs
type RoomStore interface {
	List() []room.Snapshot
	Snapshot(roomID string) (room.Snapshot, error)
	Count() int
	MemberCount() int
}

// ConnectionCounter reports how many websocket connections are live
type ConnectionCounter interface {
	Count() int
}
