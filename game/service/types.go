package service

import (
	"time"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// RoomInfo summarizes a live room
type RoomInfo struct {
	ID        string    `json:"id"`
	HostID    string    `json:"host_id"`
	Members   int       `json:"members"`
	Capacity  int       `json:"capacity"`
	Full      bool      `json:"full"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomDetail is a room summary plus every member's position
type RoomDetail struct {
	RoomInfo
	Players []room.PlayerState `json:"players"`
}

// Stats contains server-wide counters
type Stats struct {
	Rooms       int       `json:"rooms"`
	Members     int       `json:"members"`
	Connections int       `json:"connections"`
	Unbound     int       `json:"unbound"`
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
}
