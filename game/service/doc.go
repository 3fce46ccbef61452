// Package service provides the read-only query layer of the roomsync server.
//
// Core Interfaces:
//
// RoomService answers "which rooms exist", "who is in this room and where"
// and "how busy is the server". RoomStore and ConnectionCounter are the
// narrow views of the room store and connection registry it depends on,
// so tests can substitute simple fakes.
//
// Architecture:
//
// The websocket protocol is the only way to change rooms. The service layer
// sits beside it and serves the REST API (package api) and the MCP tools
// (package transport/mcp), which only ever read.
//
// Usage:
//
//	store := room.NewStore()
//	conns := registry.New()
//	svc := service.NewRoomService(store, conns)
//
//	rooms, err := svc.ListRooms(ctx)
//	detail, err := svc.GetRoom(ctx, "4821")
//	if errors.Is(err, room.ErrRoomNotFound) {
//		// 404
//	}
package service
