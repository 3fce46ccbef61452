// Package mcp provides a Model Context Protocol server for inspecting a
// running roomsync server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Read-only tools backed by the REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//   - list_rooms: List live rooms with member counts
//   - get_room: Show a room's members and their positions
//   - server_stats: Room, member and connection counters
//   - protocol_help: Describe the websocket messages
//
// The tools never change room state. Rooms are only created, joined and
// left through the websocket protocol.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	mux.Handle("/mcp", client.HTTPHandler())
package mcp
