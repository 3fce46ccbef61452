// Package api provides the HTTP surface of the roomsync server.
//
// The api package implements:
//   - WebSocket upgrade on /ws and on the bare root path
//   - Read-only REST endpoints for inspecting rooms
//   - CORS for browser clients
//   - Request logging for REST calls
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List live rooms with host and member count
//   - GET /api/rooms/{id} - Get one room with member positions (404 if absent)
//
// Server:
//   - GET /api/stats - Room, member and connection counters
//   - GET /healthz - Liveness probe
//
// WebSocket:
//   - GET /ws - Upgrade to the room protocol
//   - GET / - Upgrade when requested, otherwise a JSON service description
//
// There are no mutating REST endpoints. Rooms are only created, joined and
// left through the websocket protocol.
package api
