// Package websocket provides the WebSocket transport of the roomsync server.
//
// The websocket package implements:
//   - HTTP upgrade and per-connection read/write pumps
//   - One JSON frame per WebSocket message; text and binary frames are read
//   - Non-blocking, buffered sends so one slow peer never stalls a broadcast
//   - Optional heartbeats: with an idle timeout set, the hub pings every
//     PingPeriod and drops a peer that stays silent past the timeout
//   - Graceful shutdown with a normal close frame to every peer
//
// Architecture:
//
// A central Hub tracks live clients through its Run loop. Each Client has a
// read pump, which hands frames to the session handler in arrival order, and
// a write pump, which drains the client's send buffer. A Client is the
// registry.Conn handle the session layer sends through.
//
// Usage:
//
//	handler := session.NewHandler(store, conns, logger)
//	hub := websocket.NewHub(handler, websocket.Options{}, logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Request is upgraded and the session handler assigns a player identity
// 2. Client is registered with the hub and its pumps start
// 3. Frames are processed one at a time until the peer goes away
// 4. The read pump runs the session's disconnect cleanup and unregisters
//
// Concurrency:
//
// Send may be called from any goroutine. It never blocks: a full buffer
// closes the client, whose disconnect cleanup then runs as usual.
package websocket
