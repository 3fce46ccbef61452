// Package session implements the per-connection protocol state machine of
// the roomsync server.
//
// The session package implements:
//   - Identity assignment when a connection arrives (Connect)
//   - Decoding and dispatch of inbound frames (HandleMessage)
//   - Room creation, joining, position updates and event relay
//   - Cleanup when a connection goes away (Disconnect)
//
// State Machine:
//
// Every connection is in one of three states:
//
//	Unbound --create-room / join-room ok--> Bound
//	Unbound --join-room refused-----------> Unbound (error reply)
//	Bound   --update / noclip / level-complete--> Bound
//	any     --disconnect------------------> Closed
//
// The transition table in state.go decides, for every state and inbound kind,
// whether the message is applied, dropped silently, or rejected with an error
// frame. Messages in the Closed state are always dropped.
//
// Errors:
//
// Refusals a player can act on ("Room not found", "Room is full",
// "Already in a room", "No room available") are answered with an error frame.
// Malformed frames and out-of-band updates are logged and dropped. A panic
// while handling one message is recovered and logged; it never reaches other
// connections or the transport.
//
// Concurrency:
//
// Handler serializes message processing with a single mutex, giving the
// whole server one logical event loop over the room store. Sends are
// non-blocking, so holding the lock across a broadcast is safe.
package session
