// Package room provides the authoritative room store for the roomsync server.
//
// The room package implements:
//   - Thread-safe room storage keyed by a short, human-shareable room ID
//   - Capacity enforcement (at most two members per room)
//   - Per-member positions with last-write-wins updates
//   - A player -> room reverse index kept in lockstep with room membership
//   - Immediate deletion of rooms whose last member leaves
//
// Core Types:
//
// Store owns every Room and the reverse index. A Room holds its host ID and a
// set of Members, each carrying a Position in world-space meters. Snapshot is
// the read-only view handed to broadcasters and the REST API.
//
// Room Identifiers:
//
// Room IDs are fixed-width numeric strings (four digits by default, in the
// range 1000-9999). New IDs are checked against live rooms and redrawn on
// collision up to a configurable number of attempts.
//
// Concurrency:
//
// All mutations take the store's write lock, so membership and the reverse
// index never disagree, even when many connections act at once.
//
// Usage:
//
//	store := room.NewStore()
//
//	roomID, err := store.CreateRoom(hostID)
//	if err != nil {
//		return err
//	}
//
//	if err := store.JoinRoom(roomID, guestID); errors.Is(err, room.ErrRoomFull) {
//		// tell the guest
//	}
//
//	snap, _ := store.Snapshot(roomID)
package room
