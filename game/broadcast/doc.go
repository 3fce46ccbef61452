// Package broadcast fans room snapshots and relayed events out to every
// member of a room.
//
// Delivery is fire-and-forget. Each member is sent to independently; a send
// that fails is logged at debug level and the loop moves on, since a broken
// transport is always followed by that connection's own disconnect. There is
// no acknowledgement and no retry.
package broadcast
