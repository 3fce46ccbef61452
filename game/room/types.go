package room

import "time"

// Capacity is the maximum number of members a room can hold.
const Capacity = 2

// Position is a point in world space, in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DefaultSpawn is where new members are placed until their first update.
var DefaultSpawn = Position{X: 0, Y: 1, Z: 0}

// Member is a player's membership record inside a room.
type Member struct {
	PlayerID string
	Position Position
	JoinedAt time.Time
}

// Room groups up to Capacity members sharing one position state.
type Room struct {
	ID        string
	HostID    string
	CreatedAt time.Time

	members map[string]*Member
	order   []string // join order, used for stable snapshots
}

func newRoom(id, hostID string, spawn Position, now time.Time) *Room {
	r := &Room{
		ID:        id,
		HostID:    hostID,
		CreatedAt: now,
		members:   make(map[string]*Member, Capacity),
	}
	r.add(hostID, spawn, now)
	return r
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// IsFull reports whether the room has reached Capacity.
func (r *Room) IsFull() bool {
	return len(r.members) >= Capacity
}

// Has reports whether playerID is a member of the room.
func (r *Room) Has(playerID string) bool {
	_, ok := r.members[playerID]
	return ok
}

func (r *Room) add(playerID string, pos Position, now time.Time) {
	r.members[playerID] = &Member{PlayerID: playerID, Position: pos, JoinedAt: now}
	r.order = append(r.order, playerID)
}

func (r *Room) remove(playerID string) {
	delete(r.members, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// PlayerState is one entry of a room snapshot.
type PlayerState struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

// Snapshot is a point-in-time copy of a room's membership and positions.
// Players are listed in join order.
type Snapshot struct {
	RoomID    string        `json:"room_id"`
	HostID    string        `json:"host_id"`
	CreatedAt time.Time     `json:"created_at"`
	Players   []PlayerState `json:"players"`
}

// PlayerIDs returns the IDs of the players in the snapshot.
func (s Snapshot) PlayerIDs() []string {
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) snapshot() Snapshot {
	players := make([]PlayerState, 0, len(r.order))
	for _, id := range r.order {
		m := r.members[id]
		players = append(players, PlayerState{ID: m.PlayerID, Position: m.Position})
	}
	return Snapshot{
		RoomID:    r.ID,
		HostID:    r.HostID,
		CreatedAt: r.CreatedAt,
		Players:   players,
	}
}

// Removal describes the effect of removing a player from its room.
type Removal struct {
	RoomID      string
	RoomDeleted bool
	Remaining   int
}
