package room

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNotInRoom        = errors.New("player is not in a room")
	ErrAlreadyInRoom    = errors.New("player is already in a room")
	ErrIDSpaceExhausted = errors.New("no free room ID")
)

const (
	DefaultIDDigits   = 4
	DefaultIDAttempts = 32
)

// IDGenerator returns a candidate room ID. Candidates may collide with live
// rooms; the store redraws on collision.
type IDGenerator func() string

// NewNumericIDGenerator returns a generator of fixed-width decimal IDs with no
// leading zero, e.g. 1000-9999 for four digits.
func NewNumericIDGenerator(digits int) IDGenerator {
	if digits < 1 {
		digits = DefaultIDDigits
	}
	low := 1
	for i := 1; i < digits; i++ {
		low *= 10
	}
	high := low * 10
	if digits == 1 {
		low = 0
	}
	return func() string {
		return strconv.Itoa(low + rand.IntN(high-low))
	}
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default four-digit generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithIDAttempts sets how many candidates CreateRoom draws before giving up.
func WithIDAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithSpawn sets the position new members start at.
func WithSpawn(pos Position) Option {
	return func(s *Store) {
		s.spawn = pos
	}
}

// Store is the authoritative mapping from room ID to Room, plus the derived
// player -> room reverse index.
type Store struct {
	rooms      map[string]*Room
	playerRoom map[string]string
	newID      IDGenerator
	attempts   int
	spawn      Position
	now        func() time.Time
	mu         sync.RWMutex
}

// NewStore creates an empty room store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:      make(map[string]*Room),
		playerRoom: make(map[string]string),
		newID:      NewNumericIDGenerator(DefaultIDDigits),
		attempts:   DefaultIDAttempts,
		spawn:      DefaultSpawn,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom creates a room with hostID as its only member at the spawn
// position and returns the new room ID.
func (s *Store) CreateRoom(hostID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, bound := s.playerRoom[hostID]; bound {
		return "", ErrAlreadyInRoom
	}

	for i := 0; i < s.attempts; i++ {
		id := s.newID()
		if _, taken := s.rooms[id]; taken {
			continue
		}

		s.rooms[id] = newRoom(id, hostID, s.spawn, s.now())
		s.playerRoom[hostID] = id
		return id, nil
	}

	return "", fmt.Errorf("%w after %d attempts", ErrIDSpaceExhausted, s.attempts)
}

// JoinRoom adds joinerID to roomID at the spawn position.
func (s *Store) JoinRoom(roomID, joinerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, bound := s.playerRoom[joinerID]; bound {
		return ErrAlreadyInRoom
	}

	r, exists := s.rooms[roomID]
	if !exists {
		return ErrRoomNotFound
	}
	if r.IsFull() {
		return ErrRoomFull
	}

	r.add(joinerID, s.spawn, s.now())
	s.playerRoom[joinerID] = roomID
	return nil
}

// UpdatePosition overwrites the player's position and returns the room it
// belongs to.
func (s *Store) UpdatePosition(playerID string, pos Position) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, bound := s.playerRoom[playerID]
	if !bound {
		return "", ErrNotInRoom
	}

	r, exists := s.rooms[roomID]
	if !exists {
		return "", ErrNotInRoom
	}
	m, ok := r.members[playerID]
	if !ok {
		return "", ErrNotInRoom
	}

	m.Position = pos
	return roomID, nil
}

// RemovePlayer removes playerID from its room and from the reverse index.
// A room left without members is deleted. The boolean is false when the
// player was not in a room.
func (s *Store) RemovePlayer(playerID string) (Removal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, bound := s.playerRoom[playerID]
	if !bound {
		return Removal{}, false
	}
	delete(s.playerRoom, playerID)

	r, exists := s.rooms[roomID]
	if !exists {
		return Removal{RoomID: roomID, RoomDeleted: true}, true
	}

	r.remove(playerID)
	if r.Len() == 0 {
		delete(s.rooms, roomID)
		return Removal{RoomID: roomID, RoomDeleted: true}, true
	}

	return Removal{RoomID: roomID, Remaining: r.Len()}, true
}

// RoomOf returns the room playerID belongs to.
func (s *Store) RoomOf(playerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.playerRoom[playerID]
	return roomID, ok
}

// Exists reports whether roomID is live.
func (s *Store) Exists(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Snapshot returns a copy of the room's current membership and positions.
func (s *Store) Snapshot(roomID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rooms[roomID]
	if !exists {
		return Snapshot{}, ErrRoomNotFound
	}
	return r.snapshot(), nil
}

// List returns snapshots of all live rooms ordered by room ID.
func (s *Store) List() []Snapshot {
	s.mu.RLock()
	snaps := lo.MapToSlice(s.rooms, func(_ string, r *Room) Snapshot {
		return r.snapshot()
	})
	s.mu.RUnlock()

	slices.SortFunc(snaps, func(a, b Snapshot) int {
		return strings.Compare(a.RoomID, b.RoomID)
	})
	return snaps
}

// Count returns the number of live rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// MemberCount returns the number of players bound to a room.
func (s *Store) MemberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playerRoom)
}

// CheckInvariants verifies that no room is empty or over capacity and that
// the reverse index domain equals the union of all room members.
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	members := 0
	for id, r := range s.rooms {
		if r.ID != id {
			errs = append(errs, fmt.Errorf("room %s stored under key %s", r.ID, id))
		}
		switch n := r.Len(); {
		case n == 0:
			errs = append(errs, fmt.Errorf("room %s is empty", id))
		case n > Capacity:
			errs = append(errs, fmt.Errorf("room %s has %d members", id, n))
		}
		if len(r.order) != r.Len() {
			errs = append(errs, fmt.Errorf("room %s join order has %d entries for %d members", id, len(r.order), r.Len()))
		}
		for playerID := range r.members {
			members++
			indexed, ok := s.playerRoom[playerID]
			if !ok {
				errs = append(errs, fmt.Errorf("member %s of room %s missing from index", playerID, id))
				continue
			}
			if indexed != id {
				errs = append(errs, fmt.Errorf("member %s of room %s indexed under %s", playerID, id, indexed))
			}
		}
	}

	for _, playerID := range lo.Keys(s.playerRoom) {
		roomID := s.playerRoom[playerID]
		r, ok := s.rooms[roomID]
		if !ok || !r.Has(playerID) {
			errs = append(errs, fmt.Errorf("dangling index entry %s -> %s", playerID, roomID))
		}
	}

	if members != len(s.playerRoom) && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("index has %d entries for %d members", len(s.playerRoom), members))
	}

	return errors.Join(errs...)
}
