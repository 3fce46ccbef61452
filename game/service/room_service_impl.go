package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// roomServiceImpl implements the RoomService interface
type roomServiceImpl struct {
	rooms     RoomStore
	conns     ConnectionCounter
	startedAt time.Time
	now       func() time.Time
}

// NewRoomService creates a new room service instance
func NewRoomService(rooms RoomStore, conns ConnectionCounter) RoomService {
	return &roomServiceImpl{
		rooms:     rooms,
		conns:     conns,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// ListRooms returns a summary of every live room ordered by ID
func (s *roomServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lo.Map(s.rooms.List(), func(snap room.Snapshot, _ int) *RoomInfo {
		info := toRoomInfo(snap)
		return &info
	}), nil
}

// GetRoom returns one room with its members' positions
func (s *roomServiceImpl) GetRoom(ctx context.Context, roomID string) (*RoomDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.rooms.Snapshot(roomID)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	return &RoomDetail{
		RoomInfo: toRoomInfo(snap),
		Players:  snap.Players,
	}, nil
}

// Stats returns server-wide counters
func (s *roomServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members := s.rooms.MemberCount()
	conns := s.conns.Count()
	return &Stats{
		Rooms:       s.rooms.Count(),
		Members:     members,
		Connections: conns,
		Unbound:     max(conns-members, 0),
		StartedAt:   s.startedAt,
		Uptime:      s.now().Sub(s.startedAt).Round(time.Second).String(),
	}, nil
}

func toRoomInfo(snap room.Snapshot) RoomInfo {
	return RoomInfo{
		ID:        snap.RoomID,
		HostID:    snap.HostID,
		Members:   len(snap.Players),
		Capacity:  room.Capacity,
		Full:      len(snap.Players) >= room.Capacity,
		CreatedAt: snap.CreatedAt,
	}
}
