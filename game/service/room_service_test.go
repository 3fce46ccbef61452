package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/roomsync/game/registry"
	"github.com/wricardo/mcp-training/roomsync/game/room"
	"github.com/wricardo/mcp-training/roomsync/game/service"
)

type nopConn struct{}

func (nopConn) Send([]byte) error { return nil }
func (nopConn) Close() error      { return nil }

// MockCounter implements service.ConnectionCounter for testing
type MockCounter struct{ n int }

func (m MockCounter) Count() int { return m.n }

func newStoreWithRooms(t *testing.T) (*room.Store, string, string) {
	t.Helper()
	ids := []string{"2000", "1000"}
	store := room.NewStore(room.WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))

	full, err := store.CreateRoom("alice")
	require.NoError(t, err)
	require.NoError(t, store.JoinRoom(full, "bob"))
	_, err = store.UpdatePosition("bob", room.Position{X: 2, Y: 1, Z: 3})
	require.NoError(t, err)

	half, err := store.CreateRoom("carol")
	require.NoError(t, err)
	return store, full, half
}

func TestRoomService_ListRooms(t *testing.T) {
	store, _, _ := newStoreWithRooms(t)
	svc := service.NewRoomService(store, MockCounter{})

	rooms, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "1000", rooms[0].ID)
	assert.Equal(t, "carol", rooms[0].HostID)
	assert.Equal(t, 1, rooms[0].Members)
	assert.False(t, rooms[0].Full)

	assert.Equal(t, "2000", rooms[1].ID)
	assert.Equal(t, 2, rooms[1].Members)
	assert.Equal(t, room.Capacity, rooms[1].Capacity)
	assert.True(t, rooms[1].Full)
}

func TestRoomService_ListRoomsEmpty(t *testing.T) {
	svc := service.NewRoomService(room.NewStore(), MockCounter{})

	rooms, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestRoomService_GetRoom(t *testing.T) {
	store, full, _ := newStoreWithRooms(t)
	svc := service.NewRoomService(store, MockCounter{})

	detail, err := svc.GetRoom(context.Background(), full)
	require.NoError(t, err)
	assert.Equal(t, full, detail.ID)
	assert.Equal(t, []room.PlayerState{
		{ID: "alice", Position: room.DefaultSpawn},
		{ID: "bob", Position: room.Position{X: 2, Y: 1, Z: 3}},
	}, detail.Players)

	_, err = svc.GetRoom(context.Background(), "9999")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRoomService_Stats(t *testing.T) {
	store, _, _ := newStoreWithRooms(t)
	conns := registry.New()
	for i := 0; i < 5; i++ {
		conns.Register(nopConn{})
	}
	svc := service.NewRoomService(store, conns)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 3, stats.Members)
	assert.Equal(t, 5, stats.Connections)
	assert.Equal(t, 2, stats.Unbound)
	assert.WithinDuration(t, time.Now(), stats.StartedAt, time.Minute)
	assert.NotEmpty(t, stats.Uptime)
}

func TestRoomService_CanceledContext(t *testing.T) {
	svc := service.NewRoomService(room.NewStore(), MockCounter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ListRooms(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.GetRoom(ctx, "1000")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
