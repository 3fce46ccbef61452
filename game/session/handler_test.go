package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/roomsync/game/protocol"
	"github.com/wricardo/mcp-training/roomsync/game/registry"
	"github.com/wricardo/mcp-training/roomsync/game/room"
)

// frame is the union of every outbound field, for decoding in tests.
type frame struct {
	Type        protocol.Kind      `json:"type"`
	RoomID      string             `json:"roomId"`
	PlayerID    string             `json:"playerId"`
	Message     string             `json:"message"`
	Players     []room.PlayerState `json:"players"`
	TriggeredBy string             `json:"triggeredBy"`
	Level       json.RawMessage    `json:"level"`
}

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	fail   bool
	panics bool
}

func (c *fakeConn) Send(data []byte) error {
	if c.panics {
		panic("transport exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection closed")
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) all() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.frames...)
}

func (c *fakeConn) last(t *testing.T) frame {
	t.Helper()
	frames := c.all()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func (c *fakeConn) kinds() []protocol.Kind {
	var out []protocol.Kind
	for _, f := range c.all() {
		out = append(out, f.Type)
	}
	return out
}

// sequentialIDs issues room IDs 1000, 1001, ... so tests can name absent rooms.
func sequentialIDs() room.IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%d", 1000+n.Add(1)-1)
	}
}

type harness struct {
	store   *room.Store
	reg     *registry.Registry
	handler *Handler
}

func newHarness(opts ...room.Option) *harness {
	opts = append([]room.Option{room.WithIDGenerator(sequentialIDs())}, opts...)
	store := room.NewStore(opts...)
	reg := registry.New()
	return &harness{
		store:   store,
		reg:     reg,
		handler: NewHandler(store, reg, slog.New(slog.DiscardHandler)),
	}
}

func (h *harness) connect() (*Session, *fakeConn) {
	c := &fakeConn{}
	return h.handler.Connect(c), c
}

func (h *harness) send(s *Session, msg string) {
	h.handler.HandleMessage(s, []byte(msg))
}

func join(roomID string) string {
	return fmt.Sprintf(`{"type":"join-room","roomId":%q}`, roomID)
}

func update(x, y, z float64) string {
	return fmt.Sprintf(`{"type":"update","position":{"x":%v,"y":%v,"z":%v}}`, x, y, z)
}

// createAndJoin builds a full room and clears both connections' frames.
func (h *harness) createAndJoin(t *testing.T) (roomID string, s1, s2 *Session, c1, c2 *fakeConn) {
	t.Helper()
	s1, c1 = h.connect()
	s2, c2 = h.connect()
	h.send(s1, `{"type":"create-room"}`)
	roomID = c1.all()[0].RoomID
	h.send(s2, join(roomID))
	require.Equal(t, Bound, s2.State())
	c1.reset()
	c2.reset()
	return roomID, s1, s2, c1, c2
}

func TestHandler_ScenarioA_CreateAndJoin(t *testing.T) {
	h := newHarness()
	s1, c1 := h.connect()
	s2, c2 := h.connect()

	h.send(s1, `{"type":"create-room"}`)

	frames := c1.all()
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.KindRoomCreated, frames[0].Type)
	assert.Equal(t, s1.ID(), frames[0].PlayerID)
	roomID := frames[0].RoomID
	assert.Len(t, roomID, 4)
	assert.Equal(t, protocol.KindState, frames[1].Type)
	assert.Equal(t, []room.PlayerState{{ID: s1.ID(), Position: room.DefaultSpawn}}, frames[1].Players)
	assert.Equal(t, Bound, s1.State())
	assert.Equal(t, roomID, s1.RoomID())

	h.send(s2, join(roomID))

	assert.Equal(t, []protocol.Kind{protocol.KindRoomJoined, protocol.KindState}, c2.kinds())
	joined := c2.all()[0]
	assert.Equal(t, roomID, joined.RoomID)
	assert.Equal(t, s2.ID(), joined.PlayerID)
	assert.Equal(t, Bound, s2.State())

	want := []room.PlayerState{
		{ID: s1.ID(), Position: room.DefaultSpawn},
		{ID: s2.ID(), Position: room.DefaultSpawn},
	}
	assert.Equal(t, want, c1.last(t).Players)
	assert.Equal(t, want, c2.last(t).Players)
	require.NoError(t, h.store.CheckInvariants())
}

func TestHandler_ScenarioB_RoomNotFound(t *testing.T) {
	h := newHarness()
	s, c := h.connect()

	h.send(s, join("9999"))

	assert.Equal(t, []frame{{Type: protocol.KindError, Message: "Room not found"}}, c.all())
	assert.Equal(t, Unbound, s.State())

	// may retry with a room that exists
	host, hc := h.connect()
	h.send(host, `{"type":"create-room"}`)
	h.send(s, join(hc.all()[0].RoomID))
	assert.Equal(t, Bound, s.State())
}

func TestHandler_ScenarioC_RoomFull(t *testing.T) {
	h := newHarness()
	roomID, _, _, c1, c2 := h.createAndJoin(t)
	s4, c4 := h.connect()

	h.send(s4, join(roomID))

	assert.Equal(t, []frame{{Type: protocol.KindError, Message: "Room is full"}}, c4.all())
	assert.Equal(t, Unbound, s4.State())
	assert.Empty(t, c1.all(), "existing members are not notified of a refused join")
	assert.Empty(t, c2.all())

	snap, err := h.store.Snapshot(roomID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, room.Capacity)
}

func TestHandler_ScenarioD_UpdateIsBroadcastAndEchoed(t *testing.T) {
	h := newHarness()
	_, s1, s2, c1, c2 := h.createAndJoin(t)

	h.send(s1, update(1, 1, 1))

	want := []room.PlayerState{
		{ID: s1.ID(), Position: room.Position{X: 1, Y: 1, Z: 1}},
		{ID: s2.ID(), Position: room.DefaultSpawn},
	}
	for _, c := range []*fakeConn{c1, c2} {
		require.Len(t, c.all(), 1)
		f := c.last(t)
		assert.Equal(t, protocol.KindState, f.Type)
		assert.Equal(t, want, f.Players)
	}
}

func TestHandler_ScenarioE_DisconnectNotifiesRemaining(t *testing.T) {
	h := newHarness()
	roomID, s1, s2, c1, c2 := h.createAndJoin(t)

	h.handler.Disconnect(s1)

	assert.Equal(t, Closed, s1.State())
	assert.Empty(t, c1.all())
	f := c2.last(t)
	assert.Equal(t, protocol.KindState, f.Type)
	assert.Equal(t, []room.PlayerState{{ID: s2.ID(), Position: room.DefaultSpawn}}, f.Players)

	snap, err := h.store.Snapshot(roomID)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)
	_, ok := h.reg.Lookup(s1.ID())
	assert.False(t, ok)
	require.NoError(t, h.store.CheckInvariants())
}

func TestHandler_ScenarioF_EmptyRoomIsGone(t *testing.T) {
	h := newHarness()
	roomID, s1, s2, _, _ := h.createAndJoin(t)

	h.handler.Disconnect(s1)
	h.handler.Disconnect(s2)

	assert.False(t, h.store.Exists(roomID))
	assert.Equal(t, 0, h.reg.Count())

	s3, c3 := h.connect()
	h.send(s3, join(roomID))
	assert.Equal(t, "Room not found", c3.last(t).Message)
	require.NoError(t, h.store.CheckInvariants())
}

func TestHandler_UnboundDropsRoomMessages(t *testing.T) {
	h := newHarness()
	s, c := h.connect()

	h.send(s, update(1, 2, 3))
	h.send(s, `{"type":"noclip"}`)
	h.send(s, `{"type":"level-complete","level":"level-1"}`)

	assert.Empty(t, c.all())
	assert.Equal(t, Unbound, s.State())
	assert.Equal(t, 0, h.store.Count())
}

func TestHandler_BoundRejectsSecondRoom(t *testing.T) {
	h := newHarness()
	roomID, s1, _, c1, _ := h.createAndJoin(t)

	h.send(s1, `{"type":"create-room"}`)
	h.send(s1, join("1234"))

	assert.Equal(t, []frame{
		{Type: protocol.KindError, Message: "Already in a room"},
		{Type: protocol.KindError, Message: "Already in a room"},
	}, c1.all())
	assert.Equal(t, roomID, s1.RoomID())
	assert.Equal(t, 1, h.store.Count())
}

func TestHandler_MalformedMessagesAreIgnored(t *testing.T) {
	h := newHarness()
	_, s1, _, c1, c2 := h.createAndJoin(t)

	for _, msg := range []string{`garbage`, `{}`, `{"type":"dance"}`, `{"type":"update"}`, `{"type":"update","position":{"x":1}}`} {
		h.send(s1, msg)
	}

	assert.Empty(t, c1.all())
	assert.Empty(t, c2.all())
	assert.Equal(t, Bound, s1.State())
}

func TestHandler_OutOfBandUpdateIsDropped(t *testing.T) {
	h := newHarness()
	_, s1, _, c1, c2 := h.createAndJoin(t)

	// The store lost the membership while the session still claims Bound.
	h.store.RemovePlayer(s1.ID())
	c2.reset()

	h.send(s1, update(4, 4, 4))
	h.send(s1, `{"type":"noclip"}`)

	assert.Empty(t, c1.all())
	assert.Empty(t, c2.all())
}

func TestHandler_RelayEvents(t *testing.T) {
	h := newHarness()
	_, s1, s2, c1, c2 := h.createAndJoin(t)

	h.send(s2, `{"type":"noclip"}`)
	for _, c := range []*fakeConn{c1, c2} {
		f := c.last(t)
		assert.Equal(t, protocol.KindTriggerNoclip, f.Type)
		assert.Equal(t, s2.ID(), f.TriggeredBy)
	}

	h.send(s1, `{"type":"level-complete","level":"level-3"}`)
	for _, c := range []*fakeConn{c1, c2} {
		f := c.last(t)
		assert.Equal(t, protocol.KindTriggerLevelComplete, f.Type)
		assert.Equal(t, s1.ID(), f.TriggeredBy)
		assert.JSONEq(t, `"level-3"`, string(f.Level))
	}

	snap, err := h.store.Snapshot(s1.RoomID())
	require.NoError(t, err)
	for _, p := range snap.Players {
		assert.Equal(t, room.DefaultSpawn, p.Position, "relay does not touch positions")
	}
}

func TestHandler_NoRoomAvailable(t *testing.T) {
	h := newHarness(room.WithIDGenerator(func() string { return "4242" }), room.WithIDAttempts(2))
	s1, _ := h.connect()
	s2, c2 := h.connect()

	h.send(s1, `{"type":"create-room"}`)
	h.send(s2, `{"type":"create-room"}`)

	assert.Equal(t, []frame{{Type: protocol.KindError, Message: "No room available"}}, c2.all())
	assert.Equal(t, Unbound, s2.State())
}

func TestHandler_BroadcastSurvivesBrokenMember(t *testing.T) {
	h := newHarness()
	_, s1, _, c1, c2 := h.createAndJoin(t)

	c1.fail = true
	h.send(s1, update(7, 1, 7))

	f := c2.last(t)
	assert.Equal(t, room.Position{X: 7, Y: 1, Z: 7}, f.Players[0].Position)
}

func TestHandler_PanicIsContained(t *testing.T) {
	h := newHarness()
	bad := &fakeConn{panics: true}
	s := h.handler.Connect(bad)

	assert.NotPanics(t, func() {
		h.send(s, join("9999"))
	})

	// the handler lock was released and other sessions keep working
	s2, c2 := h.connect()
	h.send(s2, `{"type":"create-room"}`)
	assert.Equal(t, protocol.KindRoomCreated, c2.all()[0].Type)
}

func TestHandler_DisconnectIsIdempotent(t *testing.T) {
	h := newHarness()
	_, s1, _, _, c2 := h.createAndJoin(t)

	h.handler.Disconnect(s1)
	h.handler.Disconnect(s1)

	assert.Len(t, c2.all(), 1)
}

func TestHandler_DisconnectUnbound(t *testing.T) {
	h := newHarness()
	s, _ := h.connect()
	require.Equal(t, 1, h.reg.Count())

	h.handler.Disconnect(s)

	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 0, h.reg.Count())
}

func TestHandler_ClosedDropsEverything(t *testing.T) {
	h := newHarness()
	s, c := h.connect()
	h.handler.Disconnect(s)

	h.send(s, `{"type":"create-room"}`)

	assert.Empty(t, c.all())
	assert.Equal(t, 0, h.store.Count())
}

func TestHandler_ConcurrentJoinsRespectCapacity(t *testing.T) {
	h := newHarness()
	host, hc := h.connect()
	h.send(host, `{"type":"create-room"}`)
	roomID := hc.all()[0].RoomID

	const guests = 40
	sessions := make([]*Session, guests)
	conns := make([]*fakeConn, guests)
	for i := range sessions {
		sessions[i], conns[i] = h.connect()
	}

	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			h.send(s, join(roomID))
		}(sessions[i])
	}
	wg.Wait()

	joined, full := 0, 0
	for i, c := range conns {
		first := c.all()[0]
		switch first.Type {
		case protocol.KindRoomJoined:
			joined++
			assert.Equal(t, Bound, sessions[i].State())
		case protocol.KindError:
			full++
			assert.Equal(t, "Room is full", first.Message)
			assert.Equal(t, Unbound, sessions[i].State())
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, guests-1, full)
	require.NoError(t, h.store.CheckInvariants())
}
