package protocol

import (
	"encoding/json"
	"errors"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

var ErrMalformedMessage = errors.New("malformed message")

// Kind is the value of the "type" tag carried by every frame.
type Kind string

// Inbound kinds.
const (
	KindCreateRoom    Kind = "create-room"
	KindJoinRoom      Kind = "join-room"
	KindUpdate        Kind = "update"
	KindNoclip        Kind = "noclip"
	KindLevelComplete Kind = "level-complete"
)

// Outbound kinds.
const (
	KindRoomCreated          Kind = "room-created"
	KindRoomJoined           Kind = "room-joined"
	KindError                Kind = "error"
	KindState                Kind = "state"
	KindTriggerNoclip        Kind = "trigger-noclip"
	KindTriggerLevelComplete Kind = "trigger-level-complete"
)

// InboundKinds lists every kind a client may send.
var InboundKinds = []Kind{KindCreateRoom, KindJoinRoom, KindUpdate, KindNoclip, KindLevelComplete}

// Inbound is a decoded client message.
type Inbound interface {
	Kind() Kind
}

// CreateRoom asks the server for a new room with the sender as host.
type CreateRoom struct{}

// JoinRoom asks to become the second member of RoomID.
type JoinRoom struct {
	RoomID string
}

// Update replaces the sender's position.
type Update struct {
	Position room.Position
}

// Noclip asks the room to toggle noclip for everyone.
type Noclip struct{}

// LevelComplete announces that the sender finished Level. The level value is
// relayed to the room exactly as the client sent it.
type LevelComplete struct {
	Level json.RawMessage
}

func (CreateRoom) Kind() Kind    { return KindCreateRoom }
func (JoinRoom) Kind() Kind      { return KindJoinRoom }
func (Update) Kind() Kind        { return KindUpdate }
func (Noclip) Kind() Kind        { return KindNoclip }
func (LevelComplete) Kind() Kind { return KindLevelComplete }

// RoomCreated is sent to the host after create-room.
type RoomCreated struct {
	Type     Kind   `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// RoomJoined is sent to the joiner after a successful join-room.
type RoomJoined struct {
	Type     Kind   `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// Error is sent to a requester whose request was refused.
type Error struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

// State is the full membership and position snapshot of a room.
type State struct {
	Type    Kind               `json:"type"`
	Players []room.PlayerState `json:"players"`
}

// TriggerNoclip is relayed to every member after a noclip message.
type TriggerNoclip struct {
	Type        Kind   `json:"type"`
	TriggeredBy string `json:"triggeredBy"`
}

// TriggerLevelComplete is relayed to every member after a level-complete
// message.
type TriggerLevelComplete struct {
	Type        Kind            `json:"type"`
	Level       json.RawMessage `json:"level"`
	TriggeredBy string          `json:"triggeredBy"`
}

// NewRoomCreated builds a room-created reply.
func NewRoomCreated(roomID, playerID string) RoomCreated {
	return RoomCreated{Type: KindRoomCreated, RoomID: roomID, PlayerID: playerID}
}

// NewRoomJoined builds a room-joined reply.
func NewRoomJoined(roomID, playerID string) RoomJoined {
	return RoomJoined{Type: KindRoomJoined, RoomID: roomID, PlayerID: playerID}
}

// NewError builds an error reply whose message is ErrorText(err).
func NewError(err error) Error {
	return Error{Type: KindError, Message: ErrorText(err)}
}

// NewState builds a state message from a room snapshot.
func NewState(snap room.Snapshot) State {
	players := snap.Players
	if players == nil {
		players = []room.PlayerState{}
	}
	return State{Type: KindState, Players: players}
}

// NewTriggerNoclip builds a trigger-noclip relay.
func NewTriggerNoclip(playerID string) TriggerNoclip {
	return TriggerNoclip{Type: KindTriggerNoclip, TriggeredBy: playerID}
}

// NewTriggerLevelComplete builds a trigger-level-complete relay.
func NewTriggerLevelComplete(level json.RawMessage, playerID string) TriggerLevelComplete {
	return TriggerLevelComplete{Type: KindTriggerLevelComplete, Level: level, TriggeredBy: playerID}
}

// Encode serializes an outbound message into a single text frame.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// ErrorText maps a refusal to the text clients display.
func ErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, room.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, room.ErrAlreadyInRoom):
		return "Already in a room"
	case errors.Is(err, room.ErrIDSpaceExhausted):
		return "No room available"
	default:
		return "Internal error"
	}
}
