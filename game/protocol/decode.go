package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/roomsync/game/room"
)

type envelope struct {
	Type     Kind            `json:"type"`
	RoomID   json.RawMessage `json:"roomId"`
	Position *wirePosition   `json:"position"`
	Level    json.RawMessage `json:"level"`
}

type wirePosition struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Decode parses one client frame. Any frame that is not a JSON object tagged
// with a known inbound kind and carrying that kind's fields fails with an
// error wrapping ErrMalformedMessage.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch env.Type {
	case KindCreateRoom:
		return CreateRoom{}, nil

	case KindJoinRoom:
		// A non-string room ID can never match a live room; it is carried
		// as empty so the join fails with "Room not found".
		var roomID string
		_ = json.Unmarshal(env.RoomID, &roomID)
		return JoinRoom{RoomID: roomID}, nil

	case KindUpdate:
		p := env.Position
		if p == nil || p.X == nil || p.Y == nil || p.Z == nil {
			return nil, fmt.Errorf("%w: update needs position {x, y, z}", ErrMalformedMessage)
		}
		return Update{Position: room.Position{X: *p.X, Y: *p.Y, Z: *p.Z}}, nil

	case KindNoclip:
		return Noclip{}, nil

	case KindLevelComplete:
		if len(env.Level) == 0 || bytes.Equal(env.Level, []byte("null")) {
			return nil, fmt.Errorf("%w: level-complete needs level", ErrMalformedMessage)
		}
		return LevelComplete{Level: env.Level}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
	}
}
