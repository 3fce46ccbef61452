package session

import "github.com/wricardo/mcp-training/roomsync/game/protocol"

// State is the lifecycle position of one connection.
type State int

const (
	// Unbound connections are connected but not in a room.
	Unbound State = iota
	// Bound connections are a member of exactly one room.
	Bound
	// Closed is terminal; the connection is gone.
	Closed
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome is what the handler does with an inbound kind in a given state.
type Outcome int

const (
	// Apply runs the kind's operation.
	Apply Outcome = iota
	// Drop ignores the message without replying.
	Drop
	// Reject answers with an error frame and keeps the current state.
	Reject
)

func (o Outcome) String() string {
	switch o {
	case Apply:
		return "apply"
	case Drop:
		return "drop"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

var transitions = map[State]map[protocol.Kind]Outcome{
	Unbound: {
		protocol.KindCreateRoom:    Apply,
		protocol.KindJoinRoom:      Apply,
		protocol.KindUpdate:        Drop,
		protocol.KindNoclip:        Drop,
		protocol.KindLevelComplete: Drop,
	},
	Bound: {
		protocol.KindCreateRoom:    Reject,
		protocol.KindJoinRoom:      Reject,
		protocol.KindUpdate:        Apply,
		protocol.KindNoclip:        Apply,
		protocol.KindLevelComplete: Apply,
	},
	Closed: {
		protocol.KindCreateRoom:    Drop,
		protocol.KindJoinRoom:      Drop,
		protocol.KindUpdate:        Drop,
		protocol.KindNoclip:        Drop,
		protocol.KindLevelComplete: Drop,
	},
}

// Decide looks up the transition table. Unknown pairs are dropped.
func Decide(state State, kind protocol.Kind) Outcome {
	if o, ok := transitions[state][kind]; ok {
		return o
	}
	return Drop
}
