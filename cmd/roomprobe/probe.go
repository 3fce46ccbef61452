package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/roomsync/game/protocol"
	"github.com/wricardo/mcp-training/roomsync/game/room"
)

var ErrRefused = errors.New("server refused request")

// request is a client -> server frame.
type request map[string]any

func createRoom() request {
	return request{"type": protocol.KindCreateRoom}
}

func joinRoom(roomID string) request {
	return request{"type": protocol.KindJoinRoom, "roomId": roomID}
}

func update(pos room.Position) request {
	return request{"type": protocol.KindUpdate, "position": pos}
}

// reply holds the fields of any server -> client frame the probe reacts to.
type reply struct {
	Type     protocol.Kind `json:"type"`
	RoomID   string        `json:"roomId"`
	PlayerID string        `json:"playerId"`
	Message  string        `json:"message"`
}

// Probe drives one websocket connection.
type Probe struct {
	URL      string
	Interval time.Duration
	Start    room.Position
	Drift    bool
	Out      io.Writer

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Run dials the server, sends first, and then streams updates and prints
// replies until ctx is done or the server closes the connection. A refused
// create or join ends the run with ErrRefused.
func (p *Probe) Run(ctx context.Context, first request) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.URL, err)
	}
	p.conn = conn
	defer conn.Close()

	if err := p.send(first); err != nil {
		return err
	}

	bound := make(chan string, 1)
	readErr := make(chan error, 1)
	go func() { readErr <- p.read(bound) }()

	var ticks <-chan time.Time
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			return p.close()

		case err := <-readErr:
			return err

		case roomID := <-bound:
			fmt.Fprintf(p.Out, "# in room %s\n", roomID)
			if p.Interval > 0 {
				ticker := time.NewTicker(p.Interval)
				defer ticker.Stop()
				ticks = ticker.C
			}

		case now := <-ticks:
			if err := p.send(update(p.positionAt(now.Sub(started)))); err != nil {
				return err
			}
		}
	}
}

// read prints every frame and reports the room once the server binds us.
func (p *Probe) read(bound chan<- string) error {
	joined := false
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Fprintf(p.Out, "%s\n", data)

		var r reply
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		switch r.Type {
		case protocol.KindRoomCreated, protocol.KindRoomJoined:
			if !joined {
				joined = true
				bound <- r.RoomID
			}
		case protocol.KindError:
			if !joined {
				return fmt.Errorf("%w: %s", ErrRefused, r.Message)
			}
		}
	}
}

// positionAt is the probe's position elapsed after start.
func (p *Probe) positionAt(elapsed time.Duration) room.Position {
	if !p.Drift {
		return p.Start
	}
	angle := elapsed.Seconds()
	return room.Position{
		X: p.Start.X + 2*math.Cos(angle),
		Y: p.Start.Y,
		Z: p.Start.Z + 2*math.Sin(angle),
	}
}

func (p *Probe) send(msg request) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(msg)
}

func (p *Probe) close() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}
