package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/roomsync/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"roomsync",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`roomsync - MCP Interface

Read-only view of a running roomsync server. Players create and join rooms over
the websocket protocol; these tools let you watch what is happening.

AVAILABLE TOOLS:
- list_rooms: List live rooms with member counts
- get_room: Show one room with every member's position
- server_stats: Room, member and connection counters
- protocol_help: Describe the websocket messages clients exchange

Rooms hold at most two players and disappear as soon as the last player leaves.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get a room's host, members and their positions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID (four digits, e.g. 4821)",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get server-wide room and connection counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_help",
		Description: "Describe the websocket message protocol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolHelp)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages posted to it.
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                `json:"count"`
		Rooms []service.RoomInfo `json:"rooms"`
	}

	if err := c.apiCall(ctx, "/api/rooms", &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomList(response.Rooms)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var detail service.RoomDetail
	if err := c.apiCall(ctx, "/api/rooms/"+url.PathEscape(roomID), &detail); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomDetail(&detail)), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "/api/stats", &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleProtocolHelp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(protocolHelp), nil
}

const protocolHelp = `roomsync websocket protocol

Connect to ws://<host>:<port>/ (or /ws). Every frame is one JSON object with a
"type" field. Positions are meters in world space.

CLIENT -> SERVER:
  {"type":"create-room"}
  {"type":"join-room","roomId":"4821"}
  {"type":"update","position":{"x":1.5,"y":1,"z":-3}}
  {"type":"noclip"}
  {"type":"level-complete","level":"2"}

SERVER -> CLIENT:
  {"type":"room-created","roomId":"4821","playerId":"k3j9x0a2b"}
  {"type":"room-joined","roomId":"4821","playerId":"p0q8w2e7r"}
  {"type":"state","players":[{"id":"k3j9x0a2b","position":{"x":0,"y":1,"z":0}}]}
  {"type":"trigger-noclip","triggeredBy":"k3j9x0a2b"}
  {"type":"trigger-level-complete","level":"2","triggeredBy":"k3j9x0a2b"}
  {"type":"error","message":"Room not found"}

RULES:
- A room holds two players. Joining a full room returns "Room is full".
- create-room and join-room are only accepted once per connection; a second one
  returns "Already in a room".
- update, noclip and level-complete are ignored until the connection is in a room.
- Every create, join, update and disconnect is followed by a state message to
  every member of the room.
- A room is deleted when its last member disconnects.`

// Formatting helpers

func formatRoomList(rooms []service.RoomInfo) string {
	if len(rooms) == 0 {
		return "No live rooms."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Live Rooms (%d):\n\n", len(rooms))
	for _, r := range rooms {
		status := "waiting"
		if r.Full {
			status = "full"
		}
		fmt.Fprintf(&b, "- %s: %d/%d players, %s (host %s, created %s)\n",
			r.ID, r.Members, r.Capacity, status, r.HostID, r.CreatedAt.Format("15:04:05"))
	}
	return b.String()
}

func formatRoomDetail(d *service.RoomDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s\n", d.ID)
	fmt.Fprintf(&b, "Host: %s\n", d.HostID)
	fmt.Fprintf(&b, "Players: %d/%d\n", d.Members, d.Capacity)
	fmt.Fprintf(&b, "Created: %s\n\n", d.CreatedAt.Format(time.RFC3339))

	for _, p := range d.Players {
		marker := ""
		if p.ID == d.HostID {
			marker = " (host)"
		}
		fmt.Fprintf(&b, "- %s%s at (%.2f, %.2f, %.2f)\n",
			p.ID, marker, p.Position.X, p.Position.Y, p.Position.Z)
	}
	return b.String()
}

func formatStats(s *service.Stats) string {
	var b strings.Builder
	b.WriteString("Server Stats\n")
	fmt.Fprintf(&b, "Rooms: %d\n", s.Rooms)
	fmt.Fprintf(&b, "Players in rooms: %d\n", s.Members)
	fmt.Fprintf(&b, "Connections: %d (%d not in a room)\n", s.Connections, s.Unbound)
	if s.Uptime != "" {
		fmt.Fprintf(&b, "Uptime: %s\n", s.Uptime)
	}
	return b.String()
}
