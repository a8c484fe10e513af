package mcp

import (
	"bytes"
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
	"github.com/wricardo/collab-board/board/config"
	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/session"
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
		"Collaborative Board",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Collaborative Board - MCP Interface

This is a thin client that proxies all requests to the board's REST API.

The board hosts rooms. Each room has members, cards (positioned notes),
live cursors and a chat history of at most 100 messages. The room with id
"public" always exists. Private rooms may require a password to join.

AVAILABLE TOOLS:
- list_rooms: List public rooms with member counts
- get_room: Full snapshot of one room (members, cards, cursors)
- chat_history: Recent chat messages of a room
- create_room: Create a room (nobody is seated in it)
- server_stats: Room, connection and seat counts
- list_profiles: Settings profiles the server can be started with`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List public rooms with their member counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get a full snapshot of a room: members, cards and cursors",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID (use \"public\" for the main board)",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "chat_history",
		Description: "Get the most recent chat messages of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Number of messages to return (default 50, max 100)",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleChatHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Room name (default \"New Room\")",
				},
				"is_public": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the room is listed (default true)",
				},
				"password": map[string]interface{}{
					"type":        "string",
					"description": "Password required to join a private room (optional)",
				},
				"owner": map[string]interface{}{
					"type":        "string",
					"description": "Owner display name (default \"Anonymous\")",
				},
			},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_stats",
		Description: "Get room, connection and seated member counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_profiles",
		Description: "List the board settings profiles available on the server",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-read profile files from disk before listing (default false)",
				},
			},
		},
	}, c.handleListProfiles)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves single JSON-RPC messages over POST.
func (c *Client) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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
	}
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
		Count int            `json:"count"`
		Rooms []room.Summary `json:"rooms"`
	}

	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &response); err != nil {
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

	var view room.View
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomView(view)), nil
}

func (c *Client) handleChatHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	path := fmt.Sprintf("/api/rooms/%s/history", url.PathEscape(roomID))
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", int(limit))
	}

	var response struct {
		RoomID   string             `json:"roomId"`
		Count    int                `json:"count"`
		Messages []room.ChatMessage `json:"messages"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(response.RoomID, response.Messages)), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	var req session.CreateRoomRequest
	req.Name, _ = args["name"].(string)
	req.Password, _ = args["password"].(string)
	req.Owner, _ = args["owner"].(string)
	if isPublic, ok := args["is_public"].(bool); ok {
		req.IsPublic = &isPublic
	}

	var view room.View
	if err := c.apiCall(ctx, "POST", "/api/rooms", req, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	visibility := "public"
	if !view.IsPublic {
		visibility = "private"
	}
	result := fmt.Sprintf("Created room: %s\nName: %s\nVisibility: %s\nOwner: %s\n", view.ID, view.Name, visibility, view.Owner)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleServerStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats session.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Rooms: %d\nConnections: %d\nSeated members: %d\n", stats.Rooms, stats.Connections, stats.Seated)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListProfiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	method, path := "GET", "/api/profiles"
	if refresh, _ := args["refresh"].(bool); refresh {
		method, path = "POST", "/api/profiles/refresh"
	}

	var response struct {
		Count    int                   `json:"count"`
		Profiles []*config.ProfileInfo `json:"profiles"`
	}
	if err := c.apiCall(ctx, method, path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatProfiles(response.Profiles)), nil
}

// Formatting helpers

func formatProfiles(profiles []*config.ProfileInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Settings Profiles (%d):\n\n", len(profiles))
	for _, p := range profiles {
		fmt.Fprintf(&b, "- %s: %s (max %d users)", p.ProfileID, p.Name, p.MaxUsers)
		if p.Description != "" {
			fmt.Fprintf(&b, " - %s", p.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRoomList(rooms []room.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Public Rooms (%d):\n\n", len(rooms))
	for _, r := range rooms {
		created := time.UnixMilli(r.CreatedAt).UTC().Format("15:04:05")
		fmt.Fprintf(&b, "- %s: %s (%d members, owner: %s, created: %s)\n", r.ID, r.Name, r.MemberCount, r.Owner, created)
	}
	return b.String()
}

func formatRoomView(v room.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s: %s\n", v.ID, v.Name)
	fmt.Fprintf(&b, "Public: %t | Owner: %s\n", v.IsPublic, v.Owner)
	fmt.Fprintf(&b, "Members (%d): %s\n", v.MemberCount, strings.Join(v.Members, ", "))

	fmt.Fprintf(&b, "\nCards (%d):\n", len(v.Cards))
	for _, card := range v.Cards {
		fmt.Fprintf(&b, "- [%s] %s by %s at (%.0f,%.0f) size %.0fx%.0f: %q\n",
			card.ID, card.Kind, card.User, card.X, card.Y, card.W, card.H, card.Content)
	}

	if len(v.Cursors) > 0 {
		fmt.Fprintf(&b, "\nCursors:\n")
		for _, member := range v.Members {
			if cur, ok := v.Cursors[member]; ok {
				fmt.Fprintf(&b, "- %s at (%.0f,%.0f)\n", member, cur.X, cur.Y)
			}
		}
	}
	return b.String()
}

func formatHistory(roomID string, messages []room.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat history for %s (%d messages):\n\n", roomID, len(messages))
	for _, m := range messages {
		ts := time.UnixMilli(m.Time).UTC().Format("15:04:05")
		fmt.Fprintf(&b, "[%s] %s: %s\n", ts, m.User, m.Text)
	}
	return b.String()
}
