// Package mcp provides a Model Context Protocol server for the collaborative board.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for room discovery and inspection
//   - A thin proxy over the REST API (no direct access to board state)
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_rooms: List public rooms with member counts
//   - get_room: Members, cards and cursors of one room
//   - chat_history: Recent chat messages of a room
//   - create_room: Create a public or password-protected room
//   - server_stats: Room, connection and seat counts
//   - list_profiles: Settings profiles available on the server
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: POST /mcp on the board server, one JSON-RPC message per request
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	router.Handle("/mcp", client.HTTPHandler())
package mcp
