// Package api provides HTTP REST API handlers for the collaborative board.
//
// The api package implements:
//   - Room discovery, inspection and creation
//   - Chat history retrieval
//   - Server statistics
//   - WebSocket upgrade handling
//   - Health and Prometheus endpoints
//
// Endpoints:
//
// Rooms:
//   - GET /api/rooms - List public rooms
//   - POST /api/rooms - Create a room (nobody is seated in it)
//   - GET /api/rooms/{id} - Full room snapshot
//   - GET /api/rooms/{id}/history?limit=N - Last N chat messages
//
// Server:
//   - GET /api/stats - Room, connection and seat counts
//   - GET /api/profiles - Settings profiles (when a profile source is set)
//   - POST /api/profiles/refresh - Reload profiles from disk, then list them
//   - GET /healthz - Liveness check
//   - GET /metrics - Prometheus exposition
//   - GET /ws - WebSocket upgrade into the board protocol
//
// Request/Response Format:
//
// All endpoints accept and return JSON. Room creation takes:
//
//	{
//	  "name": "Design review",
//	  "isPublic": false,
//	  "password": "hunter2",
//	  "owner": "alice"
//	}
//
// Omitted fields default the same way the CREATE_ROOM command does.
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "Room not found"
//	}
//
// Every handler wraps the router in CORS (rs/cors).
package api
