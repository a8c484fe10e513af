// Package websocket provides the WebSocket transport for the collaborative board.
//
// The websocket package implements:
//   - Connection upgrade and per-client read/write pumps
//   - Ping/pong keepalive and read size limits
//   - A single event loop feeding connects, frames and disconnects to a Dispatcher
//   - Non-blocking delivery through a bounded per-client send buffer
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns all
// WebSocket connections. Each client runs a read pump and a write pump. The
// read pump forwards raw frames to the hub; the hub's Run loop hands them to
// the dispatcher one at a time, so command handling is strictly serialized.
//
// Message Protocol:
//
// Frames are UTF-8 JSON objects with a "type" field. The hub does not parse
// them; decoding and replies belong to the dispatcher (board/session).
// Every outbound payload is written as its own text frame.
//
// Usage:
//
//	hub := websocket.NewHub(handler, websocket.Options{SendBuffer: 256})
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects, receives a connection id, is registered with the hub
// 2. The dispatcher is told about the connection
// 3. Client frames are dispatched in arrival order
// 4. Disconnection unregisters the client exactly once
//
// Delivery:
//
// Client.Send never blocks. When a client's buffer is full the payload is
// dropped and Send returns ErrSendBufferFull; other recipients are not
// affected.
package websocket
