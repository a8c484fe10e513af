// Package session is the synchronization engine of the board.
//
// It holds the connection registry, the room fan-out and the per-connection
// command dispatcher. Every inbound command, disconnect and reaper sweep runs
// to completion under one lock, including the broadcasts it triggers, so two
// mutations never interleave and no reader observes a half-applied command.
//
// The transport layer hands the handler three events:
//
//	h.Connect(conn)                 // a socket opened
//	h.HandleMessage(conn.ID(), raw) // one JSON frame arrived
//	h.Disconnect(conn.ID())         // the socket closed
//
// and receives payloads through Conn.Send, which must never block.
package session
