// Package room provides the collaborative surface aggregate for the board.
//
// The room package implements:
//   - Membership with case-insensitive, suffix-disambiguated identities
//   - Sticky-note cards with ownership-checked deletion
//   - Per-member cursor positions
//   - A bounded, FIFO-evicted chat history
//   - Read-only snapshots for transmission
//
// Core Types:
//
// Room is the aggregate for one collaborative surface. Card, Cursor and
// ChatMessage are the values it owns. View is the point-in-time projection
// sent to clients and Summary is the projection used for room discovery.
//
// Concurrency:
//
// Room performs no locking. Every mutation is expected to run under the
// session handler's command lock, which guarantees that at most one command
// touches any room at a time.
//
// Usage:
//
//	r := room.New("abc12345", "Design review", false, "alice", room.Options{})
//	seated, err := r.AddMember("alice")
//	if err != nil {
//		return err
//	}
//	r.AddCard(room.Card{ID: id, User: seated, Content: "hello"})
//	view := r.Snapshot()
package room
