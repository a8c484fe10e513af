// Package store provides the room store for the collaborative board.
//
// The store package implements:
//   - Thread-safe room storage and retrieval
//   - Short, collision-checked room ID generation
//   - Hashed room passwords and join authorization
//   - Public room discovery listing
//   - Idle-room reaping with a permanent public room
//
// Room Identifiers:
//
// Rooms use short lowercase alphanumeric IDs (8 characters by default)
// generated with nanoid. The well-known "public" room is created with the
// store and can never be deleted, neither explicitly nor by the reaper.
//
// Concurrency:
//
// The map itself is guarded by an RWMutex. Room contents are not: callers
// must serialize room mutations (the session handler's command lock does
// this), and the reaper must sweep through the same lock so that emptiness
// is re-verified at deletion time.
//
// Usage:
//
//	st, err := store.New(store.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	r, err := st.Create("Design review", false, "alice", "secret")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := st.CheckAccess(r, "secret"); err != nil {
//		// incorrect password
//	}
//
// Cleanup:
//
// Reaper runs a periodic sweep that removes non-public rooms that have had
// no members for longer than the configured grace window.
package store
