package session

import (
	"sort"
	"sync"
)

// Conn is a live transport connection. Send must not block: a transport
// that cannot take the payload right away returns an error instead.
type Conn interface {
	ID() string
	Send(payload []byte) error
}

// Entry is the registry's view of one connection.
type Entry struct {
	Conn Conn

	// Identity is the display name the connection was seated under. It
	// survives leaving a room so the next join reuses it.
	Identity string

	// RoomID is the room whose broadcasts the connection receives. Empty
	// until the first successful join.
	RoomID string

	// Seated reports whether Identity is a member of RoomID. A connection
	// attached without an identity is an observer.
	Seated bool

	seq uint64
}

// Registry maps connection ids to their entries.
type Registry struct {
	entries map[string]*Entry
	seq     uint64
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add registers conn. Re-adding a known id returns the existing entry.
func (r *Registry) Add(conn Conn) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[conn.ID()]; ok {
		return e
	}
	r.seq++
	e := &Entry{Conn: conn, seq: r.seq}
	r.entries[conn.ID()] = e
	return e
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Remove deletes the entry for id. Only the first call for an id reports
// true.
func (r *Registry) Remove(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	return e, true
}

// InRoom returns the entries attached to roomID in connection order.
func (r *Registry) InRoom(roomID string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Detach clears the room of every entry attached to roomID, returning them
// to the unjoined state.
func (r *Registry) Detach(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.RoomID == roomID {
			e.RoomID = ""
			e.Seated = false
			n++
		}
	}
	return n
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SeatedCount returns the number of connections seated in some room.
func (r *Registry) SeatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.Seated {
			n++
		}
	}
	return n
}
