package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/store"
	"golang.org/x/crypto/bcrypt"
)

type fakeConn struct {
	id   string
	fail bool
	sent [][]byte
	mu   sync.Mutex
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send buffer full")
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]any, 0, len(c.sent))
	for _, raw := range c.sent {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range c.messages(t) {
		out = append(out, m["type"].(string))
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range c.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) last(t *testing.T, typ string) map[string]any {
	t.Helper()
	msgs := c.ofType(t, typ)
	require.NotEmpty(t, msgs, "no %s received by %s", typ, c.id)
	return msgs[len(msgs)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingRecorder struct {
	commands  map[string]int
	delivered int
	dropped   int
	opened    int
	closed    int
	reaped    int
	mu        sync.Mutex
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{commands: make(map[string]int)}
}

func (r *countingRecorder) CommandProcessed(command, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command+"/"+outcome]++
}

func (r *countingRecorder) Delivered(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered += n
}

func (r *countingRecorder) DeliveryDropped(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func (r *countingRecorder) ConnectionOpened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func (r *countingRecorder) ConnectionClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
}

func (r *countingRecorder) RoomsReaped(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reaped += n
}

type fixture struct {
	h        *Handler
	store    *store.Store
	clock    *testClock
	recorder *countingRecorder
}

func newFixture(t *testing.T, maxUsers int) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	roomSeq := 0
	st, err := store.New(store.Options{
		MaxUsers:     maxUsers,
		PasswordCost: bcrypt.MinCost,
		Clock:        clock.Now,
		NewID: func() string {
			roomSeq++
			return fmt.Sprintf("r%d", roomSeq)
		},
	})
	require.NoError(t, err)

	cardSeq := 0
	rec := newCountingRecorder()
	h := NewHandler(st, Options{
		IdleGrace: 5 * time.Minute,
		Placement: room.FixedPlacement{X: 10, Y: 20},
		NewCardID: func() string {
			cardSeq++
			return fmt.Sprintf("card-%d", cardSeq)
		},
		Recorder: rec,
	})
	return &fixture{h: h, store: st, clock: clock, recorder: rec}
}

func (f *fixture) connect(id string) *fakeConn {
	c := newFakeConn(id)
	f.h.Connect(c)
	return c
}

func (f *fixture) send(t *testing.T, c *fakeConn, msg map[string]any) {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	f.h.HandleMessage(c.ID(), raw)
}

// joined connects id and seats it in the public room as user.
func (f *fixture) joined(t *testing.T, id, user string) *fakeConn {
	t.Helper()
	c := f.connect(id)
	f.send(t, c, map[string]any{"type": TypeJoin, "user": user})
	require.Equal(t, TypeRoomJoined, c.types(t)[0])
	return c
}

func members(t *testing.T, state map[string]any) []string {
	t.Helper()
	raw, ok := state["members"].([]any)
	require.True(t, ok, "members missing from %v", state)
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.(string))
	}
	return out
}

func cards(t *testing.T, state map[string]any) []map[string]any {
	t.Helper()
	raw, ok := state["cards"].([]any)
	require.True(t, ok, "cards missing from %v", state)
	out := make([]map[string]any, 0, len(raw))
	for _, c := range raw {
		out = append(out, c.(map[string]any))
	}
	return out
}
