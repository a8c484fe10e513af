package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/collab-board/board/room"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	st, err := New(Options{PasswordCost: bcrypt.MinCost, Clock: clock.Now})
	require.NoError(t, err)
	return st
}

func TestNew_CreatesPublicRoom(t *testing.T) {
	st := newTestStore(t, newFakeClock())

	r, err := st.Get(room.PublicID)
	require.NoError(t, err)
	assert.True(t, r.IsPublic)
	assert.Equal(t, DefaultPublicRoomName, r.Name)
	assert.Equal(t, PublicRoomOwner, r.Owner)
	assert.Equal(t, 1, st.Count())
}

func TestCreate(t *testing.T) {
	st := newTestStore(t, newFakeClock())

	r, err := st.Create("Design", false, "alice", "")
	require.NoError(t, err)
	assert.Len(t, r.ID, DefaultIDLength)
	assert.Regexp(t, "^[a-z0-9]+$", r.ID)
	assert.False(t, r.HasPassword())

	got, err := st.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)
}

func TestCreate_UniqueIDs(t *testing.T) {
	st := newTestStore(t, newFakeClock())

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		r, err := st.Create(fmt.Sprintf("room-%d", i), true, "alice", "")
		require.NoError(t, err)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestCreate_IDCollision(t *testing.T) {
	st, err := New(Options{NewID: func() string { return "same" }})
	require.NoError(t, err)

	_, err = st.Create("first", true, "alice", "")
	require.NoError(t, err)

	_, err = st.Create("second", true, "alice", "")
	assert.ErrorIs(t, err, ErrIDCollision)
}

func TestGet_NotFound(t *testing.T) {
	st := newTestStore(t, newFakeClock())

	_, err := st.Get("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDelete(t *testing.T) {
	st := newTestStore(t, newFakeClock())
	r, err := st.Create("tmp", true, "alice", "")
	require.NoError(t, err)

	require.NoError(t, st.Delete(r.ID))
	assert.ErrorIs(t, st.Delete(r.ID), ErrRoomNotFound)

	assert.ErrorIs(t, st.Delete(room.PublicID), ErrPermanentRoom)
	_, err = st.Get(room.PublicID)
	assert.NoError(t, err)
}

func TestListPublic(t *testing.T) {
	clock := newFakeClock()
	st := newTestStore(t, clock)

	clock.Advance(time.Second)
	open, err := st.Create("Open", true, "alice", "")
	require.NoError(t, err)
	_, err = st.Create("Hidden", false, "bob", "x")
	require.NoError(t, err)

	rooms := st.ListPublic()
	require.Len(t, rooms, 2)
	assert.Equal(t, room.PublicID, rooms[0].ID)
	assert.Equal(t, open.ID, rooms[1].ID)
	assert.Equal(t, "alice", rooms[1].Owner)
	assert.Equal(t, clock.Now().UnixMilli(), rooms[1].CreatedAt)
}

func TestCheckAccess(t *testing.T) {
	st := newTestStore(t, newFakeClock())

	private, err := st.Create("r1", false, "alice", "x")
	require.NoError(t, err)
	require.True(t, private.HasPassword())
	assert.NotEqual(t, []byte("x"), private.PasswordHash(), "password must be hashed")

	assert.NoError(t, st.CheckAccess(private, "x"))
	assert.ErrorIs(t, st.CheckAccess(private, "y"), ErrIncorrectPassword)
	assert.ErrorIs(t, st.CheckAccess(private, ""), ErrIncorrectPassword)

	t.Run("public rooms ignore passwords", func(t *testing.T) {
		public, err := st.Create("open", true, "alice", "x")
		require.NoError(t, err)
		assert.NoError(t, st.CheckAccess(public, "wrong"))
	})

	t.Run("private room without password admits", func(t *testing.T) {
		open, err := st.Create("open-private", false, "alice", "")
		require.NoError(t, err)
		assert.NoError(t, st.CheckAccess(open, "anything"))
	})
}

func TestReapIdle(t *testing.T) {
	grace := 5 * time.Minute

	t.Run("empty private room past grace is deleted", func(t *testing.T) {
		clock := newFakeClock()
		st := newTestStore(t, clock)
		r, err := st.Create("r1", false, "alice", "")
		require.NoError(t, err)
		_, err = r.AddMember("alice")
		require.NoError(t, err)
		r.RemoveMember("alice", clock.Now())

		clock.Advance(grace - time.Second)
		assert.Empty(t, st.ReapIdle(grace))

		clock.Advance(2 * time.Second)
		assert.Equal(t, []string{r.ID}, st.ReapIdle(grace))
		_, err = st.Get(r.ID)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("room rejoined before grace survives", func(t *testing.T) {
		clock := newFakeClock()
		st := newTestStore(t, clock)
		r, err := st.Create("r1", false, "alice", "")
		require.NoError(t, err)
		_, _ = r.AddMember("alice")
		r.RemoveMember("alice", clock.Now())

		clock.Advance(grace / 2)
		_, err = r.AddMember("bob")
		require.NoError(t, err)

		clock.Advance(time.Hour)
		assert.Empty(t, st.ReapIdle(grace))
		_, err = st.Get(r.ID)
		assert.NoError(t, err)
	})

	t.Run("public rooms are never reaped", func(t *testing.T) {
		clock := newFakeClock()
		st := newTestStore(t, clock)
		open, err := st.Create("open", true, "alice", "")
		require.NoError(t, err)

		clock.Advance(24 * time.Hour)
		assert.Empty(t, st.ReapIdle(grace))
		_, err = st.Get(room.PublicID)
		assert.NoError(t, err)
		_, err = st.Get(open.ID)
		assert.NoError(t, err)
	})

	t.Run("never-joined private room expires from creation", func(t *testing.T) {
		clock := newFakeClock()
		st := newTestStore(t, clock)
		r, err := st.Create("ghost", false, "alice", "")
		require.NoError(t, err)

		clock.Advance(grace + time.Nanosecond)
		assert.Equal(t, []string{r.ID}, st.ReapIdle(grace))
	})

	t.Run("room idle for exactly grace is kept", func(t *testing.T) {
		clock := newFakeClock()
		st := newTestStore(t, clock)
		r, err := st.Create("r1", false, "alice", "")
		require.NoError(t, err)
		_, _ = r.AddMember("alice")
		r.RemoveMember("alice", clock.Now())

		clock.Advance(grace)
		assert.Empty(t, st.ReapIdle(grace))
		_, err = st.Get(r.ID)
		assert.NoError(t, err)

		clock.Advance(time.Nanosecond)
		assert.Equal(t, []string{r.ID}, st.ReapIdle(grace))
	})
}
