package room

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PublicID is the id of the permanent room every connection starts in.
const PublicID = "public"

const (
	DefaultMaxUsers  = 50
	DefaultChatLimit = 100

	// MaxIdentityAttempts bounds the name, name(1) ... name(99) search.
	MaxIdentityAttempts = 100
)

var (
	ErrRoomFull          = errors.New("room is full")
	ErrDuplicateIdentity = errors.New("could not find unique username")
	ErrEmptyIdentity     = errors.New("username is required")
)

// Options tunes a new room. Zero values fall back to the package defaults.
type Options struct {
	MaxUsers  int
	ChatLimit int
	Now       time.Time
}

// Room is one collaborative surface: members, cards, cursors and chat.
type Room struct {
	ID        string
	Name      string
	IsPublic  bool
	Owner     string
	CreatedAt time.Time
	MaxUsers  int

	passwordHash []byte
	members      []string
	cards        []*Card
	cursors      map[string]Cursor
	chat         []ChatMessage
	chatLimit    int

	// emptySince is zero while at least one member is seated.
	emptySince time.Time
}

// New creates an empty room. A room starts out empty, so its idle clock
// starts at creation time.
func New(id, name string, isPublic bool, owner string, opts Options) *Room {
	if opts.MaxUsers <= 0 {
		opts.MaxUsers = DefaultMaxUsers
	}
	if opts.ChatLimit <= 0 {
		opts.ChatLimit = DefaultChatLimit
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	return &Room{
		ID:         id,
		Name:       name,
		IsPublic:   isPublic,
		Owner:      owner,
		CreatedAt:  opts.Now,
		MaxUsers:   opts.MaxUsers,
		cursors:    make(map[string]Cursor),
		chatLimit:  opts.ChatLimit,
		emptySince: opts.Now,
	}
}

// SetPasswordHash stores the hashed room password. A nil hash clears it.
func (r *Room) SetPasswordHash(hash []byte) {
	r.passwordHash = hash
}

// PasswordHash returns the stored password hash, or nil if none is set.
func (r *Room) PasswordHash() []byte {
	return r.passwordHash
}

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool {
	return len(r.passwordHash) > 0
}

// AddMember seats identity, appending a numeric suffix when the name is
// already taken (compared case-insensitively). It returns the identity that
// was actually seated.
func (r *Room) AddMember(identity string) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", ErrEmptyIdentity
	}
	if len(r.members) >= r.MaxUsers {
		return "", ErrRoomFull
	}

	for n := 0; n < MaxIdentityAttempts; n++ {
		candidate := identity
		if n > 0 {
			candidate = fmt.Sprintf("%s(%d)", identity, n)
		}
		if r.identityTaken(candidate) {
			continue
		}

		r.members = append(r.members, candidate)
		r.emptySince = time.Time{}
		return candidate, nil
	}

	return "", ErrDuplicateIdentity
}

// RemoveMember unseats identity and purges its cursor. When the room
// becomes empty the idle clock starts; deletion is left to the reaper.
func (r *Room) RemoveMember(identity string, now time.Time) bool {
	idx := -1
	for i, m := range r.members {
		if m == identity {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.cursors, identity)

	if len(r.members) == 0 {
		r.emptySince = now
	}
	return true
}

// HasMember reports whether identity is seated (exact match).
func (r *Room) HasMember(identity string) bool {
	for _, m := range r.members {
		if m == identity {
			return true
		}
	}
	return false
}

// Members returns the seated identities in join order.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// MemberCount returns the number of seated members.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// IsEmpty reports whether no member is seated.
func (r *Room) IsEmpty() bool {
	return len(r.members) == 0
}

// IdleFor returns how long the room has been empty at now. It returns
// false while the room has members.
func (r *Room) IdleFor(now time.Time) (time.Duration, bool) {
	if len(r.members) > 0 || r.emptySince.IsZero() {
		return 0, false
	}
	return now.Sub(r.emptySince), true
}

// SetCursor records the cursor of a seated member. Cursors for identities
// that are not seated are ignored so stale entries never appear.
func (r *Room) SetCursor(identity string, x, y float64) bool {
	if !r.HasMember(identity) {
		return false
	}
	r.cursors[identity] = Cursor{X: x, Y: y}
	return true
}

// Cursors returns a copy of the cursor map.
func (r *Room) Cursors() map[string]Cursor {
	out := make(map[string]Cursor, len(r.cursors))
	for k, v := range r.cursors {
		out[k] = v
	}
	return out
}

func (r *Room) identityTaken(identity string) bool {
	for _, m := range r.members {
		if strings.EqualFold(m, identity) {
			return true
		}
	}
	return false
}
