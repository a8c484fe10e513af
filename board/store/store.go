package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/wricardo/collab-board/board/room"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrPermanentRoom     = errors.New("the public room cannot be deleted")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrIDCollision       = errors.New("room id collision")
)

const (
	DefaultIDLength       = 8
	DefaultPublicRoomName = "Main Public Board"
	PublicRoomOwner       = "system"

	idAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxIDRetries = 5
)

// Options configures a Store. Zero values select defaults.
type Options struct {
	MaxUsers       int
	ChatLimit      int
	IDLength       int
	PublicRoomName string

	// PasswordCost is the bcrypt cost for room passwords.
	PasswordCost int

	// NewID overrides room ID generation.
	NewID func() string

	// Clock overrides time.Now.
	Clock func() time.Time

	Logger *slog.Logger
}

// Store owns every room and their lifetime.
type Store struct {
	rooms map[string]*room.Room
	opts  Options
	newID func() string
	now   func() time.Time
	log   *slog.Logger
	mu    sync.RWMutex
}

// New creates a store holding only the permanent public room.
func New(opts Options) (*Store, error) {
	if opts.IDLength <= 0 {
		opts.IDLength = DefaultIDLength
	}
	if opts.PublicRoomName == "" {
		opts.PublicRoomName = DefaultPublicRoomName
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	s := &Store{
		rooms: make(map[string]*room.Room),
		opts:  opts,
		newID: opts.NewID,
		now:   opts.Clock,
		log:   opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.newID == nil {
		gen, err := nanoid.CustomASCII(idAlphabet, opts.IDLength)
		if err != nil {
			return nil, fmt.Errorf("failed to create room id generator: %w", err)
		}
		s.newID = gen
	}

	s.rooms[room.PublicID] = s.newRoom(room.PublicID, opts.PublicRoomName, true, PublicRoomOwner)
	return s, nil
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Create inserts a new room with a generated ID. A non-empty password is
// stored as a bcrypt hash.
func (s *Store) Create(name string, isPublic bool, owner, password string) (*room.Room, error) {
	var hash []byte
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.PasswordCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxIDRetries; attempt++ {
		id := s.newID()
		if _, exists := s.rooms[id]; exists || id == room.PublicID {
			continue
		}

		r := s.newRoom(id, name, isPublic, owner)
		r.SetPasswordHash(hash)
		s.rooms[id] = r

		s.log.Info("room.created", "room", id, "name", name, "public", isPublic, "owner", owner)
		return r, nil
	}

	return nil, ErrIDCollision
}

// Get retrieves a room by ID.
func (s *Store) Get(id string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Delete removes a room. The public room is permanent.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

// deleteLocked is Delete for callers already holding s.mu.
func (s *Store) deleteLocked(id string) error {
	if id == room.PublicID {
		return ErrPermanentRoom
	}
	if _, exists := s.rooms[id]; !exists {
		return ErrRoomNotFound
	}
	delete(s.rooms, id)
	return nil
}

// List returns every room ordered by creation time.
func (s *Store) List() []*room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		result = append(result, r)
	}
	sortRooms(result)
	return result
}

// ListPublic returns discovery summaries for public rooms only.
func (s *Store) ListPublic() []room.Summary {
	rooms := s.List()

	result := make([]room.Summary, 0, len(rooms))
	for _, r := range rooms {
		if r.IsPublic {
			result = append(result, r.Summarize())
		}
	}
	return result
}

// Count returns the number of rooms, including the public room.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// CheckAccess verifies password against a private room's hash. Public
// rooms and rooms without a password always admit.
func (s *Store) CheckAccess(r *room.Room, password string) error {
	if r.IsPublic || !r.HasPassword() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(r.PasswordHash(), []byte(password)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}

// ReapIdle deletes private rooms whose empty duration exceeds grace.
// Emptiness is checked while the store lock is held, so a room that was
// rejoined since the last sweep survives.
func (s *Store) ReapIdle(grace time.Duration) []string {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, r := range s.rooms {
		if r.IsPublic {
			continue
		}
		idle, ok := r.IdleFor(now)
		if !ok || idle <= grace {
			continue
		}
		if err := s.deleteLocked(id); err != nil {
			s.log.Warn("room.reap_skipped", "room", id, "error", err)
			continue
		}
		removed = append(removed, id)
	}

	sort.Strings(removed)
	for _, id := range removed {
		s.log.Info("room.reaped", "room", id, "grace", grace)
	}
	return removed
}

func (s *Store) newRoom(id, name string, isPublic bool, owner string) *room.Room {
	return room.New(id, name, isPublic, owner, room.Options{
		MaxUsers:  s.opts.MaxUsers,
		ChatLimit: s.opts.ChatLimit,
		Now:       s.now(),
	})
}

func sortRooms(rooms []*room.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
}
