package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrProfileNotFound = errors.New("settings profile not found")
	ErrInvalidSettings = errors.New("invalid settings")
)

// DefaultProfile is the profile GetDefault prefers.
const DefaultProfile = "default"

// ProfileInfo describes a settings profile on disk.
type ProfileInfo struct {
	Filename    string `json:"filename"`
	ProfileID   string `json:"profile_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxUsers    int    `json:"max_users"`
}

// Manager handles settings profile loading and caching
type Manager struct {
	configDir       string
	defaultSettings *Settings
	profiles        map[string]*Settings
	mu              sync.RWMutex
}

// NewManager creates a manager reading profiles from configDir.
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		profiles:  make(map[string]*Settings),
	}

	if err := m.loadDefault(); err != nil {
		return nil, fmt.Errorf("failed to load default profile: %w", err)
	}

	return m, nil
}

// NewDefaultsManager returns a manager with no profile directory that only
// serves the built-in defaults.
func NewDefaultsManager() *Manager {
	return &Manager{
		defaultSettings: Defaults(),
		profiles:        make(map[string]*Settings),
	}
}

// LoadProfile loads a profile by name. Fields missing from the file keep
// their built-in default.
func (m *Manager) LoadProfile(name string) (*Settings, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if s, exists := m.profiles[name]; exists {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()

	if m.configDir == "" {
		if name == DefaultProfile {
			return m.GetDefault(), nil
		}
		return nil, ErrProfileNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if s, exists := m.profiles[name]; exists {
		return s, nil
	}

	s, err := LoadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		return nil, err
	}

	m.profiles[name] = s
	return s, nil
}

// ListProfiles returns information about every valid profile.
func (m *Manager) ListProfiles() ([]*ProfileInfo, error) {
	if m.configDir == "" {
		d := m.GetDefault()
		return []*ProfileInfo{{ProfileID: DefaultProfile, Name: d.Name, Description: d.Description, MaxUsers: d.MaxUsers}}, nil
	}

	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var profiles []*ProfileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		s, err := m.LoadProfile(name)
		if err != nil {
			// Skip invalid profiles
			continue
		}

		profiles = append(profiles, &ProfileInfo{
			Filename:    entry.Name(),
			ProfileID:   name,
			Name:        s.Name,
			Description: s.Description,
			MaxUsers:    s.MaxUsers,
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ProfileID < profiles[j].ProfileID })
	return profiles, nil
}

// GetDefault returns the default settings
func (m *Manager) GetDefault() *Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultSettings
}

// loadDefault prefers default.json and falls back to the built-in values.
func (m *Manager) loadDefault() error {
	s, err := m.LoadProfile(DefaultProfile)
	switch {
	case err == nil:
		m.defaultSettings = s
	case errors.Is(err, ErrProfileNotFound):
		m.defaultSettings = Defaults()
	default:
		return err
	}
	return nil
}

// LoadFile reads and validates a single profile file.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	s := Defaults()
	s.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	s.Description = ""
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return s, nil
}

// RefreshCache drops every cached profile and reloads the default.
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.profiles = make(map[string]*Settings)
	m.mu.Unlock()

	if m.configDir == "" {
		return nil
	}

	s, err := m.LoadProfile(DefaultProfile)
	switch {
	case err == nil:
	case errors.Is(err, ErrProfileNotFound):
		s = Defaults()
	default:
		return err
	}

	m.mu.Lock()
	m.defaultSettings = s
	m.mu.Unlock()
	return nil
}
