package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func createTestConfigDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func writeProfile(t *testing.T, dir, name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal profile: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write profile file: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if err := d.Validate(); err != nil {
		t.Fatalf("built-in defaults should validate: %v", err)
	}
	if d.MaxUsers != 50 {
		t.Errorf("Expected max users 50, got %d", d.MaxUsers)
	}
	if d.ChatHistoryLimit != 100 || d.JoinHistory != 50 {
		t.Errorf("Expected chat limits 100/50, got %d/%d", d.ChatHistoryLimit, d.JoinHistory)
	}
	if d.ReapInterval() != time.Minute {
		t.Errorf("Expected reap interval 1m, got %v", d.ReapInterval())
	}
	if d.IdleGrace() != 5*time.Minute {
		t.Errorf("Expected idle grace 5m, got %v", d.IdleGrace())
	}
	if d.PublicRoomName != "Main Public Board" {
		t.Errorf("Expected public room name 'Main Public Board', got %q", d.PublicRoomName)
	}

	p := d.RoomPlacement()
	if p.OffsetX != 50 || p.OffsetY != 50 || p.SpanX != 400 || p.SpanY != 200 {
		t.Errorf("unexpected placement %+v", p)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"zero max users", func(s *Settings) { s.MaxUsers = 0 }},
		{"zero chat limit", func(s *Settings) { s.ChatHistoryLimit = 0 }},
		{"join history above chat limit", func(s *Settings) { s.JoinHistory = s.ChatHistoryLimit + 1 }},
		{"zero reap interval", func(s *Settings) { s.ReapIntervalSeconds = 0 }},
		{"negative idle grace", func(s *Settings) { s.IdleGraceSeconds = -1 }},
		{"zero idle grace", func(s *Settings) { s.IdleGraceSeconds = 0 }},
		{"zero card width", func(s *Settings) { s.CardWidth = 0 }},
		{"negative span", func(s *Settings) { s.Placement.SpanY = -5 }},
		{"empty public room name", func(s *Settings) { s.PublicRoomName = "" }},
		{"short room ids", func(s *Settings) { s.RoomIDLength = 2 }},
		{"zero send buffer", func(s *Settings) { s.SendBuffer = 0 }},
		{"tiny message limit", func(s *Settings) { s.MaxMessageBytes = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.modify(s)
			if err := s.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory with default profile", func(t *testing.T) {
		dir := createTestConfigDir(t)
		writeProfile(t, dir, "default", map[string]any{"name": "Default Profile", "max_users": 10})

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		d := manager.GetDefault()
		if d.Name != "Default Profile" || d.MaxUsers != 10 {
			t.Errorf("Expected default profile from disk, got %+v", d)
		}
	})

	t.Run("valid directory without default profile", func(t *testing.T) {
		dir := createTestConfigDir(t)

		manager, err := NewManager(dir)
		if err != nil {
			t.Errorf("NewManager should succeed even without profile files, got error: %v", err)
		}
		if manager == nil {
			t.Fatal("Expected manager to be created")
		}
		if manager.GetDefault().MaxUsers != 50 {
			t.Errorf("Expected built-in defaults, got %+v", manager.GetDefault())
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/directory")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("invalid default profile", func(t *testing.T) {
		dir := createTestConfigDir(t)
		writeProfile(t, dir, "default", map[string]any{"max_users": -1})

		if _, err := NewManager(dir); err == nil {
			t.Error("Expected error for invalid default profile")
		}
	})
}

func TestManager_LoadProfile(t *testing.T) {
	dir := createTestConfigDir(t)
	writeProfile(t, dir, "classroom", map[string]any{
		"name":        "Classroom",
		"description": "Small rooms",
		"max_users":   30,
	})

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing profile", func(t *testing.T) {
		s, err := manager.LoadProfile("classroom")
		if err != nil {
			t.Fatalf("Failed to load profile: %v", err)
		}
		if s.Name != "Classroom" {
			t.Errorf("Expected name 'Classroom', got '%s'", s.Name)
		}
		if s.MaxUsers != 30 {
			t.Errorf("Expected max users 30, got %d", s.MaxUsers)
		}
		if s.ChatHistoryLimit != 100 {
			t.Errorf("Omitted fields should keep defaults, got chat limit %d", s.ChatHistoryLimit)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		s, err := manager.LoadProfile("classroom.json")
		if err != nil {
			t.Fatalf("Failed to load profile with extension: %v", err)
		}
		if s.Name != "Classroom" {
			t.Errorf("Expected name 'Classroom', got '%s'", s.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadProfile("classroom")
		second, err := manager.LoadProfile("classroom")
		if err != nil {
			t.Fatalf("Failed to load profile from cache: %v", err)
		}
		if first != second {
			t.Error("Expected the same cached pointer")
		}
	})

	t.Run("name falls back to file name", func(t *testing.T) {
		writeProfile(t, dir, "unnamed", map[string]any{"max_users": 5})
		s, err := manager.LoadProfile("unnamed")
		if err != nil {
			t.Fatalf("Failed to load profile: %v", err)
		}
		if s.Name != "unnamed" {
			t.Errorf("Expected name 'unnamed', got '%s'", s.Name)
		}
	})

	t.Run("non-existent profile", func(t *testing.T) {
		_, err := manager.LoadProfile("missing")
		if !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("Expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("invalid profile", func(t *testing.T) {
		writeProfile(t, dir, "invalid", map[string]any{"join_history": 500})
		_, err := manager.LoadProfile("invalid")
		if !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("Expected ErrInvalidSettings, got %v", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), []byte("{invalid json"), 0644); err != nil {
			t.Fatalf("Failed to write malformed profile: %v", err)
		}
		if _, err := manager.LoadProfile("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListProfiles(t *testing.T) {
	dir := createTestConfigDir(t)
	writeProfile(t, dir, "default", map[string]any{"name": "Default"})
	writeProfile(t, dir, "classroom", map[string]any{"name": "Classroom", "max_users": 30})
	writeProfile(t, dir, "broken", map[string]any{"max_users": 0})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	list, err := manager.ListProfiles()
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(list))
	}
	if list[0].ProfileID != "classroom" || list[1].ProfileID != "default" {
		t.Errorf("Expected sorted ids [classroom default], got [%s %s]", list[0].ProfileID, list[1].ProfileID)
	}
	if list[0].MaxUsers != 30 {
		t.Errorf("Expected classroom max users 30, got %d", list[0].MaxUsers)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := createTestConfigDir(t)
	writeProfile(t, dir, "default", map[string]any{"max_users": 10})

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if manager.GetDefault().MaxUsers != 10 {
		t.Fatalf("Expected initial max users 10, got %d", manager.GetDefault().MaxUsers)
	}

	writeProfile(t, dir, "default", map[string]any{"max_users": 20})
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	if manager.GetDefault().MaxUsers != 20 {
		t.Errorf("Expected reloaded max users 20, got %d", manager.GetDefault().MaxUsers)
	}
}

func TestNewDefaultsManager(t *testing.T) {
	manager := NewDefaultsManager()

	s, err := manager.LoadProfile("default")
	if err != nil {
		t.Fatalf("Failed to load default: %v", err)
	}
	if s.MaxUsers != 50 {
		t.Errorf("Expected built-in defaults, got %+v", s)
	}
	if _, err := manager.LoadProfile("classroom"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}

	list, err := manager.ListProfiles()
	if err != nil || len(list) != 1 {
		t.Errorf("Expected the single built-in profile, got %v, %v", list, err)
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := createTestConfigDir(t)
	writeProfile(t, dir, "classroom", map[string]any{"max_users": 30})

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*Settings, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := manager.LoadProfile("classroom")
			if err != nil {
				t.Errorf("Failed to load profile: %v", err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("Expected every goroutine to observe the same cached profile")
		}
	}
}
