package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/store"
)

// Placement is the rectangle new cards are dropped into when the client
// does not give a position.
type Placement struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	SpanX   float64 `json:"span_x"`
	SpanY   float64 `json:"span_y"`
}

// Settings holds every tunable of the board server.
type Settings struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	MaxUsers         int `json:"max_users"`
	ChatHistoryLimit int `json:"chat_history_limit"`
	JoinHistory      int `json:"join_history"`

	ReapIntervalSeconds int `json:"reap_interval_seconds"`
	IdleGraceSeconds    int `json:"idle_grace_seconds"`

	CardWidth  float64   `json:"card_width"`
	CardHeight float64   `json:"card_height"`
	Placement  Placement `json:"placement"`

	PublicRoomName string `json:"public_room_name"`
	RoomIDLength   int    `json:"room_id_length"`

	SendBuffer      int   `json:"send_buffer"`
	MaxMessageBytes int64 `json:"max_message_bytes"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Name:                "default",
		Description:         "Built-in defaults",
		MaxUsers:            room.DefaultMaxUsers,
		ChatHistoryLimit:    room.DefaultChatLimit,
		JoinHistory:         50,
		ReapIntervalSeconds: 60,
		IdleGraceSeconds:    300,
		CardWidth:           room.DefaultCardWidth,
		CardHeight:          room.DefaultCardHeight,
		Placement:           Placement{OffsetX: 50, OffsetY: 50, SpanX: 400, SpanY: 200},
		PublicRoomName:      store.DefaultPublicRoomName,
		RoomIDLength:        store.DefaultIDLength,
		SendBuffer:          256,
		MaxMessageBytes:     64 * 1024,
	}
}

// Validate checks the settings for values the server cannot run with.
func (s *Settings) Validate() error {
	var errs []error

	if s.MaxUsers <= 0 {
		errs = append(errs, fmt.Errorf("max_users must be positive, got %d", s.MaxUsers))
	}
	if s.ChatHistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("chat_history_limit must be positive, got %d", s.ChatHistoryLimit))
	}
	if s.JoinHistory <= 0 || s.JoinHistory > s.ChatHistoryLimit {
		errs = append(errs, fmt.Errorf("join_history must be between 1 and chat_history_limit (%d), got %d", s.ChatHistoryLimit, s.JoinHistory))
	}
	if s.ReapIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("reap_interval_seconds must be positive, got %d", s.ReapIntervalSeconds))
	}
	if s.IdleGraceSeconds <= 0 {
		errs = append(errs, fmt.Errorf("idle_grace_seconds must be positive, got %d", s.IdleGraceSeconds))
	}
	if s.CardWidth <= 0 || s.CardHeight <= 0 {
		errs = append(errs, fmt.Errorf("card size must be positive, got %gx%g", s.CardWidth, s.CardHeight))
	}
	if s.Placement.SpanX < 0 || s.Placement.SpanY < 0 {
		errs = append(errs, errors.New("placement span must not be negative"))
	}
	if s.PublicRoomName == "" {
		errs = append(errs, errors.New("public_room_name is required"))
	}
	if s.RoomIDLength < 4 {
		errs = append(errs, fmt.Errorf("room_id_length must be at least 4, got %d", s.RoomIDLength))
	}
	if s.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send_buffer must be positive, got %d", s.SendBuffer))
	}
	if s.MaxMessageBytes < 512 {
		errs = append(errs, fmt.Errorf("max_message_bytes must be at least 512, got %d", s.MaxMessageBytes))
	}

	return errors.Join(errs...)
}

// ReapInterval is the period of the idle-room sweep.
func (s *Settings) ReapInterval() time.Duration {
	return time.Duration(s.ReapIntervalSeconds) * time.Second
}

// IdleGrace is how long a private room may stay empty before it is reaped.
func (s *Settings) IdleGrace() time.Duration {
	return time.Duration(s.IdleGraceSeconds) * time.Second
}

// RoomPlacement builds the random card placement policy.
func (s *Settings) RoomPlacement() *room.RandomPlacement {
	return &room.RandomPlacement{
		OffsetX: s.Placement.OffsetX,
		OffsetY: s.Placement.OffsetY,
		SpanX:   s.Placement.SpanX,
		SpanY:   s.Placement.SpanY,
	}
}
