package session

import (
	"encoding/json"
	"log/slog"

	"github.com/wricardo/collab-board/board/room"
)

// Fanout delivers payloads to the connections attached to a room.
type Fanout struct {
	registry *Registry
	recorder Recorder
	log      *slog.Logger
}

// NewFanout creates a fan-out over registry.
func NewFanout(registry *Registry, recorder Recorder, logger *slog.Logger) *Fanout {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{registry: registry, recorder: recorder, log: logger}
}

// BroadcastToRoom sends payload to every connection attached to roomID
// except the one whose id is exclude. A failed delivery is logged and
// counted and never stops the remaining deliveries. It returns the number
// of connections that accepted the payload.
func (f *Fanout) BroadcastToRoom(roomID string, payload any, exclude string) int {
	data, kind, ok := f.encode(payload)
	if !ok {
		return 0
	}

	delivered, dropped := 0, 0
	for _, e := range f.registry.InRoom(roomID) {
		if exclude != "" && e.Conn.ID() == exclude {
			continue
		}
		if f.deliver(e.Conn, data, kind) {
			delivered++
		} else {
			dropped++
		}
	}

	f.recorder.Delivered(delivered)
	f.log.Debug("fanout.broadcast", "room", roomID, "type", kind, "recipients", delivered, "dropped", dropped)
	return delivered
}

// BroadcastRoomState sends the room's snapshot as ROOM_STATE to everyone
// attached to it.
func (f *Fanout) BroadcastRoomState(r *room.Room) int {
	return f.BroadcastToRoom(r.ID, newRoomState(r.Snapshot()), "")
}

// SendTo delivers payload to a single connection.
func (f *Fanout) SendTo(conn Conn, payload any) bool {
	data, kind, ok := f.encode(payload)
	if !ok {
		return false
	}
	if !f.deliver(conn, data, kind) {
		return false
	}
	f.recorder.Delivered(1)
	return true
}

func (f *Fanout) deliver(conn Conn, data []byte, kind string) bool {
	if err := conn.Send(data); err != nil {
		f.recorder.DeliveryDropped(kind)
		f.log.Warn("fanout.dropped", "conn", conn.ID(), "type", kind, "error", err)
		return false
	}
	return true
}

func (f *Fanout) encode(payload any) ([]byte, string, bool) {
	kind := envelopeType(payload)
	data, err := json.Marshal(payload)
	if err != nil {
		f.log.Error("fanout.encode_failed", "type", kind, "error", err)
		return nil, kind, false
	}
	return data, kind, true
}

func envelopeType(payload any) string {
	switch p := payload.(type) {
	case RoomJoined:
		return p.Type
	case RoomCreated:
		return p.Type
	case RoomList:
		return p.Type
	case RoomState:
		return p.Type
	case Presence:
		return p.Type
	case Chat:
		return p.Type
	case Click:
		return p.Type
	case Error:
		return p.Type
	default:
		return "unknown"
	}
}
