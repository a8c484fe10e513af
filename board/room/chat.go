package room

// ChatMessage is an append-only chat entry. Time is unix milliseconds.
type ChatMessage struct {
	User   string `json:"user"`
	Text   string `json:"text"`
	Time   int64  `json:"time"`
	RoomID string `json:"roomId"`
}

// AppendChat records msg, evicting the oldest entries beyond the limit.
func (r *Room) AppendChat(msg ChatMessage) {
	r.chat = append(r.chat, msg)
	if over := len(r.chat) - r.chatLimit; over > 0 {
		r.chat = append(r.chat[:0:0], r.chat[over:]...)
	}
}

// ChatHistory returns up to the last limit messages, oldest first. A
// non-positive limit returns the whole history.
func (r *Room) ChatHistory(limit int) []ChatMessage {
	start := 0
	if limit > 0 && len(r.chat) > limit {
		start = len(r.chat) - limit
	}
	out := make([]ChatMessage, len(r.chat)-start)
	copy(out, r.chat[start:])
	return out
}

// ChatLimit returns the history capacity.
func (r *Room) ChatLimit() int {
	return r.chatLimit
}
