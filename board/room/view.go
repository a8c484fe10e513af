package room

// View is a read-only projection of a room used for the joining client's
// initial state and for every room state push.
type View struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	IsPublic    bool              `json:"isPublic"`
	Owner       string            `json:"owner"`
	Members     []string          `json:"members"`
	Cards       []Card            `json:"cards"`
	Cursors     map[string]Cursor `json:"cursors"`
	MemberCount int               `json:"memberCount"`
}

// Summary is the room discovery projection.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	Owner       string `json:"owner"`
	CreatedAt   int64  `json:"createdAt"`
}

// Snapshot returns a deep copy of the room's shareable state.
func (r *Room) Snapshot() View {
	return View{
		ID:          r.ID,
		Name:        r.Name,
		IsPublic:    r.IsPublic,
		Owner:       r.Owner,
		Members:     r.Members(),
		Cards:       r.Cards(),
		Cursors:     r.Cursors(),
		MemberCount: len(r.members),
	}
}

// Summarize returns the discovery projection of the room.
func (r *Room) Summarize() Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		MemberCount: len(r.members),
		Owner:       r.Owner,
		CreatedAt:   r.CreatedAt.UnixMilli(),
	}
}
