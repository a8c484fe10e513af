package room

const (
	DefaultCardKind   = "text"
	DefaultCardWidth  = 260
	DefaultCardHeight = 160
)

// Card is a positioned, sized, owned content block on a room's canvas.
type Card struct {
	ID      string  `json:"id"`
	User    string  `json:"user"`
	Kind    string  `json:"type"`
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
}

// Cursor is a member's pointer position.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AddCard appends c to the canvas. The caller assigns the id.
func (r *Room) AddCard(c Card) Card {
	if c.Kind == "" {
		c.Kind = DefaultCardKind
	}
	card := c
	r.cards = append(r.cards, &card)
	return card
}

// Card returns a copy of the card with the given id.
func (r *Room) Card(id string) (Card, bool) {
	if c := r.findCard(id); c != nil {
		return *c, true
	}
	return Card{}, false
}

// MoveCard updates a card's position in place.
func (r *Room) MoveCard(id string, x, y float64) bool {
	c := r.findCard(id)
	if c == nil {
		return false
	}
	c.X, c.Y = x, y
	return true
}

// ResizeCard updates a card's size in place.
func (r *Room) ResizeCard(id string, w, h float64) bool {
	c := r.findCard(id)
	if c == nil {
		return false
	}
	c.W, c.H = w, h
	return true
}

// DeleteCard removes a card, but only when user owns it.
func (r *Room) DeleteCard(id, user string) bool {
	for i, c := range r.cards {
		if c.ID != id {
			continue
		}
		if c.User != user {
			return false
		}
		r.cards = append(r.cards[:i], r.cards[i+1:]...)
		return true
	}
	return false
}

// Cards returns copies of the cards in insertion order.
func (r *Room) Cards() []Card {
	out := make([]Card, len(r.cards))
	for i, c := range r.cards {
		out[i] = *c
	}
	return out
}

func (r *Room) findCard(id string) *Card {
	for _, c := range r.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}
