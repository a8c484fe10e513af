package room

import "math/rand/v2"

// Placer chooses a position for a card whose client omitted one.
type Placer interface {
	Place() (x, y float64)
}

// RandomPlacement picks a uniformly random point inside the rectangle
// [Offset, Offset+Span).
type RandomPlacement struct {
	OffsetX, OffsetY float64
	SpanX, SpanY     float64

	// Float64 returns values in [0,1). Defaults to math/rand/v2.
	Float64 func() float64
}

// DefaultPlacement returns the 400x200 rectangle offset by 50.
func DefaultPlacement() *RandomPlacement {
	return &RandomPlacement{OffsetX: 50, OffsetY: 50, SpanX: 400, SpanY: 200}
}

func (p *RandomPlacement) Place() (float64, float64) {
	f := p.Float64
	if f == nil {
		f = rand.Float64
	}
	return p.OffsetX + f()*p.SpanX, p.OffsetY + f()*p.SpanY
}

// FixedPlacement always returns the same point.
type FixedPlacement struct {
	X, Y float64
}

func (p FixedPlacement) Place() (float64, float64) {
	return p.X, p.Y
}
