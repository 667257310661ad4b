package curve

import (
	"iter"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	MinHilbertOrder = 1
	MaxHilbertOrder = 10
)

// HilbertPoint maps index d in [0, 4^order) to its cell on the 2^order grid.
// Consecutive indices land on edge-adjacent cells.
func HilbertPoint(order, d int) (x, y int) {
	n := 1 << order
	t := d
	for s := 1; s < n; s <<= 1 {
		rx := 1 & (t >> 1)
		ry := 1 & (t ^ rx)
		if ry == 0 {
			if rx == 1 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
		x += s * rx
		y += s * ry
		t >>= 2
	}
	return x, y
}

// Hilbert visits the centres of the 2^Order x 2^Order cells of the largest
// square centred in Bounds, in Hilbert curve order.
type Hilbert struct {
	Bounds Rect
	Order  int
}

func (h Hilbert) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if h.Bounds.Empty() {
			return
		}
		order := min(max(h.Order, MinHilbertOrder), MaxHilbertOrder)
		sq := h.Bounds.Square()
		n := 1 << order
		cell := sq.Dx() / float64(n)
		for d := 0; d < n*n; d++ {
			x, y := HilbertPoint(order, d)
			p := sq.Min.Add(mgl64.Vec2{(float64(x) + 0.5) * cell, (float64(y) + 0.5) * cell})
			if !yield(Step{P: p, Travel: d == 0}, nil) {
				return
			}
		}
	}
}
