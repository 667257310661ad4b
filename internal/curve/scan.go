package curve

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Zigzag scans horizontal lines Spacing apart, alternating direction. Lines
// are joined by travel moves.
type Zigzag struct {
	Bounds  Rect
	Spacing float64
}

func (z Zigzag) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if !(z.Spacing > 0) || z.Bounds.Empty() {
			return
		}
		emit := func(p mgl64.Vec2) bool { return yield(Step{P: p}, nil) }
		for k := 0; ; k++ {
			y := z.Bounds.Min.Y() + z.Spacing/2 + float64(k)*z.Spacing
			if y > z.Bounds.Max.Y() {
				return
			}
			a := mgl64.Vec2{z.Bounds.Min.X(), y}
			b := mgl64.Vec2{z.Bounds.Max.X(), y}
			if k%2 == 1 {
				a, b = b, a
			}
			if !yield(Step{P: a, Travel: true}, nil) {
				return
			}
			if !Subdivide(a, b, SegmentLength, emit) {
				return
			}
		}
	}
}

// Diagonal scans the lines x+y = c, stepping c by Spacing*sqrt(2) so the
// perpendicular distance between lines is Spacing. Consecutive diagonals are
// joined by printed connectors so sampling never breaks between lines.
type Diagonal struct {
	Bounds  Rect
	Spacing float64
}

func (d Diagonal) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if !(d.Spacing > 0) || d.Bounds.Empty() {
			return
		}
		w, h := d.Bounds.Dx(), d.Bounds.Dy()
		step := d.Spacing * math.Sqrt2
		origin := d.Bounds.Min
		emit := func(p mgl64.Vec2) bool { return yield(Step{P: p}, nil) }
		var prev mgl64.Vec2
		for k := 0; ; k++ {
			c := step/2 + float64(k)*step
			if c > w+h {
				return
			}
			lo := math.Max(0, c-h)
			hi := math.Min(w, c)
			a := origin.Add(mgl64.Vec2{lo, c - lo})
			b := origin.Add(mgl64.Vec2{hi, c - hi})
			if k%2 == 1 {
				a, b = b, a
			}
			if k == 0 {
				if !yield(Step{P: a, Travel: true}, nil) {
					return
				}
			} else if !Subdivide(prev, a, SegmentLength, emit) {
				return
			}
			if !Subdivide(a, b, SegmentLength, emit) {
				return
			}
			prev = b
		}
	}
}
