package curve

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Spiral is an Archimedean spiral r = Spacing/(2*pi) * theta around Center,
// ending once r would exceed MaxRadius. The angular step shrinks as the
// radius grows so that arc length per step stays near SegmentLength.
type Spiral struct {
	Center        mgl64.Vec2
	MaxRadius     float64
	Spacing       float64
	MaxIterations int
}

func (s Spiral) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if !(s.Spacing > 0) || !(s.MaxRadius > 0) || math.IsInf(s.MaxRadius, 0) {
			return
		}
		limit := s.MaxIterations
		if limit <= 0 {
			limit = DefaultMaxIterations
		}
		if !yield(Step{P: s.Center, Travel: true}, nil) {
			return
		}
		k := s.Spacing / (2 * math.Pi)
		theta := 0.0
		for i := 0; ; i++ {
			if i >= limit {
				yield(Step{}, ErrIterationCap)
				return
			}
			r := k * theta
			theta += SegmentLength / math.Max(r, SegmentLength)
			r = k * theta
			if r > s.MaxRadius {
				return
			}
			p := s.Center.Add(mgl64.Vec2{r * math.Cos(theta), r * math.Sin(theta)})
			if !yield(Step{P: p}, nil) {
				return
			}
		}
	}
}

// SquareSpiral traces laps of a square shrinking by Spacing per side, from
// the outside in, finishing at the centre of Bounds. Bounds is used as given;
// callers wanting a true square pass Rect.Square().
type SquareSpiral struct {
	Bounds        Rect
	Spacing       float64
	MaxIterations int
}

func (s SquareSpiral) Steps() iter.Seq2[Step, error] {
	return func(yield func(Step, error) bool) {
		if !(s.Spacing > 0) || s.Bounds.Empty() {
			return
		}
		limit := s.MaxIterations
		if limit <= 0 {
			limit = DefaultMaxIterations
		}
		n := 0
		capped := false
		emit := func(p mgl64.Vec2) bool {
			if n >= limit {
				capped = true
				return false
			}
			n++
			return yield(Step{P: p}, nil)
		}

		lo := s.Bounds.Min
		w, h := s.Bounds.Dx(), s.Bounds.Dy()
		if !yield(Step{P: lo, Travel: true}, nil) {
			return
		}
		for math.Min(w, h) > 1.5*s.Spacing {
			corners := [...]mgl64.Vec2{
				lo.Add(mgl64.Vec2{w, 0}),
				lo.Add(mgl64.Vec2{w, h}),
				lo.Add(mgl64.Vec2{0, h}),
				lo.Add(mgl64.Vec2{0, s.Spacing}),
				lo.Add(mgl64.Vec2{s.Spacing, s.Spacing}),
			}
			prev := lo
			for _, c := range corners {
				if !Subdivide(prev, c, SegmentLength, emit) {
					if capped {
						yield(Step{}, ErrIterationCap)
					}
					return
				}
				prev = c
			}
			lo = prev
			w -= 2 * s.Spacing
			h -= 2 * s.Spacing
		}
		emit(s.Bounds.Center())
		if capped {
			yield(Step{}, ErrIterationCap)
		}
	}
}
