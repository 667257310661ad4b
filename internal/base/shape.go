package base

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"fdmart/internal/curve"
)

// Shape is the outline of the base pad.
type Shape int

const (
	ShapeRect Shape = iota
	ShapeSquare
	ShapeCircle
)

func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeCircle:
		return "circle"
	default:
		return "rectangle"
	}
}

// ShapeFor picks the base outline that matches a pattern: circles under
// spirals, squares under square spirals and Hilbert curves.
func ShapeFor(k curve.Kind) Shape {
	switch k {
	case curve.KindSpiral:
		return ShapeCircle
	case curve.KindSquareSpiral, curve.KindHilbert:
		return ShapeSquare
	default:
		return ShapeRect
	}
}

// Boundary is a closed region that can be inset uniformly.
type Boundary interface {
	// Contour returns a closed polyline (first point repeated last) at the
	// given inset.
	Contour(inset float64) []mgl64.Vec2
	// Span returns the horizontal chord at y of the region inset by inset.
	Span(y, inset float64) (x0, x1 float64, ok bool)
	// YRange returns the vertical extent of the inset region.
	YRange(inset float64) (y0, y1 float64)
	// Contains reports whether p lies in the inset region, edge included.
	Contains(p mgl64.Vec2, inset float64) bool
}

// BoundaryFor returns the shape's outline fitted to area.
func BoundaryFor(s Shape, area curve.Rect) Boundary {
	switch s {
	case ShapeCircle:
		sq := area.Square()
		return Circle{Center: sq.Center(), Radius: sq.Dx() / 2}
	case ShapeSquare:
		return Rect{area.Square()}
	default:
		return Rect{area}
	}
}

// Rect is a rectangular boundary.
type Rect struct {
	curve.Rect
}

func (r Rect) Contour(inset float64) []mgl64.Vec2 {
	in := r.Inset(inset)
	if in.Empty() {
		return nil
	}
	return []mgl64.Vec2{
		in.Min,
		{in.Max.X(), in.Min.Y()},
		in.Max,
		{in.Min.X(), in.Max.Y()},
		in.Min,
	}
}

func (r Rect) Span(y, inset float64) (float64, float64, bool) {
	in := r.Inset(inset)
	if in.Empty() || y < in.Min.Y() || y > in.Max.Y() {
		return 0, 0, false
	}
	return in.Min.X(), in.Max.X(), true
}

func (r Rect) YRange(inset float64) (float64, float64) {
	in := r.Inset(inset)
	return in.Min.Y(), in.Max.Y()
}

func (r Rect) Contains(p mgl64.Vec2, inset float64) bool {
	return r.Inset(inset).Contains(p)
}

// Circle is a circular boundary.
type Circle struct {
	Center mgl64.Vec2
	Radius float64
}

func (c Circle) Contour(inset float64) []mgl64.Vec2 {
	r := c.Radius - inset
	if !(r > 0) {
		return nil
	}
	n := max(16, int(math.Ceil(2*math.Pi*r/wallSegment)))
	pts := make([]mgl64.Vec2, 0, n+1)
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i%n) / float64(n)
		pts = append(pts, c.Center.Add(mgl64.Vec2{r * math.Cos(a), r * math.Sin(a)}))
	}
	return pts
}

func (c Circle) Span(y, inset float64) (float64, float64, bool) {
	r := c.Radius - inset
	dy := y - c.Center.Y()
	if !(r > 0) || math.Abs(dy) > r {
		return 0, 0, false
	}
	half := math.Sqrt(r*r - dy*dy)
	return c.Center.X() - half, c.Center.X() + half, true
}

func (c Circle) YRange(inset float64) (float64, float64) {
	r := c.Radius - inset
	return c.Center.Y() - r, c.Center.Y() + r
}

func (c Circle) Contains(p mgl64.Vec2, inset float64) bool {
	r := c.Radius - inset
	return r >= 0 && p.Sub(c.Center).Len() <= r
}
