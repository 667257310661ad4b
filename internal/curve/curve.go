// Package curve generates the space-filling scan patterns traced over the
// print area. Every pattern is a restartable sequence of points in print-area
// millimetres; ranging over Steps a second time replays the same path.
package curve

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// SegmentLength is the longest straight piece a pattern emits between two
// consecutive points.
const SegmentLength = 0.5

// DefaultMaxIterations bounds the spiral families.
const DefaultMaxIterations = 2_000_000

// ErrIterationCap is yielded as the final element of a sequence that stopped
// at its iteration cap. Points yielded before it are valid.
var ErrIterationCap = errors.New("curve: iteration cap reached")

// Step is one point of a pattern. Travel marks that the move into P must not
// extrude.
type Step struct {
	P      mgl64.Vec2
	Travel bool
}

// Pattern is implemented by every generator in this package.
type Pattern interface {
	Steps() iter.Seq2[Step, error]
}

// Kind selects a pattern family.
type Kind int

const (
	KindZigzag Kind = iota
	KindDiagonal
	KindSpiral
	KindSquareSpiral
	KindHilbert
)

var kindNames = map[Kind]string{
	KindZigzag:       "zigzag",
	KindDiagonal:     "diagonal",
	KindSpiral:       "spiral",
	KindSquareSpiral: "squareSpiral",
	KindHilbert:      "hilbert",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by String, case-insensitively, plus
// "square_spiral" and "square-spiral".
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for k, name := range kindNames {
		if strings.ToLower(name) == norm {
			return k, nil
		}
	}
	return KindZigzag, fmt.Errorf("unknown pattern %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Rect is an axis-aligned rectangle in millimetres.
type Rect struct {
	Min, Max mgl64.Vec2
}

// NewRect returns the rectangle with corner (x, y) and the given size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Min: mgl64.Vec2{x, y}, Max: mgl64.Vec2{x + w, y + h}}
}

func (r Rect) Dx() float64 { return r.Max.X() - r.Min.X() }
func (r Rect) Dy() float64 { return r.Max.Y() - r.Min.Y() }

func (r Rect) Center() mgl64.Vec2 {
	return r.Min.Add(r.Max).Mul(0.5)
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return !(r.Dx() > 0) || !(r.Dy() > 0)
}

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{
		Min: r.Min.Add(mgl64.Vec2{d, d}),
		Max: r.Max.Sub(mgl64.Vec2{d, d}),
	}
}

// Contains treats r as closed: points on the edge are inside.
func (r Rect) Contains(p mgl64.Vec2) bool {
	return p.X() >= r.Min.X() && p.X() <= r.Max.X() &&
		p.Y() >= r.Min.Y() && p.Y() <= r.Max.Y()
}

// Square returns the largest square centred in r.
func (r Rect) Square() Rect {
	side := math.Min(r.Dx(), r.Dy())
	c := r.Center()
	return Rect{
		Min: c.Sub(mgl64.Vec2{side / 2, side / 2}),
		Max: c.Add(mgl64.Vec2{side / 2, side / 2}),
	}
}

// Lerp interpolates between a and b.
func Lerp(a, b mgl64.Vec2, t float64) mgl64.Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}

// Subdivide calls yield for the points splitting a->b into pieces no longer
// than maxLen. a itself is not yielded, b always is. It returns false as soon
// as yield does.
func Subdivide(a, b mgl64.Vec2, maxLen float64, yield func(mgl64.Vec2) bool) bool {
	n := 1
	if maxLen > 0 {
		n = int(math.Ceil(b.Sub(a).Len() / maxLen))
	}
	if n < 1 {
		n = 1
	}
	for i := 1; i <= n; i++ {
		if !yield(Lerp(a, b, float64(i)/float64(n))) {
			return false
		}
	}
	return true
}
