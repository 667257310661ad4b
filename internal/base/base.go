// Package base prints the structural pad laid under the artwork: concentric
// walls and boustrophedon infill per layer, then the filament change that
// hands over to the artwork material.
package base

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"fdmart/internal/curve"
	"fdmart/internal/gcode"
)

const (
	WallCount     = 3
	WallSpacing   = 0.42
	WallWidth     = 0.5
	InfillSpacing = 0.45
	InfillWidth   = 0.45

	// SlowFraction of the infill path of each layer runs at half speed.
	SlowFraction = 0.1

	RetractLength = 0.8
	LiftHeight    = 0.4

	ChangeRetract = 2.0
	ChangeLift    = 10.0

	DefaultSpeed = 25.0

	wallSegment = 0.5
)

// Config controls the pad.
type Config struct {
	Enabled bool    `yaml:"enabled"`
	Layers  int     `yaml:"layers"`
	Margin  float64 `yaml:"margin"`
	Speed   float64 `yaml:"speed"`
}

// ChangeMode selects how the machine swaps from base to drawing material.
type ChangeMode int

const (
	// ChangeManual parks the head and pauses for the operator.
	ChangeManual ChangeMode = iota
	// ChangeSlot selects another feed slot on a multi-material machine.
	ChangeSlot
)

func (m ChangeMode) String() string {
	if m == ChangeSlot {
		return "slot"
	}
	return "manual"
}

func (m ChangeMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ChangeMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "manual", "pause", "":
		*m = ChangeManual
	case "slot", "ams", "tool":
		*m = ChangeSlot
	default:
		return fmt.Errorf("unknown filament change mode %q", b)
	}
	return nil
}

// ChangePlan drives the directives around the base/artwork transition.
type ChangePlan struct {
	Mode     ChangeMode `yaml:"mode"`
	BaseSlot int        `yaml:"base_slot"`
	DrawSlot int        `yaml:"draw_slot"`
}

// StartDirective is the directive selecting the base material before the
// pad is printed. Manual mode needs none.
func (p ChangePlan) StartDirective() string {
	if p.Mode == ChangeSlot {
		return fmt.Sprintf("T%d", p.BaseSlot)
	}
	return ""
}

// Result describes what was printed.
type Result struct {
	Boundary Boundary
	// Margin is how far the artwork must stay inside Boundary.
	Margin float64
	Layers int
	// TopZ is the height of the last base layer.
	TopZ float64
	// Primed is false when filament was retracted for a manual change and
	// must be primed again before the artwork.
	Primed bool
}

// Clip reports whether p may carry artwork.
func (r Result) Clip(p mgl64.Vec2) bool {
	return r.Boundary.Contains(p, r.Margin)
}

// Generator emits base layers through an encoder.
type Generator struct {
	enc  *gcode.Encoder
	prog *gcode.Program
	cfg  Config
	plan ChangePlan
	log  *slog.Logger
}

// New returns a generator. A nil logger uses slog.Default().
func New(prog *gcode.Program, enc *gcode.Encoder, cfg Config, plan ChangePlan, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Layers < 1 {
		cfg.Layers = 1
	}
	if !(cfg.Speed > 0) || math.IsInf(cfg.Speed, 0) {
		cfg.Speed = DefaultSpeed
	}
	if !(cfg.Margin >= 0) || math.IsInf(cfg.Margin, 0) {
		cfg.Margin = 0
	}
	return &Generator{enc: enc, prog: prog, cfg: cfg, plan: plan, log: log}
}

// Margin is the inward distance between the base outline and the artwork.
func (g *Generator) Margin() float64 {
	return WallCount*WallSpacing + g.cfg.Margin
}

// Generate prints every layer of the pad inside area with the given shape,
// followed by the filament change, and parks at park for manual changes.
func (g *Generator) Generate(shape Shape, area curve.Rect, park mgl64.Vec2) Result {
	b := BoundaryFor(shape, area)
	m := g.enc.Material()
	res := Result{Boundary: b, Margin: g.Margin(), Layers: g.cfg.Layers, Primed: true}

	g.log.Debug("base", "shape", shape, "layers", g.cfg.Layers, "margin", res.Margin)
	for layer := 0; layer < g.cfg.Layers; layer++ {
		z := m.ZOffset + m.LayerHeight*float64(layer+1)
		g.prog.Comment(fmt.Sprintf("base layer %d/%d z=%.3f", layer+1, g.cfg.Layers, z))
		g.walls(b, z, layer == 0)
		g.infill(b, z)
		res.TopZ = z
		if layer < g.cfg.Layers-1 {
			g.enc.LiftTo(z + m.LayerHeight)
		}
	}

	g.prog.Comment("filament change")
	switch g.plan.Mode {
	case ChangeSlot:
		g.prog.Directive(fmt.Sprintf("T%d", g.plan.DrawSlot))
		g.prog.Directive("M400")
	default:
		g.enc.Retract(ChangeRetract)
		g.enc.LiftTo(res.TopZ + ChangeLift)
		g.enc.TravelTo(park)
		g.prog.Directive("M0 ; swap to drawing filament")
		res.Primed = false
	}
	return res
}

func (g *Generator) walls(b Boundary, z float64, first bool) {
	for i := 0; i < WallCount; i++ {
		pts := b.Contour(WallWidth/2 + float64(i)*WallSpacing)
		if len(pts) < 2 {
			continue
		}
		if i == 0 && first {
			g.enc.LiftTo(z + LiftHeight)
			g.enc.TravelTo(pts[0])
			g.enc.LiftTo(z)
		} else {
			g.enc.TravelTo(pts[0])
		}
		if g.enc.Z() != z {
			g.enc.LiftTo(z)
		}
		for _, p := range pts[1:] {
			curve.Subdivide(g.enc.Pos(), p, wallSegment, func(q mgl64.Vec2) bool {
				g.enc.To(q, WallWidth, g.cfg.Speed)
				return true
			})
		}
	}
}

type line struct {
	a, b mgl64.Vec2
}

// infillLines scans the region inside the innermost wall, alternating
// direction every line.
func infillLines(b Boundary) []line {
	inset := WallCount * WallSpacing
	y0, y1 := b.YRange(inset)
	var lines []line
	for k := 0; ; k++ {
		y := y0 + InfillSpacing/2 + float64(k)*InfillSpacing
		if y > y1 {
			break
		}
		x0, x1, ok := b.Span(y, inset)
		if !ok || x1-x0 < gcode.MinSegment {
			continue
		}
		l := line{mgl64.Vec2{x0, y}, mgl64.Vec2{x1, y}}
		if len(lines)%2 == 1 {
			l.a, l.b = l.b, l.a
		}
		lines = append(lines, l)
	}
	return lines
}

func (g *Generator) infill(b Boundary, z float64) {
	lines := infillLines(b)
	if len(lines) == 0 {
		return
	}

	lengths := make([]float64, 0, 2*len(lines))
	for i, l := range lines {
		if i > 0 {
			lengths = append(lengths, l.a.Sub(lines[i-1].b).Len())
		}
		lengths = append(lengths, l.b.Sub(l.a).Len())
	}
	slowUntil := SlowFraction * floats.Sum(lengths)

	g.enc.Retract(RetractLength)
	g.enc.LiftTo(z + LiftHeight)
	g.enc.TravelTo(lines[0].a)
	g.enc.LiftTo(z)
	g.enc.Prime(RetractLength)

	done := 0.0
	move := func(to mgl64.Vec2) {
		from := g.enc.Pos()
		length := to.Sub(from).Len()
		if done < slowUntil && done+length > slowUntil {
			split := curve.Lerp(from, to, (slowUntil-done)/length)
			g.enc.To(split, InfillWidth, g.cfg.Speed/2)
			g.enc.To(to, InfillWidth, g.cfg.Speed)
		} else if done < slowUntil {
			g.enc.To(to, InfillWidth, g.cfg.Speed/2)
		} else {
			g.enc.To(to, InfillWidth, g.cfg.Speed)
		}
		done += length
	}
	for i, l := range lines {
		if i > 0 {
			move(l.a)
		}
		move(l.b)
	}
}
