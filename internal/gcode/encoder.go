package gcode

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MinSegment is the shortest move that extrudes; anything shorter travels.
	MinSegment = 0.01
	// TravelFeed is the rapid feed rate in mm/min.
	TravelFeed = 9000
	// RetractFeed is used for filament-only moves in mm/min.
	RetractFeed = 2400
	// ZFeed is used for Z moves in mm/min.
	ZFeed = 600
)

// Material describes the filament and layer geometry.
type Material struct {
	FilamentDiameter float64 `yaml:"filament_diameter"`
	LayerHeight      float64 `yaml:"layer_height"`
	ZOffset          float64 `yaml:"z_offset"`
}

// FilamentArea is the filament cross-section, pi*r^2.
func (m Material) FilamentArea() float64 {
	r := m.FilamentDiameter / 2
	return math.Pi * r * r
}

// Encoder turns moves into instructions and keeps the running extrusion
// total. Positions passed to it are machine coordinates.
type Encoder struct {
	prog     *Program
	material Material
	area     float64
	pos      mgl64.Vec2
	z        float64
	total    float64
}

// NewEncoder appends to prog.
func NewEncoder(prog *Program, m Material) *Encoder {
	return &Encoder{prog: prog, material: m, area: m.FilamentArea()}
}

func (e *Encoder) Material() Material { return e.material }

// Pos is the last XY position emitted.
func (e *Encoder) Pos() mgl64.Vec2 { return e.pos }

// Z is the last Z height emitted.
func (e *Encoder) Z() float64 { return e.z }

// Total is the filament length extruded by printing moves so far, in mm.
// Retractions and their matching primes are not counted.
func (e *Encoder) Total() float64 { return e.total }

// Extrusion returns the filament length needed to lay a bead of the given
// length and width at the configured layer height.
func (e *Encoder) Extrusion(length, width float64) float64 {
	if e.area <= 0 {
		return 0
	}
	return length * width * e.material.LayerHeight / e.area
}

// Move emits the move from -> to. speed is in mm/s. Travel moves and moves
// shorter than MinSegment do not extrude and run at TravelFeed.
func (e *Encoder) Move(from, to mgl64.Vec2, width, speed float64, travel bool) Instruction {
	length := to.Sub(from).Len()
	var in Instruction
	if travel || length < MinSegment || !(width > 0) {
		in = Instruction{Kind: Travel, X: to.X(), Y: to.Y(), Feed: TravelFeed}
	} else {
		ext := e.Extrusion(length, width)
		e.total += ext
		in = Instruction{Kind: Print, X: to.X(), Y: to.Y(), E: ext, Feed: speed * 60}
	}
	e.prog.Add(in)
	e.pos = to
	return in
}

// To moves from the current position.
func (e *Encoder) To(to mgl64.Vec2, width, speed float64) Instruction {
	return e.Move(e.pos, to, width, speed, false)
}

// TravelTo repositions without extruding.
func (e *Encoder) TravelTo(to mgl64.Vec2) Instruction {
	return e.Move(e.pos, to, 0, 0, true)
}

// LiftTo moves Z to z.
func (e *Encoder) LiftTo(z float64) {
	e.prog.Directive(fmt.Sprintf("G1 Z%.3f F%d", z, ZFeed))
	e.z = z
}

// Retract pulls length mm of filament back.
func (e *Encoder) Retract(length float64) {
	e.prog.Directive(fmt.Sprintf("G1 E%.5f F%d", -length, RetractFeed))
}

// Prime pushes length mm of filament forward.
func (e *Encoder) Prime(length float64) {
	e.prog.Directive(fmt.Sprintf("G1 E%.5f F%d", length, RetractFeed))
}
