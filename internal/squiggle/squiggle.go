// Package squiggle perturbs straight printing moves into sine waves whose
// amplitude follows the local darkness.
package squiggle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"fdmart/internal/curve"
	"fdmart/internal/gcode"
)

const (
	// MinDarkness is the darkness below which segments stay straight.
	MinDarkness = 0.1
	// MinAmplitude is the configured amplitude treated as zero.
	MinAmplitude = 1e-3
	// SubSegment is the target length of one squiggle piece in mm.
	SubSegment = 0.1
)

// Shade is the print setting for a point: bead width (mm), speed (mm/s) and
// the darkness they were derived from.
type Shade struct {
	Width    float64
	Speed    float64
	Darkness float64
}

// Modulator feeds segments to an encoder, squiggling the ones dark enough.
// The sine phase is the printed distance along the whole path, so waves stay
// continuous across segment boundaries.
type Modulator struct {
	enc       *gcode.Encoder
	amplitude float64
	frequency float64
	dist      float64
}

// New returns a modulator with the given peak amplitude (mm) and angular
// frequency (radians per mm of path).
func New(enc *gcode.Encoder, amplitude, frequency float64) *Modulator {
	return &Modulator{enc: enc, amplitude: amplitude, frequency: frequency}
}

// Enabled reports whether any segment can be perturbed.
func (m *Modulator) Enabled() bool {
	return m.amplitude > MinAmplitude
}

// Straight prints from -> to without perturbation. The wave phase still
// advances by the segment length.
func (m *Modulator) Straight(from, to mgl64.Vec2, sh Shade) {
	m.enc.Move(from, to, sh.Width, sh.Speed, false)
	m.dist += to.Sub(from).Len()
}

// Segment prints from -> to. sh is sampled once for the segment and fixes
// the squiggle envelope; when resample is non-nil each sub-piece takes its
// width and speed from resample at the sub-piece end.
func (m *Modulator) Segment(from, to mgl64.Vec2, sh Shade, resample func(mgl64.Vec2) Shade) {
	seg := to.Sub(from)
	length := seg.Len()
	if !m.Enabled() || sh.Darkness < MinDarkness || length < gcode.MinSegment {
		m.Straight(from, to, sh)
		return
	}

	n := max(2, int(math.Ceil(length/SubSegment)))
	dir := seg.Mul(1 / length)
	normal := mgl64.Vec2{-dir.Y(), dir.X()}
	amp := m.amplitude * sh.Darkness

	prev := from
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		p := curve.Lerp(from, to, t)
		if i < n {
			p = p.Add(normal.Mul(math.Sin((m.dist+length*t)*m.frequency) * amp))
		}
		cur := sh
		if resample != nil {
			cur = resample(p)
		}
		m.enc.Move(prev, p, cur.Width, cur.Speed, false)
		prev = p
	}
	m.dist += length
}
