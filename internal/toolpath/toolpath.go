// Package toolpath drives one generation run: it validates the job, prints
// the optional base, traces the selected pattern through the clip region and
// maps image darkness to bead width, speed and squiggle.
package toolpath

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"fdmart/internal/base"
	"fdmart/internal/brightness"
	"fdmart/internal/curve"
	"fdmart/internal/gcode"
	"fdmart/internal/squiggle"
	"fdmart/internal/template"
)

// Summary is plain data describing a finished run.
type Summary struct {
	RunID     string
	Extrusion float64 // mm of filament
	Volume    float64 // mm^3
	Width     float64
	Height    float64
	MinSpeed  float64
	MaxSpeed  float64
	Prints    int
	Travels   int
	Capped    bool
	Duration  time.Duration
}

// Result is the output of a run. Instructions is never modified after
// Generate returns.
type Result struct {
	Instructions []gcode.Instruction
	// Change is the directive block placed ahead of the artwork when the
	// result is merged into a template.
	Change  string
	Summary Summary
}

// Text renders the instructions, one per line.
func (r *Result) Text() string {
	return gcode.Format(r.Instructions)
}

// Render returns the output file. With a template, the change block and the
// artwork are merged into it and a missing start marker is reported as
// template.ErrNoStartMarker alongside the text. Without one, the change
// block leads the artwork.
func (r *Result) Render(tpl *template.Template) (string, error) {
	if tpl != nil {
		return tpl.Merge(r.Change, r.Text())
	}
	if r.Change == "" {
		return r.Text(), nil
	}
	return r.Change + "\n" + r.Text(), nil
}

// region is the clip boundary the artwork must stay in.
type region struct {
	contains func(p mgl64.Vec2, extra float64) bool
	bounds   curve.Rect
}

// Generate runs job to completion. Invalid jobs fail before any output is
// produced; hitting an iteration cap only truncates the pattern.
func Generate(job Job, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}
	job.Sanitize(log)
	if err := job.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log = log.With("run", runID)
	p := job.Path

	var prog gcode.Program
	enc := gcode.NewEncoder(&prog, job.Material)
	writeHeader(&prog, runID, job)
	prog.Directive("M83")

	area := job.Area.Rect()
	reg := region{
		contains: func(pt mgl64.Vec2, extra float64) bool { return area.Inset(extra).Contains(pt) },
		bounds:   area,
	}
	artZ := job.Material.ZOffset + job.Material.LayerHeight
	prime := 0.0
	change := ""

	if job.Base.Enabled {
		shape := base.ShapeFor(p.Pattern)
		g := base.New(&prog, enc, job.Base, job.Change, log)
		res := g.Generate(shape, area, job.Area.BedCenter())
		reg.contains = func(pt mgl64.Vec2, extra float64) bool {
			return res.Boundary.Contains(pt, res.Margin+extra)
		}
		if shape == base.ShapeRect {
			reg.bounds = area.Inset(res.Margin)
		} else {
			reg.bounds = area.Square().Inset(res.Margin)
		}
		artZ = res.TopZ + job.Material.LayerHeight
		if !res.Primed {
			prime = base.ChangeRetract
		}
		change = job.Change.StartDirective()
		log.Info("base generated", "shape", shape, "layers", res.Layers, "margin", res.Margin)
	}

	prog.Comment("artwork")
	enc.LiftTo(artZ)

	capped, err := trace(&prog, enc, job, area, reg, prime, log)
	if err != nil {
		return nil, err
	}
	prog.Comment("artwork end")

	sum := Summary{
		RunID:     runID,
		Extrusion: enc.Total(),
		Volume:    enc.Total() * job.Material.FilamentArea(),
		Width:     job.Area.Width,
		Height:    job.Area.Height,
		MinSpeed:  p.MinSpeed,
		MaxSpeed:  p.MaxSpeed,
		Prints:    prog.Count(gcode.Print),
		Travels:   prog.Count(gcode.Travel),
		Capped:    capped,
		Duration:  time.Since(start),
	}
	log.Info("toolpath generated",
		"pattern", p.Pattern,
		"instructions", prog.Len(),
		"extrusion_mm", fmt.Sprintf("%.1f", sum.Extrusion),
		"duration", sum.Duration)

	return &Result{Instructions: prog.Instructions(), Change: change, Summary: sum}, nil
}

func writeHeader(prog *gcode.Program, runID string, job Job) {
	p := job.Path
	prog.Comment("fdmart run " + runID)
	prog.Comment(fmt.Sprintf("pattern=%s spacing=%.3f width=%.2f-%.2f speed=%.0f-%.0f gamma=%.2f",
		p.Pattern, p.Spacing, p.MinWidth, p.MaxWidth, p.MinSpeed, p.MaxSpeed, p.Gamma))
	if p.TextMode {
		prog.Comment(fmt.Sprintf("text mode threshold=%.2f", p.TextThreshold))
	}
	if p.SquiggleAmplitude > 0 {
		prog.Comment(fmt.Sprintf("squiggle amplitude=%.3f frequency=%.3f", p.SquiggleAmplitude, p.SquiggleFrequency))
	}
	prog.Comment(fmt.Sprintf("area=%.1fx%.1f bed=%.0fx%.0f origin=%s",
		job.Area.Width, job.Area.Height, job.Area.BedWidth, job.Area.BedHeight, job.Area.Origin))
	if job.Base.Enabled {
		prog.Comment(fmt.Sprintf("base layers=%d margin=%.2f change=%s", job.Base.Layers, job.Base.Margin, job.Change.Mode))
	}
}

// pattern selects the generator for the job.
func pattern(p PathParameters, r curve.Rect) curve.Pattern {
	switch p.Pattern {
	case curve.KindDiagonal:
		return curve.Diagonal{Bounds: r, Spacing: p.Spacing}
	case curve.KindSpiral:
		return curve.Spiral{
			Center:        r.Center(),
			MaxRadius:     math.Min(r.Dx(), r.Dy()) / 2,
			Spacing:       p.Spacing,
			MaxIterations: p.MaxIterations,
		}
	case curve.KindSquareSpiral:
		return curve.SquareSpiral{Bounds: r.Square(), Spacing: p.Spacing, MaxIterations: p.MaxIterations}
	case curve.KindHilbert:
		return curve.Hilbert{Bounds: r, Order: p.CurveOrder}
	default:
		return curve.Zigzag{Bounds: r, Spacing: p.Spacing}
	}
}

// trace walks the pattern and emits the artwork. It reports whether the
// pattern stopped at its iteration cap.
func trace(prog *gcode.Program, enc *gcode.Encoder, job Job, area curve.Rect, reg region, prime float64, log *slog.Logger) (bool, error) {
	p := job.Path
	sampler := brightness.NewSampler(job.Image, job.View, p.Gamma)
	darkness := func(pt mgl64.Vec2) float64 {
		u := (pt.X() - area.Min.X()) / area.Dx()
		v := 1 - (pt.Y()-area.Min.Y())/area.Dy()
		return sampler.Darkness(u, v)
	}
	shade := func(pt mgl64.Vec2) squiggle.Shade {
		d := darkness(pt)
		return squiggle.Shade{
			Width:    p.MinWidth + d*(p.MaxWidth-p.MinWidth),
			Speed:    p.MaxSpeed - d*(p.MaxSpeed-p.MinSpeed),
			Darkness: d,
		}
	}
	mod := squiggle.New(enc, p.SquiggleAmplitude, p.SquiggleFrequency)

	started := false
	prevIn := false
	for step, err := range pattern(p, reg.bounds).Steps() {
		if err != nil {
			if errors.Is(err, curve.ErrIterationCap) {
				log.Warn("pattern stopped at iteration cap; output is partial",
					"pattern", p.Pattern, "max_iterations", p.MaxIterations)
				return true, nil
			}
			return false, err
		}
		pt := step.P
		in := reg.contains(pt, 0)
		if !started || step.Travel || !in || !prevIn {
			enc.TravelTo(pt)
			started = true
			prevIn = in
			continue
		}

		from := enc.Pos()
		if p.TextMode {
			if darkness(pt) < p.TextThreshold {
				enc.TravelTo(pt)
				continue
			}
			prime = primeOnce(enc, prime)
			enc.Move(from, pt, p.MaxWidth, p.MinSpeed, false)
			continue
		}

		prime = primeOnce(enc, prime)
		sh := shade(pt)
		amp := p.SquiggleAmplitude * sh.Darkness
		if mod.Enabled() && reg.contains(from, amp) && reg.contains(pt, amp) {
			mod.Segment(from, pt, sh, shade)
		} else {
			mod.Straight(from, pt, sh)
		}
	}
	return false, nil
}

func primeOnce(enc *gcode.Encoder, length float64) float64 {
	if length > 0 {
		enc.Prime(length)
	}
	return 0
}
