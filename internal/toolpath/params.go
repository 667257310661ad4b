package toolpath

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"fdmart/internal/base"
	"fdmart/internal/brightness"
	"fdmart/internal/curve"
	"fdmart/internal/gcode"
)

var (
	ErrNoImage       = errors.New("toolpath: no source image")
	ErrInvalidParams = errors.New("toolpath: invalid parameters")
)

// Origin is where the machine's X0 Y0 sits on the bed.
type Origin int

const (
	OriginCorner Origin = iota
	OriginCenter
)

func (o Origin) String() string {
	if o == OriginCenter {
		return "center"
	}
	return "corner"
}

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Origin) UnmarshalText(b []byte) error {
	switch string(b) {
	case "corner", "":
		*o = OriginCorner
	case "center", "centre":
		*o = OriginCenter
	default:
		return fmt.Errorf("unknown origin %q", b)
	}
	return nil
}

// PrintArea places the artwork rectangle on the bed. Offsets are the
// distance from the bed's lower-left corner to the area's lower-left
// corner; Centered ignores them.
type PrintArea struct {
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	OffsetX   float64 `yaml:"offset_x"`
	OffsetY   float64 `yaml:"offset_y"`
	Centered  bool    `yaml:"centered"`
	BedWidth  float64 `yaml:"bed_width"`
	BedHeight float64 `yaml:"bed_height"`
	Origin    Origin  `yaml:"origin"`
}

// Rect is the area in machine coordinates.
func (a PrintArea) Rect() curve.Rect {
	x, y := a.OffsetX, a.OffsetY
	if a.Centered {
		x = (a.BedWidth - a.Width) / 2
		y = (a.BedHeight - a.Height) / 2
	}
	if a.Origin == OriginCenter {
		x -= a.BedWidth / 2
		y -= a.BedHeight / 2
	}
	return curve.NewRect(x, y, a.Width, a.Height)
}

// BedCenter is the middle of the bed in machine coordinates.
func (a PrintArea) BedCenter() mgl64.Vec2 {
	if a.Origin == OriginCenter {
		return mgl64.Vec2{0, 0}
	}
	return mgl64.Vec2{a.BedWidth / 2, a.BedHeight / 2}
}

// PathParameters shape the artwork pattern. Widths are in mm, speeds in
// mm/s, SquiggleFrequency in radians per mm.
type PathParameters struct {
	Pattern           curve.Kind `yaml:"pattern"`
	Spacing           float64    `yaml:"spacing"`
	MinWidth          float64    `yaml:"min_width"`
	MaxWidth          float64    `yaml:"max_width"`
	MinSpeed          float64    `yaml:"min_speed"`
	MaxSpeed          float64    `yaml:"max_speed"`
	Gamma             float64    `yaml:"gamma"`
	SquiggleAmplitude float64    `yaml:"squiggle_amplitude"`
	SquiggleFrequency float64    `yaml:"squiggle_frequency"`
	CurveOrder        int        `yaml:"curve_order"`
	TextMode          bool       `yaml:"text_mode"`
	TextThreshold     float64    `yaml:"text_threshold"`
	MaxIterations     int        `yaml:"max_iterations"`
}

// Job is everything one generation run needs. Image is read-only for the
// duration of the run.
type Job struct {
	Area     PrintArea
	Path     PathParameters
	Material gcode.Material
	Base     base.Config
	Change   base.ChangePlan
	View     brightness.View
	Image    *brightness.Field
}

func DefaultPrintArea() PrintArea {
	return PrintArea{Width: 100, Height: 100, Centered: true, BedWidth: 220, BedHeight: 220}
}

func DefaultPathParameters() PathParameters {
	return PathParameters{
		Pattern:           curve.KindZigzag,
		Spacing:           0.8,
		MinWidth:          0.3,
		MaxWidth:          0.9,
		MinSpeed:          15,
		MaxSpeed:          60,
		Gamma:             1,
		SquiggleAmplitude: 0,
		SquiggleFrequency: 2,
		CurveOrder:        6,
		TextThreshold:     0.5,
		MaxIterations:     curve.DefaultMaxIterations,
	}
}

func DefaultMaterial() gcode.Material {
	return gcode.Material{FilamentDiameter: 1.75, LayerHeight: 0.2}
}

func DefaultBase() base.Config {
	return base.Config{Layers: 2, Margin: 1, Speed: base.DefaultSpeed}
}

func DefaultChangePlan() base.ChangePlan {
	return base.ChangePlan{Mode: base.ChangeManual, BaseSlot: 0, DrawSlot: 1}
}

// Sanitize replaces NaN and infinite numbers with defaults and clamps values
// into their usable range, logging every substitution. It never fails;
// Validate reports what cannot be repaired.
func (j *Job) Sanitize(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	fix := func(name string, v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			log.Warn("parameter replaced by default", "param", name, "value", *v, "default", def)
			*v = def
		}
	}
	clamp := func(name string, v *float64, lo, hi float64) {
		if *v < lo || *v > hi {
			c := math.Min(math.Max(*v, lo), hi)
			log.Warn("parameter clamped", "param", name, "value", *v, "clamped", c)
			*v = c
		}
	}

	da := DefaultPrintArea()
	a := &j.Area
	fix("bed_width", &a.BedWidth, da.BedWidth)
	fix("bed_height", &a.BedHeight, da.BedHeight)
	if a.BedWidth <= 0 {
		a.BedWidth = da.BedWidth
	}
	if a.BedHeight <= 0 {
		a.BedHeight = da.BedHeight
	}
	fix("width", &a.Width, da.Width)
	fix("height", &a.Height, da.Height)
	if a.Width > 0 {
		clamp("width", &a.Width, 0, a.BedWidth)
	}
	if a.Height > 0 {
		clamp("height", &a.Height, 0, a.BedHeight)
	}
	fix("offset_x", &a.OffsetX, 0)
	fix("offset_y", &a.OffsetY, 0)
	if !a.Centered && a.Width > 0 && a.Height > 0 {
		clamp("offset_x", &a.OffsetX, 0, a.BedWidth-a.Width)
		clamp("offset_y", &a.OffsetY, 0, a.BedHeight-a.Height)
	}

	dp := DefaultPathParameters()
	p := &j.Path
	fix("spacing", &p.Spacing, dp.Spacing)
	fix("min_width", &p.MinWidth, dp.MinWidth)
	fix("max_width", &p.MaxWidth, dp.MaxWidth)
	fix("min_speed", &p.MinSpeed, dp.MinSpeed)
	fix("max_speed", &p.MaxSpeed, dp.MaxSpeed)
	fix("gamma", &p.Gamma, dp.Gamma)
	if p.Gamma <= 0 {
		log.Warn("parameter replaced by default", "param", "gamma", "value", p.Gamma, "default", dp.Gamma)
		p.Gamma = dp.Gamma
	}
	fix("squiggle_amplitude", &p.SquiggleAmplitude, dp.SquiggleAmplitude)
	fix("squiggle_frequency", &p.SquiggleFrequency, dp.SquiggleFrequency)
	clamp("squiggle_amplitude", &p.SquiggleAmplitude, 0, math.MaxFloat64)
	fix("text_threshold", &p.TextThreshold, dp.TextThreshold)
	clamp("text_threshold", &p.TextThreshold, 0, 1)
	if p.CurveOrder < curve.MinHilbertOrder || p.CurveOrder > curve.MaxHilbertOrder {
		c := min(max(p.CurveOrder, curve.MinHilbertOrder), curve.MaxHilbertOrder)
		log.Warn("parameter clamped", "param", "curve_order", "value", p.CurveOrder, "clamped", c)
		p.CurveOrder = c
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = dp.MaxIterations
	}

	dm := DefaultMaterial()
	m := &j.Material
	fix("filament_diameter", &m.FilamentDiameter, dm.FilamentDiameter)
	fix("layer_height", &m.LayerHeight, dm.LayerHeight)
	fix("z_offset", &m.ZOffset, dm.ZOffset)
	if m.FilamentDiameter <= 0 {
		m.FilamentDiameter = dm.FilamentDiameter
	}
	if m.LayerHeight <= 0 {
		m.LayerHeight = dm.LayerHeight
	}

	db := DefaultBase()
	fix("base.margin", &j.Base.Margin, db.Margin)
	fix("base.speed", &j.Base.Speed, db.Speed)
	clamp("base.margin", &j.Base.Margin, 0, math.MaxFloat64)
	if j.Base.Layers < 1 {
		j.Base.Layers = 1
	}
	if j.Base.Speed <= 0 {
		j.Base.Speed = db.Speed
	}

	j.View = j.View.Clamped()
}

// Validate reports problems that stop a run before any work begins.
func (j *Job) Validate() error {
	if j.Image == nil {
		return ErrNoImage
	}
	p := j.Path
	switch {
	case !(j.Area.Width > 0) || !(j.Area.Height > 0):
		return fmt.Errorf("%w: print area %gx%g must be positive", ErrInvalidParams, j.Area.Width, j.Area.Height)
	case !(p.Spacing > 0):
		return fmt.Errorf("%w: spacing %g must be positive", ErrInvalidParams, p.Spacing)
	case !(p.MinWidth < p.MaxWidth):
		return fmt.Errorf("%w: min width %g must be below max width %g", ErrInvalidParams, p.MinWidth, p.MaxWidth)
	case !(p.MinSpeed < p.MaxSpeed):
		return fmt.Errorf("%w: min speed %g must be below max speed %g", ErrInvalidParams, p.MinSpeed, p.MaxSpeed)
	case p.MinWidth < 0 || p.MinSpeed <= 0:
		return fmt.Errorf("%w: widths and speeds must be positive", ErrInvalidParams)
	}
	return nil
}
