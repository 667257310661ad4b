package brightness

import "math"

// View is the pan/zoom window onto the source. Zoom 1 shows the whole image;
// PanX/PanY are the normalised source coordinates of the window's top-left
// corner.
type View struct {
	Zoom   float64 `yaml:"zoom"`
	PanX   float64 `yaml:"pan_x"`
	PanY   float64 `yaml:"pan_y"`
	Mirror bool    `yaml:"mirror"`
}

// Clamped returns v with Zoom >= 1 and the pan limited so the window stays
// inside the source.
func (v View) Clamped() View {
	if !(v.Zoom >= 1) || math.IsInf(v.Zoom, 0) {
		v.Zoom = 1
	}
	span := 1 - 1/v.Zoom
	v.PanX = math.Min(math.Max(nanTo(v.PanX, 0), 0), span)
	v.PanY = math.Min(math.Max(nanTo(v.PanY, 0), 0), span)
	return v
}

// Sampler maps print-space coordinates to darkness. It does not modify the
// field or view it was built from.
type Sampler struct {
	field    *Field
	view     View
	invGamma float64
}

// NewSampler snapshots view for the duration of a run. A gamma that is not
// a positive finite number is treated as 1.
func NewSampler(f *Field, view View, gamma float64) *Sampler {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		gamma = 1
	}
	return &Sampler{field: f, view: view.Clamped(), invGamma: 1 / gamma}
}

// Source maps normalised print coordinates to normalised source coordinates.
// v = 0 is the top edge of the visible window.
func (s *Sampler) Source(u, v float64) (su, sv float64) {
	if s.view.Mirror {
		u = 1 - u
	}
	su = clamp01(s.view.PanX + clamp01(u)/s.view.Zoom)
	sv = clamp01(s.view.PanY + clamp01(v)/s.view.Zoom)
	return su, sv
}

// Darkness returns 1 - luminance^(1/gamma) at (u, v), in [0,1].
func (s *Sampler) Darkness(u, v float64) float64 {
	su, sv := s.Source(u, v)
	lum := s.field.Bilinear(su, sv)
	return 1 - math.Pow(lum, s.invGamma)
}

func nanTo(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
