// Package brightness turns a decoded source image into the darkness values
// that drive line width, speed and squiggle amplitude.
package brightness

import (
	"errors"
	"image"
	"image/color"
	"math"
)

// ErrEmptyImage is returned when the source has no pixels.
var ErrEmptyImage = errors.New("brightness: empty image")

// Field is an immutable grid of luminance in [0,1], row-major, row 0 at the
// top of the source image.
type Field struct {
	w, h int
	lum  []float64
}

// NewField builds a field from img at full resolution. Each pixel is the
// mean of its R, G and B channels composited over white.
func NewField(img image.Image) (*Field, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	f := &Field{w: b.Dx(), h: b.Dy(), lum: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < f.h; y++ {
		for x := 0; x < f.w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			avg := (float64(c.R) + float64(c.G) + float64(c.B)) / (3 * 255)
			a := float64(c.A) / 255
			f.lum[y*f.w+x] = avg*a + (1 - a)
		}
	}
	return f, nil
}

// NewFieldFromRGBA builds a field from a raw 8-bit RGBA buffer of w*h*4
// bytes, non-premultiplied.
func NewFieldFromRGBA(w, h int, pix []byte) (*Field, error) {
	if w <= 0 || h <= 0 || len(pix) < w*h*4 {
		return nil, ErrEmptyImage
	}
	img := &image.NRGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	return NewField(img)
}

// Size returns the field's dimensions in pixels.
func (f *Field) Size() (w, h int) { return f.w, f.h }

// At returns the luminance of pixel (x, y), clamping out-of-range indices.
func (f *Field) At(x, y int) float64 {
	x = min(max(x, 0), f.w-1)
	y = min(max(y, 0), f.h-1)
	return f.lum[y*f.w+x]
}

// Bilinear interpolates luminance at normalised source coordinates (u, v),
// both clamped to [0,1]; (0,0) is the top-left pixel centre and (1,1) the
// bottom-right one.
func (f *Field) Bilinear(u, v float64) float64 {
	u = clamp01(u)
	v = clamp01(v)
	fx := u * float64(f.w-1)
	fy := v * float64(f.h-1)
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)
	top := f.At(x0, y0)*(1-tx) + f.At(x0+1, y0)*tx
	bot := f.At(x0, y0+1)*(1-tx) + f.At(x0+1, y0+1)*tx
	return top*(1-ty) + bot*ty
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
