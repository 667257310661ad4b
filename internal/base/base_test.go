package base

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"fdmart/internal/curve"
	"fdmart/internal/gcode"
)

var pla = gcode.Material{FilamentDiameter: 1.75, LayerHeight: 0.2}

func run(t *testing.T, cfg Config, plan ChangePlan, shape Shape, area curve.Rect) (*gcode.Program, Result) {
	t.Helper()
	var p gcode.Program
	enc := gcode.NewEncoder(&p, pla)
	g := New(&p, enc, cfg, plan, nil)
	res := g.Generate(shape, area, mgl64.Vec2{110, 110})
	return &p, res
}

func TestShapeFor(t *testing.T) {
	tests := []struct {
		k    curve.Kind
		want Shape
	}{
		{curve.KindSpiral, ShapeCircle},
		{curve.KindSquareSpiral, ShapeSquare},
		{curve.KindHilbert, ShapeSquare},
		{curve.KindZigzag, ShapeRect},
		{curve.KindDiagonal, ShapeRect},
	}
	for _, tt := range tests {
		if got := ShapeFor(tt.k); got != tt.want {
			t.Errorf("ShapeFor(%v) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestMargin(t *testing.T) {
	_, res := run(t, Config{Enabled: true, Layers: 1, Margin: 2}, ChangePlan{}, ShapeRect, curve.NewRect(0, 0, 20, 10))
	if want := WallCount*WallSpacing + 2; math.Abs(res.Margin-want) > 1e-12 {
		t.Errorf("margin = %v, want %v", res.Margin, want)
	}
	inner := mgl64.Vec2{res.Margin, 5}
	if !res.Clip(inner) {
		t.Errorf("point on the inner boundary %v should be inside", inner)
	}
	if res.Clip(mgl64.Vec2{res.Margin - 0.01, 5}) {
		t.Error("point in the wall region should be clipped")
	}
}

func TestLayersAndManualChange(t *testing.T) {
	p, res := run(t, Config{Enabled: true, Layers: 2, Speed: 20}, ChangePlan{Mode: ChangeManual}, ShapeRect, curve.NewRect(10, 10, 20, 10))
	text := gcode.Format(p.Instructions())
	if n := strings.Count(text, "; base layer"); n != 2 {
		t.Errorf("got %d layer comments, want 2", n)
	}
	if n := strings.Count(text, "G1 E-0.80000 F2400"); n != 2 {
		t.Errorf("got %d infill retractions, want 2", n)
	}
	if n := strings.Count(text, "G1 E0.80000 F2400"); n != 2 {
		t.Errorf("got %d infill primes, want 2", n)
	}
	if !strings.Contains(text, "M0") || !strings.Contains(text, "G0 X110.000 Y110.000") {
		t.Errorf("manual change should park and pause:\n%s", tail(text))
	}
	if res.Primed {
		t.Error("manual change leaves filament retracted")
	}
	if math.Abs(res.TopZ-0.4) > 1e-12 {
		t.Errorf("top z = %v, want 0.4", res.TopZ)
	}
}

func TestSlotChange(t *testing.T) {
	p, res := run(t, Config{Enabled: true, Layers: 1}, ChangePlan{Mode: ChangeSlot, BaseSlot: 2, DrawSlot: 3}, ShapeSquare, curve.NewRect(0, 0, 30, 20))
	text := gcode.Format(p.Instructions())
	if strings.Contains(text, "M0") {
		t.Error("slot change must not pause")
	}
	if !strings.HasSuffix(text, "T3\nM400") {
		t.Errorf("slot change should select the drawing slot:\n%s", tail(text))
	}
	if !res.Primed {
		t.Error("slot change keeps filament primed")
	}
	if got := (ChangePlan{Mode: ChangeSlot, BaseSlot: 2}).StartDirective(); got != "T2" {
		t.Errorf("StartDirective = %q", got)
	}
	if got := (ChangePlan{}).StartDirective(); got != "" {
		t.Errorf("manual StartDirective = %q", got)
	}
}

func TestInfillStartsSlow(t *testing.T) {
	p, _ := run(t, Config{Enabled: true, Layers: 1, Speed: 30}, ChangePlan{Mode: ChangeSlot}, ShapeRect, curve.NewRect(0, 0, 20, 20))
	list := p.Instructions()
	var infill []gcode.Instruction
	primed := false
	for _, in := range list {
		if in.Kind == gcode.Directive && in.Text == "G1 E0.80000 F2400" {
			primed = true
			continue
		}
		if primed && in.Kind == gcode.Print {
			infill = append(infill, in)
		}
	}
	if len(infill) < 10 {
		t.Fatalf("only %d infill moves", len(infill))
	}
	if infill[0].Feed != 900 {
		t.Errorf("first infill feed %v, want half speed 900", infill[0].Feed)
	}
	if last := infill[len(infill)-1]; last.Feed != 1800 {
		t.Errorf("last infill feed %v, want 1800", last.Feed)
	}
	for _, in := range infill {
		if in.Y < WallCount*WallSpacing || in.Y > 20-WallCount*WallSpacing {
			t.Fatalf("infill at y=%v escapes the walls", in.Y)
		}
	}
}

func TestCircleStaysInside(t *testing.T) {
	area := curve.NewRect(0, 0, 40, 30)
	p, res := run(t, Config{Enabled: true, Layers: 1}, ChangePlan{Mode: ChangeSlot}, ShapeCircle, area)
	c, ok := res.Boundary.(Circle)
	if !ok {
		t.Fatalf("boundary %T, want Circle", res.Boundary)
	}
	if c.Radius != 15 || !c.Center.ApproxEqual(mgl64.Vec2{20, 15}) {
		t.Errorf("circle %+v", c)
	}
	for _, in := range p.Instructions() {
		if in.Kind != gcode.Print {
			continue
		}
		if d := (mgl64.Vec2{in.X, in.Y}).Sub(c.Center).Len(); d > c.Radius+1e-9 {
			t.Fatalf("print move at %v,%v outside the circle (r=%v)", in.X, in.Y, d)
		}
	}
}

func TestChangeModeText(t *testing.T) {
	var m ChangeMode
	if err := m.UnmarshalText([]byte("slot")); err != nil || m != ChangeSlot {
		t.Errorf("slot: %v %v", m, err)
	}
	if err := m.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error")
	}
}

func tail(s string) string {
	if len(s) > 400 {
		return s[len(s)-400:]
	}
	return s
}
