package toolpath

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"fdmart/internal/base"
	"fdmart/internal/brightness"
	"fdmart/internal/curve"
	"fdmart/internal/gcode"
	"fdmart/internal/template"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func field(t *testing.T, img image.Image) *brightness.Field {
	t.Helper()
	f, err := brightness.NewField(img)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func uniform(t *testing.T, y uint8) *brightness.Field {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: y})
	return field(t, img)
}

func checker(t *testing.T) *brightness.Field {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return field(t, img)
}

func testJob(f *brightness.Field) Job {
	area := DefaultPrintArea()
	area.Width, area.Height = 40, 30
	path := DefaultPathParameters()
	path.Spacing = 1
	return Job{
		Area:     area,
		Path:     path,
		Material: DefaultMaterial(),
		Base:     DefaultBase(),
		Change:   DefaultChangePlan(),
		View:     brightness.View{Zoom: 1},
		Image:    f,
	}
}

func afterArtwork(list []gcode.Instruction) []gcode.Instruction {
	for i, in := range list {
		if in.Kind == gcode.Comment && in.Text == "artwork" {
			return list[i+1:]
		}
	}
	return nil
}

func TestValidate(t *testing.T) {
	f := uniform(t, 0)
	tests := []struct {
		name   string
		mutate func(*Job)
		want   error
	}{
		{"no image", func(j *Job) { j.Image = nil }, ErrNoImage},
		{"width order", func(j *Job) { j.Path.MinWidth, j.Path.MaxWidth = 0.8, 0.8 }, ErrInvalidParams},
		{"speed order", func(j *Job) { j.Path.MinSpeed, j.Path.MaxSpeed = 70, 60 }, ErrInvalidParams},
		{"zero spacing", func(j *Job) { j.Path.Spacing = 0 }, ErrInvalidParams},
		{"negative spacing", func(j *Job) { j.Path.Spacing = -1 }, ErrInvalidParams},
		{"zero area", func(j *Job) { j.Area.Width = 0 }, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := testJob(f)
			tt.mutate(&j)
			res, err := Generate(j, quiet)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Error("failed run must not produce output")
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	j := testJob(uniform(t, 0))
	j.Path.Spacing = math.NaN()
	j.Path.Gamma = -2
	j.Path.CurveOrder = 40
	j.Path.TextThreshold = 3
	j.Material.LayerHeight = math.Inf(1)
	j.Area.Width = 500
	j.View.Zoom = 0
	j.Sanitize(quiet)

	dp := DefaultPathParameters()
	if j.Path.Spacing != dp.Spacing {
		t.Errorf("spacing = %v, want default", j.Path.Spacing)
	}
	if j.Path.Gamma != 1 {
		t.Errorf("gamma = %v, want 1", j.Path.Gamma)
	}
	if j.Path.CurveOrder != curve.MaxHilbertOrder {
		t.Errorf("curve order = %v", j.Path.CurveOrder)
	}
	if j.Path.TextThreshold != 1 {
		t.Errorf("threshold = %v", j.Path.TextThreshold)
	}
	if j.Material.LayerHeight != 0.2 {
		t.Errorf("layer height = %v", j.Material.LayerHeight)
	}
	if j.Area.Width != j.Area.BedWidth {
		t.Errorf("width = %v, want clamped to bed", j.Area.Width)
	}
	if j.View.Zoom != 1 {
		t.Errorf("zoom = %v", j.View.Zoom)
	}
	if err := j.Validate(); err != nil {
		t.Errorf("sanitized job invalid: %v", err)
	}
}

func TestPrintAreaRect(t *testing.T) {
	a := PrintArea{Width: 100, Height: 50, Centered: true, BedWidth: 200, BedHeight: 200}
	r := a.Rect()
	if !r.Min.ApproxEqual(mgl64.Vec2{50, 75}) {
		t.Errorf("centred min = %v", r.Min)
	}
	a.Origin = OriginCenter
	r = a.Rect()
	if !r.Min.ApproxEqual(mgl64.Vec2{-50, -25}) {
		t.Errorf("centre-origin min = %v", r.Min)
	}
	if !a.BedCenter().ApproxEqual(mgl64.Vec2{0, 0}) {
		t.Errorf("bed centre = %v", a.BedCenter())
	}
	a = PrintArea{Width: 10, Height: 10, OffsetX: 5, OffsetY: 7, BedWidth: 200, BedHeight: 200}
	if r := a.Rect(); !r.Min.ApproxEqual(mgl64.Vec2{5, 7}) {
		t.Errorf("offset min = %v", r.Min)
	}
}

func TestGenerateZigzag(t *testing.T) {
	res, err := Generate(testJob(checker(t)), quiet)
	if err != nil {
		t.Fatal(err)
	}
	text := res.Text()
	if !strings.HasPrefix(text, "; fdmart run "+res.Summary.RunID) {
		t.Errorf("missing run header: %q", text[:60])
	}
	if !strings.Contains(text, "\nM83\n") {
		t.Error("missing relative extrusion directive")
	}
	var sum []float64
	for _, in := range res.Instructions {
		if in.Kind == gcode.Print {
			sum = append(sum, in.E)
		}
	}
	if len(sum) == 0 {
		t.Fatal("no print moves")
	}
	if !scalar.EqualWithinRel(floats.Sum(sum), res.Summary.Extrusion, 1e-9) {
		t.Errorf("summary extrusion %v != sum of moves %v", res.Summary.Extrusion, floats.Sum(sum))
	}
	if res.Summary.Prints != len(sum) || res.Summary.Capped {
		t.Errorf("summary %+v", res.Summary)
	}
	if res.Change != "" {
		t.Errorf("change block %q without a base", res.Change)
	}
}

func TestWidthAndSpeedFollowDarkness(t *testing.T) {
	for _, tt := range []struct {
		gray  uint8
		feed  float64
		width float64
	}{
		{0, 15 * 60, 0.9},
		{255, 60 * 60, 0.3},
	} {
		j := testJob(uniform(t, tt.gray))
		res, err := Generate(j, quiet)
		if err != nil {
			t.Fatal(err)
		}
		enc := gcode.NewEncoder(&gcode.Program{}, j.Material)
		for _, in := range afterArtwork(res.Instructions) {
			if in.Kind != gcode.Print {
				continue
			}
			if math.Abs(in.Feed-tt.feed) > 1e-9 {
				t.Fatalf("gray %d: feed %v, want %v", tt.gray, in.Feed, tt.feed)
			}
			// zigzag pieces are at most SegmentLength long
			if in.E > enc.Extrusion(curve.SegmentLength, tt.width)+1e-12 {
				t.Fatalf("gray %d: E %v too large for width %v", tt.gray, in.E, tt.width)
			}
		}
	}
}

func TestClipContainment(t *testing.T) {
	for _, kind := range []curve.Kind{curve.KindZigzag, curve.KindDiagonal, curve.KindSpiral, curve.KindSquareSpiral, curve.KindHilbert} {
		t.Run(kind.String(), func(t *testing.T) {
			j := testJob(checker(t))
			j.Path.Pattern = kind
			j.Path.CurveOrder = 5
			j.Path.SquiggleAmplitude = 0.6
			j.Base.Enabled = true
			j.Base.Layers = 1
			res, err := Generate(j, quiet)
			if err != nil {
				t.Fatal(err)
			}
			b := base.BoundaryFor(base.ShapeFor(kind), j.Area.Rect())
			margin := base.WallCount*base.WallSpacing + j.Base.Margin
			art := afterArtwork(res.Instructions)
			prints := 0
			for _, in := range art {
				if in.Kind != gcode.Print {
					continue
				}
				prints++
				if !b.Contains(mgl64.Vec2{in.X, in.Y}, margin-1e-9) {
					t.Fatalf("print move at (%.3f,%.3f) outside the base's inner boundary", in.X, in.Y)
				}
			}
			if prints == 0 {
				t.Fatal("no artwork printed")
			}
		})
	}
}

func TestTextModeThresholdInclusive(t *testing.T) {
	f := uniform(t, 128)
	lum := 384.0 / 765.0
	at := 1 - lum

	j := testJob(f)
	j.Path.TextMode = true
	j.Path.TextThreshold = at
	res, err := Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	prints := 0
	for _, in := range afterArtwork(res.Instructions) {
		if in.Kind == gcode.Print {
			prints++
			if in.Feed != j.Path.MinSpeed*60 {
				t.Fatalf("text print feed %v, want slowest speed", in.Feed)
			}
		}
	}
	if prints == 0 {
		t.Fatal("darkness equal to the threshold must print")
	}

	j.Path.TextThreshold = math.Nextafter(at, 1)
	res, err = Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Prints != 0 || res.Summary.Extrusion != 0 {
		t.Errorf("below threshold: %d prints, %v extrusion", res.Summary.Prints, res.Summary.Extrusion)
	}
}

func TestCapIsNonFatal(t *testing.T) {
	j := testJob(checker(t))
	j.Path.Pattern = curve.KindSpiral
	j.Path.MaxIterations = 200
	res, err := Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Summary.Capped {
		t.Error("expected capped summary")
	}
	if res.Summary.Prints == 0 {
		t.Error("partial output should be kept")
	}
}

func TestManualChangePrimesArtwork(t *testing.T) {
	j := testJob(uniform(t, 0))
	j.Base.Enabled = true
	j.Base.Layers = 1
	res, err := Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	art := gcode.Format(afterArtwork(res.Instructions))
	if !strings.Contains(art, "G1 E2.00000 F2400") {
		t.Error("artwork should prime after a manual filament change")
	}
	if !strings.Contains(art, "G1 Z0.400 F600") {
		t.Error("artwork should sit one layer above the base")
	}

	j.Change = base.ChangePlan{Mode: base.ChangeSlot, BaseSlot: 0, DrawSlot: 1}
	res, err = Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if res.Change != "T0" {
		t.Errorf("change block %q, want T0", res.Change)
	}
	if strings.Contains(gcode.Format(afterArtwork(res.Instructions)), "G1 E2.00000") {
		t.Error("slot change should not prime")
	}
}

func TestRenderSelectsBaseSlot(t *testing.T) {
	j := testJob(uniform(t, 0))
	j.Base.Enabled = true
	j.Base.Layers = 1
	j.Change = base.ChangePlan{Mode: base.ChangeSlot, BaseSlot: 3, DrawSlot: 1}
	res, err := Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}

	out, err := res.Render(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "T3\n") {
		t.Errorf("output without template should start with the base slot, got %.40q", out)
	}
	if !strings.Contains(out, "\nT1\n") {
		t.Error("output lacks the drawing slot selection")
	}

	merged, err := res.Render(template.New("G28\n;START_ART\n;END_ART\nM84"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(merged, "G28\n;START_ART\nT3\n") {
		t.Errorf("merged output should select the base slot after the header, got %.60q", merged)
	}
	if strings.Count(merged, "T3") != 1 {
		t.Error("base slot selected more than once")
	}

	j.Change.Mode = base.ChangeManual
	res, err = Generate(j, quiet)
	if err != nil {
		t.Fatal(err)
	}
	if out, _ := res.Render(nil); out != res.Text() {
		t.Error("manual mode should render the artwork unchanged")
	}
}

func TestRunnerBusy(t *testing.T) {
	r := NewRunner(quiet)
	r.busy.Store(true)
	if _, err := r.Start(testJob(uniform(t, 0))); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	r.busy.Store(false)

	ch, err := r.Start(testJob(uniform(t, 0)))
	if err != nil {
		t.Fatal(err)
	}
	o := <-ch
	if o.Err != nil || o.Result == nil {
		t.Fatalf("outcome %+v", o)
	}
	if r.Busy() {
		t.Error("runner still busy after the outcome was delivered")
	}
	if _, err := r.Run(Job{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
}
