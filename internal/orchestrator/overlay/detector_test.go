package overlay

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/matchscan/internal/config"
	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/vision"
)

var (
	red  = color.RGBA{180, 45, 54, 255}
	blue = color.RGBA{50, 103, 157, 255}
	grey = color.RGBA{128, 128, 128, 255}
)

// markers are the regions a synthetic frame may paint.
var markers = []vision.Region{
	{X: 0, Y: 0, Width: 4, Height: 4},
	{X: 10, Y: 0, Width: 4, Height: 4},
	{X: 0, Y: 10, Width: 4, Height: 4},
	{X: 10, Y: 10, Width: 4, Height: 4},
}

var markerColors = []color.RGBA{red, blue, red, blue}

func paint(img *image.RGBA, r vision.Region, c color.RGBA) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func markerChecks() []Check {
	checks := make([]Check, len(markers))
	for i, r := range markers {
		c := markerColors[i]
		checks[i] = ColorCheck{
			Label:  r.String(),
			Region: r,
			Target: vision.ColorTarget{Color: vision.RGB{c.R, c.G, c.B}, Tolerance: 20, MinRatio: 1},
		}
	}
	return checks
}

// TestVisibleIsConjunction paints random subsets of the markers and checks
// Visible is true only when all of them are painted.
func TestVisibleIsConjunction(t *testing.T) {
	d := NewDetector(markerChecks()...)
	r := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		paint(img, vision.Region{Width: 16, Height: 16}, grey)

		all := true
		for j, m := range markers {
			if r.Intn(4) == 0 {
				all = false
				continue
			}
			paint(img, m, markerColors[j])
		}

		if got := d.Visible(ctx, img); got != all {
			t.Fatalf("iteration %d: Visible() = %v, want %v", i, got, all)
		}
	}
}

type countingCheck struct {
	pass  bool
	calls int
}

func (c *countingCheck) Name() string { return "counting" }

func (c *countingCheck) Matches(image.Image) bool {
	c.calls++
	return c.pass
}

func TestVisibleShortCircuits(t *testing.T) {
	first := &countingCheck{pass: false}
	second := &countingCheck{pass: true}
	d := NewDetector(first, second)

	if d.Visible(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1))) {
		t.Error("Visible() = true, want false")
	}
	if second.calls != 0 {
		t.Errorf("second check calls = %d, want 0", second.calls)
	}
}

func TestFromProfile(t *testing.T) {
	dir := t.TempDir()
	ref := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			ref.SetRGBA(x, y, color.RGBA{uint8(x * 16), uint8(y * 16), 0, 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "marker.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, ref); err != nil {
		t.Fatal(err)
	}
	f.Close()

	body := `{
	  "frame_width": 32, "frame_height": 32, "trigger_text": "2:30",
	  "visibility": [
	    {"name": "red", "region": {"x": 0, "y": 0, "width": 4, "height": 4},
	     "color": {"color": [180, 45, 54], "tolerance": 20, "min_ratio": 1}},
	    {"name": "logo", "region": {"x": 16, "y": 16, "width": 16, "height": 16},
	     "reference": {"image": "marker.png"}}
	  ],
	  "timer_region": {"x": 0, "y": 20, "width": 8, "height": 4},
	  "info_region": {"x": 0, "y": 24, "width": 8, "height": 8}
	}`
	path := filepath.Join(dir, "profile.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := config.LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	d, err := FromProfile(p)
	if err != nil {
		t.Fatalf("FromProfile: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}

	frame := image.NewRGBA(image.Rect(0, 0, 32, 32))
	paint(frame, vision.Region{X: 0, Y: 0, Width: 4, Height: 4}, red)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			frame.SetRGBA(16+x, 16+y, ref.RGBAAt(x, y))
		}
	}
	if !d.Visible(context.Background(), frame) {
		t.Error("Visible() = false, want true")
	}

	p.Visibility[1].Reference.Image = "missing.png"
	if _, err := FromProfile(p); !apperrors.IsCode(err, apperrors.ErrorCodeConfigInvalid) {
		t.Errorf("FromProfile(missing ref) error = %v, want %s", err, apperrors.ErrorCodeConfigInvalid)
	}
}
