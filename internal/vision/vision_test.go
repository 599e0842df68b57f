package vision

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var red = color.RGBA{R: 180, G: 45, B: 54, A: 255}

func TestRegionValidate(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name    string
		region  Region
		wantErr bool
	}{
		{"inside", Region{X: 10, Y: 10, Width: 20, Height: 20}, false},
		{"touches edge", Region{X: 80, Y: 30, Width: 20, Height: 20}, false},
		{"negative", Region{X: -1, Y: 0, Width: 5, Height: 5}, true},
		{"zero area", Region{X: 0, Y: 0, Width: 0, Height: 5}, true},
		{"past right edge", Region{X: 90, Y: 0, Width: 20, Height: 5}, true},
		{"past bottom edge", Region{X: 0, Y: 40, Width: 5, Height: 11}, true},
	}

	for _, tt := range tests {
		err := tt.region.Validate(bounds)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestMatchesColorSolid(t *testing.T) {
	img := solid(10, 10, red)
	target := ColorTarget{Color: RGB{180, 45, 54}, Tolerance: 0, MinRatio: 1}

	if !MatchesColor(img, Region{X: 2, Y: 2, Width: 4, Height: 4}, target) {
		t.Error("exact color should match")
	}
}

func TestMatchesColorTolerance(t *testing.T) {
	img := solid(4, 4, red)
	region := Region{Width: 4, Height: 4}

	if !MatchesColor(img, region, ColorTarget{Color: RGB{200, 45, 54}, Tolerance: 20, MinRatio: 1}) {
		t.Error("distance equal to tolerance should match")
	}
	if MatchesColor(img, region, ColorTarget{Color: RGB{201, 45, 54}, Tolerance: 20, MinRatio: 1}) {
		t.Error("distance above tolerance should not match")
	}
}

func TestMatchesColorRatio(t *testing.T) {
	// Left half red, right half black.
	img := solid(10, 2, color.RGBA{A: 255})
	for y := 0; y < 2; y++ {
		for x := 0; x < 5; x++ {
			img.SetRGBA(x, y, red)
		}
	}
	region := Region{Width: 10, Height: 2}

	if !MatchesColor(img, region, ColorTarget{Color: RGB{180, 45, 54}, Tolerance: 5, MinRatio: 0.5}) {
		t.Error("ratio 0.5 should match at the inclusive boundary")
	}
	if MatchesColor(img, region, ColorTarget{Color: RGB{180, 45, 54}, Tolerance: 5, MinRatio: 0.51}) {
		t.Error("ratio above matched fraction should not match")
	}
}

func TestMatchesColorGenericImage(t *testing.T) {
	// NRGBA takes the generic At() path.
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 50, G: 103, B: 157, A: 255})
		}
	}

	if !MatchesColor(img, Region{Width: 3, Height: 3}, ColorTarget{Color: RGB{50, 103, 157}, Tolerance: 1, MinRatio: 1}) {
		t.Error("NRGBA image should match")
	}
}

func TestMatchesColorEmptyRegionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("empty region should panic")
		}
	}()
	MatchesColor(solid(2, 2, red), Region{Width: 0, Height: 1}, ColorTarget{MinRatio: 1})
}

func TestColorTargetValidate(t *testing.T) {
	if err := (ColorTarget{Tolerance: 40, MinRatio: 0.8}).Validate(); err != nil {
		t.Errorf("valid target: %v", err)
	}
	if err := (ColorTarget{Tolerance: 300, MinRatio: 0.8}).Validate(); err == nil {
		t.Error("tolerance above 255 should fail")
	}
	if err := (ColorTarget{Tolerance: 10, MinRatio: 0}).Validate(); err == nil {
		t.Error("zero min_ratio should fail")
	}
}

func TestCropDoesNotAlias(t *testing.T) {
	img := solid(8, 8, red)
	crop := Crop(img, Region{X: 2, Y: 2, Width: 3, Height: 3})

	if crop.Bounds() != image.Rect(0, 0, 3, 3) {
		t.Fatalf("crop bounds = %v, want 3x3 at origin", crop.Bounds())
	}
	img.SetRGBA(2, 2, color.RGBA{A: 255})
	if crop.RGBAAt(0, 0) != red {
		t.Error("crop should not share pixels with the source frame")
	}
}

func TestGrayBlurSize(t *testing.T) {
	img := solid(20, 20, red)
	g := GrayBlur(img, Region{X: 5, Y: 5, Width: 6, Height: 4}, 1.1)

	if g.Bounds().Dx() != 6 || g.Bounds().Dy() != 4 {
		t.Errorf("GrayBlur bounds = %v, want 6x4", g.Bounds())
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	b := Binarize(img, 50)
	if b.GrayAt(0, 0).Y != 255 {
		t.Errorf("bright pixel = %d, want 255", b.GrayAt(0, 0).Y)
	}
	if b.GrayAt(1, 0).Y != 0 {
		t.Errorf("dark pixel = %d, want 0", b.GrayAt(1, 0).Y)
	}
}

func checkerboard(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{A: 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func gradient(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(x * 255 / size)
			img.SetRGBA(x, y, color.RGBA{R: v, G: 0, B: 255 - v, A: 255})
		}
	}
	return img
}

func TestReferenceTarget(t *testing.T) {
	ref := checkerboard(64, 8)
	target, err := NewReferenceTarget(ref, 5)
	if err != nil {
		t.Fatalf("NewReferenceTarget: %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			frame.SetRGBA(x+32, y+32, ref.RGBAAt(x, y))
		}
	}

	if !target.Matches(frame, Region{X: 32, Y: 32, Width: 64, Height: 64}) {
		t.Error("identical region should match the reference")
	}
	if target.Matches(gradient(64), Region{Width: 64, Height: 64}) {
		t.Error("distinct region should not match the reference")
	}
}
