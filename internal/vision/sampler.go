package vision

import (
	"fmt"
	"image"
)

// RGB is a reference color as [r, g, b].
type RGB [3]uint8

// ColorTarget describes the color a region is expected to show.
type ColorTarget struct {
	Color     RGB     `json:"color"`
	Tolerance int     `json:"tolerance"` // per-channel absolute distance
	MinRatio  float64 `json:"min_ratio"` // fraction of pixels that must match
}

// Validate checks the target's ranges.
func (t ColorTarget) Validate() error {
	if t.Tolerance < 0 || t.Tolerance > 255 {
		return fmt.Errorf("tolerance %d outside 0..255", t.Tolerance)
	}
	if t.MinRatio <= 0 || t.MinRatio > 1 {
		return fmt.Errorf("min_ratio %v outside (0,1]", t.MinRatio)
	}
	return nil
}

// MatchesColor reports whether at least t.MinRatio of the pixels in region r
// of img are within t.Tolerance of t.Color on every channel. Calling it with
// an empty region is a programming error and panics.
func MatchesColor(img image.Image, r Region, t ColorTarget) bool {
	if r.Empty() {
		panic(fmt.Sprintf("vision: MatchesColor called with empty region %s", r))
	}
	rect := r.Rect().Add(img.Bounds().Min)
	if !rect.In(img.Bounds()) {
		panic(fmt.Sprintf("vision: region %s outside image bounds %v", r, img.Bounds()))
	}

	matched := 0
	if rgba, ok := img.(*image.RGBA); ok {
		matched = countRGBA(rgba, rect, t)
	} else {
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				if within(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8), t) {
					matched++
				}
			}
		}
	}

	total := r.Width * r.Height
	return float64(matched)/float64(total) >= t.MinRatio
}

func countRGBA(img *image.RGBA, rect image.Rectangle, t ColorTarget) int {
	matched := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		i := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if within(img.Pix[i], img.Pix[i+1], img.Pix[i+2], t) {
				matched++
			}
			i += 4
		}
	}
	return matched
}

func within(r, g, b uint8, t ColorTarget) bool {
	return absDiff(r, t.Color[0]) <= t.Tolerance &&
		absDiff(g, t.Color[1]) <= t.Tolerance &&
		absDiff(b, t.Color[2]) <= t.Tolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
