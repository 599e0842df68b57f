// Package vision holds the pixel-level primitives the scanner is built on:
// regions, color sampling, perceptual reference checks and image filters.
package vision

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
)

// Region is a rectangle in frame-pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region has zero area.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// Validate checks the region is non-empty and lies inside bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "region %s has negative values", r)
	}
	if r.Empty() {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "region %s has zero area", r)
	}
	if !r.Rect().In(bounds) {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "region %s outside frame %dx%d", r, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// Crop copies the region out of img into a new image anchored at (0,0).
// The copy does not alias the frame buffer.
func Crop(img image.Image, r Region) *image.RGBA {
	rect := r.Rect().Add(img.Bounds().Min)
	g := gift.New(gift.Crop(rect))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
