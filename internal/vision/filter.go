package vision

import (
	"image"

	"github.com/disintegration/gift"
)

// GrayBlur returns region r of img as grayscale smoothed by a Gaussian blur.
// sigma <= 0 skips the blur.
func GrayBlur(img image.Image, r Region, sigma float32) *image.Gray {
	filters := []gift.Filter{gift.Crop(r.Rect().Add(img.Bounds().Min)), gift.Grayscale()}
	if sigma > 0 {
		filters = append(filters, gift.GaussianBlur(sigma))
	}
	return drawGray(gift.New(filters...), img)
}

// Binarize converts img to a black and white image. level is the cut-off in
// percent of full brightness.
func Binarize(img image.Image, level float32) *image.Gray {
	return drawGray(gift.New(gift.Grayscale(), gift.Threshold(level)), img)
}

func drawGray(g *gift.GIFT, src image.Image) *image.Gray {
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
