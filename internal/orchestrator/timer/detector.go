// Package timer decides when the timer region is worth reading again.
package timer

import (
	"image"

	"github.com/GriffinCanCode/matchscan/internal/vision"
)

// Snapshot extracts the timer region of frame as blurred grayscale.
func Snapshot(frame image.Image, r vision.Region, sigma float32) *image.Gray {
	return vision.GrayBlur(frame, r, sigma)
}

// HasChanged reports whether cur differs from prev by at least threshold,
// measured as the sum of absolute pixel differences. A nil prev or a size
// mismatch always counts as a change.
func HasChanged(prev, cur *image.Gray, threshold int64) bool {
	if prev == nil || cur == nil {
		return true
	}
	pb, cb := prev.Bounds(), cur.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return true
	}
	return Difference(prev, cur) >= threshold
}

// Difference sums |prev-cur| over all pixels of two equally sized images.
func Difference(prev, cur *image.Gray) int64 {
	w, h := cur.Bounds().Dx(), cur.Bounds().Dy()
	var sum int64
	for y := 0; y < h; y++ {
		pRow := prev.Pix[y*prev.Stride : y*prev.Stride+w]
		cRow := cur.Pix[y*cur.Stride : y*cur.Stride+w]
		for x := range cRow {
			d := int64(pRow[x]) - int64(cRow[x])
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return sum
}

// Detector holds the last visible timer snapshot.
type Detector struct {
	threshold int64
	prev      *image.Gray
}

// NewDetector creates a detector with the given difference threshold.
func NewDetector(threshold int64) *Detector {
	return &Detector{threshold: threshold}
}

// Changed compares cur against the stored snapshot.
func (d *Detector) Changed(cur *image.Gray) bool {
	return HasChanged(d.prev, cur, d.threshold)
}

// Update stores cur as the reference for the next comparison.
func (d *Detector) Update(cur *image.Gray) {
	d.prev = cur
}

// Reset drops the stored snapshot so the next frame reads as changed.
func (d *Detector) Reset() {
	d.prev = nil
}

// HasSnapshot reports whether a snapshot is stored.
func (d *Detector) HasSnapshot() bool {
	return d.prev != nil
}
