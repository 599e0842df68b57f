package vision

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	"github.com/corona10/goimagehash"
)

// ReferenceTarget matches a region against a reference image by perceptual hash.
type ReferenceTarget struct {
	hash        *goimagehash.ImageHash
	maxDistance int
}

// NewReferenceTarget hashes ref once so each frame only hashes the region.
func NewReferenceTarget(ref image.Image, maxDistance int) (*ReferenceTarget, error) {
	hash, err := goimagehash.PerceptionHash(ref)
	if err != nil {
		return nil, fmt.Errorf("hash reference: %w", err)
	}
	return &ReferenceTarget{hash: hash, maxDistance: maxDistance}, nil
}

// LoadReferenceTarget reads a PNG or JPEG reference from path.
func LoadReferenceTarget(path string, maxDistance int) (*ReferenceTarget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewReferenceTarget(img, maxDistance)
}

// Matches reports whether region r of img is within the Hamming distance
// bound of the reference. Empty regions panic like MatchesColor.
func (t *ReferenceTarget) Matches(img image.Image, r Region) bool {
	if r.Empty() {
		panic(fmt.Sprintf("vision: ReferenceTarget.Matches called with empty region %s", r))
	}
	hash, err := goimagehash.PerceptionHash(Crop(img, r))
	if err != nil {
		return false
	}
	dist, err := t.hash.Distance(hash)
	if err != nil {
		return false
	}
	return dist <= t.maxDistance
}
