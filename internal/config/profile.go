package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/vision"
)

// Profile defaults
const (
	DefaultFrameSkip       = 10
	DefaultCooldownFrames  = 30
	DefaultChangeThreshold = 50000
	DefaultBlurSigma       = 1.1 // sigma OpenCV derives for a 5x5 kernel
	DefaultBinarizeLevel   = 50
	DefaultMaxHashDistance = 10
)

// Profile is the per-recording bundle of regions and thresholds.
type Profile struct {
	Name            string        `json:"name"`
	FrameWidth      int           `json:"frame_width"`
	FrameHeight     int           `json:"frame_height"`
	Visibility      []CheckSpec   `json:"visibility"`
	TimerRegion     vision.Region `json:"timer_region"`
	InfoRegion      vision.Region `json:"info_region"`
	TriggerText     string        `json:"trigger_text"`
	FrameSkip       int           `json:"frame_skip"`
	CooldownFrames  int           `json:"cooldown_frames"`
	ChangeThreshold int64         `json:"change_threshold"`
	BlurSigma       float32       `json:"blur_sigma"`
	BinarizeLevel   float32       `json:"binarize_level"`

	dir string
}

// CheckSpec is one visibility check. Exactly one of Color or Reference is set.
type CheckSpec struct {
	Name      string              `json:"name"`
	Region    vision.Region       `json:"region"`
	Color     *vision.ColorTarget `json:"color,omitempty"`
	Reference *ReferenceSpec      `json:"reference,omitempty"`
}

// ReferenceSpec points at a reference image, relative to the profile file.
type ReferenceSpec struct {
	Image       string `json:"image"`
	MaxDistance int    `json:"max_distance"`
}

// LoadProfile reads, defaults and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorCodeConfigMissing, "read profile %s", path)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorCodeConfigInvalid, "parse profile %s", path)
	}
	p.dir = filepath.Dir(path)
	p.applyDefaults()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) applyDefaults() {
	if p.FrameSkip <= 0 {
		p.FrameSkip = DefaultFrameSkip
	}
	if p.CooldownFrames <= 0 {
		p.CooldownFrames = DefaultCooldownFrames
	}
	if p.ChangeThreshold <= 0 {
		p.ChangeThreshold = DefaultChangeThreshold
	}
	if p.BlurSigma <= 0 {
		p.BlurSigma = DefaultBlurSigma
	}
	if p.BinarizeLevel <= 0 {
		p.BinarizeLevel = DefaultBinarizeLevel
	}
	for i := range p.Visibility {
		if ref := p.Visibility[i].Reference; ref != nil && ref.MaxDistance <= 0 {
			ref.MaxDistance = DefaultMaxHashDistance
		}
	}
}

// Bounds returns the frame rectangle the profile was tuned for.
func (p *Profile) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.FrameWidth, p.FrameHeight)
}

// Validate checks every region against the frame size and every target's ranges.
func (p *Profile) Validate() error {
	if p.FrameWidth <= 0 || p.FrameHeight <= 0 {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "frame size %dx%d", p.FrameWidth, p.FrameHeight)
	}
	if p.TriggerText == "" {
		return apperrors.New(apperrors.ErrorCodeConfigMissing, "trigger_text is required")
	}
	if len(p.Visibility) == 0 {
		return apperrors.New(apperrors.ErrorCodeConfigMissing, "at least one visibility check is required")
	}
	if p.BinarizeLevel >= 100 {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "binarize_level %v must be below 100", p.BinarizeLevel)
	}

	bounds := p.Bounds()
	if err := p.TimerRegion.Validate(bounds); err != nil {
		return withField(err, "timer_region")
	}
	if err := p.InfoRegion.Validate(bounds); err != nil {
		return withField(err, "info_region")
	}

	for i, c := range p.Visibility {
		field := fmt.Sprintf("visibility[%d]", i)
		if c.Name != "" {
			field = c.Name
		}
		if err := c.Region.Validate(bounds); err != nil {
			return withField(err, field)
		}
		switch {
		case c.Color != nil && c.Reference != nil:
			return apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "%s: set either color or reference, not both", field)
		case c.Color != nil:
			if err := c.Color.Validate(); err != nil {
				return apperrors.Wrapf(err, apperrors.ErrorCodeConfigInvalid, "%s: invalid color target", field)
			}
		case c.Reference != nil:
			if c.Reference.Image == "" {
				return apperrors.Newf(apperrors.ErrorCodeConfigMissing, "%s: reference image path is required", field)
			}
		default:
			return apperrors.Newf(apperrors.ErrorCodeConfigMissing, "%s: needs a color or reference target", field)
		}
	}
	return nil
}

// ResolvePath resolves a path from the profile relative to the profile file.
func (p *Profile) ResolvePath(path string) string {
	if filepath.IsAbs(path) || p.dir == "" {
		return path
	}
	return filepath.Join(p.dir, path)
}

func withField(err error, field string) error {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.WithMetadata("field", field)
	}
	return err
}
