// Package overlay decides whether the scoreboard overlay is on screen.
package overlay

import (
	"context"
	"image"

	"github.com/GriffinCanCode/matchscan/internal/config"
	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/trace"
	"github.com/GriffinCanCode/matchscan/internal/vision"
)

// Check is one spatial signal that the overlay is showing.
type Check interface {
	Name() string
	Matches(img image.Image) bool
}

// ColorCheck passes when a region shows the expected color.
type ColorCheck struct {
	Label  string
	Region vision.Region
	Target vision.ColorTarget
}

func (c ColorCheck) Name() string { return c.Label }

func (c ColorCheck) Matches(img image.Image) bool {
	return vision.MatchesColor(img, c.Region, c.Target)
}

// ReferenceCheck passes when a region looks like a reference image.
type ReferenceCheck struct {
	Label  string
	Region vision.Region
	Target *vision.ReferenceTarget
}

func (c ReferenceCheck) Name() string { return c.Label }

func (c ReferenceCheck) Matches(img image.Image) bool {
	return c.Target.Matches(img, c.Region)
}

// Detector ANDs a fixed list of checks.
type Detector struct {
	checks []Check
}

// NewDetector creates a detector over checks.
func NewDetector(checks ...Check) *Detector {
	return &Detector{checks: checks}
}

// FromProfile builds the checks a profile declares. Reference images are
// loaded here so a bad path fails at startup.
func FromProfile(p *config.Profile) (*Detector, error) {
	checks := make([]Check, 0, len(p.Visibility))
	for _, spec := range p.Visibility {
		switch {
		case spec.Color != nil:
			checks = append(checks, ColorCheck{Label: spec.Name, Region: spec.Region, Target: *spec.Color})
		case spec.Reference != nil:
			path := p.ResolvePath(spec.Reference.Image)
			target, err := vision.LoadReferenceTarget(path, spec.Reference.MaxDistance)
			if err != nil {
				return nil, apperrors.Wrapf(err, apperrors.ErrorCodeConfigInvalid, "load reference for %s", spec.Name).
					WithMetadata("path", path)
			}
			checks = append(checks, ReferenceCheck{Label: spec.Name, Region: spec.Region, Target: target})
		}
	}
	return NewDetector(checks...), nil
}

// Visible reports whether every check passes, stopping at the first failure.
func (d *Detector) Visible(ctx context.Context, img image.Image) bool {
	for _, c := range d.checks {
		if !c.Matches(img) {
			trace.Logger(ctx).Debug("overlay check failed", "check", c.Name())
			return false
		}
	}
	return true
}

// Len returns the number of checks.
func (d *Detector) Len() int { return len(d.checks) }
