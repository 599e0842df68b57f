package tesseract

import (
	"context"
	"testing"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
)

func TestExtractTextCancelled(t *testing.T) {
	c := New()
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ExtractText(ctx, nil, "png", ""); !apperrors.IsCode(err, apperrors.ErrorCodeCancelled) {
		t.Errorf("ExtractText() error = %v, want %s", err, apperrors.ErrorCodeCancelled)
	}
}

func TestNewDefaultsLanguage(t *testing.T) {
	c := New()
	defer c.Close()

	if len(c.langs) != 1 || c.langs[0] != "eng" {
		t.Errorf("langs = %v, want [eng]", c.langs)
	}
}
