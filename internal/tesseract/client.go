// Package tesseract runs text recognition locally through libtesseract.
package tesseract

import (
	"context"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
)

// Client wraps one gosseract client. Calls are serialized.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
	langs  []string
}

// New creates a client for langs, used when a call passes no language.
func New(langs ...string) *Client {
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Client{client: gosseract.NewClient(), langs: langs}
}

// ExtractText recognizes imageData. format is ignored; leptonica sniffs it.
func (c *Client) ExtractText(ctx context.Context, imageData []byte, _ string, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeCancelled, "tesseract")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	langs := c.langs
	if language != "" {
		langs = strings.Split(language, "+")
	}
	if err := c.client.SetLanguage(langs...); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeConfigInvalid, "tesseract language")
	}
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeRecognitionInvalidResponse, "tesseract image")
	}
	text, err := c.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeRecognitionFailed, "tesseract")
	}
	return strings.TrimSpace(text), nil
}

// Close releases the tesseract engine.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}
