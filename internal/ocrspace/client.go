// Package ocrspace is a client for the OCR.space parse/image API.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/trace"
)

// DefaultURL is the public endpoint.
const DefaultURL = "https://api.ocr.space/parse/image"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client posts images to OCR.space.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// New creates a client. A nil httpClient gets one with timeout.
func New(url, apiKey string, httpClient *http.Client, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{url: url, apiKey: apiKey, http: httpClient}
}

type response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// ExtractText uploads imageData and returns the first parsed result, trimmed.
func (c *Client) ExtractText(ctx context.Context, imageData []byte, format, language string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "ocrspace_parse")
	defer span.End()
	span.SetAttr("bytes", len(imageData))

	body, contentType, err := encodeForm(imageData, format, language, c.apiKey)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeInternal, "encode form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeConfigInvalid, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	if tc, ok := trace.FromContext(ctx); ok {
		for k, v := range tc.ToMap() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.Wrap(err, apperrors.ErrorCodeTimeout, "ocr.space request")
		}
		return "", apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "ocr.space request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "read ocr.space response")
	}
	span.SetAttr("status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", apperrors.New(apperrors.ErrorCodeRateLimited, "ocr.space rate limited")
	case resp.StatusCode >= 500:
		return "", apperrors.Newf(apperrors.ErrorCodeUnavailable, "ocr.space status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", apperrors.Newf(apperrors.ErrorCodeRecognitionInvalidResponse, "ocr.space status %d: %s", resp.StatusCode, truncate(data))
	}

	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrorCodeRecognitionInvalidResponse, "decode ocr.space response: %s", truncate(data))
	}
	if parsed.IsErroredOnProcessing {
		return "", apperrors.Newf(apperrors.ErrorCodeRecognitionInvalidResponse, "ocr.space: %s", errorMessage(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", apperrors.New(apperrors.ErrorCodeRecognitionInvalidResponse, "ocr.space returned no results")
	}
	return strings.TrimSpace(parsed.ParsedResults[0].ParsedText), nil
}

func encodeForm(imageData []byte, format, language, apiKey string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "region."+format)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"apikey", apiKey},
		{"language", language},
		{"isOverlayRequired", "false"},
		{"filetype", strings.ToUpper(format)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// errorMessage flattens ErrorMessage, which the API sends as a string or a
// list of strings.
func errorMessage(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return fmt.Sprintf("%s...", b[:maxErrorBody])
	}
	return string(b)
}
