package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
)

func TestLoad(t *testing.T) {
	// Clear environment
	envVars := []string{
		"VIDEO_PATH", "PROFILE_PATH", "OUTPUT_PATH", "HTTP_ADDR", "START_FRAME",
		"LOG_LEVEL", "OCR_BACKEND", "OCR_SPACE_API_KEY", "OCR_LANGUAGE",
		"OCR_TIMEOUT", "REDIS_URL", "DATABASE_URL", "TESSERACT_LANGS",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}

	cfg := Load()

	if cfg.ProfilePath != "profile.json" {
		t.Errorf("ProfilePath = %q, want %q", cfg.ProfilePath, "profile.json")
	}
	if cfg.OutputPath != "-" {
		t.Errorf("OutputPath = %q, want %q", cfg.OutputPath, "-")
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want empty", cfg.HTTPAddr)
	}
	if cfg.OCRBackend != BackendOCRSpace {
		t.Errorf("OCRBackend = %q, want %q", cfg.OCRBackend, BackendOCRSpace)
	}
	if cfg.OCRSpaceAPIKey != "helloworld" {
		t.Errorf("OCRSpaceAPIKey = %q, want %q", cfg.OCRSpaceAPIKey, "helloworld")
	}
	if cfg.OCRLanguage != "eng" {
		t.Errorf("OCRLanguage = %q, want %q", cfg.OCRLanguage, "eng")
	}
	if cfg.OCRTimeout != 15.0 {
		t.Errorf("OCRTimeout = %f, want %f", cfg.OCRTimeout, 15.0)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if len(cfg.TesseractLangs) != 1 || cfg.TesseractLangs[0] != "eng" {
		t.Errorf("TesseractLangs = %v, want [eng]", cfg.TesseractLangs)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("VIDEO_PATH", "screenRecording5.mov")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("START_FRAME", "1200")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OCR_BACKEND", "GRPC")
	t.Setenv("OCR_TIMEOUT", "2.5")
	t.Setenv("TESSERACT_LANGS", "eng, deu ,")

	cfg := Load()

	if cfg.VideoPath != "screenRecording5.mov" {
		t.Errorf("VideoPath = %q, want %q", cfg.VideoPath, "screenRecording5.mov")
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.StartFrame != 1200 {
		t.Errorf("StartFrame = %d, want %d", cfg.StartFrame, 1200)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.OCRBackend != BackendGRPC {
		t.Errorf("OCRBackend = %q, want %q", cfg.OCRBackend, BackendGRPC)
	}
	if cfg.OCRTimeout != 2.5 {
		t.Errorf("OCRTimeout = %f, want %f", cfg.OCRTimeout, 2.5)
	}
	if len(cfg.TesseractLangs) != 2 || cfg.TesseractLangs[1] != "deu" {
		t.Errorf("TesseractLangs = %v, want [eng deu]", cfg.TesseractLangs)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT_INVALID", "not-a-number")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt = %d, want %d", v, 100)
	}
	t.Setenv("TEST_FLOAT_INVALID", "fast")
	if v := getEnvFloat("TEST_FLOAT_INVALID", 1.5); v != 1.5 {
		t.Errorf("getEnvFloat = %f, want %f", v, 1.5)
	}
	t.Setenv("TEST_LEVEL_INVALID", "chatty")
	if v := getEnvLevel("TEST_LEVEL_INVALID", slog.LevelWarn); v != slog.LevelWarn {
		t.Errorf("getEnvLevel = %v, want %v", v, slog.LevelWarn)
	}
}

const validProfile = `{
  "name": "district-finals",
  "frame_width": 1920,
  "frame_height": 1080,
  "visibility": [
    {"name": "red", "region": {"x": 780, "y": 1040, "width": 1, "height": 1},
     "color": {"color": [180, 45, 54], "tolerance": 50, "min_ratio": 1}},
    {"name": "blue", "region": {"x": 1130, "y": 1040, "width": 1, "height": 1},
     "color": {"color": [50, 103, 157], "tolerance": 50, "min_ratio": 1}}
  ],
  "timer_region": {"x": 900, "y": 1030, "width": 120, "height": 50},
  "info_region": {"x": 700, "y": 900, "width": 520, "height": 120},
  "trigger_text": "2:30"
}`

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfileDefaults(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, validProfile))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}

	if p.FrameSkip != DefaultFrameSkip {
		t.Errorf("FrameSkip = %d, want %d", p.FrameSkip, DefaultFrameSkip)
	}
	if p.CooldownFrames != DefaultCooldownFrames {
		t.Errorf("CooldownFrames = %d, want %d", p.CooldownFrames, DefaultCooldownFrames)
	}
	if p.ChangeThreshold != DefaultChangeThreshold {
		t.Errorf("ChangeThreshold = %d, want %d", p.ChangeThreshold, DefaultChangeThreshold)
	}
	if len(p.Visibility) != 2 || p.Visibility[0].Color.Color[0] != 180 {
		t.Errorf("visibility = %+v", p.Visibility)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code apperrors.ErrorCode
	}{
		{"bad json", `{"name":`, apperrors.ErrorCodeConfigInvalid},
		{"no trigger", `{"frame_width": 10, "frame_height": 10, "visibility": [{"region": {"width": 1, "height": 1}, "color": {"min_ratio": 1}}], "timer_region": {"width": 1, "height": 1}, "info_region": {"width": 1, "height": 1}}`, apperrors.ErrorCodeConfigMissing},
		{"timer out of frame", `{"frame_width": 10, "frame_height": 10, "trigger_text": "x", "visibility": [{"region": {"width": 1, "height": 1}, "color": {"min_ratio": 1}}], "timer_region": {"x": 5, "width": 10, "height": 1}, "info_region": {"width": 1, "height": 1}}`, apperrors.ErrorCodeConfigInvalid},
		{"no target", `{"frame_width": 10, "frame_height": 10, "trigger_text": "x", "visibility": [{"region": {"width": 1, "height": 1}}], "timer_region": {"width": 1, "height": 1}, "info_region": {"width": 1, "height": 1}}`, apperrors.ErrorCodeConfigMissing},
		{"bad ratio", `{"frame_width": 10, "frame_height": 10, "trigger_text": "x", "visibility": [{"region": {"width": 1, "height": 1}, "color": {"min_ratio": 2}}], "timer_region": {"width": 1, "height": 1}, "info_region": {"width": 1, "height": 1}}`, apperrors.ErrorCodeConfigInvalid},
	}

	for _, tt := range tests {
		_, err := LoadProfile(writeProfile(t, tt.body))
		if !apperrors.IsCode(err, tt.code) {
			t.Errorf("%s: err = %v, want code %s", tt.name, err, tt.code)
		}
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.json")); !apperrors.IsConfig(err) {
		t.Errorf("missing file: err = %v, want config error", err)
	}
}

func TestResolvePath(t *testing.T) {
	p := &Profile{dir: "/profiles"}
	if got := p.ResolvePath("marker.png"); got != filepath.Join("/profiles", "marker.png") {
		t.Errorf("ResolvePath = %q", got)
	}
	if got := p.ResolvePath("/abs/marker.png"); got != "/abs/marker.png" {
		t.Errorf("ResolvePath(abs) = %q", got)
	}
}

func TestExampleProfileLoads(t *testing.T) {
	p, err := LoadProfile(filepath.Join("..", "..", "profiles", "example.json"))
	if err != nil {
		t.Fatalf("LoadProfile(example.json): %v", err)
	}
	if p.FrameWidth != 2880 || p.FrameHeight != 1800 {
		t.Errorf("frame = %dx%d, want 2880x1800", p.FrameWidth, p.FrameHeight)
	}
	if p.TimerRegion.X != 1355 || p.TimerRegion.Width != 175 {
		t.Errorf("timer_region = %+v", p.TimerRegion)
	}
}
