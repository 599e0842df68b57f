// Package config handles scanner configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	VideoPath      string
	ProfilePath    string
	OutputPath     string // "-" writes to stdout
	HTTPAddr       string // empty disables the HTTP surface
	StartFrame     int
	LogLevel       slog.Level
	OCRBackend     string
	OCRSpaceURL    string
	OCRSpaceAPIKey string
	OCRLanguage    string
	OCRGRPCAddr    string
	OCRGRPCMethod  string
	OCRTimeout     float64 // seconds
	TesseractLangs []string
	RedisURL       string
	DatabaseURL    string
}

// OCR backends.
const (
	BackendOCRSpace  = "ocrspace"
	BackendGRPC      = "grpc"
	BackendTesseract = "tesseract"
)

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}

	return &Config{
		VideoPath:      getEnv("VIDEO_PATH", ""),
		ProfilePath:    getEnv("PROFILE_PATH", "profile.json"),
		OutputPath:     getEnv("OUTPUT_PATH", "-"),
		HTTPAddr:       getEnv("HTTP_ADDR", ""),
		StartFrame:     getEnvInt("START_FRAME", 0),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		OCRBackend:     strings.ToLower(getEnv("OCR_BACKEND", BackendOCRSpace)),
		OCRSpaceURL:    getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
		OCRSpaceAPIKey: getEnv("OCR_SPACE_API_KEY", "helloworld"),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "eng"),
		OCRGRPCAddr:    getEnv("OCR_GRPC_ADDR", "localhost:50051"),
		OCRGRPCMethod:  getEnv("OCR_GRPC_METHOD", "/ocr.OCRService/ExtractText"),
		OCRTimeout:     getEnvFloat("OCR_TIMEOUT", 15.0),
		TesseractLangs: getEnvList("TESSERACT_LANGS", []string{"eng"}),
		RedisURL:       getEnv("REDIS_URL", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
