// Matchscan reads a recorded match video and writes the match records it finds
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/matchscan/internal/config"
	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
	"github.com/GriffinCanCode/matchscan/internal/server"
	"github.com/GriffinCanCode/matchscan/internal/trace"
	"github.com/GriffinCanCode/matchscan/internal/video/cvsource"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.VideoPath == "" && len(os.Args) > 1 {
		cfg.VideoPath = os.Args[1]
	}

	if err := run(cfg); err != nil {
		slog.Error("matchscan failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.VideoPath == "" {
		return apperrors.New(apperrors.ErrorCodeConfigMissing, "usage: matchscan <video> (or set VIDEO_PATH)")
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = trace.WithContext(ctx, trace.NewRun())
	log := trace.Logger(ctx)

	src, err := cvsource.Open(cfg.VideoPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	log.Info("video opened", "path", cfg.VideoPath, "fps", src.FPS(), "frames", src.FrameCount(), "profile", profile.Name)

	mgr, err := orchestrator.New(ctx, cfg, profile, cfg.VideoPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Warn("close error", "error", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.New(mgr).Handler(),
			ReadHeaderTimeout: server.ReadHeaderTimeout,
		}
		go func() {
			log.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "error", err)
			}
		}()
	}

	records, runErr := mgr.Run(ctx, src, cfg.StartFrame)
	log.Info("extraction finished", "records", len(records), "error", runErr)

	// Partial results are still written when the run is interrupted.
	if err := writeRecords(cfg.OutputPath, records); err != nil {
		return err
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown error", "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		log.Info("interrupted")
		return nil
	}
	return runErr
}

func writeRecords(path string, records []matches.Record) error {
	if records == nil {
		records = []matches.Record{}
	}

	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrorCodeStoreFailed, "create %s", path)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCodeStoreFailed, "write records")
	}
	return nil
}
