// Package orchestrator turns a frame stream into match records
package orchestrator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/GriffinCanCode/matchscan/internal/config"
	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/grpcclient"
	"github.com/GriffinCanCode/matchscan/internal/ocrspace"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/overlay"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/recognizer"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/sink"
	"github.com/GriffinCanCode/matchscan/internal/resilience"
	"github.com/GriffinCanCode/matchscan/internal/storage"
	"github.com/GriffinCanCode/matchscan/internal/tesseract"
	"github.com/GriffinCanCode/matchscan/internal/trace"
	"github.com/GriffinCanCode/matchscan/internal/video"
)

// Status is the run summary served over HTTP.
type Status struct {
	RunID       string           `json:"run_id"`
	Profile     string           `json:"profile"`
	Source      string           `json:"source"`
	Backend     string           `json:"backend"`
	Breaker     string           `json:"breaker"`
	Progress    Progress         `json:"progress"`
	Recognition recognizer.Stats `json:"recognition"`
}

// Manager owns one run: the extractor and everything it talks to.
type Manager struct {
	cfg        *config.Config
	profile    *config.Profile
	runID      string
	source     string
	store      *matches.Store
	recognizer *recognizer.Recognizer
	extractor  *Extractor
	batcher    *sink.Batcher
	closers    []io.Closer
}

// New builds a manager for source from configuration. ctx should carry the
// run trace context.
func New(ctx context.Context, cfg *config.Config, profile *config.Profile, source string) (*Manager, error) {
	svc, closer, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg, profile: profile, source: source}
	if tc, ok := trace.FromContext(ctx); ok {
		m.runID = tc.RunID
	}
	if closer != nil {
		m.closers = append(m.closers, closer)
	}

	cache, err := m.newCache(ctx)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.recognizer = recognizer.New(svc, cache, recognizer.Options{
		Name:          cfg.OCRBackend,
		Language:      cfg.OCRLanguage,
		Timeout:       time.Duration(cfg.OCRTimeout * float64(time.Second)),
		BinarizeLevel: profile.BinarizeLevel,
		Retry:         resilience.RecognitionRetryConfig(),
		Breaker:       resilience.RecognitionConfig(cfg.OCRBackend),
	})

	det, err := overlay.FromProfile(profile)
	if err != nil {
		m.Close()
		return nil, err
	}

	m.store = matches.NewStore(RecordEventBuffer)
	m.extractor = NewExtractor(profile, det, m.recognizer, m.store, source)

	if cfg.DatabaseURL != "" {
		if err := m.attachSink(ctx); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

func newBackend(ctx context.Context, cfg *config.Config) (recognizer.Service, io.Closer, error) {
	log := trace.Logger(ctx)
	timeout := time.Duration(cfg.OCRTimeout * float64(time.Second))

	switch cfg.OCRBackend {
	case config.BackendOCRSpace:
		return ocrspace.New(cfg.OCRSpaceURL, cfg.OCRSpaceAPIKey, nil, timeout), nil, nil
	case config.BackendGRPC:
		c, err := grpcclient.New(cfg.OCRGRPCAddr, cfg.OCRGRPCMethod)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Health(ctx); err != nil {
			log.Warn("recognition service not healthy yet", "addr", cfg.OCRGRPCAddr, "error", err)
		}
		return c, c, nil
	case config.BackendTesseract:
		c := tesseract.New(cfg.TesseractLangs...)
		return c, c, nil
	default:
		return nil, nil, apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "unknown OCR_BACKEND %q", cfg.OCRBackend)
	}
}

// newCache returns the in-memory cache, tiered over Redis when REDIS_URL is
// set and reachable. An unreachable Redis only costs cross-run reuse.
func (m *Manager) newCache(ctx context.Context) (recognizer.Cache, error) {
	local := recognizer.NewMemoryCache()
	if m.cfg.RedisURL == "" {
		return local, nil
	}
	shared, err := recognizer.NewRedisCache(ctx, m.cfg.RedisURL)
	if apperrors.IsConfig(err) {
		return nil, err
	}
	if err != nil {
		trace.Logger(ctx).Warn("redis cache disabled", "error", err)
		return local, nil
	}
	m.closers = append(m.closers, shared)
	return recognizer.NewTieredCache(local, shared), nil
}

func (m *Manager) attachSink(ctx context.Context) error {
	pg, err := storage.NewPostgresClient(ctx, m.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	m.closers = append(m.closers, pg)
	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	m.batcher = sink.NewBatcher(pg, m.runID, SinkMaxSize, SinkFlushDelay)
	m.extractor.OnRecord(m.batcher.Add)
	return nil
}

// Run seeks to startFrame when the source supports it and extracts until
// the source ends or ctx is done.
func (m *Manager) Run(ctx context.Context, src video.Source, startFrame int) ([]matches.Record, error) {
	if startFrame > 0 {
		seeker, ok := src.(video.Seeker)
		if !ok {
			return nil, apperrors.New(apperrors.ErrorCodeConfigInvalid, "source cannot seek to START_FRAME")
		}
		if err := seeker.Seek(startFrame); err != nil {
			return nil, err
		}
		trace.Logger(ctx).Info("seeked", "frame", startFrame)
	}

	records, err := m.extractor.Run(ctx, src)
	if m.batcher != nil {
		m.batcher.Stop()
	}
	return records, err
}

// Records returns the records extracted so far.
func (m *Manager) Records() []matches.Record {
	return m.store.Records()
}

// RecordEvents streams records as they are extracted.
func (m *Manager) RecordEvents() <-chan matches.Record {
	return m.store.Events()
}

// Status returns a snapshot of the run.
func (m *Manager) Status() Status {
	return Status{
		RunID:       m.runID,
		Profile:     m.profile.Name,
		Source:      m.source,
		Backend:     m.cfg.OCRBackend,
		Breaker:     m.recognizer.BreakerState().String(),
		Progress:    m.extractor.Progress(),
		Recognition: m.recognizer.Stats(),
	}
}

// Close releases backend, cache and database connections.
func (m *Manager) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
