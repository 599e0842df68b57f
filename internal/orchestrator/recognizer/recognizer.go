// Package recognizer reads text from frame regions through an external
// recognition service, caching results by image content.
package recognizer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"image"
	"image/png"
	"sync/atomic"
	"time"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/resilience"
	"github.com/GriffinCanCode/matchscan/internal/trace"
	"github.com/GriffinCanCode/matchscan/internal/vision"
)

// Service is a text recognition backend.
type Service interface {
	ExtractText(ctx context.Context, imageData []byte, format, language string) (string, error)
}

// Status classifies a recognition result.
type Status int

const (
	StatusRecognized Status = iota // service returned text
	StatusEmpty                    // service answered but found no text
	StatusFailed                   // service call failed
)

func (s Status) String() string {
	return [...]string{"recognized", "empty", "failed"}[s]
}

// Result is the outcome of one Recognize call.
type Result struct {
	Text   string
	Status Status
	Cached bool
}

// Options configures a Recognizer.
type Options struct {
	Name          string // backend name for logs and breaker
	Language      string
	Timeout       time.Duration // per attempt; 0 disables
	BinarizeLevel float32
	Retry         resilience.RetryConfig
	Breaker       resilience.Config
}

// Stats are cumulative counters.
type Stats struct {
	Calls     int64 `json:"calls"`
	CacheHits int64 `json:"cache_hits"`
	Failures  int64 `json:"failures"`
}

// Recognizer wraps a Service with a content-addressed cache, a circuit
// breaker and retries.
type Recognizer struct {
	svc     Service
	cache   Cache
	opts    Options
	breaker *resilience.Breaker

	calls    atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

// New creates a recognizer. A nil cache gets a MemoryCache.
func New(svc Service, cache Cache, opts Options) *Recognizer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = opts.Name
	}
	return &Recognizer{
		svc:     svc,
		cache:   cache,
		opts:    opts,
		breaker: resilience.New(opts.Breaker),
	}
}

// Recognize returns the text in img. Images that binarize identically share
// one service call for the lifetime of the cache. On failure the result has
// StatusFailed, empty text and a RECOGNITION_FAILED error; failures are never
// cached.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "recognize")
	defer span.End()
	log := trace.Logger(ctx)

	key := Key(vision.Binarize(img, r.opts.BinarizeLevel))
	span.SetAttr("key", key[:12])

	if text, ok, err := r.cache.Get(ctx, key); err != nil {
		log.Warn("recognition cache read failed", "error", err)
	} else if ok {
		r.hits.Add(1)
		span.SetAttr("cached", true)
		return result(text, true), nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return r.fail(ctx, span, apperrors.Wrap(err, apperrors.ErrorCodeInternal, "encode region"))
	}

	r.calls.Add(1)
	var text string
	err := resilience.Retry(ctx, r.opts.Retry, func() error {
		var callErr error
		text, callErr = resilience.ExecuteWithResult(r.breaker, func() (string, error) {
			return r.call(ctx, buf.Bytes())
		})
		return callErr
	})
	if err != nil {
		return r.fail(ctx, span, err)
	}

	if err := r.cache.Set(ctx, key, text); err != nil {
		log.Warn("recognition cache write failed", "error", err)
	}
	return result(text, false), nil
}

func (r *Recognizer) call(ctx context.Context, data []byte) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	return r.svc.ExtractText(ctx, data, "png", r.opts.Language)
}

func (r *Recognizer) fail(ctx context.Context, span *trace.Span, err error) (Result, error) {
	r.failures.Add(1)
	span.SetAttr("error", err.Error())
	trace.Logger(ctx).Warn("recognition failed", "backend", r.opts.Name, "error", err)
	return Result{Status: StatusFailed}, apperrors.Wrapf(err, apperrors.ErrorCodeRecognitionFailed, "recognize with %s", r.opts.Name)
}

// Stats returns a snapshot of the counters.
func (r *Recognizer) Stats() Stats {
	return Stats{Calls: r.calls.Load(), CacheHits: r.hits.Load(), Failures: r.failures.Load()}
}

// BreakerState reports the backend circuit state.
func (r *Recognizer) BreakerState() resilience.State {
	return r.breaker.State()
}

func result(text string, cached bool) Result {
	status := StatusRecognized
	if text == "" {
		status = StatusEmpty
	}
	return Result{Text: text, Status: status, Cached: cached}
}

// Key hashes the size and pixels of a normalized image.
func Key(img *image.Gray) string {
	h := sha256.New()
	b := img.Bounds()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Dy()))
	h.Write(dims[:])
	for y := 0; y < b.Dy(); y++ {
		off := y * img.Stride
		h.Write(img.Pix[off : off+b.Dx()])
	}
	return hex.EncodeToString(h.Sum(nil))
}
