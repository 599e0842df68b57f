// Package orchestrator turns a frame stream into match records
package orchestrator

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"time"

	"github.com/GriffinCanCode/matchscan/internal/config"
	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/parser"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/recognizer"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/timer"
	"github.com/GriffinCanCode/matchscan/internal/syncx"
	"github.com/GriffinCanCode/matchscan/internal/trace"
	"github.com/GriffinCanCode/matchscan/internal/video"
	"github.com/GriffinCanCode/matchscan/internal/vision"
)

// State is the extractor's position in the scoreboard cycle.
type State int

const (
	StateWaiting     State = iota // overlay not seen
	StateVisibleIdle              // overlay visible, waiting for the trigger
	StateCooldown                 // trigger seen, suppressing repeats
)

func (s State) String() string {
	return [...]string{"waiting_for_visibility", "visible_idle", "visible_cooldown"}[s]
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (s *State) UnmarshalText(text []byte) error {
	for c := StateWaiting; c <= StateCooldown; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return apperrors.Newf(apperrors.ErrorCodeInvalidArgument, "unknown state %q", text)
}

// VisibilityDetector reports whether the overlay is on screen.
type VisibilityDetector interface {
	Visible(ctx context.Context, img image.Image) bool
}

// TextRecognizer reads text from a cropped region.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (recognizer.Result, error)
}

// Progress counts what the extractor has done so far.
type Progress struct {
	State               State     `json:"state"`
	FramesRead          int       `json:"frames_read"`
	FramesSampled       int       `json:"frames_sampled"`
	LastFrame           int       `json:"last_frame"`
	Triggers            int       `json:"triggers"`
	Records             int       `json:"records"`
	RecognitionFailures int       `json:"recognition_failures"`
	ParseFailures       int       `json:"parse_failures"`
	FrameErrors         int       `json:"frame_errors"`
	Cooldown            int       `json:"cooldown"`
	StartedAt           time.Time `json:"started_at"`
	Done                bool      `json:"done"`
	Error               string    `json:"error,omitempty"`
}

// Extractor is the per-run state machine. Process must be called from one
// goroutine with frames in order; Progress is safe to read concurrently.
type Extractor struct {
	profile    *config.Profile
	overlay    VisibilityDetector
	timer      *timer.Detector
	recognizer TextRecognizer
	store      *matches.Store
	source     string
	onRecord   []func(matches.Record)

	state    State
	cooldown int
	checked  bool
	progress *syncx.RWGuard[Progress]
}

// NewExtractor wires an extractor for one run over source.
func NewExtractor(p *config.Profile, overlay VisibilityDetector, rec TextRecognizer, store *matches.Store, source string) *Extractor {
	return &Extractor{
		profile:    p,
		overlay:    overlay,
		timer:      timer.NewDetector(p.ChangeThreshold),
		recognizer: rec,
		store:      store,
		source:     source,
		progress:   syncx.NewGuard(Progress{StartedAt: time.Now()}),
	}
}

// OnRecord registers fn to run for every appended record.
func (e *Extractor) OnRecord(fn func(matches.Record)) {
	e.onRecord = append(e.onRecord, fn)
}

// Process advances the state machine by one frame. The only error it returns
// is a configuration error for frames that do not match the profile size.
func (e *Extractor) Process(ctx context.Context, f video.Frame) error {
	if !e.checked {
		if err := e.checkFrame(f.Image); err != nil {
			return err
		}
		e.checked = true
	}
	e.progress.Update(func(p *Progress) {
		p.FramesRead++
		p.LastFrame = f.Index
	})

	if f.Index%max(e.profile.FrameSkip, 1) != 0 {
		return nil
	}
	e.progress.Update(func(p *Progress) { p.FramesSampled++ })

	if e.cooldown > 0 {
		e.cooldown--
		if e.cooldown == 0 {
			e.setState(StateVisibleIdle)
		}
		e.progress.Update(func(p *Progress) { p.Cooldown = e.cooldown })
		return nil
	}

	if !e.overlay.Visible(ctx, f.Image) {
		e.timer.Reset()
		e.setState(StateWaiting)
		return nil
	}
	if e.state == StateWaiting {
		e.setState(StateVisibleIdle)
	}

	snap := timer.Snapshot(f.Image, e.profile.TimerRegion, e.profile.BlurSigma)
	if e.timer.Changed(snap) {
		e.readTimer(ctx, f)
	}
	e.timer.Update(snap)
	return nil
}

func (e *Extractor) readTimer(ctx context.Context, f video.Frame) {
	ctx, span := trace.StartSpan(ctx, "read_timer")
	defer span.End()
	span.SetAttr("frame", f.Index)
	log := trace.Logger(ctx)

	res, err := e.recognizer.Recognize(ctx, vision.Crop(f.Image, e.profile.TimerRegion))
	if err != nil {
		e.progress.Update(func(p *Progress) { p.RecognitionFailures++ })
		log.Warn("timer recognition failed", "frame", f.Index, "error", err)
		return
	}
	timerText := strings.TrimSpace(res.Text)
	span.SetAttr("timer", timerText)
	if timerText != e.profile.TriggerText {
		log.Debug("timer changed", "frame", f.Index, "text", timerText, "cached", res.Cached)
		return
	}

	e.cooldown = e.profile.CooldownFrames
	e.setState(StateCooldown)
	e.progress.Update(func(p *Progress) {
		p.Triggers++
		p.Cooldown = e.cooldown
	})
	log.Info("trigger detected", "frame", f.Index, "timestamp", f.Timestamp)

	info, err := e.recognizer.Recognize(ctx, vision.Crop(f.Image, e.profile.InfoRegion))
	if err != nil {
		e.progress.Update(func(p *Progress) { p.RecognitionFailures++ })
		log.Warn("match info recognition failed", "frame", f.Index, "error", err)
		return
	}

	rec, err := parser.Parse(info.Text)
	if err != nil {
		e.progress.Update(func(p *Progress) { p.ParseFailures++ })
		log.Warn("match info not parsed", "frame", f.Index, "text", info.Text, "error", err)
		return
	}
	rec.FrameIndex = f.Index
	rec.Timestamp = f.Timestamp
	rec.Source = e.source
	rec.DetectedAt = time.Now()

	e.store.Add(rec)
	for _, fn := range e.onRecord {
		fn(rec)
	}
	e.progress.Update(func(p *Progress) { p.Records++ })
	log.Info("match extracted", "type", rec.Type, "number", rec.Number,
		"red", rec.Red, "blue", rec.Blue, "frame", rec.FrameIndex)
}

// Run processes src until it is exhausted or ctx is done and returns the
// records extracted so far. Unreadable frames are skipped unless
// MaxConsecutiveFrameErrors occur in a row.
func (e *Extractor) Run(ctx context.Context, src video.Source) (records []matches.Record, err error) {
	ctx, span := trace.StartSpan(ctx, "extract")
	defer span.End()
	log := trace.Logger(ctx)
	defer func() { e.finish(err) }()

	consecutive := 0
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.store.Records(), ctxErr
			}
			consecutive++
			e.progress.Update(func(p *Progress) { p.FrameErrors++ })
			log.Warn("frame read failed", "error", err, "consecutive", consecutive)
			if consecutive >= MaxConsecutiveFrameErrors {
				return e.store.Records(), apperrors.Wrapf(err, apperrors.ErrorCodeInternal, "%d consecutive unreadable frames", consecutive)
			}
			continue
		}
		consecutive = 0

		if err := e.Process(ctx, f); err != nil {
			return e.store.Records(), err
		}
		if f.Index%ProgressLogInterval == 0 {
			p := e.Progress()
			log.Info("scan progress", "frame", f.Index, "state", p.State, "records", p.Records)
		}
	}

	p := e.Progress()
	span.SetAttr("records", p.Records)
	log.Info("scan complete", "frames", p.FramesRead, "sampled", p.FramesSampled,
		"triggers", p.Triggers, "records", p.Records,
		"recognition_failures", p.RecognitionFailures, "parse_failures", p.ParseFailures)
	return e.store.Records(), nil
}

func (e *Extractor) finish(err error) {
	e.progress.Update(func(p *Progress) {
		p.Done = true
		if err != nil {
			p.Error = err.Error()
		}
	})
}

func (e *Extractor) checkFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != e.profile.FrameWidth || b.Dy() != e.profile.FrameHeight {
		return apperrors.Newf(apperrors.ErrorCodeConfigInvalid,
			"frame is %dx%d, profile %q expects %dx%d",
			b.Dx(), b.Dy(), e.profile.Name, e.profile.FrameWidth, e.profile.FrameHeight)
	}
	return nil
}

func (e *Extractor) setState(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.progress.Update(func(p *Progress) { p.State = s })
}

// Progress returns a snapshot of the counters.
func (e *Extractor) Progress() Progress {
	return e.progress.Get()
}

// State returns the current state.
func (e *Extractor) State() State {
	return syncx.View(e.progress, func(p Progress) State { return p.State })
}
