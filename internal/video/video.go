// Package video defines the frame stream the scanner consumes.
package video

import (
	"context"
	"image"
	"io"
	"time"
)

// Frame is one decoded video frame.
type Frame struct {
	Index     int
	Timestamp time.Duration // position in the recording
	Image     image.Image
}

// Source yields frames in order. Next returns io.EOF after the last frame.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Seeker is implemented by sources that can jump to a frame index before
// reading starts.
type Seeker interface {
	Seek(index int) error
}

// SliceSource replays in-memory images as a stream. Frame indexes start at
// zero and timestamps follow FrameInterval.
type SliceSource struct {
	Images        []image.Image
	FrameInterval time.Duration

	pos int
}

// NewSliceSource creates a source over imgs at the given frame rate.
func NewSliceSource(fps float64, imgs ...image.Image) *SliceSource {
	interval := time.Second / 30
	if fps > 0 {
		interval = time.Duration(float64(time.Second) / fps)
	}
	return &SliceSource{Images: imgs, FrameInterval: interval}
}

// Next returns the next image or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.Images) {
		return Frame{}, io.EOF
	}
	f := Frame{
		Index:     s.pos,
		Timestamp: time.Duration(s.pos) * s.FrameInterval,
		Image:     s.Images[s.pos],
	}
	s.pos++
	return f, nil
}

// Seek moves the read position to index.
func (s *SliceSource) Seek(index int) error {
	if index < 0 || index > len(s.Images) {
		return io.ErrUnexpectedEOF
	}
	s.pos = index
	return nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }
