// Package cvsource decodes video files with OpenCV.
package cvsource

import (
	"context"
	"io"
	"time"

	"gocv.io/x/gocv"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/video"
)

// Source reads frames from a video file.
type Source struct {
	path  string
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	index int
}

// Open opens path for decoding. A file OpenCV cannot open is a config error.
func Open(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorCodeConfigInvalid, "open video %s", path)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, apperrors.Newf(apperrors.ErrorCodeConfigInvalid, "open video %s", path)
	}
	return &Source{path: path, cap: vc, mat: gocv.NewMat()}, nil
}

// FPS returns the container frame rate, or 0 when unknown.
func (s *Source) FPS() float64 {
	return s.cap.Get(gocv.VideoCaptureFPS)
}

// FrameCount returns the container frame count, or 0 when unknown.
func (s *Source) FrameCount() int {
	return int(s.cap.Get(gocv.VideoCaptureFrameCount))
}

// Seek positions the decoder at frame index.
func (s *Source) Seek(index int) error {
	if index < 0 {
		return apperrors.Newf(apperrors.ErrorCodeInvalidArgument, "seek to frame %d", index)
	}
	s.cap.Set(gocv.VideoCapturePosFrames, float64(index))
	s.index = index
	return nil
}

// Next decodes the next frame. The returned image is a copy and stays valid
// after later calls.
func (s *Source) Next(ctx context.Context) (video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return video.Frame{}, io.EOF
	}

	index := s.index
	s.index++

	img, err := s.mat.ToImage()
	if err != nil {
		return video.Frame{}, apperrors.Wrapf(err, apperrors.ErrorCodeInternal, "convert frame %d", index)
	}
	return video.Frame{
		Index:     index,
		Timestamp: time.Duration(s.cap.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond)),
		Image:     img,
	}, nil
}

// Close releases the decoder.
func (s *Source) Close() error {
	if err := s.mat.Close(); err != nil {
		return err
	}
	return s.cap.Close()
}

var (
	_ video.Source = (*Source)(nil)
	_ video.Seeker = (*Source)(nil)
)
