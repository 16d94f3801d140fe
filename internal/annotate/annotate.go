// Package annotate runs holistic landmark detection on images and video
// streams and draws the results onto the frames.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/capture"
	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/overlay"
	"github.com/ayusman/posekit/internal/vision"
)

// Options controls rescaling and drawing.
type Options struct {
	// Rescale is the output size as a percentage of the input size.
	Rescale int
	Styles  overlay.Styles
}

// DefaultOptions keeps the input size and uses the default drawing styles.
func DefaultOptions() Options {
	return Options{
		Rescale: 100,
		Styles:  overlay.DefaultStyles(),
	}
}

// FrameSink receives annotated video frames. The frame is only valid for the
// duration of the call.
type FrameSink interface {
	WriteFrame(frame *gocv.Mat) error
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(frame *gocv.Mat) error

// WriteFrame calls f(frame).
func (f FrameSinkFunc) WriteFrame(frame *gocv.Mat) error {
	return f(frame)
}

// Recorder is notified of the detection result of every processed frame.
type Recorder interface {
	Record(frameIndex int, result *landmark.Result) error
}

// Stats summarizes a video run.
type Stats struct {
	// Frames is the number of frames processed.
	Frames int
	// Detected is the number of frames on which landmarks were drawn.
	Detected int
}

// Annotator detects landmarks and draws them. It holds no per-frame state.
type Annotator struct {
	detector landmark.Detector
	opts     Options
	recorder Recorder
}

// New returns an Annotator using detector. The rescale factor is validated
// here so that bad options fail before any source is opened.
func New(detector landmark.Detector, opts Options) (*Annotator, error) {
	if detector == nil {
		return nil, errors.New("annotate: nil detector")
	}
	if opts.Rescale <= 0 {
		return nil, fmt.Errorf("%w: got %d", vision.ErrInvalidRescaleFactor, opts.Rescale)
	}
	return &Annotator{detector: detector, opts: opts}, nil
}

// SetRecorder registers r to receive per-frame results. A nil r disables recording.
func (a *Annotator) SetRecorder(r Recorder) {
	a.recorder = r
}

// Frame runs detection on img and draws the landmarks in place when a pose
// was found. The result is returned even when nothing was drawn.
func (a *Annotator) Frame(img *gocv.Mat) (*landmark.Result, error) {
	if img == nil || img.Empty() {
		return nil, vision.ErrImageNotExists
	}

	result, err := a.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	overlay.Annotate(img, result, a.opts.Styles)
	return result, nil
}

// FrameAt is Frame for the frame at position index of a sequence. The result
// is passed to the recorder, if one is set.
func (a *Annotator) FrameAt(img *gocv.Mat, index int) (*landmark.Result, error) {
	result, err := a.Frame(img)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}

	if a.recorder != nil {
		if err := a.recorder.Record(index, result); err != nil {
			return nil, fmt.Errorf("record frame %d: %w", index, err)
		}
	}
	return result, nil
}

// Image opens src, rescales it, and returns a copy with the landmarks drawn.
// The caller is responsible for closing the returned Mat.
func (a *Annotator) Image(src vision.Source) (*gocv.Mat, *landmark.Result, error) {
	img, err := vision.Rescale(src, a.opts.Rescale)
	if err != nil {
		return nil, nil, err
	}

	result, err := a.Frame(img)
	if err != nil {
		img.Close()
		return nil, nil, err
	}

	if a.recorder != nil {
		if err := a.recorder.Record(0, result); err != nil {
			img.Close()
			return nil, nil, fmt.Errorf("record result: %w", err)
		}
	}

	return img, result, nil
}

// Video annotates every frame of stream until it is exhausted or ctx is
// done, passing each annotated frame to sink when sink is not nil.
// The stream is not closed; that stays with the caller who opened it.
func (a *Annotator) Video(ctx context.Context, stream capture.Stream, sink FrameSink) (Stats, error) {
	var stats Stats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		frame, err := stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			slog.Debug("video finished", "frames", stats.Frames, "detected", stats.Detected)
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read frame %d: %w", stats.Frames, err)
		}

		drawn, err := a.videoFrame(frame, stats.Frames, sink)
		frame.Close()
		if err != nil {
			return stats, err
		}

		stats.Frames++
		if drawn {
			stats.Detected++
		}
	}
}

func (a *Annotator) videoFrame(frame *gocv.Mat, index int, sink FrameSink) (bool, error) {
	if err := vision.RescaleInPlace(frame, a.opts.Rescale); err != nil {
		return false, fmt.Errorf("rescale frame %d: %w", index, err)
	}

	result, err := a.FrameAt(frame, index)
	if err != nil {
		return false, err
	}

	if sink != nil {
		if err := sink.WriteFrame(frame); err != nil {
			return false, fmt.Errorf("write frame %d: %w", index, err)
		}
	}

	return result.HasPose(), nil
}
