// Package app runs the live preview: it reads frames from a stream, annotates
// them and publishes them to the preview server.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/capture"
	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/overlay"
	"github.com/ayusman/posekit/internal/server"
	"github.com/ayusman/posekit/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate used when the stream does not report one.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must stay still before switching to idle mode.
	IdleTimeout = 2 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
)

// ErrNoStream is returned by New when no stream is configured.
var ErrNoStream = errors.New("app: no stream configured")

// Config holds configuration options for the application.
type Config struct {
	// Stream is the opened frame source. The App closes it on Stop.
	Stream capture.Stream
	// Source names the stream in logs and the recorded run.
	Source string
	// Detector runs landmark detection. When nil, NewDetector picks one.
	Detector     landmark.Detector
	Options      annotate.Options
	MotionThresh float64
	// Hub receives annotated frames and results. Optional.
	Hub *server.Hub
	// Store records the session as a live run. Optional.
	Store *store.Store
}

// Stats counts what the pipeline has done so far.
type Stats struct {
	Frames   int
	Detected int
	// Skipped is the number of frames on which detection was skipped
	// because the scene did not change.
	Skipped int
}

// App is the live preview pipeline.
type App struct {
	config    Config
	stream    capture.Stream
	motion    *capture.MotionGate
	detector  landmark.Detector
	annotator *annotate.Annotator
	recorder  *store.RunRecorder
	runID     string
	thumbnail bool
	last      *landmark.Result
	stats     Stats
	width     int
	height    int
	mu        sync.RWMutex
	stopCh    chan struct{}
	done      chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.Stream == nil {
		return nil, ErrNoStream
	}

	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = DefaultMotionThreshold
	}

	defaults := annotate.DefaultOptions()
	if config.Options.Rescale == 0 {
		config.Options.Rescale = defaults.Rescale
	}
	if config.Options.Styles == (overlay.Styles{}) {
		config.Options.Styles = defaults.Styles
	}

	det := config.Detector
	if det == nil {
		det = NewDetector(landmark.DefaultConfig())
	}

	annotator, err := annotate.New(det, config.Options)
	if err != nil {
		return nil, err
	}

	return &App{
		config:    config,
		stream:    config.Stream,
		motion:    capture.NewMotionGate(motionThreshold),
		detector:  det,
		annotator: annotator,
	}, nil
}

// NewDetector tries MediaPipe first and falls back to a mock detector that
// never finds anything.
func NewDetector(config landmark.Config) landmark.Detector {
	mp, err := landmark.NewMediaPipeDetector(config)
	if err == nil {
		slog.Info("using MediaPipe holistic detection")
		return mp
	}
	slog.Warn("MediaPipe not available, using mock detector", "err", err)
	return landmark.NewMockDetector()
}

// Start begins the preview pipeline. Calling Start on a running App is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if a.config.Store != nil && a.recorder == nil {
		run := &store.Run{Kind: store.RunKindLive, Source: a.config.Source}
		recorder, err := a.config.Store.NewRunRecorder(run)
		if err != nil {
			return err
		}
		a.recorder = recorder
		a.runID = recorder.RunID()
		a.annotator.SetRecorder(recorder)
	}

	a.stream.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	slog.Info("preview pipeline started", "source", a.config.Source)
	return nil
}

// Done returns a channel that is closed when the pipeline exits, either
// because Stop was called or because the stream ended. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Stop halts the pipeline and releases the stream, motion gate and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	if err := a.stream.Close(); err != nil {
		slog.Warn("error closing stream", "err", err)
	}

	a.motion.Close()

	if err := a.detector.Close(); err != nil {
		slog.Warn("error closing detector", "err", err)
	}

	a.mu.Lock()
	recorder, stats, w, h := a.recorder, a.stats, a.width, a.height
	a.recorder = nil
	a.mu.Unlock()

	if recorder != nil {
		if err := recorder.Finish(stats.Frames, w, h); err != nil {
			slog.Warn("error finishing run", "run", recorder.RunID(), "err", err)
		}
	}

	slog.Info("preview pipeline stopped", "frames", stats.Frames, "detected", stats.Detected, "skipped", stats.Skipped)
}

// Stats returns a snapshot of the pipeline counters.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// RunID returns the ID of the live run recorded by Start, or "" without a store.
func (a *App) RunID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runID
}
