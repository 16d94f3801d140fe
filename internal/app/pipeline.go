package app

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/overlay"
	"github.com/ayusman/posekit/internal/thumbnail"
	"github.com/ayusman/posekit/internal/vision"
)

// runPipeline is the main preview loop.
//
// Pipeline logic:
//  1. Start in idle mode (IdleFPS)
//  2. On motion, switch to active mode at the stream frame rate
//  3. Run detection on frames that changed, redraw the last result on still ones
//  4. Publish every annotated frame to the hub
//  5. After IdleTimeout without motion, switch back to idle mode
//
// The loop ends when stopCh is closed or a file stream reaches its end.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	activeFPS := a.stream.FPS()
	if activeFPS <= 0 {
		activeFPS = ActiveFPS
	}

	activeMode := false
	lastMotionTime := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.stream.ReadFrame()
			if errors.Is(err, io.EOF) {
				slog.Info("stream ended", "source", a.config.Source)
				return
			}
			if err != nil {
				slog.Warn("error reading frame", "err", err)
				continue
			}

			moved, err := a.processFrame(frame)
			frame.Close()
			if err != nil {
				slog.Warn("error processing frame", "err", err)
				continue
			}

			if moved {
				lastMotionTime = time.Now()
				if !activeMode {
					activeMode = true
					a.stream.SetFPS(activeFPS)
					ticker.Reset(time.Second / time.Duration(activeFPS))
					slog.Debug("switched to active mode", "fps", activeFPS)
				}
			} else if activeMode && time.Since(lastMotionTime) > IdleTimeout {
				activeMode = false
				a.stream.SetFPS(IdleFPS)
				ticker.Reset(time.Second / time.Duration(IdleFPS))
				slog.Debug("switched to idle mode")
			}
		}
	}
}

// processFrame rescales and annotates one frame in place and publishes it.
// Detection only runs when the frame changed since the previous one; still
// frames get the previous result drawn again. It reports whether the frame
// changed.
func (a *App) processFrame(frame *gocv.Mat) (bool, error) {
	if err := vision.RescaleInPlace(frame, a.config.Options.Rescale); err != nil {
		return false, err
	}

	changed, _ := a.motion.Changed(frame)

	a.mu.Lock()
	index := a.stats.Frames
	a.stats.Frames++
	a.width, a.height = frame.Cols(), frame.Rows()
	last := a.last
	a.mu.Unlock()

	if changed || last == nil {
		result, err := a.annotator.FrameAt(frame, index)
		if err != nil {
			return changed, err
		}

		a.mu.Lock()
		a.last = result
		if result.HasPose() {
			a.stats.Detected++
		}
		a.mu.Unlock()

		if a.config.Hub != nil {
			a.config.Hub.PublishResult(result)
		}
	} else {
		overlay.Annotate(frame, last, a.config.Options.Styles)

		a.mu.Lock()
		a.stats.Skipped++
		a.mu.Unlock()
	}

	a.saveThumbnail(frame)

	if a.config.Hub != nil {
		if err := a.config.Hub.PublishFrame(frame); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// saveThumbnail stores the first annotated frame of a recorded session as
// the run preview.
func (a *App) saveThumbnail(frame *gocv.Mat) {
	a.mu.Lock()
	recorder := a.recorder
	if recorder == nil || a.thumbnail {
		a.mu.Unlock()
		return
	}
	a.thumbnail = true
	a.mu.Unlock()

	data, err := thumbnail.FromMat(frame, thumbnail.DefaultSize)
	if err == nil {
		err = recorder.SetThumbnail(data)
	}
	if err != nil {
		slog.Warn("failed to store thumbnail", "run", recorder.RunID(), "err", err)
	}
}
