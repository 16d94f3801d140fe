package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for written videos.
const DefaultCodec = "MJPG"

// VideoWriter writes frames to a video file. The file is created lazily on
// the first frame so its size follows the (possibly rescaled) frames.
type VideoWriter struct {
	path   string
	codec  string
	fps    float64
	writer *gocv.VideoWriter
	frames int
	mu     sync.Mutex
}

// NewVideoWriter returns a writer for path at the given frame rate.
func NewVideoWriter(path string, fps int) *VideoWriter {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &VideoWriter{
		path:  path,
		codec: DefaultCodec,
		fps:   float64(fps),
	}
}

// WriteFrame appends frame to the video.
func (w *VideoWriter) WriteFrame(frame *gocv.Mat) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		vw, err := gocv.VideoWriterFile(w.path, w.codec, w.fps, frame.Cols(), frame.Rows(), frame.Channels() > 1)
		if err != nil {
			return fmt.Errorf("create video %q: %w", w.path, err)
		}
		if !vw.IsOpened() {
			vw.Close()
			return fmt.Errorf("create video %q: writer did not open", w.path)
		}
		w.writer = vw
	}

	if err := w.writer.Write(*frame); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *VideoWriter) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close finalizes the video file.
func (w *VideoWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	w.writer = nil
	return err
}
