// Package capture provides video file and camera capture using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/vision"
)

// DefaultFPS is reported when the backend does not know the stream frame rate.
const DefaultFPS = 30

// ErrStreamClosed is returned when trying to read from a stream that is closed.
var ErrStreamClosed = errors.New("stream is closed")

// Stream defines the interface for frame sources.
type Stream interface {
	// ReadFrame reads the next frame. It returns io.EOF once a file is exhausted.
	// The caller is responsible for closing the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	Close() error
	IsOpen() bool
	SetFPS(fps int)
	FPS() int
	Size() (width, height int)
}

// videoStream manages video capture from a file or camera device using GoCV.
type videoStream struct {
	name    string
	device  bool
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// OpenFile opens the video file at path.
func OpenFile(path string) (Stream, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", vision.ErrInvalidVideoPath)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		return nil, fmt.Errorf("%w: %q", vision.ErrInvalidVideoPath, path)
	}

	return newVideoStream(path, false, capture), nil
}

// OpenDevice opens the camera with the given index.
func OpenDevice(index int) (Stream, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", vision.ErrInvalidCameraIndex, index)
	}

	capture, err := gocv.VideoCaptureDevice(index)
	if err != nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		return nil, fmt.Errorf("%w: %d", vision.ErrInvalidCameraIndex, index)
	}

	return newVideoStream(strconv.Itoa(index), true, capture), nil
}

// OpenSource opens a camera when arg is an integer index and a video file otherwise.
func OpenSource(arg string) (Stream, error) {
	if index, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		return OpenDevice(index)
	}
	return OpenFile(arg)
}

func newVideoStream(name string, device bool, capture *gocv.VideoCapture) *videoStream {
	fps := int(capture.Get(gocv.VideoCaptureFPS))
	if fps <= 0 {
		fps = DefaultFPS
	}

	return &videoStream{
		name:    name,
		device:  device,
		capture: capture,
		running: true,
		fps:     fps,
	}
}

// Close closes the stream and releases resources.
func (s *videoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads a single frame from the stream.
func (s *videoStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrStreamClosed
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if s.device {
			return nil, fmt.Errorf("failed to read frame from camera %s", s.name)
		}
		return nil, io.EOF
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (s *videoStream) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fps = fps

	if s.capture != nil {
		s.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (s *videoStream) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fps
}

// Size returns the frame dimensions reported by the backend.
func (s *videoStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0, 0
	}
	return int(s.capture.Get(gocv.VideoCaptureFrameWidth)), int(s.capture.Get(gocv.VideoCaptureFrameHeight))
}

// IsOpen returns true if the stream is currently open.
func (s *videoStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
