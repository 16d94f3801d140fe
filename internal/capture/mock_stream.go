package capture

import (
	"errors"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockStream plays back pre-recorded frames for testing
type MockStream struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	fps     int
	mu      sync.Mutex
	running bool
	closes  int
}

// NewMockStream returns an open stream over frames. With loop set, playback
// restarts from the first frame instead of returning io.EOF.
func NewMockStream(frames []*gocv.Mat, loop bool) *MockStream {
	return &MockStream{
		frames:  frames,
		loop:    loop,
		fps:     15,
		running: true,
	}
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.closes++
	return nil
}

func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrStreamClosed
	}

	if len(s.frames) == 0 {
		return nil, errors.New("no frames available")
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, io.EOF
		}
		s.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockStream) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

func (s *MockStream) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *MockStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return 0, 0
	}
	return s.frames[0].Cols(), s.frames[0].Rows()
}

func (s *MockStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Closes returns how many times Close was called.
func (s *MockStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Reset restarts playback from the beginning
func (s *MockStream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}
