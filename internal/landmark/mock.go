package landmark

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result that will be returned by Detect.
func (m *MockDetector) SetResult(result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &Result{}, nil
	}
	result := *m.result
	return &result, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func visible(v float64) *float64 {
	return &v
}

// StandingPose returns a preset Result with a person standing upright in the
// middle of the frame, arms hanging, and no hands detected.
func StandingPose() *Result {
	pose := make([]Landmark, NumPoseLandmarks)

	set := func(i int, x, y float64) {
		pose[i] = Landmark{X: x, Y: y, Visibility: visible(0.95)}
	}

	// Head
	set(Nose, 0.50, 0.12)
	set(LeftEyeInner, 0.51, 0.10)
	set(LeftEye, 0.52, 0.10)
	set(LeftEyeOuter, 0.53, 0.10)
	set(RightEyeInner, 0.49, 0.10)
	set(RightEye, 0.48, 0.10)
	set(RightEyeOuter, 0.47, 0.10)
	set(LeftEar, 0.55, 0.11)
	set(RightEar, 0.45, 0.11)
	set(MouthLeft, 0.52, 0.15)
	set(MouthRight, 0.48, 0.15)

	// Arms hanging at the sides
	set(LeftShoulder, 0.60, 0.25)
	set(RightShoulder, 0.40, 0.25)
	set(LeftElbow, 0.63, 0.40)
	set(RightElbow, 0.37, 0.40)
	set(LeftWrist, 0.64, 0.54)
	set(RightWrist, 0.36, 0.54)
	set(LeftPinky, 0.65, 0.57)
	set(RightPinky, 0.35, 0.57)
	set(LeftIndex, 0.64, 0.58)
	set(RightIndex, 0.36, 0.58)
	set(LeftThumb, 0.63, 0.56)
	set(RightThumb, 0.37, 0.56)

	// Legs
	set(LeftHip, 0.56, 0.55)
	set(RightHip, 0.44, 0.55)
	set(LeftKnee, 0.57, 0.73)
	set(RightKnee, 0.43, 0.73)
	set(LeftAnkle, 0.57, 0.90)
	set(RightAnkle, 0.43, 0.90)
	set(LeftHeel, 0.56, 0.92)
	set(RightHeel, 0.44, 0.92)
	set(LeftFootIndex, 0.59, 0.94)
	set(RightFootIndex, 0.41, 0.94)

	return &Result{Pose: pose}
}

// RaisedHands returns a preset Result with both arms raised and both hands
// detected with open palms.
func RaisedHands() *Result {
	result := StandingPose()
	pose := result.Pose

	pose[LeftElbow] = Landmark{X: 0.68, Y: 0.15, Visibility: visible(0.9)}
	pose[RightElbow] = Landmark{X: 0.32, Y: 0.15, Visibility: visible(0.9)}
	pose[LeftWrist] = Landmark{X: 0.70, Y: 0.05, Visibility: visible(0.9)}
	pose[RightWrist] = Landmark{X: 0.30, Y: 0.05, Visibility: visible(0.9)}

	result.LeftHand = openPalm(0.70, 0.05)
	result.RightHand = openPalm(0.30, 0.05)
	return result
}

// openPalm returns hand landmarks for an open palm with the wrist at (x, y).
func openPalm(x, y float64) []Landmark {
	hand := make([]Landmark, NumHandLandmarks)
	hand[Wrist] = Landmark{X: x, Y: y + 0.04}

	// Five fingers fanned out, four joints each, tips pointing up.
	fingers := [][4]int{
		{ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
		{IndexMCP, IndexPIP, IndexDIP, IndexTip},
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
	}
	for f, joints := range fingers {
		dx := float64(f-2) * 0.008
		for j, idx := range joints {
			step := float64(j+1) * 0.008
			hand[idx] = Landmark{X: x + dx*float64(j+1), Y: y + 0.03 - step}
		}
	}
	return hand
}
