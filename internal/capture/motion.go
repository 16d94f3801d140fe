package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	// BlurKernel is the Gaussian blur kernel size applied before differencing.
	BlurKernel = 21
	// PixelDelta is the grey-level difference at which a pixel counts as changed.
	PixelDelta = 25
)

// MotionGate reports whether a frame differs enough from the previous one to
// be worth running landmark detection on.
type MotionGate struct {
	threshold float64
	prev      *gocv.Mat // nil until the first frame
	mu        sync.Mutex
}

// NewMotionGate creates a gate that opens when more than threshold percent of
// the pixels changed since the previous frame.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{threshold: threshold}
}

// Changed compares frame against the previous frame passed to it and returns
// whether it changed, along with the percentage of changed pixels. The first
// frame always counts as changed.
func (g *MotionGate) Changed(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(BlurKernel, BlurKernel), 0, 0, gocv.BorderDefault)

	if g.prev == nil {
		prev := gocv.NewMat()
		g.prev = &prev
		blurred.CopyTo(g.prev)
		return true, 100
	}
	if g.prev.Rows() != blurred.Rows() || g.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(g.prev)
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, *g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(g.prev)

	return changed > g.threshold, changed
}

// Reset forgets the previous frame.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.release()
}

// Close releases the stored frame. The gate can still be used afterwards.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.release()
}

func (g *MotionGate) release() {
	if g.prev != nil {
		g.prev.Close()
		g.prev = nil
	}
}
