// Package testdata builds synthetic frames and image files for tests.
package testdata

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"
)

// SolidFrame returns a rows x cols BGR frame filled with value on every channel.
// The caller is responsible for closing it.
func SolidFrame(rows, cols int, value float64) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), rows, cols, gocv.MatTypeCV8UC3)
	return &mat
}

// Sequence returns n black frames of the given size.
func Sequence(n, rows, cols int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = SolidFrame(rows, cols, 0)
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// WriteImage writes a black rows x cols image to dir/name and returns its path.
func WriteImage(dir, name string, rows, cols int) (string, error) {
	mat := SolidFrame(rows, cols, 0)
	defer mat.Close()

	path := filepath.Join(dir, name)
	if !gocv.IMWrite(path, *mat) {
		return "", fmt.Errorf("write test image %s", path)
	}
	return path, nil
}
