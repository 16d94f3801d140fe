// Package thumbnail renders small JPEG previews of annotated frames.
package thumbnail

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/vision"
)

// DefaultSize is the longest side of a thumbnail in pixels.
const DefaultSize = 240

// Quality is the JPEG quality thumbnails are encoded with.
const Quality = 80

// FromMat scales img to fit a size x size box, keeping its aspect ratio,
// and encodes it as JPEG. Images already smaller than the box keep their size.
func FromMat(img *gocv.Mat, size int) ([]byte, error) {
	if img == nil || img.Empty() {
		return nil, vision.ErrImageNotExists
	}
	if size <= 0 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %d", size)
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	thumb := imaging.Fit(src, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
