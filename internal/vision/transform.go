package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// flipAroundYAxis is the OpenCV flip code for a horizontal mirror.
const flipAroundYAxis = 1

// Center returns the centre of the image in pixel coordinates as (x, y).
func Center(src Source) (float64, float64, error) {
	img, err := Open(src)
	if err != nil {
		return 0, 0, err
	}
	defer img.Close()

	return float64(img.Cols()) / 2, float64(img.Rows()) / 2, nil
}

// ScaledSize returns the dimensions of a width x height image rescaled to
// factor percent. Fractional pixels are truncated.
func ScaledSize(width, height, factor int) (int, int) {
	return width * factor / 100, height * factor / 100
}

// Rescale resizes the image to factor percent of its original size using
// area interpolation. The factor is validated before the source is opened.
func Rescale(src Source, factor int) (*gocv.Mat, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRescaleFactor, factor)
	}

	img, err := Open(src)
	if err != nil {
		return nil, err
	}

	if factor == 100 {
		return img, nil
	}
	defer img.Close()

	return resize(img, factor)
}

// RescaleInPlace replaces the contents of img with a copy rescaled to factor percent.
func RescaleInPlace(img *gocv.Mat, factor int) error {
	if factor <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRescaleFactor, factor)
	}
	if img == nil || img.Empty() {
		return ErrImageNotExists
	}
	if factor == 100 {
		return nil
	}

	resized, err := resize(img, factor)
	if err != nil {
		return err
	}
	defer resized.Close()

	resized.CopyTo(img)
	return nil
}

func resize(img *gocv.Mat, factor int) (*gocv.Mat, error) {
	width, height := ScaledSize(img.Cols(), img.Rows(), factor)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d%% of %dx%d is an empty image",
			ErrInvalidRescaleFactor, factor, img.Cols(), img.Rows())
	}

	dst := gocv.NewMat()
	gocv.Resize(*img, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	return &dst, nil
}

// Mirror flips the image horizontally. When destination is not empty the
// mirrored image is also written there, the codec being chosen from the
// file extension.
func Mirror(src Source, destination string) (*gocv.Mat, error) {
	img, err := Open(src)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	mirrored := gocv.NewMat()
	gocv.Flip(*img, &mirrored, flipAroundYAxis)

	if destination != "" {
		if err := Save(destination, &mirrored); err != nil {
			mirrored.Close()
			return nil, err
		}
	}

	return &mirrored, nil
}

// Save encodes img to path.
func Save(path string, img *gocv.Mat) error {
	if img == nil || img.Empty() {
		return ErrImageNotExists
	}
	if ok := gocv.IMWrite(path, *img); !ok {
		return fmt.Errorf("%w: %q", ErrWriteFailed, path)
	}
	return nil
}
