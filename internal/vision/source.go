// Package vision opens images from files or memory and applies the simple
// geometric transforms used by posekit: centre, rescale and mirror.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Source is an image given either as a file path or as in-memory pixel data.
// A nil Source means no image at all.
type Source interface {
	open() (*gocv.Mat, error)
	String() string
}

type pathSource string

// PathSource returns a Source that decodes the image stored at path.
func PathSource(path string) Source {
	return pathSource(path)
}

func (p pathSource) open() (*gocv.Mat, error) {
	img := gocv.IMRead(string(p), gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: %q", ErrInvalidImagePath, string(p))
	}
	return &img, nil
}

func (p pathSource) String() string { return string(p) }

type matSource struct {
	mat *gocv.Mat
}

// MatSource returns a Source backed by an already decoded matrix.
// The matrix is cloned on open, so the caller keeps ownership of m.
func MatSource(m *gocv.Mat) Source {
	return matSource{mat: m}
}

func (s matSource) open() (*gocv.Mat, error) {
	if s.mat == nil || s.mat.Empty() {
		return nil, ErrImageNotExists
	}
	img := s.mat.Clone()
	return &img, nil
}

func (s matSource) String() string {
	if s.mat == nil {
		return "<nil mat>"
	}
	return fmt.Sprintf("<mat %dx%d>", s.mat.Cols(), s.mat.Rows())
}

type goImageSource struct {
	img image.Image
}

// ImageSource returns a Source backed by a decoded Go image.
func ImageSource(img image.Image) Source {
	return goImageSource{img: img}
}

func (s goImageSource) open() (*gocv.Mat, error) {
	if s.img == nil || s.img.Bounds().Empty() {
		return nil, ErrImageNotExists
	}
	img, err := gocv.ImageToMatRGB(s.img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	return &img, nil
}

func (s goImageSource) String() string {
	if s.img == nil {
		return "<nil image>"
	}
	b := s.img.Bounds()
	return fmt.Sprintf("<image %dx%d>", b.Dx(), b.Dy())
}

// Open validates src and returns its pixels as a BGR matrix.
// The returned Mat is always a new matrix; the caller is responsible for closing it.
func Open(src Source) (*gocv.Mat, error) {
	if src == nil {
		return nil, ErrImageNotExists
	}
	return src.open()
}
