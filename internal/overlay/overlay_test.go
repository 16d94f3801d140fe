package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/landmark"
)

func blank(t *testing.T, rows, cols int) *gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { img.Close() })
	return &img
}

func isBlank(img *gocv.Mat) bool {
	for _, b := range img.ToBytes() {
		if b != 0 {
			return false
		}
	}
	return true
}

// bgr returns the pixel at (x, y) as an RGBA colour.
func bgr(img *gocv.Mat, x, y int) color.RGBA {
	v := img.GetVecbAt(y, x)
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 255}
}

func filledSpec(c color.RGBA, radius int) DrawingSpec {
	return DrawingSpec{Color: c, Thickness: -1, CircleRadius: radius}
}

func visibility(v float64) *float64 { return &v }

func TestToPixel(t *testing.T) {
	tests := []struct {
		name   string
		x, y   float64
		want   image.Point
		wantOK bool
	}{
		{name: "origin", x: 0, y: 0, want: image.Pt(0, 0), wantOK: true},
		{name: "centre", x: 0.5, y: 0.5, want: image.Pt(50, 25), wantOK: true},
		{name: "far corner clamps", x: 1, y: 1, want: image.Pt(99, 49), wantOK: true},
		{name: "left of image", x: -0.1, y: 0.5, wantOK: false},
		{name: "below image", x: 0.5, y: 1.2, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toPixel(tt.x, tt.y, 100, 50)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDraw_Landmarks(t *testing.T) {
	img := blank(t, 100, 100)
	red := color.RGBA{R: 255, A: 255}

	Draw(img, []landmark.Landmark{{X: 0.5, Y: 0.5}}, nil, filledSpec(red, 3), DefaultConnectionSpec())

	assert.Equal(t, red, bgr(img, 50, 50))
	// The border ring is white.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, bgr(img, 54, 50))
	assert.Equal(t, color.RGBA{A: 255}, bgr(img, 10, 10))
}

func TestDraw_Connections(t *testing.T) {
	img := blank(t, 100, 100)
	green := color.RGBA{G: 255, A: 255}

	landmarks := []landmark.Landmark{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}}
	connections := []landmark.Connection{{Start: 0, End: 1}}

	Draw(img, landmarks, connections, filledSpec(color.RGBA{B: 255, A: 255}, 1), DrawingSpec{Color: green, Thickness: 1})

	assert.Equal(t, green, bgr(img, 50, 50))
}

func TestDraw_SkipsHiddenAndOutside(t *testing.T) {
	img := blank(t, 100, 100)
	red := color.RGBA{R: 255, A: 255}

	landmarks := []landmark.Landmark{
		{X: 0.2, Y: 0.2, Visibility: visibility(0.1)},
		{X: 1.5, Y: 0.5},
		{X: 0.8, Y: 0.8, Visibility: visibility(0.2)},
	}
	connections := []landmark.Connection{{Start: 0, End: 1}, {Start: 0, End: 2}, {Start: 5, End: 6}}

	Draw(img, landmarks, connections, filledSpec(red, 2), DefaultConnectionSpec())

	assert.True(t, isBlank(img), "nothing should be drawn")
}

func TestDraw_NoOps(t *testing.T) {
	// None of these should panic.
	Draw(nil, []landmark.Landmark{{X: 0.5, Y: 0.5}}, nil, DefaultLandmarkSpec(), DefaultConnectionSpec())

	empty := gocv.NewMat()
	defer empty.Close()
	Draw(&empty, []landmark.Landmark{{X: 0.5, Y: 0.5}}, nil, DefaultLandmarkSpec(), DefaultConnectionSpec())

	img := blank(t, 10, 10)
	Draw(img, nil, landmark.HandConnections, DefaultLandmarkSpec(), DefaultConnectionSpec())
	assert.True(t, isBlank(img))
}

func TestAnnotate(t *testing.T) {
	t.Run("draws pose and hands", func(t *testing.T) {
		img := blank(t, 240, 320)

		drawn := Annotate(img, landmark.RaisedHands(), DefaultStyles())

		assert.True(t, drawn)
		assert.False(t, isBlank(img))
	})

	t.Run("hands without pose are not drawn", func(t *testing.T) {
		img := blank(t, 240, 320)
		result := landmark.RaisedHands()
		result.Pose = nil

		drawn := Annotate(img, result, DefaultStyles())

		assert.False(t, drawn)
		assert.True(t, isBlank(img))
	})

	t.Run("nil result", func(t *testing.T) {
		img := blank(t, 24, 32)
		assert.False(t, Annotate(img, nil, DefaultStyles()))
		assert.True(t, isBlank(img))
	})
}

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles()

	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, styles.Landmark.Color)
	assert.Equal(t, color.RGBA{R: 50, G: 255, B: 0, A: 255}, styles.Connection.Color)
	assert.Equal(t, 1, styles.Landmark.Thickness)
	assert.Equal(t, 1, styles.Connection.CircleRadius)
}
