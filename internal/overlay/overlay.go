// Package overlay draws landmark lists and their connections onto images.
package overlay

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/posekit/internal/landmark"
)

// VisibilityThreshold is the minimum visibility for a landmark to be drawn.
// Landmarks without a visibility value are always drawn.
const VisibilityThreshold = 0.5

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// DrawingSpec controls how landmarks or connections are rendered.
type DrawingSpec struct {
	Color        color.RGBA
	Thickness    int
	CircleRadius int
}

// DefaultLandmarkSpec returns the style used for landmark points.
func DefaultLandmarkSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 0, G: 0, B: 255, A: 255}, Thickness: 1, CircleRadius: 1}
}

// DefaultConnectionSpec returns the style used for lines between landmarks.
func DefaultConnectionSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 50, G: 255, B: 0, A: 255}, Thickness: 1, CircleRadius: 1}
}

// Styles pairs the landmark and connection drawing specs.
type Styles struct {
	Landmark   DrawingSpec
	Connection DrawingSpec
}

// DefaultStyles returns the default landmark and connection specs.
func DefaultStyles() Styles {
	return Styles{
		Landmark:   DefaultLandmarkSpec(),
		Connection: DefaultConnectionSpec(),
	}
}

// toPixel converts normalized coordinates to a pixel position.
// It returns false when the point lies outside the image.
func toPixel(x, y float64, width, height int) (image.Point, bool) {
	inside := func(v float64) bool {
		return (v > 0 || nearly(v, 0)) && (v < 1 || nearly(v, 1))
	}
	if !inside(x) || !inside(y) {
		return image.Point{}, false
	}

	px := int(math.Floor(x * float64(width)))
	py := int(math.Floor(y * float64(height)))
	return image.Pt(min(px, width-1), min(py, height-1)), true
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// Draw renders landmarks onto img. Connections are drawn first as lines,
// then every landmark as a white-bordered circle. Landmarks outside the image
// or below VisibilityThreshold are skipped, as are connections touching them.
func Draw(img *gocv.Mat, landmarks []landmark.Landmark, connections []landmark.Connection, landmarkSpec, connectionSpec DrawingSpec) {
	if img == nil || img.Empty() || len(landmarks) == 0 {
		return
	}

	width, height := img.Cols(), img.Rows()

	points := make(map[int]image.Point, len(landmarks))
	for i, lm := range landmarks {
		if lm.Visibility != nil && *lm.Visibility < VisibilityThreshold {
			continue
		}
		if pt, ok := toPixel(lm.X, lm.Y, width, height); ok {
			points[i] = pt
		}
	}

	for _, c := range connections {
		start, okStart := points[c.Start]
		end, okEnd := points[c.End]
		if okStart && okEnd {
			gocv.Line(img, start, end, connectionSpec.Color, connectionSpec.Thickness)
		}
	}

	border := max(landmarkSpec.CircleRadius+1, int(float64(landmarkSpec.CircleRadius)*1.2))
	for i := range landmarks {
		pt, ok := points[i]
		if !ok {
			continue
		}
		gocv.Circle(img, pt, border, white, landmarkSpec.Thickness)
		gocv.Circle(img, pt, landmarkSpec.CircleRadius, landmarkSpec.Color, landmarkSpec.Thickness)
	}
}

// Annotate draws a holistic result onto img. Hands are only drawn when a
// body pose was detected.
func Annotate(img *gocv.Mat, result *landmark.Result, styles Styles) bool {
	if !result.HasPose() {
		return false
	}

	Draw(img, result.Pose, landmark.PoseConnections, styles.Landmark, styles.Connection)
	Draw(img, result.LeftHand, landmark.HandConnections, styles.Landmark, styles.Connection)
	Draw(img, result.RightHand, landmark.HandConnections, styles.Landmark, styles.Connection)
	return true
}
