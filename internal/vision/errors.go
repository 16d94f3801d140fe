package vision

import "errors"

// Input validation errors. Callers match them with errors.Is; the returned
// errors wrap these with the offending path or index.
var (
	// ErrInvalidImagePath is returned when a path does not point to a readable image.
	ErrInvalidImagePath = errors.New("path does not point to a readable image")

	// ErrImageNotExists is returned for a nil source or an empty matrix.
	ErrImageNotExists = errors.New("image does not exist")

	// ErrInvalidVideoPath is returned when a video file cannot be opened.
	ErrInvalidVideoPath = errors.New("path does not point to a readable video")

	// ErrInvalidCameraIndex is returned when no camera exists at the given index.
	ErrInvalidCameraIndex = errors.New("camera index is incorrect")

	// ErrInvalidRescaleFactor is returned for a rescale percentage that is not positive.
	ErrInvalidRescaleFactor = errors.New("rescale factor must be a positive integer")

	// ErrWriteFailed is returned when an image could not be encoded to disk.
	ErrWriteFailed = errors.New("failed to write image")
)
