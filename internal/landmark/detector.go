package landmark

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for holistic landmark detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame and returns the detected landmarks.
	// Parts that were not found are left nil in the result.
	Detect(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for holistic detection.
type Config struct {
	// MinDetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConfidence float64 `yaml:"minDetectionConfidence"`

	// MinTrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConfidence float64 `yaml:"minTrackingConfidence"`

	// ModelComplexity selects the pose model: 0 (lite), 1 (full) or 2 (heavy).
	ModelComplexity int `yaml:"modelComplexity"`

	// StaticImageMode treats every frame as unrelated, disabling tracking.
	StaticImageMode bool `yaml:"staticImageMode"`

	// ScriptPath overrides the location of holistic_service.py.
	ScriptPath string `yaml:"scriptPath"`

	// Python overrides the interpreter used to run the service.
	Python string `yaml:"python"`

	// IdleTimeout stops the service after this long without a request.
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		ModelComplexity:        1,
		IdleTimeout:            30 * time.Second,
	}
}

// Validate checks that thresholds and model settings are in range.
func (c Config) Validate() error {
	if c.MinDetectionConfidence < 0 || c.MinDetectionConfidence > 1 {
		return fmt.Errorf("min detection confidence %v out of range [0, 1]", c.MinDetectionConfidence)
	}
	if c.MinTrackingConfidence < 0 || c.MinTrackingConfidence > 1 {
		return fmt.Errorf("min tracking confidence %v out of range [0, 1]", c.MinTrackingConfidence)
	}
	if c.ModelComplexity < 0 || c.ModelComplexity > 2 {
		return fmt.Errorf("model complexity %d out of range [0, 2]", c.ModelComplexity)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative")
	}
	return nil
}
