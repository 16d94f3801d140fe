// Package config loads the posekit YAML configuration file.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/posekit/internal/annotate"
	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/overlay"
)

// DrawingStyle is the YAML form of an overlay.DrawingSpec. Colors are hex
// strings such as "#32ff00" in RGB order.
type DrawingStyle struct {
	Color     string `yaml:"color"`
	Thickness int    `yaml:"thickness"`
	Radius    int    `yaml:"radius"`
}

// StyleConfig holds the landmark and connection drawing styles.
type StyleConfig struct {
	Landmark   DrawingStyle `yaml:"landmark"`
	Connection DrawingStyle `yaml:"connection"`
}

// ServerConfig configures the live preview server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"staticDir"`
	// Source is a camera index or video path for the preview.
	Source          string  `yaml:"source"`
	MotionThreshold float64 `yaml:"motionThreshold"`
}

// Config is the top level configuration.
type Config struct {
	Detector landmark.Config `yaml:"detector"`
	Rescale  int             `yaml:"rescale"`
	Style    StyleConfig     `yaml:"style"`
	// Database is the SQLite file runs are recorded to. Empty disables recording.
	Database string       `yaml:"database"`
	Server   ServerConfig `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Detector: landmark.DefaultConfig(),
		Rescale:  100,
		Style: StyleConfig{
			Landmark:   fromSpec(overlay.DefaultLandmarkSpec()),
			Connection: fromSpec(overlay.DefaultConnectionSpec()),
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			Source:          "0",
			MotionThreshold: 1.0,
		},
	}
}

// DefaultDatabasePath returns ~/.posekit/posekit.db.
func DefaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".posekit", "posekit.db"), nil
}

// Load reads the YAML file at configPath. Keys missing from the file keep
// their default values.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if c.Rescale <= 0 {
		return fmt.Errorf("rescale must be positive, got %d", c.Rescale)
	}
	if _, err := c.Styles(); err != nil {
		return err
	}
	if c.Server.MotionThreshold < 0 || c.Server.MotionThreshold > 100 {
		return fmt.Errorf("server motion threshold %v out of range [0, 100]", c.Server.MotionThreshold)
	}
	return nil
}

// Styles converts the style section to overlay styles.
func (c *Config) Styles() (overlay.Styles, error) {
	lm, err := c.Style.Landmark.spec()
	if err != nil {
		return overlay.Styles{}, fmt.Errorf("landmark style: %w", err)
	}
	conn, err := c.Style.Connection.spec()
	if err != nil {
		return overlay.Styles{}, fmt.Errorf("connection style: %w", err)
	}
	return overlay.Styles{Landmark: lm, Connection: conn}, nil
}

// Options returns the annotate options described by the configuration.
func (c *Config) Options() (annotate.Options, error) {
	styles, err := c.Styles()
	if err != nil {
		return annotate.Options{}, err
	}
	return annotate.Options{Rescale: c.Rescale, Styles: styles}, nil
}

// DetectorConfig returns the landmark detector settings.
func (c *Config) DetectorConfig() landmark.Config {
	return c.Detector
}

func (s DrawingStyle) spec() (overlay.DrawingSpec, error) {
	col, err := colorful.Hex(s.Color)
	if err != nil {
		return overlay.DrawingSpec{}, fmt.Errorf("invalid color %q: %w", s.Color, err)
	}
	if s.Thickness <= 0 {
		return overlay.DrawingSpec{}, fmt.Errorf("thickness must be positive, got %d", s.Thickness)
	}
	if s.Radius < 0 {
		return overlay.DrawingSpec{}, fmt.Errorf("radius must not be negative, got %d", s.Radius)
	}

	r, g, b := col.RGB255()
	return overlay.DrawingSpec{
		Color:        color.RGBA{R: r, G: g, B: b, A: 255},
		Thickness:    s.Thickness,
		CircleRadius: s.Radius,
	}, nil
}

func fromSpec(spec overlay.DrawingSpec) DrawingStyle {
	col, _ := colorful.MakeColor(spec.Color)
	return DrawingStyle{
		Color:     col.Hex(),
		Thickness: spec.Thickness,
		Radius:    spec.CircleRadius,
	}
}
