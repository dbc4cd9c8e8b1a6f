// Package camera captures webcam frames with OpenCV and hands them to a
// pose estimator.
package camera

import "fmt"

// Config holds the capture settings.
type Config struct {
	Device    int  `json:"device"`    // OpenCV device index
	Width     int  `json:"width"`     // Frame width in pixels
	Height    int  `json:"height"`    // Frame height in pixels
	Framerate int  `json:"framerate"` // Requested FPS
	Quality   int  `json:"quality"`   // JPEG quality 1-100
	Mirror    bool `json:"mirror"`    // Flip horizontally, like a mirror
}

// Capture limits.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 3840
	MaxHeight = 2160
)

// DefaultConfig returns the 640x480 mirrored webcam configuration.
func DefaultConfig() Config {
	return Config{
		Device:    0,
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   85,
		Mirror:    true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	return errors
}
