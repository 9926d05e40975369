// Package detector runs object detection on camera frames.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detection is one labelled bounding box in image pixels.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns every detection, unfiltered.
	// Returns an empty slice if nothing is detected.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Ready reports whether the model backend can serve requests.
	Ready() bool

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the detection service.
type Config struct {
	// Command overrides the service executable. When empty the bundled
	// Python script is located and run with the project's virtualenv.
	Command string `mapstructure:"command"`

	// Args are passed to Command.
	Args []string `mapstructure:"args"`

	// ModelPath is forwarded to the service as STRIKEZONE_MODEL.
	ModelPath string `mapstructure:"modelPath"`

	// IdleTimeoutSec stops the service after this many idle seconds.
	IdleTimeoutSec int `mapstructure:"idleTimeoutSec"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		IdleTimeoutSec: 30,
	}
}
