package detector

import "gocv.io/x/gocv"

// Detector defines the interface for face mesh detection implementations.
// A Detector is constructed once by the host and passed to whatever needs it.
type Detector interface {
	// Detect analyzes a video frame and returns detected face meshes.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]FaceMesh, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face mesh detection.
type Config struct {
	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// StaticImageMode treats every frame as unrelated when true.
	StaticImageMode bool

	// ScriptPath overrides the location of the MediaPipe service script.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
