package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// DefaultTimeout bounds one Detect round trip to the helper process.
const DefaultTimeout = 5 * time.Second

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame and returns detected hand landmarks,
	// most confident hand first. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Script is the path to the landmark helper. Searched for when empty.
	Script string

	// Python is the interpreter used to run Script. Searched for when empty.
	Python string

	// Timeout bounds how long Detect waits for a reply. Zero waits forever.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the thresholds the LED controller was tuned with.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
		Timeout:         DefaultTimeout,
	}
}
