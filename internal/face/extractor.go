package face

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/islpose/internal/detector"
)

// Extractor converts face mesh detections into facial landmarks. The
// detector handle is owned by the caller.
type Extractor struct {
	detector detector.Detector
}

// NewExtractor creates an Extractor around a detector handle.
func NewExtractor(d detector.Detector) *Extractor {
	return &Extractor{detector: d}
}

// Extract returns the landmarks of the first face in the frame, or
// ErrDetectionUnavailable if none was found.
func (e *Extractor) Extract(frame *gocv.Mat) (*Landmarks, error) {
	faces, err := e.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrDetectionUnavailable
	}
	return FromMesh(&faces[0])
}

// ExtractAverage extracts landmarks from each frame and averages the frames
// that had a face. It returns ErrDetectionUnavailable only when no frame did.
func (e *Extractor) ExtractAverage(frames []*gocv.Mat) (*Landmarks, error) {
	var samples []*Landmarks
	for i, frame := range frames {
		lm, err := e.Extract(frame)
		if errors.Is(err, ErrDetectionUnavailable) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		samples = append(samples, lm)
	}
	return AverageLandmarks(samples)
}
