package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ayusman/islpose/internal/capture"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

// Extract runs face detection over the images in paths, stores one sample
// per frame with a face under signer and returns their average. Frames
// without a face are skipped. Earlier samples for signer are replaced.
func (a *App) Extract(signer string, paths ...string) (*face.Landmarks, error) {
	if signer == "" {
		return nil, errors.New("signer is required")
	}

	frames, err := capture.ReadAll(capture.NewFileSource(paths...))
	if err != nil {
		return nil, err
	}
	defer capture.CloseAll(frames)

	extractor := face.NewExtractor(a.Detector())

	var samples []*face.Landmarks
	var raw []json.RawMessage
	for i, frame := range frames {
		lm, err := extractor.Extract(frame)
		if errors.Is(err, face.ErrDetectionUnavailable) {
			log.Printf("No face in %s, skipping", paths[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}

		data, err := json.Marshal(lm)
		if err != nil {
			return nil, err
		}
		samples = append(samples, lm)
		raw = append(raw, data)
	}

	avg, err := face.AverageLandmarks(samples)
	if err != nil {
		return nil, err
	}
	if err := a.store.Landmarks().Replace(signer, raw); err != nil {
		return nil, fmt.Errorf("failed to store landmarks: %w", err)
	}

	log.Printf("Stored %d of %d frames for %s", len(samples), len(frames), signer)
	return avg, nil
}

// WritePose writes p to path in the .pose format.
func WritePose(p *pose.Pose, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadPose reads a .pose file.
func ReadPose(path string) (*pose.Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return pose.Read(f)
}

// RenderFrames draws every frame of p as a PNG into dir, creating it if
// needed, and returns the number of frames written. With centering enabled
// a centered copy of p is drawn.
func (a *App) RenderFrames(p *pose.Pose, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	rc := a.config.Render
	if rc.Center {
		p = p.Clone()
		if !p.CenterOnCanvas(rc.Threshold, rc.CenterOffsetY) {
			log.Println("No visible points, skipping centering")
		}
	}
	return a.renderer.WriteFrames(p, dir)
}
