// Package render rasterizes pose frames with gocv. Body components are drawn
// first and the FACE component is layered on top in its own color.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/ayusman/islpose/internal/pose"
)

// ErrEmptyCanvas is returned when the pose header has no usable dimensions.
var ErrEmptyCanvas = errors.New("pose has no canvas dimensions")

// Space is the coordinate space facial points are stored in.
type Space int

const (
	// PixelSpace treats coordinates as canvas pixels.
	PixelSpace Space = iota
	// NormalizedSpace treats coordinates as fractions of the canvas size.
	NormalizedSpace
)

// Config holds renderer settings.
type Config struct {
	Thickness       int
	PointRadius     int
	ComponentColors bool // use header colors instead of ConnectionColor/PointColor
	ConnectionColor color.RGBA
	PointColor      color.RGBA
	FaceColor       color.RGBA
	FaceThickness   int
	Threshold       float64
	Background      color.RGBA
	FaceSpace       Space
}

// DefaultConfig returns white limbs, red joints and a green 1px face on black.
// Facial points are read as fractions of the canvas, as the expression
// synthesizer writes them.
func DefaultConfig() Config {
	return Config{
		Thickness:       3,
		PointRadius:     2,
		ConnectionColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		PointColor:      color.RGBA{R: 255, A: 255},
		FaceColor:       color.RGBA{G: 255, A: 255},
		FaceThickness:   1,
		Threshold:       pose.VisibilityThreshold,
		Background:      color.RGBA{A: 255},
		FaceSpace:       NormalizedSpace,
	}
}

// Renderer draws pose frames.
type Renderer struct {
	config Config
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	return &Renderer{config: cfg}
}

// DrawFrame renders person 0 of the given frame onto a new canvas sized by
// the pose header. The caller owns the returned Mat.
func (r *Renderer) DrawFrame(p *pose.Pose, frame int) (gocv.Mat, error) {
	w, h := p.Header.Dimensions.Width, p.Header.Dimensions.Height
	if w <= 0 || h <= 0 {
		return gocv.NewMat(), ErrEmptyCanvas
	}
	if frame < 0 || frame >= p.Body.Frames() {
		return gocv.NewMat(), fmt.Errorf("frame %d out of range [0, %d)", frame, p.Body.Frames())
	}

	bg := r.config.Background
	img := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0),
		h, w, gocv.MatTypeCV8UC3)

	r.drawBody(&img, p, frame)
	r.DrawFace(&img, p, frame)

	return img, nil
}

func (r *Renderer) drawBody(img *gocv.Mat, p *pose.Pose, frame int) {
	for _, s := range r.Segments(p, frame) {
		clr := r.config.ConnectionColor
		if r.config.ComponentColors {
			clr = s.Color
		}
		gocv.Line(img, s.From, s.To, clr, r.config.Thickness)
	}

	if r.config.PointRadius <= 0 {
		return
	}
	for _, pt := range r.Points(p, frame) {
		clr := r.config.PointColor
		if r.config.ComponentColors {
			clr = pt.Color
		}
		gocv.Circle(img, pt.At, r.config.PointRadius, clr, -1)
	}
}

// DrawFace overlays the FACE component of person 0. It is a no-op when the
// pose has no FACE component.
func (r *Renderer) DrawFace(img *gocv.Mat, p *pose.Pose, frame int) {
	for _, s := range r.FaceSegments(p, frame) {
		gocv.Line(img, s.From, s.To, r.config.FaceColor, r.config.FaceThickness)
	}
}

// DrawAll renders every frame in order and passes it to fn. The Mat is
// closed after fn returns, so fn must copy anything it keeps.
func (r *Renderer) DrawAll(p *pose.Pose, fn func(frame int, img *gocv.Mat) error) error {
	for f := 0; f < p.Body.Frames(); f++ {
		img, err := r.DrawFrame(p, f)
		if err != nil {
			img.Close()
			return err
		}
		err = fn(f, &img)
		img.Close()
		if err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
	}
	return nil
}

// WriteFrames writes every frame as frame_NNNN.png into dir and returns the
// number of files written.
func (r *Renderer) WriteFrames(p *pose.Pose, dir string) (int, error) {
	written := 0
	err := r.DrawAll(p, func(frame int, img *gocv.Mat) error {
		name := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", frame))
		if ok := gocv.IMWrite(name, *img); !ok {
			return fmt.Errorf("failed to write %s", name)
		}
		written++
		return nil
	})
	return written, err
}

func toPoint(x, y float64) image.Point {
	return image.Pt(int(x), int(y))
}
