package render

import (
	"image"
	"image/color"

	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/pose"
)

// Segment is one edge to draw. A and B are absolute point indices.
type Segment struct {
	A, B     int
	From, To image.Point
	Color    color.RGBA
}

// Joint is one visible point to draw.
type Joint struct {
	Index int
	At    image.Point
	Color color.RGBA
}

// Segments returns the visible limbs of every component except FACE for
// person 0 of frame.
func (r *Renderer) Segments(p *pose.Pose, frame int) []Segment {
	b := p.Body
	if b.Dims() < 2 || b.People() == 0 {
		return nil
	}

	var out []Segment
	start := 0
	for _, c := range p.Header.Components {
		if c.Name != face.ComponentName {
			for _, l := range c.Limbs {
				a, z := start+l[0], start+l[1]
				if !r.visible(b, frame, a) || !r.visible(b, frame, z) {
					continue
				}
				out = append(out, Segment{
					A: a, B: z,
					From:  toPoint(b.At(frame, 0, a, 0), b.At(frame, 0, a, 1)),
					To:    toPoint(b.At(frame, 0, z, 0), b.At(frame, 0, z, 1)),
					Color: limbColor(c, l),
				})
			}
		}
		start += len(c.Points)
	}
	return out
}

// Points returns the visible joints of every component except FACE for
// person 0 of frame.
func (r *Renderer) Points(p *pose.Pose, frame int) []Joint {
	b := p.Body
	if b.Dims() < 2 || b.People() == 0 {
		return nil
	}

	var out []Joint
	start := 0
	for _, c := range p.Header.Components {
		if c.Name != face.ComponentName {
			for i := range c.Points {
				idx := start + i
				if !r.visible(b, frame, idx) {
					continue
				}
				clr := color.RGBA{R: 255, G: 255, B: 255, A: 255}
				if i < len(c.Colors) {
					clr = c.Colors[i]
				}
				out = append(out, Joint{
					Index: idx,
					At:    toPoint(b.At(frame, 0, idx, 0), b.At(frame, 0, idx, 1)),
					Color: clr,
				})
			}
		}
		start += len(c.Points)
	}
	return out
}

// FaceSegments returns the facial edges of person 0 of frame. Closed groups
// include the edge from their last point back to the first. An edge is
// dropped when either endpoint's confidence is at or below the threshold.
// It returns nil when the pose has no FACE component.
func (r *Renderer) FaceSegments(p *pose.Pose, frame int) []Segment {
	start, err := p.Header.StartIndex(face.ComponentName)
	if err != nil {
		return nil
	}
	b := p.Body
	if b.Dims() < 2 || b.People() == 0 {
		return nil
	}

	sx, sy := 1.0, 1.0
	if r.config.FaceSpace == NormalizedSpace {
		sx = float64(p.Header.Dimensions.Width)
		sy = float64(p.Header.Dimensions.Height)
	}
	at := func(idx int) image.Point {
		return toPoint(b.At(frame, 0, idx, 0)*sx, b.At(frame, 0, idx, 1)*sy)
	}

	var out []Segment
	for _, g := range face.Groups() {
		for _, e := range g.Edges() {
			a, z := start+e[0], start+e[1]
			if !r.visible(b, frame, a) || !r.visible(b, frame, z) {
				continue
			}
			out = append(out, Segment{A: a, B: z, From: at(a), To: at(z), Color: r.config.FaceColor})
		}
	}
	return out
}

func (r *Renderer) visible(b *pose.Body, frame, idx int) bool {
	return pose.Visible(b.Confidence(frame, 0, idx), r.config.Threshold)
}

// limbColor picks the color of the limb's first point, or white.
func limbColor(c *pose.Component, l [2]int) color.RGBA {
	if l[0] < len(c.Colors) {
		return c.Colors[l[0]]
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
