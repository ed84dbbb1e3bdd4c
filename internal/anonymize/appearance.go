package anonymize

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/islpose/internal/pose"
)

// Transfer moves p onto the appearance of reference: every point's temporal
// mean in p is replaced by its temporal mean in reference, keeping the motion
// around it. Points never visible in either pose are left unchanged. Both
// poses must share the same point layout and channels.
func Transfer(p, reference *pose.Pose, threshold float64) (*pose.Pose, error) {
	if p.Header.TotalPoints() != reference.Header.TotalPoints() || p.Body.Dims() != reference.Body.Dims() {
		return nil, fmt.Errorf("%w: pose has %d points x %d channels, reference %d x %d",
			pose.ErrStructuralMismatch,
			p.Header.TotalPoints(), p.Body.Dims(),
			reference.Header.TotalPoints(), reference.Body.Dims())
	}

	src, srcOK := TemporalMean(p, threshold)
	dst, dstOK := TemporalMean(reference, threshold)

	out := p.Clone()
	b := out.Body
	frames, people, points, dims := b.Shape()
	for pt := 0; pt < points; pt++ {
		if !srcOK[pt] || !dstOK[pt] {
			continue
		}
		for f := 0; f < frames; f++ {
			for person := 0; person < people; person++ {
				for ch := 0; ch < dims; ch++ {
					b.Set(f, person, pt, ch, b.At(f, person, pt, ch)-src[pt][ch]+dst[pt][ch])
				}
			}
		}
	}
	return out, nil
}

// TemporalMean returns the mean of each point's channels over all frames and
// people where it is visible. ok[i] is false when point i is never visible.
func TemporalMean(p *pose.Pose, threshold float64) (means [][]float64, ok []bool) {
	b := p.Body
	frames, people, points, dims := b.Shape()

	means = make([][]float64, points)
	ok = make([]bool, points)
	samples := make([]float64, 0, frames*people)
	for pt := 0; pt < points; pt++ {
		means[pt] = make([]float64, dims)
		for ch := 0; ch < dims; ch++ {
			samples = samples[:0]
			for f := 0; f < frames; f++ {
				for person := 0; person < people; person++ {
					if pose.Visible(b.Confidence(f, person, pt), threshold) {
						samples = append(samples, b.At(f, person, pt, ch))
					}
				}
			}
			if len(samples) == 0 {
				break
			}
			means[pt][ch] = stat.Mean(samples, nil)
			ok[pt] = true
		}
	}
	return means, ok
}
