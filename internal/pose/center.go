package pose

import "gonum.org/v1/gonum/stat"

// CenterOfMass returns the mean x and y over all points with confidence above
// threshold. ok is false when no point is visible.
func (p *Pose) CenterOfMass(threshold float64) (x, y float64, ok bool) {
	b := p.Body
	if b.dims < 2 {
		return 0, 0, false
	}

	var xs, ys []float64
	for i, c := range b.conf {
		if !Visible(c, threshold) {
			continue
		}
		xs = append(xs, b.data[i*b.dims])
		ys = append(ys, b.data[i*b.dims+1])
	}
	if len(xs) == 0 {
		return 0, 0, false
	}

	return stat.Mean(xs, nil), stat.Mean(ys, nil), true
}

// CenterOnCanvas translates every point so the center of mass of visible
// points lands on the canvas center, shifted vertically by offsetY (negative
// moves up). It reports whether a translation was applied.
func (p *Pose) CenterOnCanvas(threshold, offsetY float64) bool {
	cx, cy, ok := p.CenterOfMass(threshold)
	if !ok {
		return false
	}

	dx := float64(p.Header.Dimensions.Width)/2 - cx
	dy := float64(p.Header.Dimensions.Height)/2 - cy + offsetY

	b := p.Body
	for i := 0; i < len(b.conf); i++ {
		b.data[i*b.dims] += dx
		b.data[i*b.dims+1] += dy
	}
	return true
}
