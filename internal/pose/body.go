package pose

import "fmt"

// Body holds the coordinates and confidences of a pose. Both arrays are
// stored flat in row-major order: data is [frame][person][point][channel] and
// confidence is [frame][person][point].
type Body struct {
	FPS float64

	frames int
	people int
	points int
	dims   int

	data []float64
	conf []float64
}

// NewBody allocates a zeroed body with the given shape.
func NewBody(fps float64, frames, people, points, dims int) *Body {
	return &Body{
		FPS:    fps,
		frames: frames,
		people: people,
		points: points,
		dims:   dims,
		data:   make([]float64, frames*people*points*dims),
		conf:   make([]float64, frames*people*points),
	}
}

// NewBodyFromSlices builds a body over existing flat arrays. The slices are
// used as-is and must match the shape.
func NewBodyFromSlices(fps float64, frames, people, points, dims int, data, conf []float64) (*Body, error) {
	if len(data) != frames*people*points*dims {
		return nil, fmt.Errorf("%w: data length %d, want %d", ErrStructuralMismatch, len(data), frames*people*points*dims)
	}
	if len(conf) != frames*people*points {
		return nil, fmt.Errorf("%w: confidence length %d, want %d", ErrStructuralMismatch, len(conf), frames*people*points)
	}
	return &Body{
		FPS:    fps,
		frames: frames,
		people: people,
		points: points,
		dims:   dims,
		data:   data,
		conf:   conf,
	}, nil
}

// Shape returns the data shape (frames, people, points, dims).
func (b *Body) Shape() (frames, people, points, dims int) {
	return b.frames, b.people, b.points, b.dims
}

// DataShape returns the 4-dimensional data shape.
func (b *Body) DataShape() [4]int {
	return [4]int{b.frames, b.people, b.points, b.dims}
}

// ConfidenceShape returns the 3-dimensional confidence shape.
func (b *Body) ConfidenceShape() [3]int {
	return [3]int{b.frames, b.people, b.points}
}

// Frames returns the number of frames.
func (b *Body) Frames() int { return b.frames }

// People returns the number of people.
func (b *Body) People() int { return b.people }

// Points returns the size of the point axis.
func (b *Body) Points() int { return b.points }

// Dims returns the number of coordinate channels.
func (b *Body) Dims() int { return b.dims }

func (b *Body) confOffset(frame, person, point int) int {
	return (frame*b.people+person)*b.points + point
}

func (b *Body) dataOffset(frame, person, point int) int {
	return b.confOffset(frame, person, point) * b.dims
}

// At returns one coordinate channel of a point.
func (b *Body) At(frame, person, point, channel int) float64 {
	return b.data[b.dataOffset(frame, person, point)+channel]
}

// Set writes one coordinate channel of a point.
func (b *Body) Set(frame, person, point, channel int, v float64) {
	b.data[b.dataOffset(frame, person, point)+channel] = v
}

// Point returns the coordinate channels of a point. The returned slice
// aliases the body.
func (b *Body) Point(frame, person, point int) []float64 {
	off := b.dataOffset(frame, person, point)
	return b.data[off : off+b.dims : off+b.dims]
}

// SetPoint writes up to Dims channels of a point. Missing channels are left
// unchanged and extra values are ignored.
func (b *Body) SetPoint(frame, person, point int, values ...float64) {
	dst := b.Point(frame, person, point)
	copy(dst, values)
}

// Confidence returns the confidence of a point.
func (b *Body) Confidence(frame, person, point int) float64 {
	return b.conf[b.confOffset(frame, person, point)]
}

// SetConfidence writes the confidence of a point.
func (b *Body) SetConfidence(frame, person, point int, v float64) {
	b.conf[b.confOffset(frame, person, point)] = v
}

// Data returns the flat data array. It aliases the body.
func (b *Body) Data() []float64 { return b.data }

// ConfidenceData returns the flat confidence array. It aliases the body.
func (b *Body) ConfidenceData() []float64 { return b.conf }

// Clone returns a deep copy of the body.
func (b *Body) Clone() *Body {
	out := *b
	out.data = append([]float64(nil), b.data...)
	out.conf = append([]float64(nil), b.conf...)
	return &out
}

// growPoints extends the point axis by n, zero-filling new coordinates and
// setting new confidences to fill. Existing values keep their positions.
func (b *Body) growPoints(n int, fill float64) {
	if n <= 0 {
		return
	}

	newPoints := b.points + n
	data := make([]float64, b.frames*b.people*newPoints*b.dims)
	conf := make([]float64, b.frames*b.people*newPoints)

	rowData := b.points * b.dims
	newRowData := newPoints * b.dims
	for row := 0; row < b.frames*b.people; row++ {
		copy(data[row*newRowData:row*newRowData+rowData], b.data[row*rowData:(row+1)*rowData])
		copy(conf[row*newPoints:row*newPoints+b.points], b.conf[row*b.points:(row+1)*b.points])
		for i := b.points; i < newPoints; i++ {
			conf[row*newPoints+i] = fill
		}
	}

	b.points = newPoints
	b.data = data
	b.conf = conf
}

// SliceFrames returns a copy of frames [from, to).
func (b *Body) SliceFrames(from, to int) (*Body, error) {
	if from < 0 || to > b.frames || from > to {
		return nil, fmt.Errorf("frame range [%d, %d) outside [0, %d)", from, to, b.frames)
	}
	frameData := b.people * b.points * b.dims
	frameConf := b.people * b.points

	out := *b
	out.frames = to - from
	out.data = append([]float64(nil), b.data[from*frameData:to*frameData]...)
	out.conf = append([]float64(nil), b.conf[from*frameConf:to*frameConf]...)
	return &out, nil
}
