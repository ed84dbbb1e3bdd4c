package pose

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"
)

// FormatVersion is the binary container version read and written by this
// package.
const FormatVersion float32 = 0.1

// ErrUnsupportedVersion is returned when reading a container of another version.
var ErrUnsupportedVersion = errors.New("unsupported pose format version")

// confidenceChannel is the trailing point format letter that carries
// confidence rather than a coordinate.
const confidenceChannel = "C"

// binReader reads little-endian values and keeps the first error.
type binReader struct {
	r   io.Reader
	err error
}

func (br *binReader) read(v any) {
	if br.err != nil {
		return
	}
	br.err = binary.Read(br.r, binary.LittleEndian, v)
}

func (br *binReader) u16() int {
	var v uint16
	br.read(&v)
	return int(v)
}

func (br *binReader) str() string {
	n := br.u16()
	if br.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		br.err = err
		return ""
	}
	return string(buf)
}

// readChunk bounds how many values are read per call, so the declared
// counts in a header never size an allocation the stream cannot back.
const readChunk = 1 << 16

func (br *binReader) floats(n int) []float64 {
	if br.err != nil {
		return nil
	}

	raw := make([]float32, min(n, readChunk))
	out := make([]float64, 0, min(n, readChunk))
	for len(out) < n {
		chunk := raw[:min(n-len(out), len(raw))]
		if err := binary.Read(br.r, binary.LittleEndian, chunk); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			br.err = err
			return nil
		}
		for _, v := range chunk {
			out = append(out, float64(v))
		}
	}
	return out
}

// Read decodes a binary pose container.
func Read(r io.Reader) (*Pose, error) {
	br := &binReader{r: bufio.NewReader(r)}

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	fps := br.u16()
	frames := br.u16()
	people := br.u16()
	if br.err != nil {
		return nil, fmt.Errorf("read body: %w", br.err)
	}

	points := h.TotalPoints()
	dims := h.Dims()
	data := br.floats(frames * people * points * dims)
	conf := br.floats(frames * people * points)
	if br.err != nil {
		return nil, fmt.Errorf("read body data: %w", br.err)
	}

	b, err := NewBodyFromSlices(float64(fps), frames, people, points, dims, data, conf)
	if err != nil {
		return nil, err
	}
	return New(h, b)
}

func readHeader(br *binReader) (*Header, error) {
	var version float32
	br.read(&version)
	if br.err != nil {
		return nil, fmt.Errorf("read version: %w", br.err)
	}
	if math.Abs(float64(version-FormatVersion)) > 1e-6 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedVersion, version)
	}

	h := &Header{Version: version}
	h.Dimensions.Width = br.u16()
	h.Dimensions.Height = br.u16()
	h.Dimensions.Depth = br.u16()

	count := br.u16()
	for i := 0; i < count && br.err == nil; i++ {
		c := &Component{Name: br.str()}

		format := br.str()
		format = strings.TrimSuffix(format, confidenceChannel)
		for _, ch := range format {
			c.PointFormat = append(c.PointFormat, strings.ToLower(string(ch)))
		}

		nPoints, nLimbs, nColors := br.u16(), br.u16(), br.u16()
		for j := 0; j < nPoints; j++ {
			c.Points = append(c.Points, br.str())
		}
		for j := 0; j < nLimbs; j++ {
			c.Limbs = append(c.Limbs, [2]int{br.u16(), br.u16()})
		}
		for j := 0; j < nColors; j++ {
			r, g, b := br.u16(), br.u16(), br.u16()
			c.Colors = append(c.Colors, color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255})
		}
		h.Components = append(h.Components, c)
	}

	if br.err != nil {
		return nil, fmt.Errorf("read header: %w", br.err)
	}
	return h, nil
}

// binWriter writes little-endian values and keeps the first error.
type binWriter struct {
	w   io.Writer
	err error
}

func (bw *binWriter) write(v any) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binWriter) u16(v int) {
	if bw.err == nil && (v < 0 || v > math.MaxUint16) {
		bw.err = fmt.Errorf("value %d does not fit in uint16", v)
		return
	}
	bw.write(uint16(v))
}

func (bw *binWriter) str(s string) {
	bw.u16(len(s))
	if bw.err != nil {
		return
	}
	_, bw.err = io.WriteString(bw.w, s)
}

func (bw *binWriter) floats(vs []float64) {
	raw := make([]float32, len(vs))
	for i, v := range vs {
		raw[i] = float32(v)
	}
	bw.write(raw)
}

// Write encodes the pose as a binary container. Coordinates and confidences
// are stored as float32; fps is rounded to an integer.
func (p *Pose) Write(w io.Writer) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Body.dims != p.Header.Dims() {
		return fmt.Errorf("%w: body has %d channels, header format has %d", ErrStructuralMismatch, p.Body.dims, p.Header.Dims())
	}

	bufw := bufio.NewWriter(w)
	bw := &binWriter{w: bufw}

	h := p.Header
	bw.write(FormatVersion)
	bw.u16(h.Dimensions.Width)
	bw.u16(h.Dimensions.Height)
	bw.u16(h.Dimensions.Depth)

	bw.u16(len(h.Components))
	for _, c := range h.Components {
		bw.str(c.Name)
		bw.str(strings.ToUpper(strings.Join(c.PointFormat, "")) + confidenceChannel)
		bw.u16(len(c.Points))
		bw.u16(len(c.Limbs))
		bw.u16(len(c.Colors))
		for _, name := range c.Points {
			bw.str(name)
		}
		for _, l := range c.Limbs {
			bw.u16(l[0])
			bw.u16(l[1])
		}
		for _, col := range c.Colors {
			bw.u16(int(col.R))
			bw.u16(int(col.G))
			bw.u16(int(col.B))
		}
	}

	b := p.Body
	bw.u16(int(math.Round(b.FPS)))
	bw.u16(b.frames)
	bw.u16(b.people)
	bw.floats(b.data)
	bw.floats(b.conf)

	if bw.err != nil {
		return fmt.Errorf("write pose: %w", bw.err)
	}
	return bufw.Flush()
}
