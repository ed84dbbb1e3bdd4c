// Package capture provides image frame sources using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("source is not open")

	// ErrNoFrames is returned when opening a source without frames.
	ErrNoFrames = errors.New("no frames available")
)

// Source defines the interface for frame sources. ReadFrame returns io.EOF
// once every frame has been read.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// FileSource reads still image frames from files.
type FileSource struct {
	paths   []string
	index   int
	mu      sync.Mutex
	running bool
}

// NewFileSource creates a FileSource over paths, read in order.
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Open prepares the source for reading from the first file.
func (s *FileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.paths) == 0 {
		return ErrNoFrames
	}
	s.index = 0
	s.running = true
	return nil
}

// Close stops the source.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	return nil
}

// ReadFrame decodes the next image file as a BGR frame.
// The caller is responsible for closing the returned Mat.
func (s *FileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if s.index >= len(s.paths) {
		return nil, io.EOF
	}

	path := s.paths[s.index]
	s.index++

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to read image %s", path)
	}
	return &mat, nil
}

// IsOpen returns true if the source is open.
func (s *FileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// ReadAll opens src, reads every frame and closes it. On error the frames
// read so far are closed.
func ReadAll(src Source) ([]*gocv.Mat, error) {
	if err := src.Open(); err != nil {
		return nil, err
	}
	defer src.Close()

	var frames []*gocv.Mat
	for {
		mat, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			CloseAll(frames)
			return nil, err
		}
		frames = append(frames, mat)
	}
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
