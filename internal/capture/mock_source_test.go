package capture

import (
	"errors"
	"io"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockSource_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	// Create test frames
	frame1 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	src := NewMockSource([]*gocv.Mat{&frame1, &frame2}, false)

	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	for i := 0; i < 2; i++ {
		f, err := src.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	// Third read ends the stream (no loop)
	if _, err := src.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after all frames consumed, got %v", err)
	}
}

func TestMockSource_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	src := NewMockSource([]*gocv.Mat{&frame}, true)
	src.Open()
	defer src.Close()

	for i := 0; i < 5; i++ {
		f, err := src.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockSource_Errors(t *testing.T) {
	src := NewMockSource(nil, false)

	if _, err := src.ReadFrame(); !errors.Is(err, ErrSourceNotOpen) {
		t.Errorf("expected ErrSourceNotOpen, got %v", err)
	}

	src.Open()
	if _, err := src.ReadFrame(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestReadAll_Mock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	defer frame.Close()

	frames, err := ReadAll(NewMockSource([]*gocv.Mat{&frame, &frame, &frame}, false))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	defer CloseAll(frames)

	if len(frames) != 3 {
		t.Errorf("expected 3 frames, got %d", len(frames))
	}
}
