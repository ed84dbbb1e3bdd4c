package capture

import (
	"errors"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestFileSource_NotOpened(t *testing.T) {
	src := NewFileSource("a.png")

	if src.IsOpen() {
		t.Error("IsOpen() should return false before Open() is called")
	}
	if _, err := src.ReadFrame(); !errors.Is(err, ErrSourceNotOpen) {
		t.Errorf("expected ErrSourceNotOpen, got %v", err)
	}

	// Close on a source that was never opened should not fail
	if err := src.Close(); err != nil {
		t.Errorf("Close() on not opened source should return nil, got: %v", err)
	}
}

func TestFileSource_OpenEmpty(t *testing.T) {
	if err := NewFileSource().Open(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if _, err := ReadAll(NewFileSource()); !errors.Is(err, ErrNoFrames) {
		t.Errorf("ReadAll() expected ErrNoFrames, got %v", err)
	}
}

func writeImage(t *testing.T, path string, width, height int) {
	t.Helper()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	gocv.Circle(&img, image.Pt(width/2, height/2), 3, color.RGBA{G: 255, A: 255}, -1)
	if ok := gocv.IMWrite(path, img); !ok {
		t.Fatalf("IMWrite(%s) failed", path)
	}
}

func TestFileSource_ReadFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")
	writeImage(t, first, 32, 24)
	writeImage(t, second, 16, 12)

	src := NewFileSource(first, second)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !src.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if mat.Cols() != 32 || mat.Rows() != 24 {
		t.Errorf("expected 32x24, got %dx%d", mat.Cols(), mat.Rows())
	}
	mat.Close()

	mat, err = src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if mat.Cols() != 16 {
		t.Errorf("expected width 16, got %d", mat.Cols())
	}
	mat.Close()

	if _, err := src.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if src.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestReadAll_Files(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writeImage(t, good, 8, 8)

	frames, err := ReadAll(NewFileSource(good, good))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(frames) != 2 {
		t.Errorf("expected 2 frames, got %d", len(frames))
	}
	CloseAll(frames)

	if _, err := ReadAll(NewFileSource(good, filepath.Join(dir, "missing.png"))); err == nil {
		t.Error("expected error for missing image")
	}
}
