package app

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/assemble"
	"github.com/ayusman/islpose/internal/config"
	"github.com/ayusman/islpose/internal/detector"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/pose"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = tmpDir
	cfg.DBPath = filepath.Join(tmpDir, "test.db")
	cfg.IndexCSV = filepath.Join(tmpDir, "lexicon", "index.csv")
	cfg.PluginDir = filepath.Join(tmpDir, "plugins")
	return cfg
}

func writeTestPose(t *testing.T, path string, frames int) {
	t.Helper()

	h := &pose.Header{
		Version:    pose.FormatVersion,
		Dimensions: pose.Dimensions{Width: 320, Height: 240},
		Components: []*pose.Component{{
			Name:        "POSE_BODY",
			Points:      []string{"left_shoulder", "right_shoulder"},
			Limbs:       [][2]int{{0, 1}},
			Colors:      []color.RGBA{{R: 255, A: 255}, {R: 255, A: 255}},
			PointFormat: []string{"x", "y", "z"},
		}},
	}
	b := pose.NewBody(25, frames, 1, 2, 3)
	for f := 0; f < frames; f++ {
		b.SetPoint(f, 0, 0, 100, 200, 0)
		b.SetPoint(f, 0, 1, 220, 200, 0)
		b.SetConfidence(f, 0, 0, 1)
		b.SetConfidence(f, 0, 1, 1)
	}
	p, err := pose.New(h, b)
	if err != nil {
		t.Fatalf("pose.New() error = %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := WritePose(p, path); err != nil {
		t.Fatalf("WritePose() error = %v", err)
	}
}

// writeLexicon writes hello.pose (3 frames) and world.pose (2 frames) into
// the lexicon directory and returns their index entries.
func writeLexicon(t *testing.T, cfg config.Config) []lookup.Entry {
	t.Helper()

	dir := cfg.LexiconDir()
	writeTestPose(t, filepath.Join(dir, "ins", "hello.pose"), 3)
	writeTestPose(t, filepath.Join(dir, "ins", "world.pose"), 2)

	entries, err := lookup.BuildIndex(dir, "en", "ins")
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("BuildIndex() found %d entries, want 2", len(entries))
	}
	return entries
}

func writeIndex(t *testing.T, path string, entries []lookup.Entry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := lookup.WriteIndex(f, entries); err != nil {
		t.Fatalf("WriteIndex() error = %v", err)
	}
}

func TestApp_Translate_CSVLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testConfig(t)
	writeIndex(t, cfg.IndexCSV, writeLexicon(t, cfg))

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	p, err := a.Translate(context.Background(), a.Request([]string{"HELLO", "world", "HELLO"}))
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if got := p.Body.Frames(); got != 8 {
		t.Errorf("frames = %d, want 8", got)
	}
	if p.Header.Component(face.ComponentName) == nil {
		t.Error("expected FACE component from expression synthesis")
	}
}

func TestApp_Translate_MissingIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	_, err = a.Translate(context.Background(), a.Request([]string{"HELLO"}))
	if !errors.Is(err, lookup.ErrLookupMiss) {
		t.Errorf("Translate() error = %v, want ErrLookupMiss", err)
	}
}

func TestApp_Translate_AnonymizeWithoutPlugin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testConfig(t)
	writeIndex(t, cfg.IndexCSV, writeLexicon(t, cfg))

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	a.DiscoverPlugins()

	req := a.Request([]string{"HELLO"})
	req.Anonymize = assemble.AnonymizeRemove

	_, err = a.Translate(context.Background(), req)
	if !errors.Is(err, anonymize.ErrOptionalDependencyMissing) {
		t.Errorf("Translate() error = %v, want ErrOptionalDependencyMissing", err)
	}
}

func TestApp_StoreLookupAndLandmarks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := testConfig(t)
	cfg.Lookup = config.LookupStore
	cfg.Signer = "anita"
	entries := writeLexicon(t, cfg)

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if n, err := lookup.ImportEntries(a.Store().Lexicon(), entries); err != nil || n != 2 {
		t.Fatalf("ImportEntries() = %d, %v", n, err)
	}

	mesh := detector.SyntheticFaceMesh()
	lm, err := face.FromMesh(&mesh)
	if err != nil {
		t.Fatalf("FromMesh() error = %v", err)
	}
	data, _ := json.Marshal(lm)
	if err := a.Store().Landmarks().Replace("anita", []json.RawMessage{data, data}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if err := a.LoadLandmarks(cfg.Signer); err != nil {
		t.Fatalf("LoadLandmarks() error = %v", err)
	}
	if a.Assembler().Landmarks == nil {
		t.Fatal("expected averaged landmarks on the assembler")
	}

	p, err := a.Translate(context.Background(), a.Request([]string{"WORLD"}))
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got := p.Body.Frames(); got != 2 {
		t.Errorf("frames = %d, want 2", got)
	}
}

func TestApp_LoadLandmarks_Unknown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if err := a.LoadLandmarks("nobody"); err != nil {
		t.Fatalf("LoadLandmarks() error = %v", err)
	}
	if a.Assembler().Landmarks != nil {
		t.Error("signer without samples should keep the procedural face")
	}
}

func TestApp_Extract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	cfg := testConfig(t)
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	var paths []string
	for _, name := range []string{"a.png", "b.png"} {
		img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		path := filepath.Join(cfg.DataDir, name)
		if !gocv.IMWrite(path, img) {
			img.Close()
			t.Fatalf("failed to write %s", path)
		}
		img.Close()
		paths = append(paths, path)
	}

	mock := detector.NewMockDetector()
	mock.SetFaces([]detector.FaceMesh{detector.SyntheticFaceMesh()})
	a.SetDetector(mock)

	avg, err := a.Extract("anita", paths...)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if err := avg.Validate(); err != nil {
		t.Errorf("averaged landmarks invalid: %v", err)
	}
	if mock.Calls() != 2 {
		t.Errorf("detector calls = %d, want 2", mock.Calls())
	}

	samples, err := a.Store().Landmarks().GetBySigner("anita")
	if err != nil {
		t.Fatalf("GetBySigner() error = %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("stored %d samples, want 2", len(samples))
	}

	// No faces at all
	mock.SetFaces(nil)
	if _, err := a.Extract("anita", paths...); !errors.Is(err, face.ErrDetectionUnavailable) {
		t.Errorf("Extract() error = %v, want ErrDetectionUnavailable", err)
	}
}

func TestApp_RenderFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	cfg := testConfig(t)
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	posePath := filepath.Join(cfg.DataDir, "hello.pose")
	writeTestPose(t, posePath, 3)
	p, err := ReadPose(posePath)
	if err != nil {
		t.Fatalf("ReadPose() error = %v", err)
	}

	outDir := filepath.Join(cfg.DataDir, "frames")
	n, err := a.RenderFrames(p, outDir)
	if err != nil {
		t.Fatalf("RenderFrames() error = %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d frames, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(outDir, "frame_0002.png")); err != nil {
		t.Errorf("expected last frame on disk: %v", err)
	}
}
