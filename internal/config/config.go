// Package config loads islpose settings from a YAML file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/islpose/internal/detector"
	"github.com/ayusman/islpose/internal/expression"
	"github.com/ayusman/islpose/internal/render"
)

// Lookup backends.
const (
	LookupCSV   = "csv"
	LookupStore = "store"
)

// Config holds all application settings.
type Config struct {
	// DataDir holds the database and default plugin directory.
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	// Lookup selects the lexicon backend: "csv" or "store".
	Lookup      string `yaml:"lookup"`
	IndexCSV    string `yaml:"index_csv"`
	LexiconRoot string `yaml:"lexicon_root"`

	SpokenLanguage string `yaml:"spoken_language"`
	SignedLanguage string `yaml:"signed_language"`

	ListenAddr string `yaml:"listen_addr"`
	StaticDir  string `yaml:"static_dir"`

	PluginDir       string           `yaml:"plugin_dir"`
	PluginTimeoutMs int              `yaml:"plugin_timeout_ms"`
	Appearance      AppearanceConfig `yaml:"appearance"`

	// Signer names the landmark snapshot used for expressions. Empty means
	// the procedural face.
	Signer string `yaml:"signer"`

	Expressions expression.Config `yaml:"expressions"`
	Render      RenderConfig      `yaml:"render"`
	Detector    DetectorConfig    `yaml:"detector"`
}

// AppearanceConfig is passed to the appearance plugin.
type AppearanceConfig struct {
	Neutral   string   `yaml:"neutral" json:"neutral,omitempty"`
	Threshold *float64 `yaml:"threshold" json:"threshold,omitempty"`
}

// RenderConfig holds renderer settings. Colors are "#rrggbb".
type RenderConfig struct {
	Thickness       int     `yaml:"thickness"`
	PointRadius     int     `yaml:"point_radius"`
	ComponentColors bool    `yaml:"component_colors"`
	FaceColor       string  `yaml:"face_color"`
	FaceThickness   int     `yaml:"face_thickness"`
	Threshold       float64 `yaml:"threshold"`
	Background      string  `yaml:"background"`
	// FaceSpace is "normalized" (the default, matching synthesized faces)
	// or "pixel".
	FaceSpace string `yaml:"face_space"`

	// Center moves the visible points to the canvas center before frames
	// are written, shifted vertically by CenterOffsetY.
	Center        bool    `yaml:"center"`
	CenterOffsetY float64 `yaml:"center_offset_y"`
}

// DetectorConfig holds face mesh detector settings.
type DetectorConfig struct {
	ScriptPath    string  `yaml:"script_path"`
	MaxFaces      int     `yaml:"max_faces"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultConfig returns the settings used when no file is given. Paths are
// rooted at ~/.islpose.
func DefaultConfig() Config {
	dataDir := ".islpose"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".islpose")
	}

	rc := render.DefaultConfig()
	dc := detector.DefaultConfig()
	return Config{
		DataDir:         dataDir,
		DBPath:          filepath.Join(dataDir, "islpose.db"),
		Lookup:          LookupCSV,
		IndexCSV:        filepath.Join(dataDir, "lexicon", "index.csv"),
		SpokenLanguage:  "en",
		SignedLanguage:  "ins",
		ListenAddr:      ":8080",
		PluginDir:       filepath.Join(dataDir, "plugins"),
		PluginTimeoutMs: 5000,
		Expressions:     expression.DefaultConfig(),
		Render: RenderConfig{
			Thickness:     rc.Thickness,
			PointRadius:   rc.PointRadius,
			FaceColor:     FormatHexColor(rc.FaceColor),
			FaceThickness: rc.FaceThickness,
			Threshold:     rc.Threshold,
			Background:    FormatHexColor(rc.Background),
			FaceSpace:     "normalized",
			CenterOffsetY: -300,
		},
		Detector: DetectorConfig{
			MaxFaces:      dc.MaxFaces,
			MinConfidence: dc.MinConfidence,
		},
	}
}

// Load reads path over DefaultConfig. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Write saves cfg as YAML.
func Write(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	switch c.Lookup {
	case LookupCSV, LookupStore:
	default:
		return fmt.Errorf("unknown lookup backend %q", c.Lookup)
	}
	if c.PluginTimeoutMs <= 0 {
		return fmt.Errorf("plugin_timeout_ms must be positive, got %d", c.PluginTimeoutMs)
	}
	if _, err := c.Render.Config(); err != nil {
		return err
	}
	return nil
}

// LexiconDir returns the directory pose paths are resolved against.
func (c Config) LexiconDir() string {
	if c.LexiconRoot != "" {
		return c.LexiconRoot
	}
	return filepath.Dir(c.IndexCSV)
}

// AppearanceJSON encodes the appearance plugin config.
func (c Config) AppearanceJSON() json.RawMessage {
	data, err := json.Marshal(c.Appearance)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// DetectorSettings returns the detector.Config for these settings.
func (c Config) DetectorSettings() detector.Config {
	dc := detector.DefaultConfig()
	dc.ScriptPath = c.Detector.ScriptPath
	dc.StaticImageMode = true
	if c.Detector.MaxFaces > 0 {
		dc.MaxFaces = c.Detector.MaxFaces
	}
	if c.Detector.MinConfidence > 0 {
		dc.MinConfidence = c.Detector.MinConfidence
	}
	return dc
}

// Config converts the settings into a render.Config. Zero fields keep the
// renderer defaults.
func (rc RenderConfig) Config() (render.Config, error) {
	cfg := render.DefaultConfig()
	if rc.Thickness > 0 {
		cfg.Thickness = rc.Thickness
	}
	if rc.PointRadius > 0 {
		cfg.PointRadius = rc.PointRadius
	}
	if rc.FaceThickness > 0 {
		cfg.FaceThickness = rc.FaceThickness
	}
	if rc.Threshold > 0 {
		cfg.Threshold = rc.Threshold
	}
	cfg.ComponentColors = rc.ComponentColors

	if rc.FaceColor != "" {
		c, err := ParseHexColor(rc.FaceColor)
		if err != nil {
			return cfg, fmt.Errorf("face_color: %w", err)
		}
		cfg.FaceColor = c
	}
	if rc.Background != "" {
		c, err := ParseHexColor(rc.Background)
		if err != nil {
			return cfg, fmt.Errorf("background: %w", err)
		}
		cfg.Background = c
	}

	switch rc.FaceSpace {
	case "", "normalized":
		cfg.FaceSpace = render.NormalizedSpace
	case "pixel":
		cfg.FaceSpace = render.PixelSpace
	default:
		return cfg, fmt.Errorf("unknown face_space %q", rc.FaceSpace)
	}
	return cfg, nil
}

// ParseHexColor parses "#rrggbb" into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// FormatHexColor formats c as "#rrggbb".
func FormatHexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
