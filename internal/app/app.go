// Package app wires the islpose components together from a config.Config:
// the lexicon store and lookup, the appearance plugin, expression
// synthesis, the assembler and the renderer.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/assemble"
	"github.com/ayusman/islpose/internal/config"
	"github.com/ayusman/islpose/internal/detector"
	"github.com/ayusman/islpose/internal/expression"
	"github.com/ayusman/islpose/internal/face"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/plugin"
	"github.com/ayusman/islpose/internal/pose"
	"github.com/ayusman/islpose/internal/render"
	"github.com/ayusman/islpose/internal/server"
	"github.com/ayusman/islpose/internal/server/api"
	"github.com/ayusman/islpose/internal/store"
)

// App owns every long-lived component of a running islpose instance.
type App struct {
	config     config.Config
	store      *store.Store
	lookup     lookup.Lookup
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	anonymizer *anonymize.PluginAnonymizer
	assembler  *assemble.Assembler
	renderer   *render.Renderer

	mu       sync.RWMutex
	detector detector.Detector
}

// New opens the store and builds the pipeline described by cfg. The face
// mesh detector is created on first use.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	rc, err := cfg.Render.Config()
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	a := &App{
		config:     cfg,
		store:      st,
		pluginMgr:  plugin.NewManager(cfg.PluginDir),
		pluginExec: plugin.NewExecutor(cfg.PluginTimeoutMs),
		renderer:   render.New(rc),
	}
	a.anonymizer = anonymize.NewPluginAnonymizer(a.pluginMgr, a.pluginExec, cfg.AppearanceJSON())

	if a.lookup, err = a.newLookup(); err != nil {
		st.Close()
		return nil, err
	}

	a.assembler = &assemble.Assembler{
		Lookup:      a.lookup,
		Synthesizer: expression.NewSynthesizer(cfg.Expressions),
	}

	return a, nil
}

// newLookup selects the lexicon backend. A missing CSV index yields an
// empty lexicon so the server can still start.
func (a *App) newLookup() (lookup.Lookup, error) {
	root := a.config.LexiconDir()

	switch a.config.Lookup {
	case config.LookupStore:
		return lookup.NewStoreLookup(a.store.Lexicon(), root), nil
	default:
		idx, err := lookup.LoadCSVIndex(a.config.IndexCSV)
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Lexicon index %s not found, starting with an empty lexicon", a.config.IndexCSV)
			return lookup.NewPoseLookup(lookup.NewCSVIndex(nil), root), nil
		}
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %d lexicon entries from %s", len(idx.Entries()), a.config.IndexCSV)
		return lookup.NewPoseLookup(idx, root), nil
	}
}

// DiscoverPlugins scans the plugin directory. Anonymization is enabled only
// when some plugin provides an appearance action.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}

	if a.anonymizer.Available(anonymize.ActionRemove) || a.anonymizer.Available(anonymize.ActionTransfer) {
		a.assembler.Anonymizer = a.anonymizer
		log.Println("Appearance plugin available")
	} else {
		a.assembler.Anonymizer = nil
		log.Println("Appearance plugin not installed, anonymization disabled")
	}
	return nil
}

// LoadLandmarks loads the stored samples for signer, averages them and uses
// the result for expression synthesis. An empty signer or one without
// samples keeps the procedural face.
func (a *App) LoadLandmarks(signer string) error {
	if signer == "" {
		return nil
	}

	samples, err := a.store.Landmarks().GetBySigner(signer)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		log.Printf("No landmarks stored for %s, using procedural face", signer)
		return nil
	}

	decoded := make([]*face.Landmarks, 0, len(samples))
	for _, s := range samples {
		var lm face.Landmarks
		if err := json.Unmarshal(s.Data, &lm); err != nil {
			return fmt.Errorf("sample %d of %s: %w", s.SampleIndex, signer, err)
		}
		decoded = append(decoded, &lm)
	}

	avg, err := face.AverageLandmarks(decoded)
	if err != nil {
		return err
	}
	a.assembler.Landmarks = avg

	log.Printf("Loaded %d landmark samples for %s", len(samples), signer)
	return nil
}

// Translate assembles a gloss sequence.
func (a *App) Translate(ctx context.Context, req assemble.Request) (*pose.Pose, error) {
	return a.assembler.GlossToPose(ctx, req)
}

// Request returns a request for glosses with the configured languages and
// expression setting.
func (a *App) Request(glosses []string) assemble.Request {
	return assemble.Request{
		Glosses:           glosses,
		SpokenLanguage:    a.config.SpokenLanguage,
		SignedLanguage:    a.config.SignedLanguage,
		EnableExpressions: a.config.Expressions.Enabled,
	}
}

// ServerConfig returns the HTTP server configuration for this app.
func (a *App) ServerConfig() server.Config {
	return server.Config{
		StaticDir:  a.config.StaticDir,
		Store:      a.store,
		Translator: a.assembler,
		Renderer:   a.renderer,
		Defaults: api.Defaults{
			SpokenLanguage:    a.config.SpokenLanguage,
			SignedLanguage:    a.config.SignedLanguage,
			EnableExpressions: a.config.Expressions.Enabled,
		},
	}
}

// SetDetector sets the face mesh detector used by Extract.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the face mesh detector, creating it on first use.
func (a *App) Detector() detector.Detector {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(a.config.DetectorSettings()); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe face mesh detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}
	return a.detector
}

// Close releases the detector and the store.
func (a *App) Close() error {
	a.mu.Lock()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
		a.detector = nil
	}
	a.mu.Unlock()

	return a.store.Close()
}

// Config returns the settings the app was built from.
func (a *App) Config() config.Config {
	return a.config
}

// Store returns the lexicon and landmark store.
func (a *App) Store() *store.Store {
	return a.store
}

// Assembler returns the gloss assembler.
func (a *App) Assembler() *assemble.Assembler {
	return a.assembler
}

// Renderer returns the frame renderer.
func (a *App) Renderer() *render.Renderer {
	return a.renderer
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}
