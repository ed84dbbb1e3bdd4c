package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ayusman/islpose/internal/app"
	"github.com/ayusman/islpose/internal/assemble"
	"github.com/ayusman/islpose/internal/config"
	"github.com/ayusman/islpose/internal/lookup"
	"github.com/ayusman/islpose/internal/server"
	"github.com/ayusman/islpose/internal/server/api"
	"github.com/ayusman/islpose/internal/tray"
)

const usage = `islpose - Indian Sign Language pose assembly

Usage:
  islpose <command> [flags]

Commands:
  serve      start the HTTP server
  translate  assemble a gloss sequence into a .pose file
  render     render a .pose file to PNG frames
  index      build a lexicon index from a directory of .pose files
  extract    record facial landmarks for a signer from images
  init       write the default config file

Run "islpose <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "translate":
		err = runTranslate(args)
	case "render":
		err = runRender(args)
	case "index":
		err = runIndex(args)
	case "extract":
		err = runExtract(args)
	case "init":
		err = runInit(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// defaultConfigPath returns ~/.islpose/config.yaml.
func defaultConfigPath() string {
	return filepath.Join(config.DefaultConfig().DataDir, "config.yaml")
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath(), "path to config file")
	return fs, cfgPath
}

// openApp loads the config, applies overrides and builds the application.
func openApp(cfgPath string, overrides ...func(*config.Config)) (*app.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	return app.New(cfg)
}

// centerFlag registers -center and returns an override that enables
// centering when it is set.
func centerFlag(fs *flag.FlagSet) func(*config.Config) {
	center := fs.Bool("center", false, "center visible points on the canvas before rendering")
	return func(cfg *config.Config) {
		if *center {
			cfg.Render.Center = true
		}
	}
}

func runServe(args []string) error {
	fs, cfgPath := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (overrides config)")
	withTray := fs.Bool("tray", false, "show a system tray menu")
	fs.Parse(args)

	fmt.Println("islpose - Indian Sign Language pose server")

	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Failed to discover plugins: %v", err)
	}
	if err := a.LoadLandmarks(a.Config().Signer); err != nil {
		log.Printf("Failed to load landmarks: %v", err)
	}

	sc := a.ServerConfig()
	if sc.StaticDir == "" {
		sc.StaticDir = findWebDir()
	}
	if sc.StaticDir != "" {
		fmt.Printf("Serving static files from: %s\n", sc.StaticDir)
	}

	listen := a.Config().ListenAddr
	if *addr != "" {
		listen = *addr
	}

	srv := server.New(sc)
	fmt.Printf("Starting server on %s\n", listen)
	if !*withTray {
		return srv.ListenAndServe(listen)
	}

	t := tray.New(a.Config().Expressions.Enabled)
	t.OnExpressions(func(enabled bool) {
		a.Assembler().Synthesizer.SetEnabled(enabled)
		log.Printf("Expressions enabled: %v", enabled)
	})
	t.OnOpen(func() {
		if err := openBrowser(browserURL(listen)); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(func() {
		a.Close()
		os.Exit(0)
	})

	go func() {
		t.SetStatus("Serving on " + listen)
		if err := srv.ListenAndServe(listen); err != nil {
			log.Printf("Server failed: %v", err)
			t.SetStatus("Stopped: " + err.Error())
		}
	}()

	// The tray must own the main thread
	t.Run()
	return nil
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

func runTranslate(args []string) error {
	fs, cfgPath := newFlagSet("translate")
	glosses := fs.String("glosses", "", "gloss sequence, separated by spaces or commas")
	out := fs.String("o", "out.pose", "output .pose file")
	frames := fs.String("frames", "", "also render PNG frames into this directory")
	spoken := fs.String("spoken", "", "spoken language (overrides config)")
	signed := fs.String("signed", "", "signed language (overrides config)")
	source := fs.String("source", "", "restrict lookup to entries under this path prefix")
	mode := fs.String("anonymize", "", "anonymization: remove or transfer")
	reference := fs.String("reference", "", "reference .pose file for transfer")
	noExpr := fs.Bool("no-expressions", false, "disable facial expression synthesis")
	center := centerFlag(fs)
	fs.Parse(args)

	words := api.ParseGlosses(*glosses)
	if len(words) == 0 {
		words = fs.Args()
	}

	a, err := openApp(*cfgPath, center)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Failed to discover plugins: %v", err)
	}
	if err := a.LoadLandmarks(a.Config().Signer); err != nil {
		log.Printf("Failed to load landmarks: %v", err)
	}

	req := a.Request(words)
	req.Source = *source
	if *spoken != "" {
		req.SpokenLanguage = *spoken
	}
	if *signed != "" {
		req.SignedLanguage = *signed
	}
	if *noExpr {
		req.EnableExpressions = false
	}
	if req.Anonymize, err = assemble.ParseAnonymizeMode(*mode); err != nil {
		return err
	}
	if *reference != "" {
		if req.Reference, err = app.ReadPose(*reference); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := a.Translate(ctx, req)
	if err != nil {
		return err
	}
	if err := app.WritePose(p, *out); err != nil {
		return err
	}
	fmt.Printf("Wrote %d frames for %s to %s\n", p.Body.Frames(), strings.Join(words, " "), *out)

	if *frames != "" {
		n, err := a.RenderFrames(p, *frames)
		if err != nil {
			return err
		}
		fmt.Printf("Rendered %d frames to %s\n", n, *frames)
	}
	return nil
}

func runRender(args []string) error {
	fs, cfgPath := newFlagSet("render")
	in := fs.String("i", "", "input .pose file")
	out := fs.String("o", "frames", "output directory")
	center := centerFlag(fs)
	fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("-i is required")
	}

	a, err := openApp(*cfgPath, center)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := app.ReadPose(*in)
	if err != nil {
		return err
	}
	n, err := a.RenderFrames(p, *out)
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %d frames to %s\n", n, *out)
	return nil
}

func runIndex(args []string) error {
	fs, cfgPath := newFlagSet("index")
	dir := fs.String("dir", "", "directory of .pose files (default: lexicon directory)")
	out := fs.String("o", "", "output index.csv (default: configured index_csv)")
	spoken := fs.String("spoken", "", "spoken language (overrides config)")
	signed := fs.String("signed", "", "signed language (overrides config)")
	importStore := fs.Bool("import", false, "also import the entries into the lexicon database")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.LexiconDir()
	}
	if *out == "" {
		*out = cfg.IndexCSV
	}
	if *spoken == "" {
		*spoken = cfg.SpokenLanguage
	}
	if *signed == "" {
		*signed = cfg.SignedLanguage
	}

	entries, err := lookup.BuildIndex(*dir, *spoken, *signed)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := lookup.WriteIndex(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Indexed %d poses into %s\n", len(entries), *out)

	if !*importStore {
		return nil
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := lookup.ImportEntries(a.Store().Lexicon(), entries)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d entries into %s\n", n, cfg.DBPath)
	return nil
}

func runExtract(args []string) error {
	fs, cfgPath := newFlagSet("extract")
	signer := fs.String("signer", "", "signer name the landmarks are stored under")
	fs.Parse(args)

	if *signer == "" || fs.NArg() == 0 {
		return fmt.Errorf("usage: islpose extract -signer NAME image...")
	}

	a, err := openApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Extract(*signer, fs.Args()...); err != nil {
		return err
	}
	fmt.Printf("Stored landmarks for %s; set signer: %s in the config to use them\n", *signer, *signer)
	return nil
}

func runInit(args []string) error {
	fs, cfgPath := newFlagSet("init")
	force := fs.Bool("force", false, "overwrite an existing file")
	fs.Parse(args)

	if _, err := os.Stat(*cfgPath); err == nil && !*force {
		return fmt.Errorf("%s exists, use -force to overwrite", *cfgPath)
	}
	if err := os.MkdirAll(filepath.Dir(*cfgPath), 0755); err != nil {
		return err
	}
	if err := config.Write(config.DefaultConfig(), *cfgPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *cfgPath)
	return nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.islpose/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DefaultConfig().DataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
