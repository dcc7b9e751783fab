package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/hack-pad/hackpadfs/mem"

	"walkthrough/internal/assets"
	"walkthrough/internal/commands"
	"walkthrough/internal/config"
	"walkthrough/internal/console"
	"walkthrough/internal/debug"
	"walkthrough/internal/env"
	"walkthrough/internal/fonts"
	"walkthrough/internal/graphics"
	"walkthrough/internal/logger"
	"walkthrough/internal/render"
	"walkthrough/internal/scene"
	"walkthrough/internal/terminal"
	"walkthrough/internal/ui"
	"walkthrough/internal/viewer"
	"walkthrough/internal/watch"
)

func main() {
	if err := env.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "env:", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogPath)
	if err := run(cfg, log); err != nil {
		log.Logf("fatal: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	catalogue, err := config.LoadCatalogue(cfg.Catalogue)
	if err != nil {
		return err
	}
	local, err := assets.OSSource(cfg.AssetRoot)
	if err != nil {
		return err
	}
	cache, err := mem.NewFS()
	if err != nil {
		return fmt.Errorf("http cache: %w", err)
	}
	remote := assets.NewHTTPSource(cfg.FetchTimeout, cache)
	remote.MaxBytes = cfg.FetchMaxBytes
	fetcher := assets.NewSourceFetcher(assets.MuxSource{Local: local, Remote: remote})
	loader := assets.NewLoader(fetcher, assets.RetryPolicy{
		MaxTries:        cfg.FetchRetries,
		InitialInterval: cfg.FetchBackoff,
		Timeout:         cfg.FetchTimeout,
	}, log)

	dev := graphics.NewDevice()
	ctx := render.New(log)
	ctx.SetScene(scene.New())
	ctx.SetRenderer(graphics.NewRenderer(dev, log))

	engine := ui.New()
	var styles *watch.Watcher
	if cfg.CSS != "" {
		if err := engine.LoadCSS(cfg.CSS); err != nil {
			log.Logf("css: %v", err)
		}
		if styles, err = watch.New(log, cfg.CSS); err != nil {
			log.Logf("css: %v", err)
		} else {
			defer styles.Close()
		}
	}
	inspector := ui.NewInspector(cfg.Language())
	bar := ui.NewLoadingBar()
	prefs := config.LoadPrefs(cfg.PrefsPath)
	dbg := debug.New()
	dbg.SetShowFPS(cfg.ShowFPS || prefs.ShowFPS)
	dbg.SetShowMemAlloc(cfg.ShowMemAlloc || prefs.ShowMemAlloc)

	app := viewer.New(viewer.Options{
		Catalogue:        catalogue,
		Context:          ctx,
		Loader:           loader,
		Fetcher:          fetcher,
		Inspector:        inspector,
		Log:              log,
		FlattenFloor:     cfg.FlattenFloor,
		NoShadowMaterial: cfg.NoShadowMaterial,
	})

	registry := commands.NewRegistry(log)
	commands.RegisterViewer(registry, commands.Viewer{
		App:       app,
		Debug:     dbg,
		Inspector: inspector,
		GPU:       dev,
		PrefsPath: cfg.PrefsPath,
	})
	term := terminal.New(log, registry)
	cons := console.New(registry, log)

	stop, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	go func() {
		if err := cons.Read(stop, os.Stdin); err != nil && stop.Err() == nil {
			log.Logf("console: %v", err)
		}
	}()

	canvas := graphics.NewCanvas()

	var (
		dt    float32
		input viewer.FrameInput
	)
	start := func() {
		if cfg.Font != "" {
			loadFont(canvas, cfg, log)
		}
		if err := app.Select(cfg.Listing); err != nil {
			log.Logf("listing %d: %v", cfg.Listing, err)
		}
	}
	update := func(frame float32) {
		if styles != nil && len(styles.Changed()) > 0 {
			if err := engine.ReloadCSS(cfg.CSS); err != nil {
				log.Logf("css: %v", err)
			} else {
				log.Logf("css: reloaded %s", cfg.CSS)
			}
		}
		cons.Drain()
		graphics.UpdateTerminal(term)
		dt, input = frame, graphics.PollInput(cfg.Mobile, term)
	}
	draw := func() {
		app.Tick(dt, input)

		name := ""
		if i := app.Index(); i >= 0 {
			name = catalogue.Listings[i].Info.Name
		}
		bar.Update(name, app.Loading(), app.Progress(), app.Err())
		dbg.Update(graphics.FPS())

		nodes := bar.Nodes()
		nodes = inspector.AppendNodes(nodes)
		nodes = append(nodes, dbg.Node())
		nodes = append(nodes, term.Nodes()...)
		engine.SetNodes(nodes)
		engine.Draw(canvas)
	}

	graphics.Run(graphics.Window{
		Title:      "Walkthrough",
		Width:      cfg.Width,
		Height:     cfg.Height,
		Fullscreen: cfg.Fullscreen,
		TargetFPS:  cfg.TargetFPS,
		Shutdown: func() {
			app.Dispose()
			canvas.Unload()
			log.Logf("gpu resources left: %v", dev.LiveByKind())
		},
	}, start, update, draw)
	return nil
}

func loadFont(canvas *graphics.Canvas, cfg config.Config, log *logger.Logger) {
	dir := filepath.Join(cfg.AssetRoot, "fonts")
	rel, err := fonts.Find(os.DirFS(dir), cfg.Font)
	if err != nil {
		log.Logf("font %q: %v", cfg.Font, err)
		return
	}
	if err := canvas.LoadFont(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
		log.Logf("font %q: %v", cfg.Font, err)
		return
	}
	log.Logf("font: %s", rel)
}
