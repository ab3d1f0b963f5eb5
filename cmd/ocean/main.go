// Command ocean renders the animated ocean scene in a window, or drives the
// same session headlessly for a fixed number of frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"Ocean3D/internal/config"
	"Ocean3D/internal/engine"
	"Ocean3D/internal/logger"
	"Ocean3D/internal/platform/glfwhost"
	"Ocean3D/internal/platform/headless"
	"Ocean3D/internal/renderer"

	"go.uber.org/zap"
)

// loadTimeout bounds how long headless mode waits for assets before stepping frames.
const loadTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ocean", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	container := fs.String("container", "", "host container id")
	model := fs.String("model", "", "model URL (OBJ or gzip mesh)")
	normals := fs.String("normals", "", "water normal map URL")
	width := fs.Int("width", 0, "window width")
	height := fs.Int("height", 0, "window height")
	headlessMode := fs.Bool("headless", false, "run without a window")
	frames := fs.Int("frames", 0, "frames to run in headless mode")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "container":
			cfg.Container = *container
		case "model":
			cfg.Assets.Model = *model
		case "normals":
			cfg.Assets.NormalMap = *normals
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "headless":
			cfg.Headless.Enabled = *headlessMode
		case "frames":
			cfg.Headless.Frames = *frames
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	opts := engine.DefaultOptions()
	opts.ModelURL = cfg.Assets.Model
	opts.NormalsURL = cfg.Assets.NormalMap
	opts.Workers = cfg.Assets.Workers
	opts.CaptureSize = cfg.Bake.CaptureSize
	opts.IrradianceSize = cfg.Bake.IrradianceSize
	opts.Logger = logger.Log

	if cfg.Headless.Enabled {
		err = runHeadless(cfg, opts)
	} else {
		err = runWindow(cfg, opts)
	}
	if err != nil {
		logger.Log.Error("Ocean exited with error", zap.Error(err))
		return 1
	}
	return 0
}

func runWindow(cfg config.Config, opts engine.Options) error {
	host, err := glfwhost.New(glfwhost.Options{
		ContainerID: cfg.Container,
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		Title:       cfg.Window.Title,
		VSync:       cfg.Window.VSync,
	}, logger.Log)
	if err != nil {
		return err
	}
	defer host.Close()

	vp := engine.NewViewport(host, opts)
	if err := vp.Start(cfg.Container); err != nil {
		vp.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = host.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if closeErr := vp.Close(); closeErr != nil {
		logger.Log.Warn("Teardown reported errors", zap.Error(closeErr))
	}
	return err
}

func runHeadless(cfg config.Config, opts engine.Options) error {
	host := headless.New(cfg.Headless.FrameRate)
	host.AddContainer(cfg.Container, cfg.Window.Width, cfg.Window.Height)

	vp := engine.NewViewport(host, opts)
	defer vp.Close()
	if err := vp.Start(cfg.Container); err != nil {
		return err
	}
	session := vp.Session()

	// Let the assets land so the run is repeatable; failures are already logged.
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if req := session.NormalsRequest(); req != nil {
		_, _ = req.Wait(ctx)
	}
	if req := session.ModelRequest(); req != nil {
		_, _ = req.Wait(ctx)
	}

	host.Scheduler().Run(cfg.Headless.Frames)

	var stats renderer.Stats
	if r, ok := session.Renderer().(renderer.StatsReporter); ok {
		stats = r.Stats()
	}
	logger.Log.Info("Headless run finished",
		zap.Uint64("frames", session.Frames()),
		zap.Uint64("drawCalls", stats.DrawCalls),
		zap.Int("geometries", stats.Geometries),
		zap.Int("textures", stats.Textures),
		zap.Bool("modelLoaded", session.State().HasModel()),
		zap.Float32("waterPhase", session.State().Water.Phase()))

	return vp.Stop()
}
