package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/renderer"
	"github.com/df07/go-metropolis-raytracer/pkg/scene"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		sceneName  = flag.String("scene", "cornell", "Scene: cornell, caustic, mirror, background")
		integrator = flag.String("integrator", "", "Integrator: bdpt, pt, or mlt (overrides config)")
		configFile = flag.String("config", "", "Optional YAML renderer configuration")
		output     = flag.String("out", "render.png", "Output image path (format by extension: .png, .tif)")
		width      = flag.Int("width", 0, "Image width (overrides config)")
		height     = flag.Int("height", 0, "Image height (overrides config)")
		duration   = flag.Duration("time", 30*time.Second, "Wall-clock render budget (MLT and infinite sampling)")
	)
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer zl.Sync()
	logger := renderer.NewZapLogger(zl)

	cfg := renderer.DefaultConfig()
	if *configFile != "" {
		cfg, err = renderer.LoadConfig(*configFile)
		if err != nil {
			zl.Sugar().Errorf("configuration error: %v", err)
			return 1
		}
	}
	if *integrator != "" {
		cfg.Integrator = *integrator
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}

	sc, camera, err := buildScene(*sceneName, cfg.Width, cfg.Height)
	if err != nil {
		zl.Sugar().Errorf("scene setup failed: %v", err)
		return 1
	}

	r, err := renderer.New(cfg, sc, camera, logger)
	if err != nil {
		zl.Sugar().Errorf("configuration error: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt)
	defer stopSignals()

	if _, err := r.Render(ctx, *output); err != nil {
		zl.Sugar().Errorf("render failed: %v", err)
		return 1
	}
	return 0
}

func buildScene(name string, width, height int) (core.Scene, core.Camera, error) {
	switch name {
	case "cornell":
		return scene.NewCornellScene(width, height)
	case "caustic":
		return scene.NewCausticGlassScene(width, height)
	case "mirror":
		return scene.NewMirrorScene(width, height)
	case "background":
		return scene.NewBackgroundScene(core.FillSpectrum(1), width, height)
	default:
		return nil, nil, fmt.Errorf("unknown scene %q", name)
	}
}
