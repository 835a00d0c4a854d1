package renderer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/film"
	"github.com/df07/go-metropolis-raytracer/pkg/integrator"
	"github.com/df07/go-metropolis-raytracer/pkg/mlt"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// maxQueuedSamples bounds the shared sample queue between the generator
// thread and the consumer threads
const maxQueuedSamples = 512

// seedThreadID offsets the RNG stream used for MLT seed generation away from
// the per-chain streams
const seedThreadID = 1 << 16

// RenderStats summarizes a completed render
type RenderStats struct {
	Samples    uint64
	Degenerate int64
	Elapsed    time.Duration
}

// Renderer drives a full render: it owns the film and coordinates the worker
// threads for whichever integrator the config selects.
type Renderer struct {
	cfg    Config
	scene  core.Scene
	camera core.Camera
	film   *film.Film
	logger core.Logger
}

// New validates the config and builds the renderer and its film
func New(cfg Config, sc core.Scene, camera core.Camera, logger core.Logger) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	filter, err := film.NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	tonemap, err := film.NewTonemap(cfg.Tonemap)
	if err != nil {
		return nil, err
	}

	f := film.New(film.Options{
		Width:          cfg.Width,
		Height:         cfg.Height,
		MLT:            cfg.Integrator == IntegratorMLT,
		FilterProposed: cfg.MLTFilterProposed,
		Filter:         filter,
		Tonemap:        tonemap,
	})

	if logger == nil {
		logger = core.NoopLogger{}
	}

	return &Renderer{cfg: cfg, scene: sc, camera: camera, film: f, logger: logger}, nil
}

// Film returns the renderer's film
func (r *Renderer) Film() *film.Film { return r.film }

// Render runs until the sample budget is exhausted or ctx is done, then
// writes the final image to outPath (empty disables output)
func (r *Renderer) Render(ctx context.Context, outPath string) (RenderStats, error) {
	start := time.Now()

	if outPath != "" && r.cfg.SavePeriod > 0 {
		stopSaver := r.startPeriodicSave(ctx, outPath)
		defer stopSaver()
	}

	var stats RenderStats
	var err error
	if r.cfg.Integrator == IntegratorMLT {
		stats, err = r.renderMLT(ctx)
	} else {
		stats, err = r.renderPointSamples(ctx)
	}
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, err
	}

	r.logger.Printf("rendered %d samples in %v (%d degenerate)",
		stats.Samples, stats.Elapsed, stats.Degenerate)

	if outPath != "" {
		if err := r.film.Save(outPath); err != nil {
			return stats, err
		}
		r.logger.Printf("saved render to %s", outPath)
	}
	return stats, nil
}

// pixelSampler estimates the radiance arriving at one film point
type pixelSampler interface {
	SamplePixel(uv core.Vec2) core.Spectrum
}

// renderPointSamples runs the generator/consumer pipeline for the point
// sampling integrators (bdpt, pt): one generator enumerates film positions
// into a bounded queue, noRenderThreads consumers evaluate and splat them.
func (r *Renderer) renderPointSamples(ctx context.Context) (RenderStats, error) {
	threads := r.cfg.threads()
	queue := make(chan core.Vec2, maxQueuedSamples)

	r.logger.Printf("rendering with %d threads", threads)

	// generator: sweep the film noSuperSamples times (0 = until cancelled)
	go func() {
		defer close(queue)
		genRandom := core.NewRand(r.cfg.Seed, seedThreadID+1)

		for pass := 0; r.cfg.NoSuperSamples == 0 || pass < r.cfg.NoSuperSamples; pass++ {
			for y := 0; y < r.cfg.Height; y++ {
				for x := 0; x < r.cfg.Width; x++ {
					uv := core.NewVec2(
						(float64(x)+genRandom.Float64())/float64(r.cfg.Width),
						(float64(y)+genRandom.Float64())/float64(r.cfg.Height),
					)
					select {
					case queue <- uv:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	var wg sync.WaitGroup
	var samples uint64
	var degenerate int64

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()

			pctx := path.NewContext(r.scene, r.camera,
				core.NewRand(r.cfg.Seed, threadID), r.cfg.Width, r.cfg.Height)

			icfg := integrator.Config{Clamp: r.cfg.Clamp, MaxDepth: r.cfg.MLTMaxDepth}
			var sampler pixelSampler
			var bdpt *integrator.BDPT
			if r.cfg.Integrator == IntegratorPT {
				sampler = integrator.NewPathTracer(pctx, icfg)
			} else {
				bdpt = integrator.NewBDPT(pctx, icfg)
				sampler = bdpt
			}

			// the generator stops feeding the queue on cancellation, so
			// draining it is the cooperative shutdown
			local := uint64(0)
			for uv := range queue {
				r.film.AddSample(uv, sampler.SamplePixel(uv), 1)
				local++
			}

			atomic.AddUint64(&samples, local)
			if bdpt != nil {
				atomic.AddInt64(&degenerate, bdpt.DegenerateSamples())
			}
		}(i)
	}

	wg.Wait()
	return RenderStats{Samples: samples, Degenerate: degenerate}, nil
}

// renderMLT seeds the chains with bidirectional proposals, then runs one
// Markov chain per thread until cancelled
func (r *Renderer) renderMLT(ctx context.Context) (RenderStats, error) {
	seedCtx := path.NewContext(r.scene, r.camera,
		core.NewRand(r.cfg.Seed, seedThreadID), r.cfg.Width, r.cfg.Height)
	gen := integrator.NewBDPT(seedCtx, integrator.Config{MaxDepth: r.cfg.MLTMaxDepth})

	r.logger.Printf("generating %d initial paths", r.cfg.MLTNoInitialPaths)
	seeds, err := mlt.InitSeedPaths(gen, r.cfg.MLTNoInitialPaths, r.cfg.MLTMaxDepth)
	if err != nil {
		return RenderStats{}, err
	}
	r.logger.Printf("seeded %d paths, b = %g", seeds.Len(), seeds.B())

	weights := mlt.MutationWeights{
		Bidir:        r.cfg.MLTBidirPathMutationProb,
		LensSubpath:  r.cfg.MLTLensSubpathMutationProb,
		Perturbation: r.cfg.MLTPerturbationPathMutationProb,
	}

	threads := r.cfg.threads()
	r.logger.Printf("running %d chains", threads)

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	var wg sync.WaitGroup
	chains := make([]*mlt.Chain, threads)

	for i := 0; i < threads; i++ {
		pctx := path.NewContext(r.scene, r.camera,
			core.NewRand(r.cfg.Seed, i), r.cfg.Width, r.cfg.Height)

		chains[i] = mlt.NewChain(pctx,
			mlt.NewAggregateMutation(pctx, weights),
			r.film,
			mlt.ChainConfig{
				Weight:                   seeds.B(),
				MaxDepth:                 r.cfg.MLTMaxDepth,
				MaxConsecutiveRejections: r.cfg.MLTMaxConsequtiveRejections,
			},
			seeds.Sample(pctx.Random))

		wg.Add(1)
		go func(c *mlt.Chain) {
			defer wg.Done()
			c.Run(stop)
		}(chains[i])
	}

	wg.Wait()

	var steps uint64
	for _, c := range chains {
		steps += c.Steps()
	}
	return RenderStats{Samples: steps}, nil
}

// startPeriodicSave checkpoints the film every savePeriod seconds. Save
// failures are logged and rendering continues; the last good checkpoint
// stays on disk.
func (r *Renderer) startPeriodicSave(ctx context.Context, outPath string) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(time.Duration(r.cfg.SavePeriod) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.film.SaveTemp(outPath); err != nil {
					r.logger.Printf("checkpoint save failed: %v", err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
