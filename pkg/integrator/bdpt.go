package integrator

import (
	"math"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// Config holds sampling options shared by the integrators
type Config struct {
	// MaxDepth carries a caller's path-length bound (MLT seeding passes its
	// own). The integrators do not read it: subpath termination is left to
	// russian roulette, and seeding filters long paths itself.
	MaxDepth int

	// Clamp bounds every spectral component of a sample to [0,1]. A mild
	// bias knob against heavy-tailed variance; off by default.
	Clamp bool
}

// BDPT is the bidirectional path tracer: it samples an eye subpath and a
// light subpath, joins them, and combines every split of every prefix length
// with power-heuristic multiple importance sampling.
type BDPT struct {
	ctx *Context
	cfg Config

	// degenerate counts NaN/Inf contributions clamped to zero. The
	// integrator is per-thread, so a plain counter suffices.
	degenerate int64
}

// Context aliases the path construction context
type Context = path.Context

// NewBDPT creates a bidirectional path tracer bound to one thread's context
func NewBDPT(ctx *Context, cfg Config) *BDPT {
	return &BDPT{ctx: ctx, cfg: cfg}
}

// DegenerateSamples returns the number of numerically degenerate samples
// replaced by zero so far
func (b *BDPT) DegenerateSamples() int64 {
	return b.degenerate
}

// SamplePixel estimates the radiance arriving at film point uv
func (b *BDPT) SamplePixel(uv core.Vec2) core.Spectrum {
	eye := path.New(b.ctx)

	// first vertex is the given film point on the camera
	camPt := b.ctx.Camera.Point(uv)
	eye.PrependVertex(path.NewCameraVertex(camPt, b.ctx.FilmDensity(), b.ctx.Random))

	b.generateEye(eye)

	if eye.Len() == 1 {
		// primary ray escaped the scene
		return b.ctx.Scene.BackgroundRadiance(eye.Front().Event.Wo)
	}

	light := path.New(b.ctx)
	if !eye.Front().Point.IsEmitter() {
		b.generateLight(light)
	}

	valid := light.AppendPath(eye)
	full := light

	length := full.Len()
	if !valid {
		length--
	}

	L := core.Black()
	if length < 2 {
		return L
	}

	// weight every split of every prefix length with the power heuristic;
	// relative normalization per length makes absolute densities sufficient
	pdfs := make([]float64, length+1)
	for k := 2; k <= length; k++ {
		sum := 0.0
		for s := 0; s <= k; s++ {
			pd := full.Pd(s, k-s, false)
			pdfs[s] = pd * pd
			sum += pdfs[s]
		}
		if sum == 0 {
			continue
		}

		for s := 0; s <= k; s++ {
			if pdfs[s] > 0 {
				weight := pdfs[s] / sum
				L = L.Add(full.Contribution(s, k-s, false).Scale(weight))
			}
		}
	}

	return b.finishSample(L)
}

// GeneratePath samples one complete bidirectional path for seeding purposes.
// The film point is drawn uniformly. ok is false when the joining edge was
// occluded.
func (b *BDPT) GeneratePath() (*path.Path, bool) {
	eye := path.New(b.ctx)
	b.generateEye(eye)

	light := path.New(b.ctx)
	if eye.Len() > 0 && !eye.Front().Point.IsEmitter() {
		b.generateLight(light)
	}

	ok := light.AppendPath(eye)
	return light, ok
}

// generateEye extends an eye subpath by BSDF sampling until the walk dies or
// lands on an emitter. Roulette starts at depth 2 to avoid biasing short paths.
func (b *BDPT) generateEye(eye *path.Path) {
	for {
		roulette := eye.Len() >= 2
		if !eye.Prepend(roulette) {
			break
		}
		if eye.Front().Point.IsEmitter() {
			break
		}
	}
}

// generateLight builds a light subpath: the first append seeds from the
// emitter sampler, later ones roulette
func (b *BDPT) generateLight(light *path.Path) {
	for {
		roulette := light.Len() > 0
		if !light.Append(roulette) {
			break
		}
	}
}

// finishSample applies the numerical-degeneracy guard and the optional clamp
func (b *BDPT) finishSample(L core.Spectrum) core.Spectrum {
	for i := range L.Samples {
		v := L.Samples[i].Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.degenerate++
			return core.Black()
		}
	}

	if b.cfg.Clamp {
		for i := range L.Samples {
			L.Samples[i].Value = math.Min(1, math.Max(0, L.Samples[i].Value))
		}
	}
	return L
}
