package mlt

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// SampleSink receives the chain's splatted samples. The film implements it.
type SampleSink interface {
	AddSample(uv core.Vec2, value core.Spectrum, weight float64)
	AddProposed(uv core.Vec2)
}

// ChainConfig tunes one Markov chain
type ChainConfig struct {
	Weight                   float64 // b: estimated total image flux the chain reproduces in scale
	MaxDepth                 int     // reject proposals longer than this; 0 disables
	MaxConsecutiveRejections int     // splat throttle for pathological seeds; 0 disables
}

// Chain is one Metropolis-Hastings random walk over path space. The
// stationary distribution is the image contribution function; samples are
// splatted with the expected-value estimator: both the current and tentative
// states contribute, weighted 1-α and α.
type Chain struct {
	ctx      *path.Context
	mutation Mutation
	sink     SampleSink
	cfg      ChainConfig

	state      *path.Path
	rejections int

	steps    uint64
	accepted uint64
}

// chainSample is a splat-ready sample derived from a path
type chainSample struct {
	uv    core.Vec2
	value core.Spectrum
	valid bool
}

// NewChain creates a chain starting at the given seed path
func NewChain(ctx *path.Context, mutation Mutation, sink SampleSink, cfg ChainConfig, seed *path.Path) *Chain {
	seed.SetContext(ctx)
	return &Chain{
		ctx:      ctx,
		mutation: mutation,
		sink:     sink,
		cfg:      cfg,
		state:    seed,
	}
}

// Run steps the chain until stop is closed. Cancellation is cooperative: the
// flag is polled between steps.
func (c *Chain) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			c.Step()
		}
	}
}

// Step performs one Metropolis-Hastings transition
func (c *Chain) Step() {
	y, alpha := c.mutation.Mutate(c.state)

	// clamp invalid proposals
	if y == nil || y.Len() < 2 || (c.cfg.MaxDepth > 0 && y.Len() > c.cfg.MaxDepth) {
		y = nil
		alpha = 0
	}

	current := c.initSample(c.state)
	tentative := c.initSample(y)

	c.steps++
	c.rejections++

	if c.cfg.MaxConsecutiveRejections <= 0 || c.rejections < c.cfg.MaxConsecutiveRejections {
		c.splat(current, 1-alpha, false)
		c.splat(tentative, alpha, true)
	}

	// transition with probability alpha
	if c.ctx.Random.Float64() < alpha {
		c.rejections = 0
		c.accepted++
		c.state = y
	}
}

// Steps returns the number of transitions attempted
func (c *Chain) Steps() uint64 { return c.steps }

// AcceptanceRate returns the fraction of accepted proposals
func (c *Chain) AcceptanceRate() float64 {
	if c.steps == 0 {
		return 0
	}
	return float64(c.accepted) / float64(c.steps)
}

// State returns the chain's current path
func (c *Chain) State() *path.Path { return c.state }

// initSample projects a path onto the film and scales its radiance by the
// chain weight over luminance, per the histogram normalization
func (c *Chain) initSample(p *path.Path) chainSample {
	if p == nil || p.Len() < 2 {
		return chainSample{}
	}

	radiance := p.Radiance()
	lum := radiance.Luminance()
	if lum <= 0 {
		return chainSample{}
	}

	uv, ok := c.ctx.Camera.Project(p.At(p.Len() - 2).Point.Position)
	if !ok {
		return chainSample{}
	}

	return chainSample{
		uv:    uv,
		value: radiance.Scale(c.cfg.Weight / lum),
		valid: true,
	}
}

func (c *Chain) splat(s chainSample, prob float64, tentative bool) {
	if prob <= 0 || !s.valid {
		return
	}
	if tentative {
		c.sink.AddProposed(s.uv)
	}
	c.sink.AddSample(s.uv, s.value.Scale(prob), 1)
}
