package integrator

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// PathTracer is a forward path tracer: eye subpaths only, contributing when
// the walk lands on an emitter. It reuses the same path machinery as the
// bidirectional tracer with the light subpath left empty.
type PathTracer struct {
	ctx *Context
	cfg Config
}

// NewPathTracer creates a forward path tracer bound to one thread's context
func NewPathTracer(ctx *Context, cfg Config) *PathTracer {
	return &PathTracer{ctx: ctx, cfg: cfg}
}

// SamplePixel estimates the radiance arriving at film point uv using the
// s=0 strategy only
func (p *PathTracer) SamplePixel(uv core.Vec2) core.Spectrum {
	eye := path.New(p.ctx)

	camPt := p.ctx.Camera.Point(uv)
	eye.PrependVertex(path.NewCameraVertex(camPt, p.ctx.FilmDensity(), p.ctx.Random))

	for {
		roulette := eye.Len() >= 2
		if !eye.Prepend(roulette) {
			break
		}
		if eye.Front().Point.IsEmitter() {
			break
		}
	}

	if eye.Len() == 1 {
		return p.ctx.Scene.BackgroundRadiance(eye.Front().Event.Wo)
	}
	if !eye.Front().Point.IsEmitter() {
		return core.Black()
	}

	// cap the eye subpath with the empty light subpath
	full := path.New(p.ctx)
	full.AppendPath(eye)

	return full.Contribution(0, full.Len(), false)
}
