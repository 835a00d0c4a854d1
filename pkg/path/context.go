package path

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// minEdgeScale scales the scene diagonal into the minimum edge length below
// which geometry terms are declared invalid, suppressing the near-singular
// G spikes caused by vertices landing almost on top of each other.
const minEdgeScale = 1e-5

// minSampleArea is the surface area below which a shape is degenerate: point
// lights and pinhole apertures that random rays cannot intersect.
const minSampleArea = 1e-6

// Context carries the immutable scene hooks and the per-thread random stream
// that path construction needs. One Context per worker thread.
type Context struct {
	Scene  core.Scene
	Camera core.Camera
	Random *rand.Rand

	InvW, InvH float64 // reciprocal film resolution
	MinEdge    float64 // minimum valid edge length
}

// NewContext creates a path construction context for one thread
func NewContext(scene core.Scene, camera core.Camera, random *rand.Rand, width, height int) *Context {
	minEdge := minEdgeScale * scene.Diagonal()
	if minEdge <= 0 {
		minEdge = 1e-6
	}
	return &Context{
		Scene:   scene,
		Camera:  camera,
		Random:  random,
		InvW:    1.0 / float64(width),
		InvH:    1.0 / float64(height),
		MinEdge: minEdge,
	}
}

// FilmDensity returns the film-plane area density of one sample point
func (ctx *Context) FilmDensity() float64 {
	return ctx.InvW * ctx.InvH
}
