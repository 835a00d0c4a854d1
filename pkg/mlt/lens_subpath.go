package mlt

import (
	"math"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// LensSubpathMutation regenerates the lens subpath (sensor, specular chain,
// and the first diffuse vertex) from a freshly sampled film point. Unlike the
// lens perturbation it does not replay the original scattering events, so it
// explores the whole image plane instead of a local neighborhood.
type LensSubpathMutation struct {
	ctx *path.Context
}

// NewLensSubpathMutation creates a lens subpath mutation
func NewLensSubpathMutation(ctx *path.Context) *LensSubpathMutation {
	return &LensSubpathMutation{ctx: ctx}
}

// Mutate deletes the lens subpath of x and regrows it from a uniform film point
func (m *LensSubpathMutation) Mutate(x *path.Path) (*path.Path, float64) {
	n := x.Len()
	random := m.ctx.Random

	y := x.Clone()

	// delete the current lens subpath: sensor, S*, first diffuse
	y.PopBack()
	if y.Empty() {
		return nil, 0
	}
	for y.Back().IsSpecular() {
		y.PopBack()
		if y.Empty() {
			return nil, 0
		}
	}
	y.PopBack()

	s := y.Len()

	// regrow from a fresh film point, stopping at the first diffuse surface
	lens := path.New(m.ctx)
	uv := core.NewVec2(random.Float64(), random.Float64())
	pt := m.ctx.Camera.Point(uv)
	if !lens.PrependVertex(path.NewCameraVertex(pt, m.ctx.FilmDensity(), random)) {
		return nil, 0
	}

	for {
		if !lens.Prepend(false) {
			return nil, 0
		}
		if lens.Len() > n {
			return nil, 0
		}
		if !lens.Front().IsSpecular() {
			break
		}
	}

	if !y.AppendPath(lens) {
		return nil, 0
	}
	if !y.Front().IsEmitter() || !y.Back().IsSensor() {
		return nil, 0
	}

	txy := y.At(s).PE
	tyx := x.At(s).PE

	fx := x.Radiance().Luminance()
	fy := y.Radiance().Luminance()
	if fx*txy == 0 {
		return nil, 0
	}

	alpha := math.Min(1, (fy*tyx)/(fx*txy))
	return y, alpha
}
