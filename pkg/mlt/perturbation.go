package mlt

import (
	"math"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// perturbationType classifies the path suffix being perturbed
type perturbationType int

const (
	perturbLens       perturbationType = iota // suffix (L|D)DS*E
	perturbMultiChain                         // suffix (L|D)DS+DS*E
	perturbCaustic                            // suffix (L|D)S+DE
)

// Film-plane jitter radius in pixels for lens perturbations
const lensJitterPixels = 5.0

// Angular perturbation bounds in radians for caustic and multi-chain moves
const (
	perturbThetaMin = 0.05
	perturbThetaMax = 0.3
)

// PerturbationMutation implements the small-scale lens, multi-chain, and
// caustic perturbations. Slightly moving vertices explores nearby paths with
// similar contributions and therefore high acceptance, complementing the
// large-scale bidirectional mutation.
type PerturbationMutation struct {
	ctx *path.Context
}

// NewPerturbationMutation creates a perturbation mutation
func NewPerturbationMutation(ctx *path.Context) *PerturbationMutation {
	return &PerturbationMutation{ctx: ctx}
}

// Mutate classifies the suffix of x, perturbs either the film point or an
// outgoing direction, and retraces through the specular chain
func (m *PerturbationMutation) Mutate(x *path.Path) (*path.Path, float64) {
	n := x.Len()
	random := m.ctx.Random
	lens := path.New(m.ctx)

	y := x.Clone()

	// classify and delete the current lens subpath
	y.PopBack() // sensor vertex
	if y.Empty() {
		return nil, 0
	}

	var typ perturbationType
	if !y.Back().IsSpecular() && y.Len() >= 2 && y.At(y.Len()-2).IsSpecular() {
		// suffix SDE
		typ = perturbCaustic

		y.PopBack() // diffuse vertex
		for !y.Empty() && y.Back().IsSpecular() {
			y.PopBack()
		}
		if y.Empty() {
			return nil, 0
		}
	} else {
		typ = perturbLens

		for y.Back().IsSpecular() {
			y.PopBack()
			if y.Empty() {
				return nil, 0
			}
		}

		y.PopBack() // diffuse vertex

		for y.Len() >= 2 && y.Back().IsSpecular() {
			// suffix SDS*E: promote to multi-chain
			typ = perturbMultiChain

			for {
				y.PopBack()
				if y.Empty() {
					return nil, 0
				}
				if !y.Back().IsSpecular() {
					break
				}
			}
			y.PopBack() // diffuse vertex
		}

		if typ == perturbLens && !y.Empty() && y.Back().IsSpecular() {
			return nil, 0
		}
	}

	s := y.Len()

	if typ == perturbLens || typ == perturbMultiChain {
		// jitter the film-plane point of the original sensor vertex
		uv := x.Back().Point.UV
		uv.X += (random.Float64()*2 - 1) * lensJitterPixels * m.ctx.InvW
		uv.Y += (random.Float64()*2 - 1) * lensJitterPixels * m.ctx.InvH
		uv.X = math.Min(1, math.Max(0, uv.X))
		uv.Y = math.Min(1, math.Max(0, uv.Y))

		pt := m.ctx.Camera.Point(uv)
		if !lens.PrependVertex(path.NewCameraVertex(pt, m.ctx.FilmDensity(), random)) {
			return nil, 0
		}

		// retrace through the specular chain, replaying the original events
		if !m.growLens(lens, x, n) {
			return nil, 0
		}

		if typ == perturbMultiChain {
			// perturb the outgoing direction at each interior DS+ junction
			for lens.Len()+y.Len() < n {
				t := n - lens.Len()
				if t == 0 || y.Len()+lens.Len() >= n {
					break
				}

				wo := x.At(t - 1).Point.Position.
					Subtract(x.At(t).Point.Position).Normalize()
				wo = m.perturbDirection(wo)

				front := lens.Front()
				front.Event = core.NewEvent(wo, front.Event)

				if !m.growLens(lens, x, n) {
					return nil, 0
				}
			}
		}
	} else {
		// caustic: perturb the outgoing direction at the diffuse boundary and
		// retrace forward through the specular chain
		wo := x.At(s).Point.Position.Subtract(x.At(s - 1).Point.Position).Normalize()
		wo = m.perturbDirection(wo)

		back := y.Back()
		back.Event = core.NewEvent(wo, back.Event)

		for {
			if !y.AppendReplay() {
				return nil, 0
			}
			if y.Back().Point.BSDF != x.At(y.Len()-1).Point.BSDF {
				return nil, 0
			}
			if y.Len() >= n-1 {
				break
			}

			back = y.Back()
			back.Event = back.BSDF.SampleFrom(x.At(y.Len()-1).Event, back.Wi, back.Point, random)
		}

		// reproject the final point back onto the film plane
		uv, _ := m.ctx.Camera.Project(y.Back().Point.Position)
		uv.X = math.Min(1, math.Max(0, uv.X))
		uv.Y = math.Min(1, math.Max(0, uv.Y))

		pt := m.ctx.Camera.Point(uv)
		if !lens.PrependVertex(path.NewCameraVertex(pt, m.ctx.FilmDensity(), random)) {
			return nil, 0
		}
	}

	// reattach the perturbed lens subpath
	if !y.AppendPath(lens) {
		return nil, 0
	}
	if !y.Front().IsEmitter() || !y.Back().IsSensor() {
		return nil, 0
	}

	var txy, tyx float64
	switch typ {
	case perturbCaustic:
		txy = y.At(y.Len() - 1).PL
		tyx = x.At(x.Len() - 1).PL
	default:
		txy = y.At(s).PE
		tyx = x.At(s).PE
	}

	fx := x.Radiance().Luminance()
	fy := y.Radiance().Luminance()
	if fx*txy == 0 {
		return nil, 0
	}

	alpha := math.Min(1, (fy*tyx)/(fx*txy))
	return y, alpha
}

// growLens prepends vertices to the lens subpath until it reaches a
// non-specular surface, requiring material identity with the original path at
// every step
func (m *PerturbationMutation) growLens(lens, x *path.Path, n int) bool {
	for {
		if !lens.PrependReplay() {
			return false
		}
		if lens.Len() > n {
			return false
		}

		front := lens.Front()
		original := x.At(n - lens.Len())
		if front.Point.BSDF != original.Point.BSDF {
			return false
		}

		front.Event = front.BSDF.SampleFrom(original.Event, front.Wi, front.Point, m.ctx.Random)

		if !front.IsSpecular() {
			return true
		}
	}
}

// perturbDirection nudges a unit direction by an exponentially distributed
// angular radius between the configured bounds
func (m *PerturbationMutation) perturbDirection(dir core.Vec3) core.Vec3 {
	u, v := dir.OrthonormalBasis()

	phi := 2 * math.Pi * m.ctx.Random.Float64()
	r := perturbThetaMax * math.Exp(-math.Log(perturbThetaMax/perturbThetaMin)*m.ctx.Random.Float64())

	return dir.
		Add(u.Multiply(r * math.Cos(phi))).
		Add(v.Multiply(r * math.Sin(phi))).
		Normalize()
}
