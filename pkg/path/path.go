package path

import (
	"fmt"
	"math"
	"strings"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/pkg/errors"
)

// Path is an ordered sequence of vertices x0,x1,...,x(k-1) on scene surfaces,
// the central unit of the path-integral formulation. A path either starts at
// an emitter (light subpath), ends at a sensor (eye subpath), or both
// (complete path). Vertices are ordered light-to-eye: x0 is the emitter end,
// x(k-1) the sensor end.
type Path struct {
	ctx      *Context
	verts    []Vertex
	radiance core.Spectrum
}

// New creates an empty path
func New(ctx *Context) *Path {
	return &Path{ctx: ctx}
}

// Len returns the number of vertices
func (p *Path) Len() int { return len(p.verts) }

// Empty reports whether the path has no vertices
func (p *Path) Empty() bool { return len(p.verts) == 0 }

// At returns the i-th vertex counted from the light end
func (p *Path) At(i int) *Vertex { return &p.verts[i] }

// Front returns the vertex at the light end
func (p *Path) Front() *Vertex { return &p.verts[0] }

// Back returns the vertex at the eye end
func (p *Path) Back() *Vertex { return &p.verts[len(p.verts)-1] }

// Context returns the construction context
func (p *Path) Context() *Context { return p.ctx }

// SetContext rebinds the path to another thread's construction context
func (p *Path) SetContext(ctx *Context) { p.ctx = ctx }

// Radiance returns the radiance propagated along this path in the direction
// of light flow, cached by the last AppendPath
func (p *Path) Radiance() core.Spectrum { return p.radiance }

// Clone returns a copy sharing surface points but owning its vertex sequence
func (p *Path) Clone() *Path {
	verts := make([]Vertex, len(p.verts))
	copy(verts, p.verts)
	return &Path{ctx: p.ctx, verts: verts, radiance: p.radiance}
}

// Left returns a copy of the first n vertices x0..x(n-1)
func (p *Path) Left(n int) *Path {
	verts := make([]Vertex, n)
	copy(verts, p.verts[:n])
	return &Path{ctx: p.ctx, verts: verts}
}

// Right returns a copy of the last n vertices x(k-n)..x(k-1)
func (p *Path) Right(n int) *Path {
	verts := make([]Vertex, n)
	copy(verts, p.verts[len(p.verts)-n:])
	return &Path{ctx: p.ctx, verts: verts}
}

// PopBack removes the vertex at the eye end
func (p *Path) PopBack() {
	p.verts = p.verts[:len(p.verts)-1]
}

// PopFront removes the vertex at the light end
func (p *Path) PopFront() {
	p.verts = p.verts[1:]
}

// Clear removes all vertices
func (p *Path) Clear() {
	p.verts = p.verts[:0]
	p.radiance = core.Black()
}

func (p *Path) pushBack(v Vertex) {
	p.verts = append(p.verts, v)
}

func (p *Path) pushFront(v Vertex) {
	p.verts = append(p.verts, Vertex{})
	copy(p.verts[1:], p.verts)
	p.verts[0] = v
}

// Append extends the light end by one vertex: sample the end vertex's BSDF,
// trace, initialize. The first call seeds x0 from the emitter sampler.
// Returns false on absorption, miss, short edge, or roulette termination.
func (p *Path) Append(roulette bool) bool {
	return p.appendInternal(roulette, true)
}

// AppendReplay extends the light end re-using the end vertex's existing event
// instead of sampling a fresh one
func (p *Path) AppendReplay() bool {
	return p.appendInternal(false, false)
}

func (p *Path) appendInternal(roulette, sampleBSDF bool) bool {
	if p.Len() > 0 {
		return p.samplePathVertex(roulette, false, sampleBSDF)
	}

	// seed initial location on a random light source
	sampler := p.ctx.Scene.EmitterSampler()
	pt, _ := sampler.Sample(p.ctx.Random)
	if pt == nil {
		return false
	}
	pA := sampler.Pd(pt)

	p.pushBack(NewEmitterVertex(pt, pA, p.ctx.Random))
	p.Back().TE = 0
	return true
}

// Prepend extends the eye end by one vertex. The first call seeds x(k-1) on
// the camera at a uniform film point with the film-plane density.
func (p *Path) Prepend(roulette bool) bool {
	return p.prependInternal(roulette, true)
}

// PrependReplay extends the eye end re-using the end vertex's existing event
func (p *Path) PrependReplay() bool {
	return p.prependInternal(false, false)
}

func (p *Path) prependInternal(roulette, sampleBSDF bool) bool {
	if p.Len() > 0 {
		return p.samplePathVertex(roulette, true, sampleBSDF)
	}

	uv := core.NewVec2(p.ctx.Random.Float64(), p.ctx.Random.Float64())
	pt := p.ctx.Camera.Point(uv)

	p.pushFront(NewCameraVertex(pt, p.ctx.FilmDensity(), p.ctx.Random))
	p.Front().TL = 0
	return true
}

// PrependVertex glues the given vertex onto the eye end. Returns false if the
// connection would invalidate the path.
func (p *Path) PrependVertex(v1 Vertex) bool {
	if p.Empty() {
		p.pushFront(v1)
		p.Front().TL = 0
		return true
	}

	v := p.Front()
	var alphaE core.Spectrum
	var pE float64

	wo := v1.Point.Position.Subtract(v.Point.Position)
	t := wo.Length()
	wo = wo.Multiply(1 / t)

	wi := wo.Negate()
	if p.Len() >= 2 {
		wi = v.Point.Position.Subtract(p.verts[1].Point.Position).Normalize()
	}

	if !p.initE(v, wi, wo, t, v1.Point, &alphaE, &pE, false) {
		return false
	}

	p.pushFront(v1)
	z := p.Front()
	z.GL = v.GE
	z.Wi = wo
	z.AlphaL = core.Identity()
	z.AlphaE = alphaE
	z.PL = 1
	z.PE = pE
	z.TL = t

	// a seeded camera vertex moving to the interior reverts to reflectance
	if z.Point.Sensor != nil && z.BSDF == core.BSDF(z.Point.Sensor) {
		z.BSDF = z.Point.BSDF
	}
	return true
}

// AppendVertex glues the given vertex onto the light end
func (p *Path) AppendVertex(v1 Vertex) bool {
	if p.Empty() {
		p.pushBack(v1)
		p.Back().TE = 0
		return true
	}

	v := p.Back()
	var alphaL core.Spectrum
	var pL float64

	wo := v1.Point.Position.Subtract(v.Point.Position)
	t := wo.Length()
	wo = wo.Multiply(1 / t)

	wi := wo.Negate()
	if p.Len() >= 2 {
		wi = v.Point.Position.Subtract(p.verts[p.Len()-2].Point.Position).Normalize()
	}

	if !p.initL(v, wi, wo, t, v1.Point, &alphaL, &pL, false) {
		return false
	}

	p.pushBack(v1)
	y := p.Back()
	y.GE = v.GL
	y.Wi = wo
	y.AlphaL = alphaL
	y.AlphaE = core.Identity()
	y.PL = pL
	y.PE = 1
	y.TE = t

	if y.Point.Emitter != nil && y.BSDF == core.BSDF(y.Point.Emitter) {
		y.BSDF = y.Point.BSDF
	}
	return true
}

// AppendPath glues a prepared eye subpath onto this light subpath: one
// visibility check on the connecting edge, fs and density re-evaluation at
// the junction vertices, alpha propagation from both ends, and a radiance
// recompute. Returns false iff the connecting edge is occluded or degenerate.
func (p *Path) AppendPath(q *Path) bool {
	s := p.Len()
	t := q.Len()
	k := s + t
	invalid := 0

	p.verts = append(p.verts, q.verts...)

	if k > 0 && p.verts[0].Point.IsEmitter() {
		p.verts[0].BSDF = p.verts[0].Point.Emitter
	}

	// initialize the connection between the last light vertex and the first
	// eye vertex
	if s > 0 && t > 0 {
		y := &p.verts[s-1]
		z := &p.verts[s]

		wo := z.Point.Position.Subtract(y.Point.Position)
		d := wo.Length()
		if d > 0 {
			wo = wo.Multiply(1 / d)
		}

		var alpha core.Spectrum
		var pA float64

		wi := wo.Negate()
		if s > 1 {
			wi = y.Point.Position.Subtract(p.verts[s-2].Point.Position).Normalize()
		}
		if !p.initL(y, wi, wo, d, z.Point, &alpha, &pA, false) {
			invalid |= 3
		}

		wi = wo
		if t > 1 {
			wi = z.Point.Position.Subtract(p.verts[s+1].Point.Position).Normalize()
		}
		if !p.initE(z, wi, wo.Negate(), d, y.Point, &alpha, &pA, false) {
			invalid |= 3
		}

		if invalid != 3 && p.ctx.Scene.Occluded(core.NewRay(y.Point.Position, wo), d) {
			y.GL = 0
			z.GE = 0
			invalid |= 3
		}
	}

	// propagate cumulative eye contributions into the original light subpath
	for i := s - 1; i >= 0; i-- {
		y := &p.verts[i]

		if i >= k-1 {
			// last light vertex connected to an empty eye subpath
			if y.Point.IsSensor() {
				pA := p.ctx.Camera.SurfaceArea()
				if pA > minSampleArea {
					pA = 1.0 / pA
				} else {
					pA = 1
				}
				pA *= p.ctx.FilmDensity()

				if y.BSDF != core.BSDF(y.Point.Sensor) {
					y.BSDF = y.Point.Sensor
					y.Event = y.BSDF.Sample(y.Wi, y.Point, p.ctx.Random)
				}

				wi := y.Wi
				if i > 0 {
					wi = y.Point.Position.Subtract(p.verts[i-1].Point.Position).Normalize()
				}

				y.AlphaE = y.Point.Sensor.We0().DivScalar(pA)
				y.PE = pA
				y.Fs = y.BSDF.Evaluate(wi, wi.Negate(), y.Point)
				y.PdfE = y.BSDF.Pd(core.NewEvent(wi.Negate(), y.Event), wi, y.Point)
			} else {
				y.AlphaE = core.Black()
				y.PE = 0
				y.Fs = core.Black()
				y.PdfE = 0
			}

			y.TL = 0
		} else {
			z := &p.verts[i+1]

			if z.PdfE > 0 && z.GE > 0 {
				y.AlphaE = z.AlphaE.Mul(z.Fs).DivScalar(z.PdfE)
			} else {
				y.AlphaE = core.Black()
			}
			y.PE = z.PE * z.PdfE * z.GE
		}
	}

	// propagate cumulative light contributions into the original eye subpath
	for i := 0; i < t; i++ {
		z := &p.verts[s+i]

		if s+i == 0 {
			// last eye vertex connected to an empty light subpath
			if z.Point.IsEmitter() {
				pA := p.ctx.Scene.EmitterSampler().Pd(z.Point)

				wo := z.Wi.Negate()
				if s+i < k-1 {
					wo = p.verts[s+i+1].Point.Position.Subtract(z.Point.Position).Normalize()
				}

				if z.BSDF != core.BSDF(z.Point.Emitter) {
					z.BSDF = z.Point.Emitter
					z.Event = z.BSDF.Sample(core.Vec3{}, z.Point, p.ctx.Random)
				}

				z.AlphaL = z.Point.Emitter.Le0().DivScalar(pA)
				z.PL = pA
				z.Fs = z.BSDF.Evaluate(core.Vec3{}, wo, z.Point)
				z.PdfL = z.BSDF.Pd(core.NewEvent(wo, z.Event), core.Vec3{}, z.Point)
			} else {
				z.AlphaL = core.Black()
				z.PL = 0
				z.Fs = core.Black()
				z.PdfL = 0
			}

			z.TE = 0
		} else {
			y := &p.verts[s+i-1]

			if y.PdfL > 0 && y.GL > 0 {
				z.AlphaL = y.AlphaL.Mul(y.Fs).DivScalar(y.PdfL)
			} else {
				z.AlphaL = core.Black()
			}
			z.PL = y.PL * y.PdfL * y.GL
		}
	}

	p.computeRadiance()
	return invalid != 3
}

// samplePathVertex samples the BSDF at the appropriate end of the path,
// traces, and adds the first surface intersected in the sampled direction
func (p *Path) samplePathVertex(roulette, adjoint, sampleBSDF bool) bool {
	var v *Vertex
	if adjoint {
		v = p.Front()
	} else {
		v = p.Back()
	}

	var wi core.Vec3
	if p.Len() > 1 {
		if adjoint {
			wi = v.Point.Position.Subtract(p.verts[1].Point.Position).Normalize()
		} else {
			wi = v.Point.Position.Subtract(p.verts[p.Len()-2].Point.Position).Normalize()
		}
	}

	if sampleBSDF {
		v.Event = v.BSDF.Sample(wi, v.Point, p.ctx.Random)
	}

	wo := v.Event.Wo
	if v.Event.Absorbed() {
		return false
	}

	// trace ray to find the new surface point
	ray := core.NewRay(v.Point.Position, wo)
	pt, t, ok := p.ctx.Scene.Intersect(ray)
	if !ok || t < p.ctx.MinEdge {
		return false
	}

	// keep the path spectrally coherent under dispersion
	if v.Event.Wavelength != 0 {
		pt.PreferredWavelength = v.Event.Wavelength
	}

	if p.Len() == 1 {
		wi = wo.Negate()
	}
	v.Wi = wi

	if adjoint {
		var alphaE core.Spectrum
		var pE float64

		if !p.initE(v, wi, wo, t, pt, &alphaE, &pE, roulette) {
			return false
		}

		p.pushFront(Vertex{
			Point: pt, BSDF: pt.BSDF, Wi: wo,
			GL: v.GE, GE: 1,
			Fs:     core.Black(),
			PdfL:   1, PdfE: 1,
			PL:     1, PE: pE,
			AlphaL: core.Identity(), AlphaE: alphaE,
			TL:     t,
		})
	} else {
		var alphaL core.Spectrum
		var pL float64

		if !p.initL(v, wi, wo, t, pt, &alphaL, &pL, roulette) {
			return false
		}

		p.pushBack(Vertex{
			Point: pt, BSDF: pt.BSDF, Wi: wo,
			GL: 1, GE: v.GL,
			Fs:     core.Black(),
			PdfL:   1, PdfE: 1,
			PL:     pL, PE: 1,
			AlphaL: alphaL, AlphaE: core.Identity(),
			TE:     t,
		})
	}

	return true
}

// initL initializes light-end vertex y against the next point pt, updating
// the cumulative light density and contribution. y and pt are assumed
// mutually visible.
func (p *Path) initL(y *Vertex, wi, wo core.Vec3, t float64, pt *core.SurfacePoint,
	alphaL *core.Spectrum, pL *float64, roulette bool) bool {

	if t < p.ctx.MinEdge {
		y.GL = 0
		return false
	}

	y.TL = t
	y.GL = math.Abs(y.Point.Normal.Dot(wo)*pt.Normal.Dot(wo.Negate())) / (t * t)

	y.PdfE = y.BSDF.Pd(core.NewEvent(wi.Negate(), y.Event), wo.Negate(), y.Point)

	y.Fs = y.BSDF.Evaluate(wi, wo, y.Point)
	y.PdfL = y.BSDF.Pd(core.NewEvent(wo, y.Event), wi, y.Point)

	if y.GL == 0 || y.PdfL == 0 {
		*pL = 0
		*alphaL = core.Black()
		return false
	}

	// russian roulette
	if roulette || y.Fs.IsZero() {
		q := math.Min(0.95, y.Fs.At(y.Fs.MaxSampleIndex())/y.PdfL)

		if q <= p.ctx.Random.Float64() {
			y.PdfL = 0
			*pL = 0
			*alphaL = core.Black()
			return false
		}

		y.PdfL *= q
	}

	*pL = y.PdfL * y.GL * y.PL
	*alphaL = y.Fs.DivScalar(y.PdfL).Mul(y.AlphaL)
	return true
}

// initE initializes eye-end vertex z against the next point pt, updating the
// cumulative eye density and contribution
func (p *Path) initE(z *Vertex, wi, wo core.Vec3, t float64, pt *core.SurfacePoint,
	alphaE *core.Spectrum, pE *float64, roulette bool) bool {

	if t < p.ctx.MinEdge {
		z.GE = 0
		return false
	}

	z.TE = t
	z.GE = math.Abs(z.Point.Normal.Dot(wo)*pt.Normal.Dot(wo.Negate())) / (t * t)

	z.PdfL = z.BSDF.Pd(core.NewEvent(wi.Negate(), z.Event), wo.Negate(), z.Point)
	z.Fs = z.BSDF.Evaluate(wo.Negate(), wi.Negate(), z.Point)

	z.PdfE = z.BSDF.Pd(core.NewEvent(wo, z.Event), wi, z.Point)

	if z.GE == 0 || z.PdfE == 0 {
		*pE = 0
		*alphaE = core.Black()
		return false
	}

	// russian roulette
	if roulette || z.Fs.IsZero() {
		q := math.Min(0.95, z.Fs.At(z.Fs.MaxSampleIndex())/z.PdfE)

		if q <= p.ctx.Random.Float64() {
			z.PdfE = 0
			*pE = 0
			*alphaE = core.Black()
			return false
		}

		z.PdfE *= q
	}

	*pE = z.PdfE * z.GE * z.PE
	*alphaE = z.Fs.DivScalar(z.PdfE).Mul(z.AlphaE)
	return true
}

// computeRadiance recomputes the cached full-path radiance: Le0 times the
// product of per-vertex fs and forward geometry terms
func (p *Path) computeRadiance() {
	n := p.Len()
	if n < 2 || !p.verts[0].IsEmitter() {
		p.radiance = core.Black()
		return
	}

	radiance := p.verts[0].Point.Emitter.Le0()
	for i := 0; i < n; i++ {
		radiance = radiance.Mul(p.verts[i].Fs).Scale(p.verts[i].GL)
	}
	p.radiance = radiance
}

// HeckbertNotation returns the path in L(S|D)*E regular-expression form
func (p *Path) HeckbertNotation() string {
	var b strings.Builder
	for i := range p.verts {
		v := &p.verts[i]
		switch {
		case v.IsEmitter():
			b.WriteByte('L')
		case v.IsSensor():
			b.WriteByte('E')
		case v.IsSpecular():
			b.WriteByte('S')
		default:
			b.WriteByte('D')
		}
	}
	return b.String()
}

// Validate checks the structural invariants that must hold for any complete
// path: matching edge geometry terms and lengths between neighbors, and
// emitter/sensor BSDFs confined to the path ends. Violations are programming
// errors; callers treat them as fatal and dump the path.
func (p *Path) Validate() error {
	const tol = 1e-9
	n := p.Len()

	for i := 0; i < n; i++ {
		v := &p.verts[i]

		if i > 0 {
			prev := &p.verts[i-1]
			if math.Abs(prev.GL-v.GE) > tol*math.Max(1, math.Abs(prev.GL)) {
				return errors.Errorf("edge %d: GL %g != GE %g in %s", i-1, prev.GL, v.GE, p)
			}
			if math.Abs(prev.TL-v.TE) > tol*math.Max(1, prev.TL) {
				return errors.Errorf("edge %d: tL %g != tE %g in %s", i-1, prev.TL, v.TE, p)
			}
			if v.Point.Emitter != nil && v.BSDF == core.BSDF(v.Point.Emitter) {
				return errors.Errorf("vertex %d: interior emitter BSDF in %s", i, p)
			}
		}
		if i < n-1 {
			if v.Point.Sensor != nil && v.BSDF == core.BSDF(v.Point.Sensor) {
				return errors.Errorf("vertex %d: interior sensor BSDF in %s", i, p)
			}
		}
	}
	return nil
}

func (p *Path) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{ length = %d [%s]", p.Len(), p.HeckbertNotation())
	for i := range p.verts {
		fmt.Fprintf(&b, ", %s", p.verts[i].String())
	}
	b.WriteString(" }")
	return b.String()
}
