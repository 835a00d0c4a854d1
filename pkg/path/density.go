package path

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Contribution returns the unweighted image contribution of this path split
// into a light subpath of length s and an eye subpath of length t. s+t may be
// less than the path length for probes; visibility on the connecting edge is
// re-checked unless s+t equals the length (a complete path is already known
// visible) or tentative is true.
func (p *Path) Contribution(s, t int, tentative bool) core.Spectrum {
	// s and t are counts; u and v are inclusive vertex indices
	n := p.Len()
	u := s - 1 // index of last light subpath vertex
	v := n - t // index of last eye subpath vertex

	if s == 0 {
		// point lights cannot contribute to 0-length light subpaths: a point
		// light is never intersected by random eye paths
		if p.verts[v].Point.SurfaceArea() < minSampleArea {
			return core.Black()
		}
		if p.verts[v].Point.Emitter == nil {
			return core.Black()
		}

		wo := p.verts[v].Wi.Negate()
		if v < n-1 {
			wo = p.verts[v+1].Point.Position.Subtract(p.verts[v].Point.Position).Normalize()
		}

		return p.verts[v].Point.Emitter.Le(wo, p.verts[v].Point).Mul(p.verts[v].AlphaE)
	}

	if t == 0 {
		// pinhole cameras cannot contribute to 0-length eye subpaths
		if p.verts[u].Point.SurfaceArea() < minSampleArea {
			return core.Black()
		}
		if p.verts[u].Point.Sensor == nil {
			return core.Black()
		}

		wo := p.verts[u].Wi.Negate()
		if u > 0 {
			wo = p.verts[u-1].Point.Position.Subtract(p.verts[u].Point.Position).Normalize()
		}

		return p.verts[u].AlphaL.Mul(p.verts[u].Point.Sensor.We(wo, p.verts[u].Point))
	}

	y := &p.verts[u]
	z := &p.verts[v]

	// a specular connecting vertex has nonzero fs only on a set of measure
	// zero; such splits are defined to contribute zero and are accounted for
	// by the strategies that keep the vertex off the connecting edge
	if y.IsSpecular() || z.IsSpecular() {
		return core.Black()
	}

	if s+t == n {
		// full-length split: visibility implicit, fs and G already cached
		return y.AlphaL.Mul(y.Fs).Scale(y.GL).Mul(z.Fs).Mul(z.AlphaE)
	}

	// general case: re-derive the connecting edge
	wo := z.Point.Position.Subtract(y.Point.Position)
	d := wo.Length()
	if d < p.ctx.MinEdge {
		return core.Black()
	}
	wo = wo.Multiply(1 / d)

	if !tentative && p.ctx.Scene.Occluded(core.NewRay(y.Point.Position, wo), d) {
		return core.Black()
	}

	wiY := wo.Negate()
	if u > 0 {
		wiY = y.Point.Position.Subtract(p.verts[u-1].Point.Position).Normalize()
	}

	wo2 := wo.Negate()
	if v < n-1 {
		wo2 = p.verts[v+1].Point.Position.Subtract(z.Point.Position).Normalize()
	}

	g := y.Point.Normal.Dot(wo) * z.Point.Normal.Dot(wo.Negate())
	if g < 0 {
		g = -g
	}
	g /= d * d

	fsY := y.BSDF.Evaluate(wiY, wo, y.Point)
	fsZ := z.BSDF.Evaluate(wo, wo2, z.Point)

	return y.AlphaL.Mul(fsY).Scale(g).Mul(fsZ).Mul(z.AlphaE)
}

// Pd returns the surface-area density with which the (s,t) split strategy
// samples this path
func (p *Path) Pd(s, t int, tentative bool) float64 {
	n := p.Len()
	u := s - 1
	v := n - t

	if s == 0 {
		if p.verts[v].Point.SurfaceArea() < minSampleArea {
			return 0
		}
		return p.verts[v].PE
	}

	if t == 0 {
		if p.verts[u].Point.SurfaceArea() < minSampleArea {
			return 0
		}
		return p.verts[u].PL
	}

	y := &p.verts[u]
	z := &p.verts[v]

	if y.IsSpecular() || z.IsSpecular() {
		return 0
	}

	if s+t == n {
		return y.PL * z.PE
	}

	wo := z.Point.Position.Subtract(y.Point.Position)
	d := wo.Length()
	if d < p.ctx.MinEdge {
		return 0
	}
	wo = wo.Multiply(1 / d)

	if !tentative && p.ctx.Scene.Occluded(core.NewRay(y.Point.Position, wo), d) {
		return 0
	}

	return y.PL * z.PE
}

// pIndex maps the i-th vertex of a k-length subpath onto the parent path of
// length n, counting from the eye end when adjoint
func pIndex(i int, adjoint bool, n, k int) int {
	if adjoint {
		return n - k + i
	}
	return i
}

// Pds fills pdfs[0..k] with the relative densities of every split of a
// k-vertex path: pdfs[s] for the split with s light vertices, with the split
// that keeps the path's n-actualS eye vertices pinned to 1 (pdfs[actualS]
// when k equals the path length n; pdfs[k] when that split does not fit).
// Because MIS weights are ratios of densities,
// relative values suffice; each neighbor is derived through the closed-form
// ratio p(i+1)/p(i) = (p̂L(i+1)·GL(i+1)) / (p̂E(i+1)·GE(i+1)) with end-cap
// corrections at i=0 and i=k. Splits whose connecting edge contains a
// specular vertex are zeroed.
func (p *Path) Pds(k, actualS int, pdfs []float64) {
	n := p.Len()

	t := n - actualS
	s := k - t
	if s < 0 || s > k {
		s = k
	}

	for i := 0; i <= k; i++ {
		pdfs[i] = 0
	}
	pdfs[s] = 1

	// p(i) known; sweep up through p(s+1)..p(k)
	for i := s; i < k; i++ {
		num, den := 1.0, 1.0

		if i == 0 {
			y := &p.verts[pIndex(i, false, n, k)]
			num = y.PL
		} else {
			y := &p.verts[pIndex(i-1, false, n, k)]
			num = y.PdfL * y.GL
		}

		if i == k-1 {
			z := &p.verts[pIndex(i, true, n, k)]
			den = z.PE
		} else {
			z := &p.verts[pIndex(i+1, true, n, k)]
			den = z.PdfE * z.GE
		}

		if num == 0 || den == 0 {
			break
		}
		pdfs[i+1] = pdfs[i] * (num / den)
	}

	// p(i) known; sweep down through p(s-1)..p(0)
	for i := s; i >= 1; i-- {
		num, den := 1.0, 1.0

		// inverse of the upward ratio at i-1
		if i == 1 {
			den = p.verts[pIndex(0, false, n, k)].PL
		} else {
			y := &p.verts[pIndex(i-2, false, n, k)]
			den = y.PdfL * y.GL
		}

		if i == k {
			z := &p.verts[pIndex(i-1, true, n, k)]
			num = z.PE
		} else {
			z := &p.verts[pIndex(i, true, n, k)]
			num = z.PdfE * z.GE
		}

		if num == 0 || den == 0 {
			break
		}
		pdfs[i-1] = pdfs[i] * (num / den)
	}

	// a split is impossible when either vertex flanking its connecting edge
	// is specular; charge those paths to the strategies that sample the
	// specular vertex elsewhere
	for i := k - 1; i >= 0; i-- {
		indexE := pIndex(i, true, n, k)
		indexL := pIndex(i, false, n, k)

		if p.verts[indexE].IsSpecular() || p.verts[indexL].IsSpecular() {
			pdfs[i] = 0
			pdfs[i+1] = 0
		}
	}
}
