package mlt

import (
	"math"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// Deletion and addition length distribution parameters (Veach 11.4.2)
const (
	pd1Zero = 0.25 // delete nothing
	pd1One  = 0.5  // delete one vertex
	pa1Same = 0.5  // add the same length back
	pa1Off1 = 0.2  // change length by one
)

// BidirMutation is the large-scale mutation: it deletes a contiguous subpath
// of the current path and replaces it with a freshly sampled one, possibly
// changing the path length. It is the only mutation that guarantees ergodicity
// of the chain.
type BidirMutation struct {
	ctx *path.Context
}

// NewBidirMutation creates a bidirectional path mutation
func NewBidirMutation(ctx *path.Context) *BidirMutation {
	return &BidirMutation{ctx: ctx}
}

// Mutate deletes a subpath of length kd and regrows ka vertices split between
// the light and eye sides, then joins the halves
func (m *BidirMutation) Mutate(x *path.Path) (*path.Path, float64) {
	n := x.Len()
	random := m.ctx.Random

	var kd, ka int
	pd1, pd2 := 1.0, 1.0
	pa1 := 1.0

	// choose a subpath length to delete
	e1 := random.Float64()
	switch {
	case e1 < pd1Zero:
		kd = 0
		pd1 = pd1Zero
	case e1 < pd1Zero+pd1One:
		kd = 1
		pd1 = pd1One
	default:
		pSum := pd1Zero + pd1One
		kd = 1
		for {
			kd++
			pd1 = 1.0 / float64(uint64(1)<<uint(kd+1))
			pSum += pd1
			if e1-pSum <= 0 || kd >= n {
				break
			}
		}
		if kd == n && pSum < 1 {
			pd1 += 1 - pSum
		}
	}

	// choose a specific subpath of length kd to delete; l and mIdx are the
	// exclusive indices flanking it
	l := core.SampleRange(-1, n-kd, random)
	mIdx := l + kd + 1
	pd2 = 1.0 / float64(n-kd+1)

	// choose a subpath length to add
	e2 := random.Float64()
	if e2 < pa1Same {
		ka = kd
		pa1 = pa1Same
	} else {
		e2 -= pa1Same
		if e2 < pa1Off1 {
			ka = kd + 1
			pa1 = pa1Off1
		} else {
			e2 -= pa1Off1
			found := false

			if kd >= 1 {
				if e2 < pa1Off1 {
					ka = kd - 1
					pa1 = pa1Off1
					found = true
				} else {
					e2 -= pa1Off1
				}
			}

			if !found {
				k := 1
				for {
					k++
					ka = kd + k
					pa1 = pa1Off1 / float64(uint64(1)<<uint(k))

					if kd >= k {
						if e2 < pa1 {
							ka = kd - k
						}
						e2 -= pa1
					}

					e2 -= pa1
					// the tail masses are unnormalized and can fail to
					// cover e2; bound the walk and let the oversized
					// addition fail during regrowth
					if e2 <= 0 || k >= 30 {
						break
					}
				}
			}
		}
	}

	// choose how the added vertices split between the light and eye sides
	lP := random.Intn(ka + 1)
	mP := ka - lP

	if kd >= n && ka == 0 {
		// would leave an empty path
		return nil, 0
	}

	y := x.Left(l + 1)
	right := x.Right(n - mIdx)

	if kd == 0 && ka > 0 {
		// nothing is deleted at an end of x, so the added vertices push that
		// end into the interior: the camera point carries only its sensor
		// BSDF and cannot move inward, while an emitter end scatters with
		// its reflectance BSDF from here on
		if mIdx >= n {
			return nil, 0
		}
		if l < 0 {
			right.Front().BSDF = right.Front().Point.BSDF
		}
	}

	// grow both ends and join
	for i := 0; i < lP; i++ {
		if !y.Append(false) {
			return nil, 0
		}
	}
	for i := 0; i < mP; i++ {
		if !right.Prepend(false) {
			return nil, 0
		}
	}
	if !y.AppendPath(right) {
		return nil, 0
	}

	if !y.Front().IsEmitter() || !y.Back().IsSensor() {
		return nil, 0
	}

	// forward transition density T(Y|X), summing over every split the added
	// subpath could have been grown with
	txy := m.transitionDensity(y, ka, pd1*pd2, pa1, l)

	// reverse move deletes what was added and adds what was deleted
	pd1r := m.pd1(y.Len(), ka)
	pd2r := m.pd2(y.Len(), ka)
	pa1r := m.pa1(ka, kd)
	tyx := m.transitionDensity(x, kd, pd1r*pd2r, pa1r, l)

	fx := x.Radiance().Luminance()
	fy := y.Radiance().Luminance()
	if fx == 0 || txy == 0 {
		return nil, 0
	}

	alpha := math.Min(1, (fy*tyx)/(fx*txy))
	return y, alpha
}

// transitionDensity sums the densities of every way the added subpath of
// length ka could have been split between the light and eye sides
func (m *BidirMutation) transitionDensity(y *path.Path, ka int, pd, pa1 float64, l int) float64 {
	n2 := y.Len()
	if y.Radiance().Luminance() <= 0 {
		return 0
	}

	pa2 := 1.0 / float64(ka+1)
	txy := 0.0
	for i := 0; i <= ka; i++ {
		s := l + i + 1
		t := n2 - s
		txy += pa2 * y.Pd(s, t, false)
	}

	return txy * pa1 * pd
}

// pd1 returns the probability of choosing deletion length kd on a path of
// length n
func (m *BidirMutation) pd1(n, kd int) float64 {
	if kd == 0 {
		return pd1Zero
	}
	if kd == 1 {
		return pd1One
	}
	if kd < n {
		return 1.0 / float64(uint64(1)<<uint(kd+1))
	}

	// the tail mass lands on kd == n
	p := 0.0
	for i := 2; i < n; i++ {
		p += 1.0 / float64(uint64(1)<<uint(i+1))
	}
	p = 1.0 - (p + pd1Zero + pd1One)
	if p < 0 {
		return 1.0 / float64(uint64(1)<<uint(kd+1))
	}
	return p
}

// pd2 returns the probability of the specific placement of a deleted subpath
func (m *BidirMutation) pd2(n, kd int) float64 {
	return 1.0 / float64(n-kd+1)
}

// pa1 returns the probability of choosing addition length ka after deleting kd
func (m *BidirMutation) pa1(kd, ka int) float64 {
	diff := kd - ka
	if diff < 0 {
		diff = -diff
	}

	switch diff {
	case 0:
		return pa1Same
	case 1:
		return pa1Off1
	default:
		return pa1Off1 / float64(uint64(1)<<uint(diff))
	}
}
