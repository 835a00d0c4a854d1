package scene

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/pkg/errors"
)

// minSampleArea is the surface area below which an emitter is treated as a
// point source for density purposes
const minSampleArea = 1e-6

// EmitterSampler selects points on emitter surfaces with probability
// proportional to average radiant power. The CDF is immutable after
// construction and shared freely between render threads.
type EmitterSampler struct {
	emitters  []*Surface
	cdf       []float64
	totalArea float64
}

// NewEmitterSampler builds the normalized power CDF over the scene's emitters
func NewEmitterSampler(surfaces []*Surface) (*EmitterSampler, error) {
	es := &EmitterSampler{}

	totalPower := 0.0
	for _, surf := range surfaces {
		if surf.Emitter == nil {
			continue
		}
		area := surf.Shape.SurfaceArea()
		power := surf.Emitter.Power().Average()
		if area > 0 {
			power *= area
		}

		es.emitters = append(es.emitters, surf)
		es.cdf = append(es.cdf, power)
		es.totalArea += area
		totalPower += power
	}

	if len(es.emitters) == 0 {
		// background-only scenes are legal; Sample must never be called
		return es, nil
	}
	if totalPower <= 0 {
		return nil, errors.New("emitters present but total power is zero")
	}

	for i := range es.cdf {
		es.cdf[i] /= totalPower
	}
	return es, nil
}

// HasEmitters reports whether the scene contains any light source
func (es *EmitterSampler) HasEmitters() bool {
	return len(es.emitters) > 0
}

// Sample returns a surface point on an emitter chosen by the power CDF,
// uniform over the chosen emitter's surface, plus the emitter index
func (es *EmitterSampler) Sample(random *rand.Rand) (*core.SurfacePoint, int) {
	if len(es.emitters) == 0 {
		return nil, -1
	}
	index := core.SampleCDF(es.cdf, random)
	surf := es.emitters[index]

	point, normal, uv := surf.Shape.SamplePoint(random)
	pt := &core.SurfacePoint{
		Position:      point,
		Normal:        normal,
		ShadingNormal: normal,
		UV:            uv,
		Shape:         surf.Shape,
		BSDF:          surf.BSDF,
		Emitter:       surf.Emitter,
		IOR1:          1,
		IOR2:          1,
	}
	return pt, index
}

// Pd returns the surface-area density over the union of emitter surfaces
func (es *EmitterSampler) Pd(pt *core.SurfacePoint) float64 {
	if es.totalArea > minSampleArea {
		return 1.0 / es.totalArea
	}
	return 1
}
