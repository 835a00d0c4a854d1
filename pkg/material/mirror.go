package material

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Mirror is a perfect specular reflector
type Mirror struct {
	Reflectance core.Spectrum
}

// NewMirror creates a new mirror material
func NewMirror(reflectance core.Spectrum) *Mirror {
	return &Mirror{Reflectance: reflectance}
}

// matchTolerance bounds how closely a queried direction must align with the
// deterministic specular direction to count as the same event
const matchTolerance = 1e-9

// Sample reflects wi about the shading normal
func (m *Mirror) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	wo := wi.Reflect(pt.ShadingNormal).Normalize()
	return core.Event{Wo: wo, Wavelength: pt.PreferredWavelength}
}

// SampleFrom reflects deterministically; the event carries no free choices
func (m *Mirror) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	e := m.Sample(wi, pt, random)
	e.Mode = prev.Mode
	e.Wavelength = prev.Wavelength
	return e
}

// Pd returns the discrete probability of the reflection event
func (m *Mirror) Pd(e core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if e.Absorbed() {
		return 0
	}
	wo := wi.Reflect(pt.ShadingNormal).Normalize()
	if e.Wo.Dot(wo) < 1-matchTolerance {
		return 0
	}
	return 1
}

// Evaluate returns the specular throughput. The 1/|cos| factor cancels the
// cosine the geometry term reintroduces along the outgoing edge.
func (m *Mirror) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	reflected := wi.Reflect(pt.ShadingNormal).Normalize()
	if wo.Dot(reflected) < 1-matchTolerance {
		return core.Black()
	}
	cos := wo.AbsDot(pt.ShadingNormal)
	if cos == 0 {
		return core.Black()
	}
	return m.Reflectance.DivScalar(cos)
}

// IsSpecular reports mirror reflection is a delta function
func (m *Mirror) IsSpecular() bool {
	return true
}
