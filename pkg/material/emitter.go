package material

import (
	"math"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// DiffuseEmitter is a Lambertian area light: constant radiance over the
// emitting hemisphere. It is a BSDF so a light-subpath's first vertex can be
// extended with the same sampling machinery as interior vertices.
type DiffuseEmitter struct {
	Radiance core.Spectrum
}

// NewDiffuseEmitter creates an area light with the given emitted radiance
func NewDiffuseEmitter(radiance core.Spectrum) *DiffuseEmitter {
	return &DiffuseEmitter{Radiance: radiance}
}

// Sample draws a cosine-weighted emission direction about the surface normal
func (e *DiffuseEmitter) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	wo := core.CosineHemisphere(pt.Normal, random)
	return core.Event{Wo: wo}
}

// SampleFrom re-samples; emission has no mixture modes
func (e *DiffuseEmitter) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	ev := e.Sample(wi, pt, random)
	ev.Mode = prev.Mode
	ev.Wavelength = prev.Wavelength
	return ev
}

// Pd returns the projected-solid-angle density of the emission direction
func (e *DiffuseEmitter) Pd(ev core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if ev.Absorbed() || ev.Wo.Dot(pt.Normal) <= 0 {
		return 0
	}
	return core.CosineHemispherePDF()
}

// Evaluate returns the directional emission factor: Le(wo) = Le0 * fs(wo)
func (e *DiffuseEmitter) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	if wo.Dot(pt.Normal) <= 0 {
		return core.Black()
	}
	return core.Identity()
}

// IsSpecular reports diffuse emission is not a delta function
func (e *DiffuseEmitter) IsSpecular() bool {
	return false
}

// Le returns emitted radiance in direction wo
func (e *DiffuseEmitter) Le(wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	if wo.Dot(pt.Normal) <= 0 {
		return core.Black()
	}
	return e.Radiance
}

// Le0 returns emitted radiance independent of direction
func (e *DiffuseEmitter) Le0() core.Spectrum {
	return e.Radiance
}

// Power returns radiant exitance per unit area (π · Le0 for a Lambertian light)
func (e *DiffuseEmitter) Power() core.Spectrum {
	return e.Radiance.Scale(math.Pi)
}
