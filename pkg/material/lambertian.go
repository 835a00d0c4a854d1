package material

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Lambertian is an ideal diffuse reflector
type Lambertian struct {
	Albedo core.Spectrum
}

// NewLambertian creates a new lambertian material
func NewLambertian(albedo core.Spectrum) *Lambertian {
	return &Lambertian{Albedo: albedo}
}

// incidentNormal orients the shading normal toward the side light arrives from.
// wi points into the surface, so the incident side is where -wi lives.
func incidentNormal(wi core.Vec3, pt *core.SurfacePoint) core.Vec3 {
	n := pt.ShadingNormal
	if !wi.IsZero() && wi.Dot(n) > 0 {
		return n.Negate()
	}
	return n
}

// Sample draws a cosine-weighted exitant direction on the incident side
func (l *Lambertian) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	n := incidentNormal(wi, pt)
	wo := core.CosineHemisphere(n, random)
	return core.Event{Wo: wo, Wavelength: pt.PreferredWavelength}
}

// SampleFrom re-samples; a single-lobe BSDF has no mode to preserve
func (l *Lambertian) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	e := l.Sample(wi, pt, random)
	e.Mode = prev.Mode
	e.Wavelength = prev.Wavelength
	return e
}

// Pd returns the projected-solid-angle density of the event's direction
func (l *Lambertian) Pd(e core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if e.Absorbed() {
		return 0
	}
	n := incidentNormal(wi, pt)
	if e.Wo.Dot(n) <= 0 {
		return 0
	}
	return core.CosineHemispherePDF()
}

// Evaluate returns fs(wi -> wo) = albedo / π on the reflection side
func (l *Lambertian) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	n := incidentNormal(wi, pt)
	if wo.Dot(n) <= 0 {
		return core.Black()
	}
	return l.Albedo.Scale(core.CosineHemispherePDF())
}

// IsSpecular reports lambertian scattering is not a delta function
func (l *Lambertian) IsSpecular() bool {
	return false
}
