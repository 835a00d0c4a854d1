package material

import (
	"math"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Scattering modes recorded in the event metadata so that density queries
// about a past sample stay consistent with the branch that produced it.
const (
	ModeReflect = iota
	ModeRefract
)

// Dielectric is a transparent material like glass that both reflects and
// refracts. With a nonzero Dispersion coefficient the refractive index
// becomes wavelength dependent and each path commits to a single wavelength
// through the surface point's preferred wavelength index.
type Dielectric struct {
	RefractiveIndex float64
	Dispersion      float64 // Cauchy B coefficient in µm²; 0 disables dispersion
}

// NewDielectric creates a new dielectric material
func NewDielectric(refractiveIndex float64) *Dielectric {
	return &Dielectric{RefractiveIndex: refractiveIndex}
}

// NewDispersiveDielectric creates a dielectric with a wavelength-dependent index
func NewDispersiveDielectric(refractiveIndex, dispersion float64) *Dielectric {
	return &Dielectric{RefractiveIndex: refractiveIndex, Dispersion: dispersion}
}

// ior returns the refractive index for a 1-based wavelength sample index.
// Index 0 (unspecified) uses the nominal value.
func (d *Dielectric) ior(wavelengthIndex int) float64 {
	if d.Dispersion == 0 || wavelengthIndex == 0 {
		return d.RefractiveIndex
	}
	nm := float64(core.DefaultWavelengths[wavelengthIndex-1])
	um := nm * 1e-3
	return d.RefractiveIndex + d.Dispersion/(um*um)
}

// reflectance computes Schlick's approximation of the Fresnel term
func reflectance(cosine, refractionRatio float64) float64 {
	r0 := (1 - refractionRatio) / (1 + refractionRatio)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}

// refract bends uv through a surface with normal n (oriented against uv)
func refract(uv, n core.Vec3, etaRatio float64) core.Vec3 {
	cosTheta := math.Min(uv.Negate().Dot(n), 1.0)
	rOutPerp := uv.Add(n.Multiply(cosTheta)).Multiply(etaRatio)
	rOutParallel := n.Multiply(-math.Sqrt(math.Abs(1.0 - rOutPerp.LengthSquared())))
	return rOutPerp.Add(rOutParallel).Normalize()
}

// geometry resolves orientation and Fresnel terms for an incident direction
func (d *Dielectric) geometry(wi core.Vec3, pt *core.SurfacePoint, wavelengthIndex int) (n core.Vec3, ratio, cosTheta, fresnel float64, canRefract bool) {
	n = pt.ShadingNormal
	ior := d.ior(wavelengthIndex)

	if wi.Dot(n) > 0 {
		// exiting the material
		n = n.Negate()
		ratio = ior
	} else {
		// entering the material
		ratio = 1.0 / ior
	}

	cosTheta = math.Min(wi.Negate().Dot(n), 1.0)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))

	canRefract = ratio*sinTheta <= 1.0
	if canRefract {
		fresnel = reflectance(cosTheta, ratio)
	} else {
		fresnel = 1.0
	}
	return
}

// Sample chooses between reflection and refraction by the Fresnel term
func (d *Dielectric) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	wavelength := pt.PreferredWavelength
	if d.Dispersion != 0 && wavelength == 0 {
		// commit the path to one wavelength, chosen uniformly
		wavelength = random.Intn(core.NumWavelengths) + 1
	}

	n, ratio, _, fresnel, canRefract := d.geometry(wi, pt, wavelength)

	if !canRefract || random.Float64() < fresnel {
		wo := wi.Reflect(n).Normalize()
		return core.Event{Wo: wo, Mode: ModeReflect, Wavelength: wavelength}
	}

	wo := refract(wi, n, ratio)
	return core.Event{Wo: wo, Mode: ModeRefract, Wavelength: wavelength}
}

// SampleFrom replays the recorded branch with the current geometry. If the
// forced branch is impossible (total internal reflection while asked to
// refract) the walk is absorbed.
func (d *Dielectric) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	n, ratio, _, _, canRefract := d.geometry(wi, pt, prev.Wavelength)

	switch prev.Mode {
	case ModeRefract:
		if !canRefract {
			return core.Event{}
		}
		return core.Event{Wo: refract(wi, n, ratio), Mode: ModeRefract, Wavelength: prev.Wavelength}
	default:
		return core.Event{Wo: wi.Reflect(n).Normalize(), Mode: ModeReflect, Wavelength: prev.Wavelength}
	}
}

// Pd returns the discrete probability of the event's recorded branch
func (d *Dielectric) Pd(e core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if e.Absorbed() {
		return 0
	}
	_, _, _, fresnel, canRefract := d.geometry(wi, pt, e.Wavelength)

	if e.Mode == ModeRefract {
		if !canRefract {
			return 0
		}
		return 1 - fresnel
	}
	return fresnel
}

// Evaluate returns the specular throughput for whichever branch wo matches.
// Under dispersion with a committed wavelength, transport collapses onto that
// sample alone, scaled to stay energy preserving in expectation.
func (d *Dielectric) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	wavelength := pt.PreferredWavelength
	n, ratio, _, fresnel, canRefract := d.geometry(wi, pt, wavelength)

	var weight float64
	reflected := wi.Reflect(n).Normalize()
	if wo.Dot(reflected) >= 1-matchTolerance {
		weight = fresnel
	} else if canRefract && wo.Dot(refract(wi, n, ratio)) >= 1-matchTolerance {
		weight = 1 - fresnel
	} else {
		return core.Black()
	}

	cos := wo.AbsDot(pt.ShadingNormal)
	if cos == 0 {
		return core.Black()
	}

	fs := core.FillSpectrum(weight / cos)
	if d.Dispersion != 0 && wavelength > 0 {
		for i := range fs.Samples {
			if i != wavelength-1 {
				fs.Samples[i].Value = 0
			} else {
				fs.Samples[i].Value *= core.NumWavelengths
			}
		}
	}
	return fs
}

// IsSpecular reports dielectric scattering is a delta function
func (d *Dielectric) IsSpecular() bool {
	return true
}
