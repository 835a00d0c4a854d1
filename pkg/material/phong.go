package material

import (
	"math"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Lobe identifiers recorded in event metadata
const (
	lobeDiffuse = iota
	lobeGlossy
)

// ModifiedPhong is a physically based Phong variant: a diffuse lobe plus a
// normalized power-cosine glossy lobe. The lobe chosen at sampling time is
// recorded in the event so later density queries stay consistent.
type ModifiedPhong struct {
	Diffuse  core.Spectrum
	Specular core.Spectrum
	Exponent float64
}

// NewModifiedPhong creates a new modified-Phong material
func NewModifiedPhong(diffuse, specular core.Spectrum, exponent float64) *ModifiedPhong {
	return &ModifiedPhong{Diffuse: diffuse, Specular: specular, Exponent: exponent}
}

// lobeProbabilities returns normalized selection probabilities by lobe energy
func (m *ModifiedPhong) lobeProbabilities() (pDiffuse, pGlossy float64) {
	kd := m.Diffuse.Average()
	ks := m.Specular.Average()
	total := kd + ks
	if total == 0 {
		return 1, 0
	}
	return kd / total, ks / total
}

// sampleGlossy draws a direction from the power-cosine lobe about the mirror direction
func (m *ModifiedPhong) sampleGlossy(mirror core.Vec3, random *rand.Rand) core.Vec3 {
	u, v := mirror.OrthonormalBasis()

	cosTheta := math.Pow(random.Float64(), 1.0/(m.Exponent+1))
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * random.Float64()

	return u.Multiply(sinTheta * math.Cos(phi)).
		Add(v.Multiply(sinTheta * math.Sin(phi))).
		Add(mirror.Multiply(cosTheta)).
		Normalize()
}

// Sample picks a lobe by energy and draws a direction from it
func (m *ModifiedPhong) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	pDiffuse, _ := m.lobeProbabilities()
	n := incidentNormal(wi, pt)

	if random.Float64() < pDiffuse {
		wo := core.CosineHemisphere(n, random)
		return core.Event{Wo: wo, Mode: lobeDiffuse, Wavelength: pt.PreferredWavelength}
	}

	mirror := wi.Reflect(pt.ShadingNormal).Normalize()
	wo := m.sampleGlossy(mirror, random)
	if wo.Dot(n) <= 0 {
		// lobe dipped below the surface
		return core.Event{}
	}
	return core.Event{Wo: wo, Mode: lobeGlossy, Wavelength: pt.PreferredWavelength}
}

// SampleFrom re-samples constrained to the lobe recorded in prev
func (m *ModifiedPhong) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	n := incidentNormal(wi, pt)

	if prev.Mode == lobeDiffuse {
		wo := core.CosineHemisphere(n, random)
		return core.Event{Wo: wo, Mode: lobeDiffuse, Wavelength: prev.Wavelength}
	}

	mirror := wi.Reflect(pt.ShadingNormal).Normalize()
	wo := m.sampleGlossy(mirror, random)
	if wo.Dot(n) <= 0 {
		return core.Event{}
	}
	return core.Event{Wo: wo, Mode: lobeGlossy, Wavelength: prev.Wavelength}
}

// Pd returns the selection-weighted projected-solid-angle density of the
// event's lobe
func (m *ModifiedPhong) Pd(e core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if e.Absorbed() {
		return 0
	}
	pDiffuse, pGlossy := m.lobeProbabilities()
	n := incidentNormal(wi, pt)
	cos := e.Wo.Dot(n)
	if cos <= 0 {
		return 0
	}

	if e.Mode == lobeDiffuse {
		return pDiffuse * core.CosineHemispherePDF()
	}

	mirror := wi.Reflect(pt.ShadingNormal).Normalize()
	cosAlpha := e.Wo.Dot(mirror)
	if cosAlpha <= 0 {
		return 0
	}
	pdfSolid := (m.Exponent + 1) / (2 * math.Pi) * math.Pow(cosAlpha, m.Exponent)
	return pGlossy * pdfSolid / cos
}

// Evaluate returns the sum of both lobes for wi -> wo
func (m *ModifiedPhong) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	n := incidentNormal(wi, pt)
	if wo.Dot(n) <= 0 {
		return core.Black()
	}

	fs := m.Diffuse.Scale(core.CosineHemispherePDF())

	mirror := wi.Reflect(pt.ShadingNormal).Normalize()
	cosAlpha := wo.Dot(mirror)
	if cosAlpha > 0 {
		glossy := (m.Exponent + 2) / (2 * math.Pi) * math.Pow(cosAlpha, m.Exponent)
		fs = fs.Add(m.Specular.Scale(glossy))
	}
	return fs
}

// IsSpecular reports the glossy lobe has a continuous density
func (m *ModifiedPhong) IsSpecular() bool {
	return false
}
