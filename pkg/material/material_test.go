package material

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surfacePoint() *core.SurfacePoint {
	return &core.SurfacePoint{
		Position:      core.NewVec3(0, 0, 0),
		Normal:        core.NewVec3(0, 1, 0),
		ShadingNormal: core.NewVec3(0, 1, 0),
		IOR1:          1, IOR2: 1.5,
	}
}

func TestLambertianSampleAndDensity(t *testing.T) {
	l := NewLambertian(core.FillSpectrum(0.7))
	pt := surfacePoint()
	random := rand.New(rand.NewSource(1))
	wi := core.NewVec3(1, -1, 0).Normalize() // light arriving from above

	for i := 0; i < 200; i++ {
		e := l.Sample(wi, pt, random)
		require.False(t, e.Absorbed())
		assert.Greater(t, e.Wo.Dot(pt.ShadingNormal), 0.0, "sample below surface")

		// projected-solid-angle density of a cosine lobe is constant 1/π
		assert.InDelta(t, 1/math.Pi, l.Pd(e, wi, pt), 1e-12)
	}
}

func TestLambertianEvaluate(t *testing.T) {
	l := NewLambertian(core.FillSpectrum(0.5))
	pt := surfacePoint()
	wi := core.NewVec3(0, -1, 0)

	fs := l.Evaluate(wi, core.NewVec3(0, 1, 0), pt)
	assert.InDelta(t, 0.5/math.Pi, fs.At(0), 1e-12)

	below := l.Evaluate(wi, core.NewVec3(0, -1, 0), pt)
	assert.True(t, below.IsZero(), "transmission through an opaque diffuse surface")
}

func TestMirrorIsDeterministic(t *testing.T) {
	m := NewMirror(core.FillSpectrum(0.9))
	pt := surfacePoint()
	random := rand.New(rand.NewSource(1))
	wi := core.NewVec3(1, -1, 0).Normalize()

	e := m.Sample(wi, pt, random)
	want := core.NewVec3(1, 1, 0).Normalize()
	assert.True(t, e.Wo.Equals(want), "reflected %v, want %v", e.Wo, want)

	assert.True(t, m.IsSpecular())
	assert.Equal(t, 1.0, m.Pd(e, wi, pt))
	assert.Equal(t, 0.0, m.Pd(core.Event{Wo: core.NewVec3(0, 1, 0)}, wi, pt))

	// fs/pd carries 1/cos so that the geometry term's cosine cancels
	fs := m.Evaluate(wi, e.Wo, pt)
	cos := e.Wo.AbsDot(pt.ShadingNormal)
	assert.InDelta(t, 0.9/cos, fs.At(0), 1e-12)
}

func TestDielectricModesAreConsistent(t *testing.T) {
	d := NewDielectric(1.5)
	pt := surfacePoint()
	random := rand.New(rand.NewSource(7))
	wi := core.NewVec3(0.3, -1, 0).Normalize()

	sawReflect, sawRefract := false, false
	for i := 0; i < 300; i++ {
		e := d.Sample(wi, pt, random)
		require.False(t, e.Absorbed())

		// density queries about the event agree with the recorded branch
		pd := d.Pd(e, wi, pt)
		assert.Greater(t, pd, 0.0)

		// replay through SampleFrom must reproduce the same direction
		replay := d.SampleFrom(e, wi, pt, random)
		assert.True(t, replay.Wo.Equals(e.Wo), "replayed %v, want %v", replay.Wo, e.Wo)

		switch e.Mode {
		case ModeReflect:
			sawReflect = true
			assert.Greater(t, e.Wo.Y, 0.0)
		case ModeRefract:
			sawRefract = true
			assert.Less(t, e.Wo.Y, 0.0)
		}
	}
	assert.True(t, sawReflect, "Fresnel sampling never reflected")
	assert.True(t, sawRefract, "Fresnel sampling never refracted")
}

func TestDielectricReflectAndRefractProbabilitiesSum(t *testing.T) {
	d := NewDielectric(1.5)
	pt := surfacePoint()
	random := rand.New(rand.NewSource(3))
	wi := core.NewVec3(0.5, -1, 0).Normalize()

	e := d.Sample(wi, pt, random)
	pReflect := d.Pd(core.Event{Wo: e.Wo, Mode: ModeReflect}, wi, pt)
	pRefract := d.Pd(core.Event{Wo: e.Wo, Mode: ModeRefract}, wi, pt)
	assert.InDelta(t, 1.0, pReflect+pRefract, 1e-12)
}

func TestDispersiveDielectricCommitsToOneWavelength(t *testing.T) {
	d := NewDispersiveDielectric(1.5, 0.01)
	pt := surfacePoint()
	random := rand.New(rand.NewSource(5))
	wi := core.NewVec3(0.2, -1, 0).Normalize()

	e := d.Sample(wi, pt, random)
	require.NotZero(t, e.Wavelength, "dispersion must commit a wavelength")

	pt.PreferredWavelength = e.Wavelength
	fs := d.Evaluate(wi, e.Wo, pt)

	nonzero := 0
	for i := 0; i < core.NumWavelengths; i++ {
		if fs.At(i) != 0 {
			nonzero++
			assert.Equal(t, e.Wavelength-1, i, "throughput on the wrong sample")
		}
	}
	assert.LessOrEqual(t, nonzero, 1)
}

func TestModifiedPhongLobeCoherence(t *testing.T) {
	m := NewModifiedPhong(core.FillSpectrum(0.4), core.FillSpectrum(0.4), 30)
	pt := surfacePoint()
	random := rand.New(rand.NewSource(11))
	wi := core.NewVec3(0.5, -1, 0).Normalize()

	for i := 0; i < 200; i++ {
		e := m.Sample(wi, pt, random)
		if e.Absorbed() {
			continue
		}

		// the density must consult the recorded lobe
		pd := m.Pd(e, wi, pt)
		assert.Greater(t, pd, 0.0, "recorded lobe has zero density")

		replay := m.SampleFrom(e, wi, pt, random)
		if !replay.Absorbed() {
			assert.Equal(t, e.Mode, replay.Mode, "replay switched lobes")
		}
	}
}

func TestDiffuseEmitter(t *testing.T) {
	radiance := core.NewSpectrumRGB(core.NewVec3(10, 10, 10))
	e := NewDiffuseEmitter(radiance)
	pt := surfacePoint()
	random := rand.New(rand.NewSource(13))

	up := core.NewVec3(0, 1, 0)
	down := core.NewVec3(0, -1, 0)

	assert.Equal(t, radiance, e.Le(up, pt))
	assert.True(t, e.Le(down, pt).IsZero(), "emission through the back face")
	assert.InDelta(t, 10*math.Pi, e.Power().At(0), 1e-12)

	ev := e.Sample(core.Vec3{}, pt, random)
	assert.Greater(t, ev.Wo.Dot(up), 0.0)
	assert.InDelta(t, 1/math.Pi, e.Pd(ev, core.Vec3{}, pt), 1e-12)
}
