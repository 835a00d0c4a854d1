package scene

import (
	"math"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/df07/go-metropolis-raytracer/pkg/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersectInitializesSurfacePoint(t *testing.T) {
	s := NewScene(core.Black())

	white := material.NewLambertian(core.FillSpectrum(0.7))
	emit := material.NewDiffuseEmitter(core.FillSpectrum(5))

	floor := geometry.NewQuad(core.NewVec3(-1, 0, 1), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, -2))
	light := geometry.NewQuad(core.NewVec3(-1, 2, -1), core.NewVec3(0, 0, 2), core.NewVec3(2, 0, 0))
	s.Add(floor, white)
	s.AddEmitter(light, white, emit)
	require.NoError(t, s.Build())

	pt, dist, ok := s.Intersect(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0)))
	require.True(t, ok)
	assert.InDelta(t, 1.0, dist, 1e-9)
	assert.True(t, pt.Position.Equals(core.NewVec3(0, 0, 0)))
	assert.False(t, pt.IsEmitter())
	assert.Same(t, floor, pt.Shape)

	lpt, _, ok := s.Intersect(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0)))
	require.True(t, ok)
	assert.True(t, lpt.IsEmitter())
}

func TestOccluded(t *testing.T) {
	s := NewScene(core.Black())
	wall := geometry.NewQuad(core.NewVec3(-1, -1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0))
	s.Add(wall, material.NewLambertian(core.FillSpectrum(0.5)))
	require.NoError(t, s.Build())

	a := core.NewVec3(0, 0, 2)
	b := core.NewVec3(0, 0, -2)

	assert.True(t, s.Occluded(core.NewRayTo(a, b), 4))
	assert.False(t, s.Occluded(core.NewRayTo(a, b), 1), "occlusion past maxT")

	side := core.NewVec3(5, 0, 2)
	assert.False(t, s.Occluded(core.NewRay(side, core.NewVec3(0, 0, -1)), 10))
}

func TestEmitterSamplerWeightsByPower(t *testing.T) {
	s := NewScene(core.Black())
	white := material.NewLambertian(core.FillSpectrum(0.7))

	// same area, 3x the radiance -> 3x the selection frequency
	dim := geometry.NewQuad(core.NewVec3(0, 1, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	bright := geometry.NewQuad(core.NewVec3(5, 1, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1))
	s.AddEmitter(dim, white, material.NewDiffuseEmitter(core.FillSpectrum(1)))
	s.AddEmitter(bright, white, material.NewDiffuseEmitter(core.FillSpectrum(3)))
	require.NoError(t, s.Build())

	random := core.NewRand(1, 0)
	counts := map[int]int{}
	const samples = 20000
	for i := 0; i < samples; i++ {
		pt, index := s.sampler.Sample(random)
		require.NotNil(t, pt)
		require.True(t, pt.IsEmitter())
		counts[index]++
	}

	assert.InDelta(t, 0.25, float64(counts[0])/samples, 0.02)
	assert.InDelta(t, 0.75, float64(counts[1])/samples, 0.02)

	// density is the area density over the union of emitter surfaces
	pt, _ := s.sampler.Sample(random)
	assert.InDelta(t, 1.0/2.0, s.sampler.Pd(pt), 1e-12)
}

func TestPointLightHasDegenerateArea(t *testing.T) {
	s := NewScene(core.Black())
	s.AddPointLight(core.NewVec3(0, 5, 0), core.NewSpectrumRGB(core.NewVec3(50, 50, 50)))
	require.NoError(t, s.Build())

	random := core.NewRand(2, 0)
	pt, _ := s.sampler.Sample(random)
	require.NotNil(t, pt)
	assert.Less(t, pt.SurfaceArea(), 1e-6)

	// total emitted power matches the requested intensity
	emitter := pt.Emitter
	power := emitter.Power().At(0) * pt.SurfaceArea()
	assert.InDelta(t, 50, power, 1e-6)
}

func TestBackgroundOnlySceneIsLegal(t *testing.T) {
	s := NewScene(core.FillSpectrum(1))
	require.NoError(t, s.Build())

	random := core.NewRand(3, 0)
	pt, index := s.sampler.Sample(random)
	assert.Nil(t, pt)
	assert.Equal(t, -1, index)

	_, _, ok := s.Intersect(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)))
	assert.False(t, ok)
	assert.Equal(t, core.FillSpectrum(1), s.BackgroundRadiance(core.NewVec3(0, 0, -1)))
}

func TestSceneDiagonal(t *testing.T) {
	s := NewScene(core.Black())
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, 0), 1), material.NewLambertian(core.FillSpectrum(0.5)))
	s.Add(geometry.NewSphere(core.NewVec3(10, 0, 0), 1), material.NewLambertian(core.FillSpectrum(0.5)))
	require.NoError(t, s.Build())

	want := math.Sqrt(12*12 + 2*2 + 2*2)
	assert.InDelta(t, want, s.Diagonal(), 1e-9)
}
