package integrator_test

import (
	"math"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/df07/go-metropolis-raytracer/pkg/integrator"
	"github.com/df07/go-metropolis-raytracer/pkg/material"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
	"github.com/df07/go-metropolis-raytracer/pkg/renderer"
	"github.com/df07/go-metropolis-raytracer/pkg/scene"
	"github.com/stretchr/testify/require"
)

// Scenario: empty scene with a uniform background. Every pixel must equal the
// background radiance of its primary ray exactly.
func TestEmptySceneReturnsBackground(t *testing.T) {
	background := core.NewSpectrumRGB(core.NewVec3(0.25, 0.5, 1))
	sc, camera, err := scene.NewBackgroundScene(background, 32, 32)
	require.NoError(t, err)

	ctx := path.NewContext(sc, camera, core.NewRand(1, 0), 32, 32)
	bdpt := integrator.NewBDPT(ctx, integrator.Config{})

	for _, uv := range []core.Vec2{
		core.NewVec2(0.5, 0.5),
		core.NewVec2(0.01, 0.01),
		core.NewVec2(0.99, 0.37),
	} {
		got := bdpt.SamplePixel(uv)
		require.Equal(t, background, got, "pixel %v", uv)
	}
}

// Scenario: a perfect mirror plane lit only by a point light. No strategy
// connects through the specular vertex to a zero-area light, so every sample
// is black.
func TestMirrorPointLightIsBlack(t *testing.T) {
	sc, camera, err := scene.NewMirrorScene(32, 32)
	require.NoError(t, err)

	ctx := path.NewContext(sc, camera, core.NewRand(2, 0), 32, 32)
	bdpt := integrator.NewBDPT(ctx, integrator.Config{})

	for i := 0; i < 500; i++ {
		uv := core.NewVec2(ctx.Random.Float64(), ctx.Random.Float64())
		got := bdpt.SamplePixel(uv)
		require.True(t, got.IsZero(), "sample %d at %v was %v", i, uv, got)
	}
}

// Scenario: a unit-albedo diffuse floor lit head-on by a small area light of
// radiance Le and area A at distance d reflects Le·A/(π·d²) toward any
// viewer. The BDPT estimate must converge to the analytic value.
func TestDirectLightingMatchesAnalytic(t *testing.T) {
	const (
		le   = 80.0
		side = 0.2 // light edge length
		d    = 5.0 // light height above the floor
	)
	area := side * side

	sc := scene.NewScene(core.Black())

	floor := geometry.NewQuad(
		core.NewVec3(-50, 0, 50),
		core.NewVec3(100, 0, 0),
		core.NewVec3(0, 0, -100),
	)
	sc.Add(floor, material.NewLambertian(core.FillSpectrum(1)))

	// downward-facing light centered above the origin
	light := geometry.NewQuad(
		core.NewVec3(-side/2, d, -side/2),
		core.NewVec3(side, 0, 0),
		core.NewVec3(0, 0, side),
	)
	sc.AddEmitter(light, material.NewLambertian(core.FillSpectrum(1)),
		material.NewDiffuseEmitter(core.FillSpectrum(le)))

	require.NoError(t, sc.Build())

	// camera low over the floor, looking at the lit spot from the side so it
	// occludes nothing
	camera := renderer.NewPinholeCamera(
		core.NewVec3(2, 1.5, 2),
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 1, 0),
		30, 64, 64,
	)

	ctx := path.NewContext(sc, camera, core.NewRand(3, 0), 64, 64)
	bdpt := integrator.NewBDPT(ctx, integrator.Config{})

	// the center pixel sees the floor near the origin
	sum := 0.0
	const samples = 4000
	for i := 0; i < samples; i++ {
		sum += bdpt.SamplePixel(core.NewVec2(0.5, 0.5)).Average()
	}
	got := sum / samples

	want := le * area / (math.Pi * d * d)
	require.InEpsilon(t, want, got, 0.15,
		"estimate %g vs analytic %g", got, want)
}

// The optional clamp must bound each spectral component
func TestClampBoundsSamples(t *testing.T) {
	sc, camera, err := scene.NewCornellScene(32, 32)
	require.NoError(t, err)

	ctx := path.NewContext(sc, camera, core.NewRand(4, 0), 32, 32)
	bdpt := integrator.NewBDPT(ctx, integrator.Config{Clamp: true})

	for i := 0; i < 2000; i++ {
		uv := core.NewVec2(ctx.Random.Float64(), ctx.Random.Float64())
		s := bdpt.SamplePixel(uv)
		for j := 0; j < core.NumWavelengths; j++ {
			require.LessOrEqual(t, s.At(j), 1.0)
			require.GreaterOrEqual(t, s.At(j), 0.0)
		}
	}
}

// The forward path tracer is the s=0 slice of the bidirectional estimator;
// on the background scene the two agree exactly
func TestPathTracerBackground(t *testing.T) {
	background := core.FillSpectrum(1)
	sc, camera, err := scene.NewBackgroundScene(background, 16, 16)
	require.NoError(t, err)

	ctx := path.NewContext(sc, camera, core.NewRand(5, 0), 16, 16)
	pt := integrator.NewPathTracer(ctx, integrator.Config{})

	got := pt.SamplePixel(core.NewVec2(0.5, 0.5))
	require.Equal(t, background, got)
}

// The cornell scene must produce some nonzero pixels quickly (sanity on the
// whole estimator pipeline)
func TestCornellProducesLight(t *testing.T) {
	sc, camera, err := scene.NewCornellScene(32, 32)
	require.NoError(t, err)

	ctx := path.NewContext(sc, camera, core.NewRand(6, 0), 32, 32)
	bdpt := integrator.NewBDPT(ctx, integrator.Config{})

	total := 0.0
	for i := 0; i < 500; i++ {
		uv := core.NewVec2(ctx.Random.Float64(), ctx.Random.Float64())
		total += bdpt.SamplePixel(uv).Luminance()
	}
	require.Greater(t, total, 0.0, "cornell box rendered black")
	require.False(t, math.IsNaN(total))
}
