package scene

import (
	"math"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/df07/go-metropolis-raytracer/pkg/material"
	"github.com/df07/go-metropolis-raytracer/pkg/renderer"
)

// pointLightRadius makes a point light a sphere small enough that the
// zero-area handling in the path core kicks in
const pointLightRadius = 1e-4

// AddPointLight registers a point light as a vanishingly small sphere whose
// total radiant power matches the given intensity
func (s *Scene) AddPointLight(position core.Vec3, power core.Spectrum) {
	shape := geometry.NewSphere(position, pointLightRadius)
	area := shape.SurfaceArea()

	// power = π · Le0 · area for a Lambertian emitter
	radiance := power.DivScalar(math.Pi * area)
	emitter := material.NewDiffuseEmitter(radiance)
	s.AddEmitter(shape, material.NewLambertian(core.Black()), emitter)
}

// NewBackgroundScene creates an empty scene with a uniform background: every
// pixel sees exactly the background radiance of its primary ray.
func NewBackgroundScene(background core.Spectrum, width, height int) (*Scene, core.Camera, error) {
	s := NewScene(background)
	if err := s.Build(); err != nil {
		return nil, nil, err
	}

	camera := renderer.NewPinholeCamera(
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 0, -1),
		core.NewVec3(0, 1, 0),
		60, width, height,
	)
	return s, camera, nil
}

// NewMirrorScene creates a perfect mirror plane lit by a point light. No
// bidirectional strategy connects to the point light through the mirror, so
// the scene renders black under BDPT; it exists to exercise that boundary.
func NewMirrorScene(width, height int) (*Scene, core.Camera, error) {
	s := NewScene(core.Black())

	mirror := geometry.NewQuad(
		core.NewVec3(-5, 0, 5),
		core.NewVec3(10, 0, 0),
		core.NewVec3(0, 0, -10),
	)
	s.Add(mirror, material.NewMirror(core.FillSpectrum(0.95)))

	s.AddPointLight(core.NewVec3(0, 5, 0), core.NewSpectrumRGB(core.NewVec3(50, 50, 50)))

	if err := s.Build(); err != nil {
		return nil, nil, err
	}

	camera := renderer.NewPinholeCamera(
		core.NewVec3(0, 3, 8),
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 1, 0),
		50, width, height,
	)
	return s, camera, nil
}
