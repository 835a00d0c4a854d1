package scene

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/df07/go-metropolis-raytracer/pkg/material"
	"github.com/df07/go-metropolis-raytracer/pkg/renderer"
)

// NewCausticGlassScene creates a glass sphere over a diffuse ground plane lit
// by a distant area light: the classic setup for LS+DE caustic paths that
// defeat eye-side samplers and motivate the caustic perturbation.
func NewCausticGlassScene(width, height int) (*Scene, core.Camera, error) {
	s := NewScene(core.Black())

	ground := material.NewLambertian(core.NewSpectrumRGB(core.NewVec3(0.8, 0.8, 0.8)))
	s.Add(geometry.NewQuad(
		core.NewVec3(-20, 0, 20),
		core.NewVec3(40, 0, 0),
		core.NewVec3(0, 0, -40),
	), ground)

	const ior = 1.49
	glass := geometry.NewSphere(core.NewVec3(0, 1.5, 0), 1.5)
	s.AddDielectric(glass, material.NewDielectric(ior), ior)

	// distant area light, high above the sphere and facing straight down
	emit := material.NewDiffuseEmitter(core.NewSpectrumRGB(core.NewVec3(40, 40, 40)))
	light := geometry.NewQuad(
		core.NewVec3(-2, 12, -2),
		core.NewVec3(4, 0, 0),
		core.NewVec3(0, 0, 4),
	)
	s.AddEmitter(light, ground, emit)

	if err := s.Build(); err != nil {
		return nil, nil, err
	}

	camera := renderer.NewPinholeCamera(
		core.NewVec3(0, 4, 10),
		core.NewVec3(0, 1, 0),
		core.NewVec3(0, 1, 0),
		45, width, height,
	)
	return s, camera, nil
}
