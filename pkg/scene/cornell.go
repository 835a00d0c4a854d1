package scene

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/df07/go-metropolis-raytracer/pkg/material"
	"github.com/df07/go-metropolis-raytracer/pkg/renderer"
)

// NewCornellScene creates a Cornell-box style scene: white walls, red and
// green side walls, a square ceiling light, one mirror and one diffuse sphere.
func NewCornellScene(width, height int) (*Scene, core.Camera, error) {
	s := NewScene(core.Black())

	white := material.NewLambertian(core.NewSpectrumRGB(core.NewVec3(0.73, 0.73, 0.73)))
	red := material.NewLambertian(core.NewSpectrumRGB(core.NewVec3(0.65, 0.05, 0.05)))
	green := material.NewLambertian(core.NewSpectrumRGB(core.NewVec3(0.12, 0.45, 0.15)))

	const boxSize = 10.0

	// floor, ceiling, back wall
	s.Add(geometry.NewQuad(
		core.NewVec3(0, 0, 0),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, 0, -boxSize),
	), white)
	s.Add(geometry.NewQuad(
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(0, 0, -boxSize),
		core.NewVec3(boxSize, 0, 0),
	), white)
	s.Add(geometry.NewQuad(
		core.NewVec3(0, 0, -boxSize),
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, boxSize, 0),
	), white)

	// red left wall, green right wall
	s.Add(geometry.NewQuad(
		core.NewVec3(0, 0, 0),
		core.NewVec3(0, 0, -boxSize),
		core.NewVec3(0, boxSize, 0),
	), red)
	s.Add(geometry.NewQuad(
		core.NewVec3(boxSize, 0, 0),
		core.NewVec3(0, boxSize, 0),
		core.NewVec3(0, 0, -boxSize),
	), green)

	// square ceiling light, slightly below the ceiling, facing down
	emit := material.NewDiffuseEmitter(core.NewSpectrumRGB(core.NewVec3(15, 15, 15)))
	light := geometry.NewQuad(
		core.NewVec3(3.5, boxSize-0.01, -3.5),
		core.NewVec3(0, 0, -3),
		core.NewVec3(3, 0, 0),
	)
	s.AddEmitter(light, white, emit)

	// one mirror sphere, one diffuse sphere
	s.Add(geometry.NewSphere(core.NewVec3(3, 1.5, -3.5), 1.5),
		material.NewMirror(core.FillSpectrum(0.9)))
	s.Add(geometry.NewSphere(core.NewVec3(7, 1.5, -6.5), 1.5), white)

	if err := s.Build(); err != nil {
		return nil, nil, err
	}

	camera := renderer.NewPinholeCamera(
		core.NewVec3(boxSize/2, boxSize/2, 12),
		core.NewVec3(boxSize/2, boxSize/2, -boxSize/2),
		core.NewVec3(0, 1, 0),
		40, width, height,
	)
	return s, camera, nil
}
