package scene

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/geometry"
	"github.com/pkg/errors"
)

// shadowEpsilon offsets ray origins and shortens shadow rays to avoid
// self-intersection
const shadowEpsilon = 1e-4

// Surface binds a shape to its reflectance BSDF and optional emitter
type Surface struct {
	Shape   geometry.Shape
	BSDF    core.BSDF
	Emitter core.EmitterBSDF
	IOR     float64 // interior index of refraction; 0 means vacuum on both sides
}

// Scene holds surfaces and answers the ray queries the path core requires.
// Immutable after Build and safe for concurrent use.
type Scene struct {
	surfaces   []*Surface
	byShape    map[geometry.Shape]*Surface
	bvh        *geometry.BVH
	background core.Spectrum
	sampler    *EmitterSampler
	diagonal   float64
}

// NewScene creates an empty scene with the given background radiance
func NewScene(background core.Spectrum) *Scene {
	return &Scene{
		byShape:    make(map[geometry.Shape]*Surface),
		background: background,
	}
}

// Add registers a non-emitting surface
func (s *Scene) Add(shape geometry.Shape, bsdf core.BSDF) {
	s.addSurface(&Surface{Shape: shape, BSDF: bsdf})
}

// AddEmitter registers an emitting surface. The reflectance BSDF still
// applies to interior path vertices that happen to land on the light.
func (s *Scene) AddEmitter(shape geometry.Shape, bsdf core.BSDF, emitter core.EmitterBSDF) {
	s.addSurface(&Surface{Shape: shape, BSDF: bsdf, Emitter: emitter})
}

// AddDielectric registers a refractive surface with its interior index
func (s *Scene) AddDielectric(shape geometry.Shape, bsdf core.BSDF, ior float64) {
	s.addSurface(&Surface{Shape: shape, BSDF: bsdf, IOR: ior})
}

func (s *Scene) addSurface(surf *Surface) {
	s.surfaces = append(s.surfaces, surf)
	s.byShape[surf.Shape] = surf
}

// Build finalizes the acceleration structure and the emitter CDF. Must be
// called once before rendering.
func (s *Scene) Build() error {
	shapes := make([]geometry.Shape, 0, len(s.surfaces))
	for _, surf := range s.surfaces {
		shapes = append(shapes, surf.Shape)
	}
	s.bvh = geometry.NewBVH(shapes)
	s.diagonal = s.bvh.Bounds().Diagonal()

	sampler, err := NewEmitterSampler(s.surfaces)
	if err != nil {
		return errors.Wrap(err, "building emitter sampler")
	}
	s.sampler = sampler
	return nil
}

// Intersect traces a ray and initializes a surface point at the nearest hit
func (s *Scene) Intersect(ray core.Ray) (*core.SurfacePoint, float64, bool) {
	hit, ok := s.bvh.Hit(ray, shadowEpsilon, 1e100)
	if !ok {
		return nil, 0, false
	}

	surf := s.byShape[hit.Shape]
	pt := &core.SurfacePoint{
		Position:      hit.Point,
		Normal:        hit.Normal,
		ShadingNormal: hit.Normal,
		UV:            hit.UV,
		Shape:         hit.Shape,
		BSDF:          surf.BSDF,
		Emitter:       surf.Emitter,
		IOR1:          1,
		IOR2:          surf.IOR,
	}
	if pt.IOR2 == 0 {
		pt.IOR2 = 1
	}
	return pt, hit.T, true
}

// Occluded reports whether any surface blocks the ray before maxT
func (s *Scene) Occluded(ray core.Ray, maxT float64) bool {
	_, blocked := s.bvh.Hit(ray, shadowEpsilon, maxT-shadowEpsilon)
	return blocked
}

// BackgroundRadiance returns environment radiance for an escaped direction
func (s *Scene) BackgroundRadiance(dir core.Vec3) core.Spectrum {
	return s.background
}

// EmitterSampler returns the power-weighted emitter sampler
func (s *Scene) EmitterSampler() core.EmitterSampler {
	return s.sampler
}

// Diagonal returns the scene bounding box diagonal
func (s *Scene) Diagonal() float64 {
	return s.diagonal
}
