package geometry

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Hit contains geometric information about a ray-shape intersection.
// Normals are the true outward normals; orientation relative to the ray is
// resolved by the consumer.
type Hit struct {
	T      float64
	Point  core.Vec3
	Normal core.Vec3
	UV     core.Vec2
	Shape  Shape
}

// Shape is the geometric interface the scene requires. Shapes know nothing
// about materials; the scene binds surfaces to BSDFs.
type Shape interface {
	core.ShapeHandle

	// Hit tests if a ray intersects the shape within (tMin, tMax)
	Hit(ray core.Ray, tMin, tMax float64) (Hit, bool)

	// BoundingBox returns the axis-aligned bounding box for this shape
	BoundingBox() AABB

	// SamplePoint samples a point uniformly on the surface
	SamplePoint(random *rand.Rand) (point, normal core.Vec3, uv core.Vec2)
}
