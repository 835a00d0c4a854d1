package geometry

import (
	"math"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Quad represents a rectangular surface defined by a corner and two edge vectors
type Quad struct {
	Corner core.Vec3 // One corner of the quad
	U      core.Vec3 // First edge vector
	V      core.Vec3 // Second edge vector
	Normal core.Vec3 // Normal vector (computed from U × V)
	D      float64   // Plane equation constant: ax + by + cz = d
	W      core.Vec3 // Cached cross product for barycentric coordinates
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3) *Quad {
	normal := u.Cross(v).Normalize()
	d := normal.Dot(corner)

	// w = normal / (normal · (u × v)), used for barycentric coordinates
	cross := u.Cross(v)
	w := normal.Multiply(1.0 / normal.Dot(cross))

	return &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		Normal: normal,
		D:      d,
		W:      w,
	}
}

// Hit tests if a ray intersects with the quad
func (q *Quad) Hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	denominator := ray.Direction.Dot(q.Normal)

	// Ray parallel to the quad plane
	if math.Abs(denominator) < 1e-8 {
		return Hit{}, false
	}

	t := (q.D - ray.Origin.Dot(q.Normal)) / denominator
	if t < tMin || t > tMax {
		return Hit{}, false
	}

	hitPoint := ray.At(t)
	hitVector := hitPoint.Subtract(q.Corner)

	alpha := q.W.Dot(hitVector.Cross(q.V))
	beta := q.W.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return Hit{}, false
	}

	return Hit{
		T:      t,
		Point:  hitPoint,
		Normal: q.Normal,
		UV:     core.NewVec2(alpha, beta),
		Shape:  q,
	}, true
}

// BoundingBox returns a thin box bounding the four corners
func (q *Quad) BoundingBox() AABB {
	const epsilon = 0.001

	box := NewAABBFromPoints(
		q.Corner,
		q.Corner.Add(q.U),
		q.Corner.Add(q.V),
		q.Corner.Add(q.U).Add(q.V),
	)

	pad := core.NewVec3(epsilon, epsilon, epsilon)
	return NewAABB(box.Min.Subtract(pad), box.Max.Add(pad))
}

// SurfaceArea returns the quad surface area
func (q *Quad) SurfaceArea() float64 {
	return q.U.Cross(q.V).Length()
}

// SamplePoint samples a point uniformly on the quad surface
func (q *Quad) SamplePoint(random *rand.Rand) (core.Vec3, core.Vec3, core.Vec2) {
	a := random.Float64()
	b := random.Float64()
	point := q.Corner.Add(q.U.Multiply(a)).Add(q.V.Multiply(b))
	return point, q.Normal, core.NewVec2(a, b)
}
