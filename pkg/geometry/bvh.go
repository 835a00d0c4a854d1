package geometry

import (
	"sort"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// BVH is a bounding volume hierarchy over shapes, built by median split along
// the largest axis. Immutable after construction and safe for concurrent use.
type BVH struct {
	Root *BVHNode
}

// BVHNode is a node in the hierarchy. Leaves hold shapes directly.
type BVHNode struct {
	BoundingBox AABB
	Left, Right *BVHNode
	Shapes      []Shape
}

const bvhLeafSize = 4

// NewBVH builds a hierarchy over the given shapes. Shapes with tiny bounds,
// such as the small spheres that stand in for point lights, need no special
// handling: they are hit only by rays that pass through them.
func NewBVH(shapes []Shape) *BVH {
	if len(shapes) == 0 {
		return &BVH{}
	}
	owned := make([]Shape, len(shapes))
	copy(owned, shapes)
	return &BVH{Root: buildBVHNode(owned)}
}

func buildBVHNode(shapes []Shape) *BVHNode {
	bounds := shapes[0].BoundingBox()
	for _, s := range shapes[1:] {
		bounds = bounds.Union(s.BoundingBox())
	}

	node := &BVHNode{BoundingBox: bounds}
	if len(shapes) <= bvhLeafSize {
		node.Shapes = shapes
		return node
	}

	// Split along the largest axis at the median centroid
	extent := bounds.Max.Subtract(bounds.Min)
	axis := 0
	if extent.Y > extent.X {
		axis = 1
	}
	if extent.Z > extent.X && extent.Z > extent.Y {
		axis = 2
	}

	sort.Slice(shapes, func(i, j int) bool {
		return centroidAxis(shapes[i], axis) < centroidAxis(shapes[j], axis)
	})

	mid := len(shapes) / 2
	node.Left = buildBVHNode(shapes[:mid])
	node.Right = buildBVHNode(shapes[mid:])
	return node
}

func centroidAxis(s Shape, axis int) float64 {
	c := s.BoundingBox().Center()
	switch axis {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// Hit returns the nearest intersection within (tMin, tMax)
func (b *BVH) Hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	if b.Root == nil {
		return Hit{}, false
	}
	return b.Root.hit(ray, tMin, tMax)
}

// Bounds returns the bounding box of the whole hierarchy
func (b *BVH) Bounds() AABB {
	if b.Root == nil {
		return AABB{}
	}
	return b.Root.BoundingBox
}

func (n *BVHNode) hit(ray core.Ray, tMin, tMax float64) (Hit, bool) {
	if !n.BoundingBox.Hit(ray, tMin, tMax) {
		return Hit{}, false
	}

	if n.Shapes != nil {
		var closest Hit
		found := false
		for _, s := range n.Shapes {
			if h, ok := s.Hit(ray, tMin, tMax); ok {
				closest = h
				tMax = h.T
				found = true
			}
		}
		return closest, found
	}

	leftHit, leftOK := n.Left.hit(ray, tMin, tMax)
	if leftOK {
		tMax = leftHit.T
	}
	rightHit, rightOK := n.Right.hit(ray, tMin, tMax)
	if rightOK {
		return rightHit, true
	}
	return leftHit, leftOK
}
