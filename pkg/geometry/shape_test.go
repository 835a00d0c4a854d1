package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

func TestSphereHit(t *testing.T) {
	s := NewSphere(core.NewVec3(0, 0, -5), 1)

	tests := []struct {
		name    string
		ray     core.Ray
		wantHit bool
		wantT   float64
	}{
		{"HeadOn", core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1)), true, 4},
		{"Miss", core.NewRay(core.NewVec3(0, 3, 0), core.NewVec3(0, 0, -1)), false, 0},
		{"FromInside", core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, -1)), true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := s.Hit(tt.ray, 0.001, 1e100)
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && math.Abs(hit.T-tt.wantT) > 1e-9 {
				t.Errorf("t = %g, want %g", hit.T, tt.wantT)
			}
		})
	}
}

func TestSphereSurfaceArea(t *testing.T) {
	s := NewSphere(core.NewVec3(0, 0, 0), 2)
	if got := s.SurfaceArea(); math.Abs(got-16*math.Pi) > 1e-9 {
		t.Errorf("area: got %g", got)
	}
}

func TestQuadHit(t *testing.T) {
	q := NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 2))

	hit, ok := q.Hit(core.NewRay(core.NewVec3(0, 3, 0), core.NewVec3(0, -1, 0)), 0.001, 1e100)
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(hit.T-3) > 1e-9 {
		t.Errorf("t = %g, want 3", hit.T)
	}

	if _, ok := q.Hit(core.NewRay(core.NewVec3(5, 3, 0), core.NewVec3(0, -1, 0)), 0.001, 1e100); ok {
		t.Error("hit outside quad bounds")
	}
}

func TestQuadSamplePointOnSurface(t *testing.T) {
	q := NewQuad(core.NewVec3(0, 1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 3))
	random := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		p, n, _ := q.SamplePoint(random)
		if math.Abs(p.Y-1) > 1e-12 {
			t.Fatalf("sample off the plane: %v", p)
		}
		if p.X < 0 || p.X > 2 || p.Z < 0 || p.Z > 3 {
			t.Fatalf("sample outside quad: %v", p)
		}
		if math.Abs(math.Abs(n.Y)-1) > 1e-9 {
			t.Fatalf("unexpected normal %v", n)
		}
	}
	if math.Abs(q.SurfaceArea()-6) > 1e-9 {
		t.Errorf("area: got %g, want 6", q.SurfaceArea())
	}
}

func TestBVHMatchesLinearScan(t *testing.T) {
	random := rand.New(rand.NewSource(42))

	var shapes []Shape
	for i := 0; i < 64; i++ {
		center := core.NewVec3(random.Float64()*20-10, random.Float64()*20-10, random.Float64()*20-10)
		shapes = append(shapes, NewSphere(center, 0.5+random.Float64()))
	}
	bvh := NewBVH(shapes)

	for i := 0; i < 500; i++ {
		ray := core.NewRay(
			core.NewVec3(random.Float64()*30-15, random.Float64()*30-15, 20),
			core.NewVec3(random.Float64()-0.5, random.Float64()-0.5, -1).Normalize(),
		)

		var bestT float64
		found := false
		for _, s := range shapes {
			if h, ok := s.Hit(ray, 0.001, 1e100); ok && (!found || h.T < bestT) {
				bestT = h.T
				found = true
			}
		}

		hit, ok := bvh.Hit(ray, 0.001, 1e100)
		if ok != found {
			t.Fatalf("ray %d: bvh hit=%v, linear hit=%v", i, ok, found)
		}
		if ok && math.Abs(hit.T-bestT) > 1e-9 {
			t.Fatalf("ray %d: bvh t=%g, linear t=%g", i, hit.T, bestT)
		}
	}
}

func TestAABBHit(t *testing.T) {
	box := NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))

	if !box.Hit(core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), 0, 1e100) {
		t.Error("head-on ray missed the box")
	}
	if box.Hit(core.NewRay(core.NewVec3(0, 5, 5), core.NewVec3(0, 0, -1)), 0, 1e100) {
		t.Error("offset parallel ray hit the box")
	}
}
