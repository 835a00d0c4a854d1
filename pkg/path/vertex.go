package path

import (
	"fmt"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// Vertex is a single point on a path. Beyond the underlying surface point it
// caches the local quantities that make every light/eye split of the parent
// path cheap to evaluate: cumulative contributions (AlphaL/AlphaE), cumulative
// area densities (PL/PE), per-edge geometry terms and lengths, the BSDF value
// in the direction of light flow, and the projected-solid-angle densities of
// sampling the neighboring vertices from either end.
type Vertex struct {
	Point *core.SurfacePoint
	BSDF  core.BSDF // Point.BSDF for interior vertices; emitter at v0, sensor at v(k-1)

	Wi core.Vec3 // incoming direction in the light-flow sense

	GL, GE float64 // geometry terms of the forward (light-to-eye) and backward edges
	TL, TE float64 // forward/backward edge lengths; 0 at path ends

	Fs core.Spectrum // fs at this vertex in the light-flow direction

	PdfL, PdfE float64 // projected-solid-angle densities of sampling the next vertex forward/backward

	PL, PE float64 // cumulative area densities of the prefix from the light/eye end

	AlphaL, AlphaE core.Spectrum // cumulative unweighted contributions from the light/eye end

	Event core.Event // the BSDF event that produced the outgoing direction
}

// NewEmitterVertex seeds a light subpath's first vertex from a sampled point
// on an emitter with area density pA
func NewEmitterVertex(pt *core.SurfacePoint, pA float64, random *rand.Rand) Vertex {
	return Vertex{
		Point:  pt,
		BSDF:   pt.Emitter,
		GL:     1, GE: 1,
		Fs:     core.Black(),
		PdfL:   1, PdfE: 1,
		PL:     pA, PE: 1,
		AlphaL: pt.Emitter.Le0().DivScalar(pA),
		AlphaE: core.Identity(),
		Event:  pt.Emitter.Sample(core.Vec3{}, pt, random),
	}
}

// NewCameraVertex seeds an eye subpath's last vertex on the camera for film
// point pt.UV with film-plane density pA
func NewCameraVertex(pt *core.SurfacePoint, pA float64, random *rand.Rand) Vertex {
	return Vertex{
		Point:  pt,
		BSDF:   pt.Sensor,
		GL:     1, GE: 1,
		Fs:     core.Black(),
		PdfL:   1, PdfE: 1,
		PL:     1, PE: pA,
		AlphaL: core.Identity(),
		AlphaE: pt.Sensor.We0().DivScalar(pA),
		Event:  pt.Sensor.Sample(core.Vec3{}, pt, random),
	}
}

// IsEmitter reports whether the vertex acts as an emitter (only legal at v0)
func (v *Vertex) IsEmitter() bool {
	return v.Point.Emitter != nil && v.BSDF == core.BSDF(v.Point.Emitter)
}

// IsSensor reports whether the vertex acts as a sensor (only legal at v(k-1))
func (v *Vertex) IsSensor() bool {
	return v.Point.Sensor != nil && v.BSDF == core.BSDF(v.Point.Sensor)
}

// IsSpecular reports whether the vertex BSDF is a delta function
func (v *Vertex) IsSpecular() bool {
	return v.BSDF.IsSpecular()
}

func (v *Vertex) String() string {
	return fmt.Sprintf("{pos=%v GL=%.3g GE=%.3g tL=%.3g tE=%.3g pdfL=%.3g pdfE=%.3g pL=%.3g pE=%.3g}",
		v.Point.Position, v.GL, v.GE, v.TL, v.TE, v.PdfL, v.PdfE, v.PL, v.PE)
}
