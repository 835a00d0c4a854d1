package renderer

import (
	"math"
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
)

// PinholeCamera is an ideal pinhole: zero aperture area, film plane at unit
// focal distance. It implements core.Camera and carries its sensor BSDF.
type PinholeCamera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	forward         core.Vec3
	uAxis, vAxis    core.Vec3 // unit film-plane axes
	uLen, vLen      float64   // world extents of the film plane
	filmArea        float64
	invW, invH      float64
	sensor          *pinholeSensor
}

// NewPinholeCamera creates a camera at lookFrom facing lookAt with the given
// vertical field of view in degrees and film resolution.
func NewPinholeCamera(lookFrom, lookAt, vup core.Vec3, vfov float64, width, height int) *PinholeCamera {
	aspectRatio := float64(width) / float64(height)
	theta := vfov * math.Pi / 180
	viewportHeight := 2 * math.Tan(theta/2)
	viewportWidth := aspectRatio * viewportHeight

	back := lookFrom.Subtract(lookAt).Normalize()
	u := vup.Cross(back).Normalize()
	v := back.Cross(u)

	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	lowerLeftCorner := lookFrom.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(back)

	c := &PinholeCamera{
		origin:          lookFrom,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		forward:         back.Negate(),
		uAxis:           u,
		vAxis:           v,
		uLen:            viewportWidth,
		vLen:            viewportHeight,
		filmArea:        viewportWidth * viewportHeight,
		invW:            1.0 / float64(width),
		invH:            1.0 / float64(height),
	}
	c.sensor = &pinholeSensor{cam: c}
	return c
}

// direction returns the unit camera ray direction through film point uv
func (c *PinholeCamera) direction(uv core.Vec2) core.Vec3 {
	return c.lowerLeftCorner.
		Add(c.horizontal.Multiply(uv.X)).
		Add(c.vertical.Multiply(uv.Y)).
		Subtract(c.origin).
		Normalize()
}

// Point initializes a surface point on the pinhole for film coordinates uv
func (c *PinholeCamera) Point(uv core.Vec2) *core.SurfacePoint {
	return &core.SurfacePoint{
		Position:      c.origin,
		Normal:        c.forward,
		ShadingNormal: c.forward,
		UV:            uv,
		BSDF:          c.sensor,
		Sensor:        c.sensor,
	}
}

// Project maps a world point onto the film plane
func (c *PinholeCamera) Project(p core.Vec3) (core.Vec2, bool) {
	d := p.Subtract(c.origin)
	depth := d.Dot(c.forward)
	if depth <= 0 {
		return core.Vec2{}, false
	}

	// scale so the forward component reaches the film plane at distance 1
	onFilm := c.origin.Add(d.Multiply(1.0 / depth))
	rel := onFilm.Subtract(c.lowerLeftCorner)

	uv := core.NewVec2(rel.Dot(c.uAxis)/c.uLen, rel.Dot(c.vAxis)/c.vLen)
	if uv.X < 0 || uv.X > 1 || uv.Y < 0 || uv.Y > 1 {
		return uv, false
	}
	return uv, true
}

// SurfaceArea returns zero: the pinhole cannot be hit by random rays
func (c *PinholeCamera) SurfaceArea() float64 {
	return 0
}

// pinholeSensor is the camera's importance function as a BSDF. The exitant
// direction for a film point is deterministic; the density is expressed over
// the film-plane measure so that eye-subpath bookkeeping composes with the
// 1/(W·H) film-point density.
type pinholeSensor struct {
	cam *PinholeCamera
}

func (s *pinholeSensor) Sample(wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	return core.Event{Wo: s.cam.direction(pt.UV)}
}

func (s *pinholeSensor) SampleFrom(prev core.Event, wi core.Vec3, pt *core.SurfacePoint, random *rand.Rand) core.Event {
	e := s.Sample(wi, pt, random)
	e.Mode = prev.Mode
	e.Wavelength = prev.Wavelength
	return e
}

// importanceDensity converts the film-plane density into a projected solid
// angle density for direction wo: 1 / (A_film · cos⁴θ)
func (s *pinholeSensor) importanceDensity(wo core.Vec3) float64 {
	cos := wo.Dot(s.cam.forward)
	if cos <= 0 {
		return 0
	}
	cos2 := cos * cos
	return 1.0 / (s.cam.filmArea * cos2 * cos2)
}

func (s *pinholeSensor) Pd(e core.Event, wi core.Vec3, pt *core.SurfacePoint) float64 {
	if e.Absorbed() {
		return 0
	}
	return s.importanceDensity(e.Wo)
}

func (s *pinholeSensor) Evaluate(wi, wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	if _, ok := s.cam.Project(s.cam.origin.Add(wo)); !ok {
		return core.Black()
	}
	return core.FillSpectrum(s.importanceDensity(wo))
}

func (s *pinholeSensor) IsSpecular() bool {
	return false
}

// We returns importance in direction wo
func (s *pinholeSensor) We(wo core.Vec3, pt *core.SurfacePoint) core.Spectrum {
	return s.Evaluate(core.Vec3{}, wo, pt)
}

// We0 returns direction-independent importance, normalized against the
// film-plane sampling density
func (s *pinholeSensor) We0() core.Spectrum {
	return core.FillSpectrum(s.cam.invW * s.cam.invH)
}
