package film

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/pkg/errors"
)

// Tonemap maps a linear HDR color to displayable [0,1] RGB
type Tonemap interface {
	Map(rgb core.Vec3) core.Vec3
}

// NewTonemap builds a tonemap operator by name
func NewTonemap(kind string) (Tonemap, error) {
	switch kind {
	case "", "default", "linear":
		return &LinearTonemap{Gamma: 2.2}, nil
	case "reinhard":
		return &ReinhardTonemap{Gamma: 2.2}, nil
	default:
		return nil, errors.Errorf("unknown tonemap %q", kind)
	}
}

// LinearTonemap clamps to [0,1] and gamma corrects
type LinearTonemap struct {
	Gamma float64
}

func (t *LinearTonemap) Map(rgb core.Vec3) core.Vec3 {
	return rgb.Clamp(0, 1).GammaCorrect(t.Gamma)
}

// ReinhardTonemap compresses luminance by L/(1+L) before gamma correction
type ReinhardTonemap struct {
	Gamma float64
}

func (t *ReinhardTonemap) Map(rgb core.Vec3) core.Vec3 {
	lum := rgb.Luminance()
	if lum > 0 {
		rgb = rgb.Multiply(1.0 / (1.0 + lum))
	}
	return rgb.Clamp(0, 1).GammaCorrect(t.Gamma)
}
