package film

import (
	"math"

	"github.com/pkg/errors"
)

// Filter is a 2D symmetric reconstruction kernel. Evaluate takes pixel-space
// offsets from the sample position; Support is the half-width h, so one
// sample splats into a (2h+1)² pixel neighborhood.
type Filter interface {
	Evaluate(dx, dy float64) float64
	Support() int
}

// FilterOptions selects and parameterizes a reconstruction filter
type FilterOptions struct {
	Kind    string  `yaml:"filter"`
	Support int     `yaml:"support"`
	Sigma   float64 `yaml:"sigma"`
	B       float64 `yaml:"B"`
	C       float64 `yaml:"C"`
	Tau     float64 `yaml:"tau"`
}

// NewFilter builds a filter from options. Kind "null" or "" yields nil
// (samples land on exactly one pixel).
func NewFilter(opts FilterOptions) (Filter, error) {
	support := opts.Support
	if support <= 0 {
		support = 2
	}

	switch opts.Kind {
	case "", "null":
		return nil, nil
	case "box":
		return &BoxFilter{support: support}, nil
	case "triangle":
		return &TriangleFilter{support: support}, nil
	case "gaussian":
		sigma := opts.Sigma
		if sigma <= 0 {
			sigma = 1.0
		}
		return &GaussianFilter{support: support, sigma: sigma}, nil
	case "mitchell":
		b, c := opts.B, opts.C
		if b == 0 && c == 0 {
			b, c = 1.0/3.0, 1.0/3.0
		}
		return &MitchellFilter{support: support, b: b, c: c}, nil
	case "lanczosSinc":
		tau := opts.Tau
		if tau <= 0 {
			tau = 3.0
		}
		return &LanczosSincFilter{support: support, tau: tau}, nil
	default:
		return nil, errors.Errorf("unknown filter %q", opts.Kind)
	}
}

// BoxFilter weights all pixels in the support equally
type BoxFilter struct {
	support int
}

func (f *BoxFilter) Support() int { return f.support }

func (f *BoxFilter) Evaluate(dx, dy float64) float64 {
	s := float64(f.support)
	if math.Abs(dx) > s || math.Abs(dy) > s {
		return 0
	}
	return 1
}

// TriangleFilter falls off linearly with distance from the sample
type TriangleFilter struct {
	support int
}

func (f *TriangleFilter) Support() int { return f.support }

func (f *TriangleFilter) Evaluate(dx, dy float64) float64 {
	s := float64(f.support)
	return math.Max(0, s-math.Abs(dx)) * math.Max(0, s-math.Abs(dy))
}

// GaussianFilter is a truncated gaussian
type GaussianFilter struct {
	support int
	sigma   float64
}

func (f *GaussianFilter) Support() int { return f.support }

func (f *GaussianFilter) Evaluate(dx, dy float64) float64 {
	s := float64(f.support)
	if math.Abs(dx) > s || math.Abs(dy) > s {
		return 0
	}
	inv2s2 := 1.0 / (2 * f.sigma * f.sigma)
	return math.Exp(-(dx*dx + dy*dy) * inv2s2)
}

// MitchellFilter is the Mitchell-Netravali cubic
type MitchellFilter struct {
	support int
	b, c    float64
}

func (f *MitchellFilter) Support() int { return f.support }

func (f *MitchellFilter) mitchell1D(x float64) float64 {
	x = math.Abs(2 * x)
	b, c := f.b, f.c

	if x > 2 {
		return 0
	}
	if x > 1 {
		return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
	}
	return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
}

func (f *MitchellFilter) Evaluate(dx, dy float64) float64 {
	s := float64(f.support)
	return f.mitchell1D(dx/s) * f.mitchell1D(dy/s)
}

// LanczosSincFilter is a windowed sinc
type LanczosSincFilter struct {
	support int
	tau     float64
}

func (f *LanczosSincFilter) Support() int { return f.support }

func sinc(x float64) float64 {
	x = math.Abs(x)
	if x < 1e-5 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func (f *LanczosSincFilter) windowedSinc(x float64) float64 {
	x = math.Abs(x)
	s := float64(f.support)
	if x > s {
		return 0
	}
	return sinc(x) * sinc(x/f.tau)
}

func (f *LanczosSincFilter) Evaluate(dx, dy float64) float64 {
	return f.windowedSinc(dx) * f.windowedSinc(dy)
}
