package renderer

import (
	"os"
	"runtime"

	"github.com/df07/go-metropolis-raytracer/pkg/film"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Integrator kinds
const (
	IntegratorBDPT = "bdpt"
	IntegratorPT   = "pt"
	IntegratorMLT  = "mlt"
)

// Config holds every renderer parameter. Zero values are filled in by
// DefaultConfig; YAML files and flags override them.
type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	Integrator string `yaml:"integrator"`

	NoRenderThreads int   `yaml:"noRenderThreads"`
	NoSuperSamples  int   `yaml:"noSuperSamples"` // 0 = infinite; bidirectional only
	Seed            int64 `yaml:"seed"`

	MLTNoInitialPaths               int     `yaml:"mltNoInitialPaths"`
	MLTMaxDepth                     int     `yaml:"mltMaxDepth"`
	MLTMaxConsequtiveRejections     int     `yaml:"mltMaxConsequtiveRejections"`
	MLTBidirPathMutationProb        float64 `yaml:"mltBidirPathMutationProb"`
	MLTLensSubpathMutationProb      float64 `yaml:"mltLensSubpathMutationProb"`
	MLTPerturbationPathMutationProb float64 `yaml:"mltPerturbationPathMutationProb"`
	MLTFilterProposed               bool    `yaml:"mltFilterProposed"`

	Filter  film.FilterOptions `yaml:",inline"`
	Tonemap string             `yaml:"tonemap"`

	// Clamp bounds each spectral sample to [0,1]; a documented mild bias knob
	Clamp bool `yaml:"clamp"`

	SavePeriod int `yaml:"savePeriod"` // seconds between checkpoint saves
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Width:                           480,
		Height:                          480,
		Integrator:                      IntegratorBDPT,
		NoRenderThreads:                 runtime.NumCPU(),
		NoSuperSamples:                  16,
		Seed:                            1,
		MLTNoInitialPaths:               10000,
		MLTMaxDepth:                     10,
		MLTMaxConsequtiveRejections:     500,
		MLTBidirPathMutationProb:        1,
		MLTLensSubpathMutationProb:      1,
		MLTPerturbationPathMutationProb: 1,
		MLTFilterProposed:               true,
		Tonemap:                         "default",
		SavePeriod:                      5,
	}
}

// LoadConfig overlays a YAML file onto the defaults. Unknown keys are
// configuration errors.
func LoadConfig(name string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(name)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", name)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", name)
	}
	return cfg, nil
}

// Validate reports configuration errors before any rendering begins
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid resolution %dx%d", c.Width, c.Height)
	}

	switch c.Integrator {
	case IntegratorBDPT, IntegratorPT, IntegratorMLT:
	default:
		return errors.Errorf("unknown integrator %q", c.Integrator)
	}

	if c.NoRenderThreads < 0 {
		return errors.New("noRenderThreads must be >= 0")
	}
	if c.NoSuperSamples < 0 {
		return errors.New("noSuperSamples must be >= 0")
	}
	if c.MLTNoInitialPaths <= 0 {
		return errors.New("mltNoInitialPaths must be > 0")
	}
	if c.MLTBidirPathMutationProb < 0 ||
		c.MLTLensSubpathMutationProb < 0 ||
		c.MLTPerturbationPathMutationProb < 0 {
		return errors.New("mutation probabilities must be >= 0")
	}

	if _, err := film.NewFilter(c.Filter); err != nil {
		return err
	}
	if _, err := film.NewTonemap(c.Tonemap); err != nil {
		return err
	}
	return nil
}

// threads returns the effective worker count
func (c *Config) threads() int {
	if c.NoRenderThreads > 0 {
		return c.NoRenderThreads
	}
	return runtime.NumCPU()
}
