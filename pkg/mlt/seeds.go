package mlt

import (
	"math/rand"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
	"github.com/pkg/errors"
)

// PathGenerator produces complete bidirectional paths for seeding. The
// bidirectional path tracer implements it.
type PathGenerator interface {
	GeneratePath() (*path.Path, bool)
}

// SeedSet holds the weighted seed paths the chains start from, plus the
// Monte-Carlo estimate b of total image radiant flux. Immutable after
// construction and shared by all chains.
type SeedSet struct {
	paths   []*path.Path
	weights []float64
	b       float64
}

// seedRetryRounds bounds how often seeding retries before giving up on a
// scene with no light transport at all
const seedRetryRounds = 16

// InitSeedPaths generates noInitialPaths independent bidirectional proposals,
// enumerates every non-trivial split of each, and stores each contributing
// split as a weighted seed. b = (Σ luminances) / noInitialPaths.
func InitSeedPaths(gen PathGenerator, noInitialPaths, maxDepth int) (*SeedSet, error) {
	set := &SeedSet{}
	sum := 0.0

	for round := 0; ; round++ {
		for i := 0; i < noInitialPaths; i++ {
			p, _ := gen.GeneratePath()
			length := p.Len()
			if length < 2 {
				continue
			}
			if maxDepth > 0 && length > maxDepth {
				continue
			}

			for k := 2; k <= length; k++ {
				for s := 0; s <= k; s++ {
					t := k - s

					p2 := p.Left(s)
					if !p2.AppendPath(p.Right(t)) {
						continue
					}

					f := p.Contribution(s, t, false).Luminance()
					if f <= 0 {
						continue
					}

					set.paths = append(set.paths, p2)
					set.weights = append(set.weights, f)
					sum += f
				}
			}
		}

		if len(set.weights) > 0 && sum > 0 {
			break
		}
		if round >= seedRetryRounds {
			return nil, errors.New("no contributing seed paths found")
		}
	}

	set.b = sum / float64(noInitialPaths)

	for i := range set.weights {
		set.weights[i] /= sum
	}
	return set, nil
}

// B returns the estimated total image radiant flux per proposal
func (s *SeedSet) B() float64 { return s.b }

// Len returns the number of stored seeds
func (s *SeedSet) Len() int { return len(s.paths) }

// Sample draws a seed by CDF inversion and returns a private copy
func (s *SeedSet) Sample(random *rand.Rand) *path.Path {
	index := core.SampleCDF(s.weights, random)
	return s.paths[index].Clone()
}
