package mlt

import (
	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
)

// MutationWeights configures the categorical distribution over mutation
// strategies. Weights are normalized internally; all-zero weights fall back
// to uniform.
type MutationWeights struct {
	Bidir        float64
	LensSubpath  float64
	Perturbation float64
}

// DefaultMutationWeights returns the uniform default
func DefaultMutationWeights() MutationWeights {
	return MutationWeights{Bidir: 1, LensSubpath: 1, Perturbation: 1}
}

// AggregateMutation selects one of the configured mutations per step from a
// fixed categorical distribution
type AggregateMutation struct {
	ctx       *path.Context
	mutations []Mutation
	weights   []float64
}

// NewAggregateMutation builds the aggregate over the enabled mutations
func NewAggregateMutation(ctx *path.Context, w MutationWeights) *AggregateMutation {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	bidir := abs(w.Bidir)
	lens := abs(w.LensSubpath)
	perturb := abs(w.Perturbation)

	if bidir+lens+perturb <= 1e-12 {
		bidir, lens, perturb = 1, 1, 1
	}

	a := &AggregateMutation{ctx: ctx}
	if bidir > 0 {
		a.mutations = append(a.mutations, NewBidirMutation(ctx))
		a.weights = append(a.weights, bidir)
	}
	if lens > 0 {
		a.mutations = append(a.mutations, NewLensSubpathMutation(ctx))
		a.weights = append(a.weights, lens)
	}
	if perturb > 0 {
		a.mutations = append(a.mutations, NewPerturbationMutation(ctx))
		a.weights = append(a.weights, perturb)
	}

	sum := 0.0
	for _, v := range a.weights {
		sum += v
	}
	for i := range a.weights {
		a.weights[i] /= sum
	}
	return a
}

// Mutate delegates to a mutation drawn from the categorical distribution
func (a *AggregateMutation) Mutate(x *path.Path) (*path.Path, float64) {
	index := core.SampleCDF(a.weights, a.ctx.Random)
	return a.mutations[index].Mutate(x)
}
