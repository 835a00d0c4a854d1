package mlt_test

import (
	"sync"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/df07/go-metropolis-raytracer/pkg/integrator"
	"github.com/df07/go-metropolis-raytracer/pkg/mlt"
	"github.com/df07/go-metropolis-raytracer/pkg/path"
	"github.com/df07/go-metropolis-raytracer/pkg/scene"
	"github.com/stretchr/testify/require"
)

func cornellContext(t *testing.T, seed int64) *path.Context {
	t.Helper()
	sc, camera, err := scene.NewCornellScene(48, 48)
	require.NoError(t, err)
	return path.NewContext(sc, camera, core.NewRand(seed, 0), 48, 48)
}

func seedSet(t *testing.T, ctx *path.Context, n int) *mlt.SeedSet {
	t.Helper()
	gen := integrator.NewBDPT(ctx, integrator.Config{MaxDepth: 10})
	seeds, err := mlt.InitSeedPaths(gen, n, 10)
	require.NoError(t, err)
	return seeds
}

// memorySink collects splats for inspection
type memorySink struct {
	mu       sync.Mutex
	total    core.Spectrum
	samples  int
	proposed int
}

func newMemorySink() *memorySink {
	return &memorySink{total: core.Black()}
}

func (m *memorySink) AddSample(uv core.Vec2, value core.Spectrum, weight float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = m.total.Add(value.Scale(weight))
	m.samples++
}

func (m *memorySink) AddProposed(uv core.Vec2) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposed++
}

func TestInitSeedPaths(t *testing.T) {
	ctx := cornellContext(t, 1)
	seeds := seedSet(t, ctx, 300)

	require.Greater(t, seeds.Len(), 0)
	require.Greater(t, seeds.B(), 0.0)

	for i := 0; i < 50; i++ {
		p := seeds.Sample(ctx.Random)
		require.GreaterOrEqual(t, p.Len(), 2)
		require.True(t, p.Front().IsEmitter(), "seed %s does not start at an emitter", p)
		require.True(t, p.Back().IsSensor(), "seed %s does not end at a sensor", p)
		require.False(t, p.Radiance().IsZero(), "zero-radiance seed selected")
	}
}

// Every accepted bidirectional proposal must be a structurally valid complete
// path with acceptance in (0,1]
func TestBidirMutationProposals(t *testing.T) {
	ctx := cornellContext(t, 2)
	seeds := seedSet(t, ctx, 200)
	m := mlt.NewBidirMutation(ctx)

	x := seeds.Sample(ctx.Random)
	valid := 0
	for i := 0; i < 3000; i++ {
		y, alpha := m.Mutate(x)
		require.GreaterOrEqual(t, alpha, 0.0)
		require.LessOrEqual(t, alpha, 1.0)
		if alpha == 0 || y == nil {
			continue
		}

		valid++
		require.True(t, y.Front().IsEmitter())
		require.True(t, y.Back().IsSensor())
		require.NoError(t, y.Validate(), "proposal %s", y)
		require.False(t, y.Radiance().IsZero())

		// keep walking so the mutation sees varied states
		if ctx.Random.Float64() < alpha {
			x = y
		}
	}
	require.Greater(t, valid, 0, "no bidirectional proposal ever accepted")
}

func TestLensSubpathMutationProposals(t *testing.T) {
	ctx := cornellContext(t, 3)
	seeds := seedSet(t, ctx, 200)
	m := mlt.NewLensSubpathMutation(ctx)

	x := seeds.Sample(ctx.Random)
	valid := 0
	for i := 0; i < 3000; i++ {
		y, alpha := m.Mutate(x)
		if alpha == 0 || y == nil {
			continue
		}
		valid++
		require.True(t, y.Back().IsSensor())
		require.NoError(t, y.Validate())
		if ctx.Random.Float64() < alpha {
			x = y
		}
	}
	require.Greater(t, valid, 0, "no lens subpath proposal ever valid")
}

func TestPerturbationMutationProposals(t *testing.T) {
	ctx := cornellContext(t, 4)
	seeds := seedSet(t, ctx, 200)
	m := mlt.NewPerturbationMutation(ctx)

	valid := 0
	for i := 0; i < 3000; i++ {
		x := seeds.Sample(ctx.Random)
		y, alpha := m.Mutate(x)
		if alpha == 0 || y == nil {
			continue
		}
		valid++
		require.True(t, y.Front().IsEmitter())
		require.True(t, y.Back().IsSensor())
		require.NoError(t, y.Validate())
	}
	require.Greater(t, valid, 0, "no perturbation ever valid")
}

// A chain over the cornell scene must accept transitions and splat energy
func TestChainSmoke(t *testing.T) {
	ctx := cornellContext(t, 5)
	seeds := seedSet(t, ctx, 300)

	sink := newMemorySink()
	chain := mlt.NewChain(ctx,
		mlt.NewAggregateMutation(ctx, mlt.DefaultMutationWeights()),
		sink,
		mlt.ChainConfig{Weight: seeds.B(), MaxDepth: 10, MaxConsecutiveRejections: 500},
		seeds.Sample(ctx.Random))

	for i := 0; i < 5000; i++ {
		chain.Step()
	}

	require.EqualValues(t, 5000, chain.Steps())
	require.Greater(t, chain.AcceptanceRate(), 0.0, "chain never accepted")
	require.Greater(t, sink.samples, 0, "chain never splatted")
	require.Greater(t, sink.proposed, 0, "chain never counted proposals")
	require.False(t, sink.total.IsZero())
}

// Boundary: on the glass-caustic scene, a chain including the caustic
// perturbation keeps a strictly positive acceptance rate
func TestCausticChainAcceptance(t *testing.T) {
	sc, camera, err := scene.NewCausticGlassScene(48, 48)
	require.NoError(t, err)
	ctx := path.NewContext(sc, camera, core.NewRand(6, 0), 48, 48)

	gen := integrator.NewBDPT(ctx, integrator.Config{MaxDepth: 10})
	seeds, err := mlt.InitSeedPaths(gen, 300, 10)
	require.NoError(t, err)

	sink := newMemorySink()
	chain := mlt.NewChain(ctx,
		mlt.NewAggregateMutation(ctx, mlt.DefaultMutationWeights()),
		sink,
		mlt.ChainConfig{Weight: seeds.B(), MaxDepth: 10, MaxConsecutiveRejections: 500},
		seeds.Sample(ctx.Random))

	for i := 0; i < 20000; i++ {
		chain.Step()
	}
	require.Greater(t, chain.AcceptanceRate(), 0.0)
	require.Greater(t, sink.samples, 0)
}

func TestAggregateWeightFallback(t *testing.T) {
	ctx := cornellContext(t, 7)

	// all-zero weights fall back to uniform rather than failing
	m := mlt.NewAggregateMutation(ctx, mlt.MutationWeights{})
	seeds := seedSet(t, ctx, 100)

	x := seeds.Sample(ctx.Random)
	for i := 0; i < 100; i++ {
		_, alpha := m.Mutate(x)
		require.GreaterOrEqual(t, alpha, 0.0)
		require.LessOrEqual(t, alpha, 1.0)
	}
}
