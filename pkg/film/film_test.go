package film

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilm(t *testing.T, opts Options) *Film {
	t.Helper()
	if opts.Tonemap == nil {
		tm, err := NewTonemap("linear")
		require.NoError(t, err)
		opts.Tonemap = tm
	}
	return New(opts)
}

func TestAddSampleAccumulates(t *testing.T) {
	f := newTestFilm(t, Options{Width: 4, Height: 4})

	// uv (0.125, 0.875) is column 0; v grows upward so it lands on row 0
	uv := core.NewVec2(0.125, 0.875)
	f.AddSample(uv, core.FillSpectrum(2), 1)
	f.AddSample(uv, core.FillSpectrum(4), 3)

	num, weight := f.Pixel(0, 0)
	assert.InDelta(t, 4.0, weight, 1e-12)
	assert.InDelta(t, 2+4*3, num.At(0), 1e-12)
}

func TestFinalizeAveragesByWeight(t *testing.T) {
	f := newTestFilm(t, Options{Width: 2, Height: 2})

	// two samples averaging to 1.0 -> white after tonemap
	uv := core.NewVec2(0.25, 0.25) // column 0, bottom row -> row 1
	f.AddSample(uv, core.FillSpectrum(0.5), 1)
	f.AddSample(uv, core.FillSpectrum(1.5), 1)

	img := f.Finalize()
	c := img.RGBAAt(0, 1)
	assert.EqualValues(t, 255, c.R)
	assert.EqualValues(t, 255, c.A)

	// untouched pixel stays black
	assert.EqualValues(t, 0, img.RGBAAt(1, 0).R)
}

func TestMLTNormalizationDividesByGlobalCount(t *testing.T) {
	f := newTestFilm(t, Options{Width: 2, Height: 1, MLT: true})

	// 4 splats total; pixel 0 receives value 2 -> numerator 2, normalized by
	// 2/total = 0.5 -> HDR value 1.0
	f.AddSample(core.NewVec2(0.1, 0.5), core.FillSpectrum(2), 1)
	f.AddSample(core.NewVec2(0.6, 0.5), core.FillSpectrum(0), 1)
	f.AddSample(core.NewVec2(0.6, 0.5), core.FillSpectrum(0), 1)
	f.AddSample(core.NewVec2(0.6, 0.5), core.FillSpectrum(0), 1)

	img := f.Finalize()
	assert.EqualValues(t, 255, img.RGBAAt(0, 0).R)
	assert.EqualValues(t, 0, img.RGBAAt(1, 0).R)
}

func TestProposalMedianRescalesSpikes(t *testing.T) {
	f := newTestFilm(t, Options{Width: 3, Height: 3, MLT: true, FilterProposed: true})

	// equal radiance everywhere, but the center pixel was visited 10x as
	// often; the median rescale must pull it back toward its neighbors
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			uv := core.NewVec2((float64(x)+0.5)/3, 1-(float64(y)+0.5)/3)
			visits := 1
			if x == 1 && y == 1 {
				visits = 10
			}
			for v := 0; v < visits; v++ {
				f.AddSample(uv, core.FillSpectrum(0.01), 1)
				f.AddProposed(uv)
			}
		}
	}

	img := f.Finalize()
	center := img.RGBAAt(1, 1).R
	corner := img.RGBAAt(0, 0).R
	assert.InDelta(t, float64(corner), float64(center), 2,
		"median filter failed to remove the spike: center %d vs corner %d", center, corner)
}

func TestReconstructionFilterSplatsNeighborhood(t *testing.T) {
	filter, err := NewFilter(FilterOptions{Kind: "gaussian", Support: 1, Sigma: 0.8})
	require.NoError(t, err)

	f := newTestFilm(t, Options{Width: 5, Height: 5, Filter: filter})
	f.AddSample(core.NewVec2(0.45, 0.5), core.FillSpectrum(1), 1)

	center, _ := f.Pixel(2, 2)
	neighbor, _ := f.Pixel(3, 2)
	outside, _ := f.Pixel(4, 0)

	assert.Greater(t, center.At(0), 0.0)
	assert.Greater(t, neighbor.At(0), 0.0, "support-1 kernel missed the neighbor")
	assert.Equal(t, 0.0, outside.At(0))
	assert.Greater(t, center.At(0), neighbor.At(0))
}

func TestFilterKinds(t *testing.T) {
	kinds := []string{"box", "triangle", "gaussian", "mitchell", "lanczosSinc"}
	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			filter, err := NewFilter(FilterOptions{Kind: kind})
			require.NoError(t, err)
			require.NotNil(t, filter)

			// symmetric and positive at the center
			assert.Greater(t, filter.Evaluate(0, 0), 0.0)
			assert.InDelta(t, filter.Evaluate(0.5, -0.25), filter.Evaluate(-0.5, 0.25), 1e-12)
		})
	}

	null, err := NewFilter(FilterOptions{Kind: "null"})
	require.NoError(t, err)
	assert.Nil(t, null)

	_, err = NewFilter(FilterOptions{Kind: "bogus"})
	assert.Error(t, err)
}

func TestTonemaps(t *testing.T) {
	linear, err := NewTonemap("linear")
	require.NoError(t, err)
	out := linear.Map(core.NewVec3(4, 0.5, -1))
	assert.Equal(t, 1.0, out.X, "linear tonemap must clamp")
	assert.Equal(t, 0.0, out.Z)

	reinhard, err := NewTonemap("reinhard")
	require.NoError(t, err)
	bright := reinhard.Map(core.NewVec3(100, 100, 100))
	assert.Less(t, bright.X, 1.0, "reinhard compresses highlights below clip")
	assert.Greater(t, bright.X, 0.9)

	_, err = NewTonemap("bogus")
	assert.Error(t, err)
}

func TestSaveInfersFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	f := newTestFilm(t, Options{Width: 4, Height: 4})
	f.AddSample(core.NewVec2(0.5, 0.5), core.FillSpectrum(1), 1)

	for _, name := range []string{"out.png", "out.tif"} {
		full := filepath.Join(dir, name)
		require.NoError(t, f.Save(full))

		info, err := os.Stat(full)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestSaveTempWritesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	f := newTestFilm(t, Options{Width: 2, Height: 2})

	out := filepath.Join(dir, "render.png")
	require.NoError(t, f.SaveTemp(out))

	_, err := os.Stat(filepath.Join(dir, ".temp_render.png"))
	require.NoError(t, err)
}

func TestStripeLockedConcurrentWrites(t *testing.T) {
	f := newTestFilm(t, Options{Width: 8, Height: 8})

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(seed int64) {
			defer func() { done <- struct{}{} }()
			random := core.NewRand(seed, 0)
			for i := 0; i < 2000; i++ {
				uv := core.NewVec2(random.Float64(), random.Float64())
				f.AddSample(uv, core.FillSpectrum(1), 1)
			}
		}(int64(w))
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	total := 0.0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			num, _ := f.Pixel(col, row)
			total += num.At(0)
		}
	}
	assert.InDelta(t, 8000.0, total, 1e-9)
	assert.False(t, math.IsNaN(total))
}
