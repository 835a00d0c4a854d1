package film

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/df07/go-metropolis-raytracer/pkg/core"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// Options configures a film
type Options struct {
	Width, Height int

	// MLT switches normalization from per-pixel weight averaging to the
	// histogram form: numerator divided by the global sample count.
	MLT bool

	// FilterProposed enables the 3×3 median rescale over the proposal-count
	// image, removing single-chain spike artifacts at the cost of slight bias
	FilterProposed bool

	Filter  Filter // optional reconstruction kernel; nil splats one pixel
	Tonemap Tonemap
}

// progressiveValue is a running weighted sum of spectra for one pixel
type progressiveValue struct {
	num    core.Spectrum
	weight float64
}

// Film accumulates point samples into pixels. Pixel updates are serialized by
// a stripe lock indexed by pixel column; when more than one stripe is held
// (Finalize), locks are always acquired in ascending column order.
type Film struct {
	width, height int
	opts          Options

	pixels    []progressiveValue
	proposed  []uint64
	locks     []sync.Mutex
	noSamples []uint64
}

// New creates a film
func New(opts Options) *Film {
	size := opts.Width * opts.Height
	f := &Film{
		width:     opts.Width,
		height:    opts.Height,
		opts:      opts,
		pixels:    make([]progressiveValue, size),
		proposed:  make([]uint64, size),
		locks:     make([]sync.Mutex, opts.Width),
		noSamples: make([]uint64, opts.Width),
	}
	for i := range f.pixels {
		f.pixels[i].num = core.Black()
	}
	return f
}

// Width returns the image width in pixels
func (f *Film) Width() int { return f.width }

// Height returns the image height in pixels
func (f *Film) Height() int { return f.height }

// bin maps film coordinates in [0,1]² to a pixel; v grows upward, rows grow
// downward
func (f *Film) bin(uv core.Vec2) (col, row int) {
	col = int(uv.X * float64(f.width))
	if col >= f.width {
		col = f.width - 1
	}
	if col < 0 {
		col = 0
	}

	row = f.height - 1 - int(uv.Y*float64(f.height))
	if row >= f.height {
		row = f.height - 1
	}
	if row < 0 {
		row = 0
	}
	return
}

// AddSample accumulates one weighted sample, splatting through the
// reconstruction kernel when one is configured
func (f *Film) AddSample(uv core.Vec2, value core.Spectrum, weight float64) {
	col, row := f.bin(uv)

	if f.opts.Filter == nil {
		f.addPixel(col, row, value, weight)
		return
	}

	half := f.opts.Filter.Support()
	centerX := uv.X * float64(f.width)
	centerY := (1 - uv.Y) * float64(f.height)

	for y := max(0, row-half); y <= min(f.height-1, row+half); y++ {
		for x := max(0, col-half); x <= min(f.width-1, col+half); x++ {
			w := f.opts.Filter.Evaluate(float64(x)-centerX, float64(y)-centerY)
			if w > 0 {
				f.addPixel(x, y, value, weight*w)
			}
		}
	}
}

func (f *Film) addPixel(col, row int, value core.Spectrum, weight float64) {
	stripe := col % f.width

	f.locks[stripe].Lock()
	p := &f.pixels[row*f.width+col]
	p.num = p.num.Add(value.Scale(weight))
	p.weight += weight
	f.noSamples[stripe]++
	f.locks[stripe].Unlock()
}

// AddProposed counts an MLT proposal landing on a pixel
func (f *Film) AddProposed(uv core.Vec2) {
	col, row := f.bin(uv)
	stripe := col % f.width

	f.locks[stripe].Lock()
	f.proposed[row*f.width+col]++
	f.locks[stripe].Unlock()
}

// Pixel returns a pixel's accumulated numerator and weight (for inspection)
func (f *Film) Pixel(col, row int) (core.Spectrum, float64) {
	stripe := col % f.width
	f.locks[stripe].Lock()
	defer f.locks[stripe].Unlock()
	p := f.pixels[row*f.width+col]
	return p.num, p.weight
}

// Finalize normalizes the accumulator into a tonemapped 8-bit image.
// MLT pixels divide the numerator by the global sample count (each pixel's
// visit count is itself the estimator of its relative brightness); everything
// else divides by the per-pixel weight.
func (f *Film) Finalize() *image.RGBA {
	// ascending column order, matching addPixel's single-stripe acquisition
	for i := range f.locks {
		f.locks[i].Lock()
	}
	defer func() {
		for i := range f.locks {
			f.locks[i].Unlock()
		}
	}()

	var total uint64
	for _, n := range f.noSamples {
		total += n
	}

	size := f.width * f.height
	hdr := make([]core.Vec3, size)

	if f.opts.MLT {
		// two splats (current and tentative) per chain step
		inv := 0.0
		if total > 0 {
			inv = 2.0 / float64(total)
		}

		if f.opts.FilterProposed {
			for row := 0; row < f.height; row++ {
				for col := 0; col < f.width; col++ {
					offset := row*f.width + col
					mid := f.medianProposed(col, row)
					scale := 1.0
					if mid > 0 && f.proposed[offset] > 0 {
						scale = float64(mid) / float64(f.proposed[offset])
					}
					hdr[offset] = f.pixels[offset].num.Scale(scale * inv).RGB()
				}
			}
		} else {
			for i := 0; i < size; i++ {
				hdr[i] = f.pixels[i].num.Scale(inv).RGB()
			}
		}
	} else {
		for i := 0; i < size; i++ {
			if f.pixels[i].weight > 0 {
				hdr[i] = f.pixels[i].num.DivScalar(f.pixels[i].weight).RGB()
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for row := 0; row < f.height; row++ {
		for col := 0; col < f.width; col++ {
			rgb := f.opts.Tonemap.Map(hdr[row*f.width+col])
			img.SetRGBA(col, row, color.RGBA{
				R: uint8(rgb.X*255 + 0.5),
				G: uint8(rgb.Y*255 + 0.5),
				B: uint8(rgb.Z*255 + 0.5),
				A: 255,
			})
		}
	}
	return img
}

// medianProposed returns the median of the 3×3 proposal-count neighborhood
func (f *Film) medianProposed(col, row int) uint64 {
	var window [9]uint64
	n := 0

	for dy := -1; dy <= 1; dy++ {
		y := min(f.height-1, max(0, row+dy))
		for dx := -1; dx <= 1; dx++ {
			x := min(f.width-1, max(0, col+dx))
			window[n] = f.proposed[y*f.width+x]
			n++
		}
	}

	sort.Slice(window[:n], func(i, j int) bool { return window[i] < window[j] })

	mid := window[n/2]
	if n%2 == 0 {
		mid = window[n/2-1]
	}
	return mid
}

// Save writes the finalized image; the format follows the file extension
// (.png default, .tif/.tiff TIFF)
func (f *Film) Save(name string) error {
	img := f.Finalize()

	out, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	defer out.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff":
		err = tiff.Encode(out, img, nil)
	default:
		err = png.Encode(out, img)
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return nil
}

// SaveTemp writes an intermediate checkpoint next to the final output
func (f *Film) SaveTemp(name string) error {
	dir, base := filepath.Split(name)
	return f.Save(filepath.Join(dir, ".temp_"+base))
}
