package transforms

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// Speckle layouts for BadPhotoCopy.
const (
	NoiseUniform = iota // evenly spread
	NoiseLeft           // denser toward the left edge
	NoiseTop            // denser toward the top edge
	NoiseBorder         // denser toward every edge
)

// BadPhotoCopyOptions configures BadPhotoCopy.
type BadPhotoCopyOptions struct {
	NoiseTypeRange          IntRange   `mapstructure:"noise_type_range"`
	NoiseIterationRange     IntRange   `mapstructure:"noise_iteration_range"`
	NoiseSizeRange          IntRange   `mapstructure:"noise_size_range"`
	NoiseSparsityRange      FloatRange `mapstructure:"noise_sparsity_range"`
	NoiseConcentrationRange FloatRange `mapstructure:"noise_concentration_range"`
	NoiseValueRange         IntRange   `mapstructure:"noise_value_range"`
	BlurRadius              float64    `mapstructure:"blur_radius"`
}

// DefaultBadPhotoCopyOptions produces light toner speckle.
func DefaultBadPhotoCopyOptions() BadPhotoCopyOptions {
	return BadPhotoCopyOptions{
		NoiseTypeRange:          IntRange{NoiseUniform, NoiseBorder},
		NoiseIterationRange:     IntRange{1, 3},
		NoiseSizeRange:          IntRange{1, 3},
		NoiseSparsityRange:      FloatRange{0.1, 0.5},
		NoiseConcentrationRange: FloatRange{0.1, 0.5},
		NoiseValueRange:         IntRange{32, 128},
		BlurRadius:              0.6,
	}
}

// BadPhotoCopy darkens the page with toner speckle, as a worn copier would.
type BadPhotoCopy struct {
	base
	opts BadPhotoCopyOptions
}

// NewBadPhotoCopy validates opts and returns a BadPhotoCopy transformation.
func NewBadPhotoCopy(name string, opts BadPhotoCopyOptions) (*BadPhotoCopy, error) {
	checks := []error{
		opts.NoiseTypeRange.check("noise_type_range", NoiseUniform, NoiseBorder),
		opts.NoiseIterationRange.check("noise_iteration_range", 1, 10),
		opts.NoiseSizeRange.check("noise_size_range", 1, 16),
		opts.NoiseSparsityRange.check("noise_sparsity_range", 0, 1),
		opts.NoiseConcentrationRange.check("noise_concentration_range", 0, 1),
		opts.NoiseValueRange.check("noise_value_range", 0, 255),
	}
	for _, err := range checks {
		if err != nil {
			return nil, err
		}
	}
	if opts.BlurRadius < 0 {
		opts.BlurRadius = 0
	}
	return &BadPhotoCopy{base: base{name: name}, opts: opts}, nil
}

func badPhotoCopyFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultBadPhotoCopyOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewBadPhotoCopy(name, opts)
}

// SampleParams draws the speckle layout and the seed placing the speckles.
func (b *BadPhotoCopy) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{
		"noise_type":          b.opts.NoiseTypeRange.sample(rng),
		"noise_iteration":     b.opts.NoiseIterationRange.sample(rng),
		"noise_size":          b.opts.NoiseSizeRange.sample(rng),
		"noise_sparsity":      b.opts.NoiseSparsityRange.sample(rng),
		"noise_concentration": b.opts.NoiseConcentrationRange.sample(rng),
		"noise_seed":          augment.SampleSeed(rng),
	}
}

// Apply multiplies img with a blurred speckle layer.
func (b *BadPhotoCopy) Apply(img image.Image, params augment.Params) (image.Image, error) {
	noiseType, err := params.Int("noise_type")
	if err != nil {
		return nil, b.param(err)
	}
	iterations, err := params.Int("noise_iteration")
	if err != nil {
		return nil, b.param(err)
	}
	size, err := params.Int("noise_size")
	if err != nil {
		return nil, b.param(err)
	}
	sparsity, err := params.Float("noise_sparsity")
	if err != nil {
		return nil, b.param(err)
	}
	concentration, err := params.Float("noise_concentration")
	if err != nil {
		return nil, b.param(err)
	}
	seed, err := params.Uint64("noise_seed")
	if err != nil {
		return nil, b.param(err)
	}
	src, err := b.prepare(img)
	if err != nil {
		return nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	layer := speckle(w, h, speckleSpec{
		kind:       noiseType,
		iterations: iterations,
		size:       max(size, 1),
		density:    0.05 * concentration * (1 - sparsity),
		values:     b.opts.NoiseValueRange,
		seed:       seed,
	})
	var noise image.Image = layer
	if b.opts.BlurRadius > 0 {
		noise = blur.Gaussian(layer, b.opts.BlurRadius)
	}
	return cimaging.Conform(img, blend.Multiply(src, noise)), nil
}

type speckleSpec struct {
	kind       int
	iterations int
	size       int
	density    float64
	values     IntRange
	seed       uint64
}

// speckle renders a white w×h layer sprinkled with dark square dots.
func speckle(w, h int, s speckleSpec) *image.Gray {
	layer := image.NewGray(image.Rect(0, 0, w, h))
	for i := range layer.Pix {
		layer.Pix[i] = 0xff
	}
	rng := rand.New(rand.NewPCG(s.seed, ^s.seed))
	for it := 0; it < s.iterations; it++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if rng.Float64() >= s.density*profile(s.kind, x, y, w, h) {
					continue
				}
				v := uint8(s.values.sample(rng))
				for dy := 0; dy < s.size && y+dy < h; dy++ {
					for dx := 0; dx < s.size && x+dx < w; dx++ {
						if i := layer.PixOffset(x+dx, y+dy); layer.Pix[i] > v {
							layer.SetGray(x+dx, y+dy, color.Gray{Y: v})
						}
					}
				}
			}
		}
	}
	return layer
}

// profile weights the speckle density at (x, y) for the given layout.
func profile(kind, x, y, w, h int) float64 {
	switch kind {
	case NoiseLeft:
		return 2 * (1 - float64(x)/float64(w))
	case NoiseTop:
		return 2 * (1 - float64(y)/float64(h))
	case NoiseBorder:
		d := math.Min(math.Min(float64(x), float64(w-1-x)), math.Min(float64(y), float64(h-1-y)))
		return 2 * math.Max(0, 1-2*d/math.Max(1, math.Min(float64(w), float64(h))))
	}
	return 1
}
