package transforms

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/pkg/errors"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// MorphologyOptions configures Erosion and Dilation.
type MorphologyOptions struct {
	RadiusRange     FloatRange `mapstructure:"radius_range"`
	IterationsRange IntRange   `mapstructure:"iterations_range"`
}

// DefaultMorphologyOptions uses a 3x3 to 5x5 neighborhood applied one to
// three times.
func DefaultMorphologyOptions() MorphologyOptions {
	return MorphologyOptions{RadiusRange: FloatRange{1, 2}, IterationsRange: IntRange{1, 3}}
}

// Morphology applies a grayscale morphological filter repeatedly. On dark
// text over a light page, erosion thickens strokes and dilation thins them.
type Morphology struct {
	base
	opts MorphologyOptions
	op   func(image.Image, float64) *image.RGBA
}

// NewErosion returns a transformation that takes the local minimum.
func NewErosion(name string, opts MorphologyOptions) (*Morphology, error) {
	return newMorphology(name, opts, effect.Erode)
}

// NewDilation returns a transformation that takes the local maximum.
func NewDilation(name string, opts MorphologyOptions) (*Morphology, error) {
	return newMorphology(name, opts, effect.Dilate)
}

func newMorphology(name string, opts MorphologyOptions, op func(image.Image, float64) *image.RGBA) (*Morphology, error) {
	if err := opts.RadiusRange.check("radius_range", 0.5, 10); err != nil {
		return nil, err
	}
	if err := opts.IterationsRange.check("iterations_range", 1, 10); err != nil {
		return nil, err
	}
	return &Morphology{base: base{name: name}, opts: opts, op: op}, nil
}

func erosionFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultMorphologyOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewErosion(name, opts)
}

func dilationFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultMorphologyOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewDilation(name, opts)
}

// SampleParams draws the neighborhood radius and the number of passes.
func (m *Morphology) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{
		"radius":     m.opts.RadiusRange.sample(rng),
		"iterations": m.opts.IterationsRange.sample(rng),
	}
}

// Apply runs the filter params["iterations"] times.
func (m *Morphology) Apply(img image.Image, params augment.Params) (image.Image, error) {
	radius, err := params.Float("radius")
	if err != nil {
		return nil, m.param(err)
	}
	iterations, err := params.Int("iterations")
	if err != nil {
		return nil, m.param(err)
	}
	src, err := m.prepare(img)
	if err != nil {
		return nil, err
	}

	var out image.Image = src
	for i := 0; i < iterations; i++ {
		out = m.op(out, radius)
	}
	return cimaging.Conform(img, out), nil
}

// MotionBlurOptions configures MotionBlur. Only odd kernel sizes within
// KernelSizeRange are sampled.
type MotionBlurOptions struct {
	KernelSizeRange IntRange   `mapstructure:"kernel_size_range"`
	AngleRange      FloatRange `mapstructure:"angle_range"`
	DirectionRange  FloatRange `mapstructure:"direction_range"`
}

// DefaultMotionBlurOptions blurs along any angle with a 3, 5 or 7 pixel line.
func DefaultMotionBlurOptions() MotionBlurOptions {
	return MotionBlurOptions{
		KernelSizeRange: IntRange{3, 7},
		AngleRange:      FloatRange{0, 360},
		DirectionRange:  FloatRange{-1, 1},
	}
}

// MotionBlur smears the page along a line, as a camera moving during the
// exposure would.
type MotionBlur struct {
	base
	opts  MotionBlurOptions
	sizes []int
}

// NewMotionBlur validates opts and returns a MotionBlur transformation.
func NewMotionBlur(name string, opts MotionBlurOptions) (*MotionBlur, error) {
	if err := opts.KernelSizeRange.check("kernel_size_range", 3, 31); err != nil {
		return nil, err
	}
	if err := opts.AngleRange.check("angle_range", -360, 360); err != nil {
		return nil, err
	}
	if err := opts.DirectionRange.check("direction_range", -1, 1); err != nil {
		return nil, err
	}
	var sizes []int
	for k := opts.KernelSizeRange[0]; k <= opts.KernelSizeRange[1]; k++ {
		if k%2 == 1 {
			sizes = append(sizes, k)
		}
	}
	if len(sizes) == 0 {
		return nil, errors.Errorf("kernel_size_range %v contains no odd size", opts.KernelSizeRange)
	}
	return &MotionBlur{base: base{name: name}, opts: opts, sizes: sizes}, nil
}

func motionBlurFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultMotionBlurOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewMotionBlur(name, opts)
}

// SampleParams draws the kernel size, the blur angle in degrees and the
// direction bias.
func (m *MotionBlur) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{
		"kernel_size": m.sizes[rng.IntN(len(m.sizes))],
		"angle":       m.opts.AngleRange.sample(rng),
		"direction":   m.opts.DirectionRange.sample(rng),
	}
}

// Apply convolves img with the sampled line kernel.
func (m *MotionBlur) Apply(img image.Image, params augment.Params) (image.Image, error) {
	size, err := params.Int("kernel_size")
	if err != nil {
		return nil, m.param(err)
	}
	angle, err := params.Float("angle")
	if err != nil {
		return nil, m.param(err)
	}
	direction, err := params.Float("direction")
	if err != nil {
		return nil, m.param(err)
	}
	if size < 1 || size%2 == 0 {
		return nil, m.param(errors.Errorf("kernel_size must be odd and positive, got %d", size))
	}
	src, err := m.prepare(img)
	if err != nil {
		return nil, err
	}

	out := convolution.Convolve(src, lineKernel(size, angle, direction), &convolution.Options{KeepAlpha: true})
	return cimaging.Conform(img, out), nil
}

// lineKernel returns a normalized size×size kernel covering a line through
// the center at angle degrees. direction in [-1,1] weights one end of the
// line more than the other; 0 is symmetric.
func lineKernel(size int, angle, direction float64) *convolution.Kernel {
	k := convolution.NewKernel(size, size)
	c := float64(size-1) / 2
	dx, dy := math.Cos(angle*math.Pi/180), math.Sin(angle*math.Pi/180)

	const steps = 4
	for i := -steps * int(c); i <= steps*int(c); i++ {
		t := float64(i) / steps
		x := int(math.Round(c + t*dx))
		y := int(math.Round(c + t*dy))
		w := 1 + direction*t/c
		if w <= 0 {
			continue
		}
		idx := y*size + x
		k.Matrix[idx] = math.Max(k.Matrix[idx], w)
	}

	var sum float64
	for _, v := range k.Matrix {
		sum += v
	}
	for i := range k.Matrix {
		k.Matrix[i] /= sum
	}
	return k
}
