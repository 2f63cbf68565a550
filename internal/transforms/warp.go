package transforms

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// ElasticOptions configures Elastic. Alpha is the peak displacement in
// pixels and sigma the smoothness of the field in pixels.
type ElasticOptions struct {
	AlphaRange FloatRange `mapstructure:"alpha_range"`
	SigmaRange FloatRange `mapstructure:"sigma_range"`
	Fill       string     `mapstructure:"fill"`
}

// DefaultElasticOptions produces gentle, wide waves in the text lines.
func DefaultElasticOptions() ElasticOptions {
	return ElasticOptions{
		AlphaRange: FloatRange{0.5, 2},
		SigmaRange: FloatRange{30, 60},
		Fill:       defaultFill,
	}
}

// Elastic warps the page with a smooth random displacement field, imitating
// paper that was not lying flat.
type Elastic struct {
	base
	opts ElasticOptions
	fill color.NRGBA
}

// NewElastic validates opts and returns an Elastic transformation.
func NewElastic(name string, opts ElasticOptions) (*Elastic, error) {
	if err := opts.AlphaRange.check("alpha_range", 0, 100); err != nil {
		return nil, err
	}
	if err := opts.SigmaRange.check("sigma_range", 1, 500); err != nil {
		return nil, err
	}
	fill, err := parseColor(opts.Fill)
	if err != nil {
		return nil, err
	}
	return &Elastic{base: base{name: name}, opts: opts, fill: fill}, nil
}

func elasticFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultElasticOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewElastic(name, opts)
}

// SampleParams draws alpha, sigma and the seed of the displacement field.
func (e *Elastic) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{
		"alpha":      e.opts.AlphaRange.sample(rng),
		"sigma":      e.opts.SigmaRange.sample(rng),
		"field_seed": augment.SampleSeed(rng),
	}
}

// Apply displaces every pixel by alpha times a smoothed unit field.
func (e *Elastic) Apply(img image.Image, params augment.Params) (image.Image, error) {
	alpha, err := params.Float("alpha")
	if err != nil {
		return nil, e.param(err)
	}
	sigma, err := params.Float("sigma")
	if err != nil {
		return nil, e.param(err)
	}
	seed, err := params.Uint64("field_seed")
	if err != nil {
		return nil, e.param(err)
	}
	src, err := e.prepare(img)
	if err != nil {
		return nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	// Field cells are step pixels wide; Remap interpolates between them.
	step := max(1.0, math.Floor(sigma/4))
	gw, gh := int(float64(w)/step)+2, int(float64(h)/step)+2
	rng := rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5))
	fx, fy := cimaging.NewField(gw, gh), cimaging.NewField(gw, gh)
	for i := range fx.Values {
		fx.Values[i] = rng.Float64()*2 - 1
		fy.Values[i] = rng.Float64()*2 - 1
	}
	fx, fy = cimaging.GaussianSmooth(fx, sigma/step), cimaging.GaussianSmooth(fy, sigma/step)
	normalize(fx, alpha)
	normalize(fy, alpha)

	out := cimaging.Remap(src, func(x, y int) (float64, float64) {
		gx, gy := float64(x)/step, float64(y)/step
		return float64(x) + fx.Bilinear(gx, gy), float64(y) + fy.Bilinear(gx, gy)
	}, e.fill)
	return cimaging.Conform(img, out), nil
}

// normalize rescales f so its largest magnitude equals peak.
func normalize(f *cimaging.Field, peak float64) {
	if m := f.MaxAbs(); m > 0 {
		f.Scale(peak / m)
	}
}

// GridDistortionOptions configures GridDistortion. Each grid cell is
// stretched or squeezed by a factor within 1 ± distort_limit.
type GridDistortionOptions struct {
	NumStepsRange     IntRange   `mapstructure:"num_steps_range"`
	DistortLimitRange FloatRange `mapstructure:"distort_limit_range"`
	Fill              string     `mapstructure:"fill"`
}

// DefaultGridDistortionOptions splits each axis into 3 to 6 cells.
func DefaultGridDistortionOptions() GridDistortionOptions {
	return GridDistortionOptions{
		NumStepsRange:     IntRange{3, 6},
		DistortLimitRange: FloatRange{0.1, 0.3},
		Fill:              defaultFill,
	}
}

// GridDistortion resizes the cells of a regular grid independently along
// each axis, producing uneven line and character spacing.
type GridDistortion struct {
	base
	opts GridDistortionOptions
	fill color.NRGBA
}

// NewGridDistortion validates opts and returns a GridDistortion.
func NewGridDistortion(name string, opts GridDistortionOptions) (*GridDistortion, error) {
	if err := opts.NumStepsRange.check("num_steps_range", 1, 64); err != nil {
		return nil, err
	}
	if err := opts.DistortLimitRange.check("distort_limit_range", 0, 0.9); err != nil {
		return nil, err
	}
	fill, err := parseColor(opts.Fill)
	if err != nil {
		return nil, err
	}
	return &GridDistortion{base: base{name: name}, opts: opts, fill: fill}, nil
}

func gridDistortionFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultGridDistortionOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewGridDistortion(name, opts)
}

// SampleParams draws the grid resolution, the distortion limit and one
// stretch factor per cell for each axis.
func (g *GridDistortion) SampleParams(rng *rand.Rand) augment.Params {
	steps := g.opts.NumStepsRange.sample(rng)
	limit := g.opts.DistortLimitRange.sample(rng)
	xs := make([]float64, steps)
	ys := make([]float64, steps)
	for i := range xs {
		xs[i] = 1 + (rng.Float64()*2-1)*limit
	}
	for i := range ys {
		ys[i] = 1 + (rng.Float64()*2-1)*limit
	}
	return augment.Params{
		"num_steps":     steps,
		"distort_limit": limit,
		"x_steps":       xs,
		"y_steps":       ys,
	}
}

// Apply remaps both axes through their piecewise-linear cell warps.
func (g *GridDistortion) Apply(img image.Image, params augment.Params) (image.Image, error) {
	xs, err := params.Floats("x_steps")
	if err != nil {
		return nil, g.param(err)
	}
	ys, err := params.Floats("y_steps")
	if err != nil {
		return nil, g.param(err)
	}
	src, err := g.prepare(img)
	if err != nil {
		return nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	xmap, ymap := axisMap(w, xs), axisMap(h, ys)
	out := cimaging.Remap(src, func(x, y int) (float64, float64) {
		return xmap[x], ymap[y]
	}, g.fill)
	return cimaging.Conform(img, out), nil
}

// axisMap returns, for each destination coordinate along an axis of the
// given size, the source coordinate to sample. The axis is divided into
// len(stretch) equal cells; cell i covers a source span proportional to
// stretch[i], with spans rescaled to cover the whole axis.
func axisMap(size int, stretch []float64) []float64 {
	out := make([]float64, size)
	if len(stretch) == 0 {
		for i := range out {
			out[i] = float64(i)
		}
		return out
	}

	var total float64
	for _, s := range stretch {
		total += math.Max(s, 0)
	}
	if total == 0 {
		total = 1
	}
	last := float64(size - 1)
	edges := make([]float64, len(stretch)+1)
	for i, s := range stretch {
		edges[i+1] = edges[i] + last*math.Max(s, 0)/total
	}

	cell := last / float64(len(stretch))
	for x := range out {
		i := len(stretch) - 1
		if cell > 0 {
			i = min(int(float64(x)/cell), len(stretch)-1)
		}
		t := 0.0
		if cell > 0 {
			t = (float64(x) - float64(i)*cell) / cell
		}
		out[x] = edges[i] + t*(edges[i+1]-edges[i])
	}
	return out
}
