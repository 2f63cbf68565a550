package transforms

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

const defaultFill = "#ffffff"

// shrinkOnto resizes src by scale and centers it on a fill canvas of the
// original size.
func shrinkOnto(src *image.NRGBA, scale float64, fill color.Color) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	resized := imaging.Resize(src, nw, nh, imaging.Linear)
	return imaging.PasteCenter(imaging.New(w, h, fill), resized)
}

// ScaleOptions configures Scale.
type ScaleOptions struct {
	ScaleRange FloatRange `mapstructure:"scale_range"`
	Fill       string     `mapstructure:"fill"`
}

// DefaultScaleOptions shrinks pages to between 80% and 100% of their size.
func DefaultScaleOptions() ScaleOptions {
	return ScaleOptions{ScaleRange: FloatRange{0.8, 1.0}, Fill: defaultFill}
}

// Scale shrinks the page content and pads it back to the original size, as
// if the page had been scanned from further away.
type Scale struct {
	base
	opts ScaleOptions
	fill color.NRGBA
}

// NewScale validates opts and returns a Scale transformation.
func NewScale(name string, opts ScaleOptions) (*Scale, error) {
	if err := opts.ScaleRange.check("scale_range", 0.05, 1); err != nil {
		return nil, err
	}
	fill, err := parseColor(opts.Fill)
	if err != nil {
		return nil, err
	}
	return &Scale{base: base{name: name}, opts: opts, fill: fill}, nil
}

func scaleFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultScaleOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewScale(name, opts)
}

// SampleParams draws the scale factor.
func (s *Scale) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{"scale": s.opts.ScaleRange.sample(rng)}
}

// Apply shrinks img by params["scale"]. A scale of 1 or more returns img.
func (s *Scale) Apply(img image.Image, params augment.Params) (image.Image, error) {
	scale, err := params.Float("scale")
	if err != nil {
		return nil, s.param(err)
	}
	src, err := s.prepare(img)
	if err != nil {
		return nil, err
	}
	if scale >= 1 {
		return img, nil
	}
	return cimaging.Conform(img, shrinkOnto(src, scale, s.fill)), nil
}

// ShearOptions configures Shear. Angles are in degrees.
type ShearOptions struct {
	AngleRange    FloatRange `mapstructure:"angle_range"`
	PrescaleRange FloatRange `mapstructure:"prescale_range"`
	Fill          string     `mapstructure:"fill"`
}

// DefaultShearOptions shears up to 15 degrees on each axis after shrinking
// the page to 70-80% so corners stay on the canvas.
func DefaultShearOptions() ShearOptions {
	return ShearOptions{
		AngleRange:    FloatRange{-15, 15},
		PrescaleRange: FloatRange{0.7, 0.8},
		Fill:          defaultFill,
	}
}

// Shear skews the page horizontally and vertically.
type Shear struct {
	base
	opts ShearOptions
	fill color.NRGBA
}

// NewShear validates opts and returns a Shear transformation.
func NewShear(name string, opts ShearOptions) (*Shear, error) {
	if err := opts.AngleRange.check("angle_range", -60, 60); err != nil {
		return nil, err
	}
	if err := opts.PrescaleRange.check("prescale_range", 0.05, 1); err != nil {
		return nil, err
	}
	fill, err := parseColor(opts.Fill)
	if err != nil {
		return nil, err
	}
	return &Shear{base: base{name: name}, opts: opts, fill: fill}, nil
}

func shearFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultShearOptions()
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewShear(name, opts)
}

// SampleParams draws both shear angles and the prescale factor. kx and ky
// are the resulting shear coefficients.
func (s *Shear) SampleParams(rng *rand.Rand) augment.Params {
	phiX := s.opts.AngleRange.sample(rng)
	phiY := s.opts.AngleRange.sample(rng)
	return augment.Params{
		"phi_x":    phiX,
		"phi_y":    phiY,
		"kx":       math.Tan(phiX * math.Pi / 180),
		"ky":       math.Tan(phiY * math.Pi / 180),
		"prescale": s.opts.PrescaleRange.sample(rng),
	}
}

// Apply shrinks img by params["prescale"], shears it by phi_x then phi_y and
// crops the result back to the original size.
func (s *Shear) Apply(img image.Image, params augment.Params) (image.Image, error) {
	phiX, err := params.Float("phi_x")
	if err != nil {
		return nil, s.param(err)
	}
	phiY, err := params.Float("phi_y")
	if err != nil {
		return nil, s.param(err)
	}
	prescale, err := params.Float("prescale")
	if err != nil {
		return nil, s.param(err)
	}
	src, err := s.prepare(img)
	if err != nil {
		return nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var sheared image.Image = shrinkOnto(src, prescale, s.fill)
	if phiX != 0 {
		sheared = transform.ShearH(sheared, phiX)
	}
	if phiY != 0 {
		sheared = transform.ShearV(sheared, phiY)
	}
	out := imaging.OverlayCenter(imaging.New(w, h, s.fill), sheared, 1.0)
	return cimaging.Conform(img, out), nil
}
