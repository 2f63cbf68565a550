package transforms

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/go-viper/mapstructure/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// FloatRange is an inclusive [lo, hi] interval sampled uniformly.
type FloatRange [2]float64

// IntRange is an inclusive [lo, hi] interval of integers.
type IntRange [2]int

func (r FloatRange) sample(rng *rand.Rand) float64 {
	return r[0] + rng.Float64()*(r[1]-r[0])
}

func (r FloatRange) check(field string, min, max float64) error {
	if r[0] > r[1] {
		return errors.Errorf("%s: lower bound %v exceeds upper bound %v", field, r[0], r[1])
	}
	if r[0] < min || r[1] > max {
		return errors.Errorf("%s: [%v, %v] must lie within [%v, %v]", field, r[0], r[1], min, max)
	}
	return nil
}

func (r IntRange) sample(rng *rand.Rand) int {
	return r[0] + rng.IntN(r[1]-r[0]+1)
}

func (r IntRange) check(field string, min, max int) error {
	if r[0] > r[1] {
		return errors.Errorf("%s: lower bound %d exceeds upper bound %d", field, r[0], r[1])
	}
	if r[0] < min || r[1] > max {
		return errors.Errorf("%s: [%d, %d] must lie within [%d, %d]", field, r[0], r[1], min, max)
	}
	return nil
}

// decodeOptions overlays raw configuration options onto out, which already
// holds the defaults. Unknown keys are rejected.
func decodeOptions(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "building option decoder")
	}
	return errors.Wrap(dec.Decode(raw), "decoding options")
}

// parseColor parses a "#rrggbb" string into an opaque color.
func parseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(err, "invalid color %q", hex)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// sampleInk draws a saturated ink color with the given brightness in [0,1].
func sampleInk(rng *rand.Rand, value float64) string {
	return colorful.Hsv(rng.Float64()*360, 0.4+0.6*rng.Float64(), value).Hex()
}

// base carries the name every transformation reports and wraps its errors.
type base struct {
	name string
}

func (b base) Name() string { return b.name }

func (b base) fail(err error) error {
	return augment.NewTransformationError(b.name, err)
}

// prepare validates img and returns an origin-anchored working copy.
func (b base) prepare(img image.Image) (*image.NRGBA, error) {
	if err := cimaging.Validate(img); err != nil {
		return nil, b.fail(err)
	}
	return cimaging.ToNRGBA(img), nil
}

func (b base) param(err error) error {
	return b.fail(errors.Wrap(err, "bad parameters"))
}
