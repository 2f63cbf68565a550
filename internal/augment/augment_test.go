package augment

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// stubAug is a minimal transformation whose parameters expose the generator
// state it was sampled from.
type stubAug struct {
	name string
	err  error
}

func (s stubAug) Name() string { return s.name }

func (s stubAug) SampleParams(rng *rand.Rand) Params {
	return Params{"value": rng.Float64(), "level": rng.IntN(100)}
}

func (s stubAug) Apply(img image.Image, params Params) (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := params.Float("value"); err != nil {
		return nil, NewTransformationError(s.name, err)
	}
	out := image.NewGray(img.Bounds())
	out.SetGray(0, 0, color.Gray{Y: 7})
	return out, nil
}

func stubs(names ...string) []Transformation {
	out := make([]Transformation, 0, len(names))
	for _, n := range names {
		out = append(out, stubAug{name: n})
	}
	return out
}

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 4, 4))
}

var errBoom = errors.New("boom")
