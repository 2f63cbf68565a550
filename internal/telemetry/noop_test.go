package telemetry

import (
	"image"
	"math/rand/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
)

type noop struct{}

func (noop) Name() string                           { return "noop" }
func (noop) SampleParams(*rand.Rand) augment.Params { return augment.Params{} }

func (noop) Apply(img image.Image, _ augment.Params) (image.Image, error) { return img, nil }

func (noop) image() image.Image { return image.NewGray(image.Rect(0, 0, 2, 2)) }
