package augment

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
)

// Params holds the values sampled for one application of a transformation.
// Keys are parameter names; values are scalars, strings or slices of them.
type Params map[string]any

// Transformation is a named, randomized image operation.
//
// SampleParams must draw all of its randomness from rng so that the same
// generator state always yields the same Params. Apply must be a pure
// function of its inputs and return an image in the same representation it
// was given.
type Transformation interface {
	Name() string
	SampleParams(rng *rand.Rand) Params
	Apply(img image.Image, params Params) (image.Image, error)
}

// Run samples parameters for t from rng and applies them to img.
func Run(t Transformation, img image.Image, rng *rand.Rand) (image.Image, Params, error) {
	params := t.SampleParams(rng)
	out, err := t.Apply(img, params)
	if err != nil {
		return nil, params, err
	}
	return out, params, nil
}

// Float returns the named parameter as a float64.
func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, errors.Errorf("parameter %q: want number, got %T", key, v)
}

// Int returns the named parameter as an int.
func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, errors.Errorf("parameter %q: want integer, got %v", key, v)
}

// MaxSeed bounds the seeds leaves carry in their Params. Every seed below it
// is exactly representable as a float64, so a seed read back from JSON
// replays the same stream.
const MaxSeed = 1 << 53

// SampleSeed draws a seed in [0, MaxSeed) for size-dependent randomness that
// Apply derives later.
func SampleSeed(rng *rand.Rand) uint64 {
	return uint64(rng.Int64N(MaxSeed))
}

// Uint64 returns the named parameter as a uint64, typically a derived seed.
// Integral float64 values, as decoded from JSON, are accepted.
func (p Params) Uint64(key string) (uint64, error) {
	v, ok := p[key]
	if !ok {
		return 0, errors.Errorf("missing parameter %q", key)
	}
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case float64:
		if n >= 0 && n < MaxSeed && n == math.Trunc(n) {
			return uint64(n), nil
		}
	}
	return 0, errors.Errorf("parameter %q: want unsigned integer, got %T %v", key, v, v)
}

// String returns the named parameter as a string.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", errors.Errorf("missing parameter %q", key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.Errorf("parameter %q: want string, got %T", key, v)
}

// Floats returns the named parameter as a slice of float64. A []any of
// numbers, as decoded from JSON, is converted.
func (p Params) Floats(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, errors.Errorf("missing parameter %q", key)
	}
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, err := Params{key: e}.Float(key)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, errors.Errorf("parameter %q: want []float64, got %T", key, v)
}
