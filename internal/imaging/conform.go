package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

var (
	// ErrNilImage is returned when an image is missing.
	ErrNilImage = errors.New("image is nil")

	// ErrEmptyImage is returned for images with no pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrUnsupportedChannels is returned for arrays that are neither
	// grayscale nor RGB.
	ErrUnsupportedChannels = errors.New("unsupported channel count")
)

// Validate checks that img is something the transformations can process: a
// non-empty boxed image, or an Array with 1 or 3 channels.
func Validate(img image.Image) error {
	if img == nil {
		return ErrNilImage
	}
	if a, ok := img.(*Array); ok {
		if a == nil || len(a.shape) == 0 {
			return ErrNilImage
		}
		if c := a.Channels(); c != 1 && c != 3 {
			return fmt.Errorf("%w: array of shape %v has %d channels, want 1 or 3", ErrUnsupportedChannels, a.shape, c)
		}
	}
	if img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}

// ToNRGBA returns a copy of img as an origin-anchored *image.NRGBA, the
// working representation for pixel operations.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Conform converts out into the representation of src so that an operation
// hands back the kind of image it was given:
//
//   - *Array keeps its number of dimensions and channels
//   - *image.Gray stays *image.Gray
//   - *image.RGBA stays *image.RGBA
//   - every other boxed image becomes *image.NRGBA
func Conform(src, out image.Image) image.Image {
	switch s := src.(type) {
	case *Array:
		return conformArray(s, out)
	case *image.Gray:
		if g, ok := out.(*image.Gray); ok {
			return g
		}
		g := image.NewGray(image.Rect(0, 0, out.Bounds().Dx(), out.Bounds().Dy()))
		draw.Draw(g, g.Bounds(), out, out.Bounds().Min, draw.Src)
		return g
	case *image.RGBA:
		if r, ok := out.(*image.RGBA); ok && r.Bounds().Min == (image.Point{}) {
			return r
		}
		r := image.NewRGBA(image.Rect(0, 0, out.Bounds().Dx(), out.Bounds().Dy()))
		draw.Draw(r, r.Bounds(), out, out.Bounds().Min, draw.Src)
		return r
	}
	if n, ok := out.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(out)
}

func conformArray(src *Array, out image.Image) *Array {
	shape := src.Shape()
	shape[0], shape[1] = out.Bounds().Dy(), out.Bounds().Dx()
	a, err := NewArray(shape...)
	if err != nil {
		// out is empty; hand back an empty array of the same rank.
		return &Array{shape: shape}
	}
	a.fill(out)
	return a
}
