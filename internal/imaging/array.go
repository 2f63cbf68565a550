package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// Array is a row-major 8-bit pixel array with shape (H, W) or (H, W, C).
//
// Array implements image.Image so it can flow through any image routine, but
// it keeps its shape: transformations that receive an Array return an Array
// with the same number of dimensions and channels.
//
// Only C == 1 (grayscale) and C == 3 (RGB) are accepted by Validate. Arrays
// with other channel counts can be constructed so that callers holding such
// data get a precise error instead of a silent conversion.
type Array struct {
	// Pix holds H*W*C samples; the sample for channel c of pixel (x, y) is
	// at Pix[(y*W+x)*C+c].
	Pix []uint8

	shape []int
}

// NewArray allocates a zeroed Array with the given shape.
//
// Parameters:
//   - shape: either (H, W) or (H, W, C) with every dimension positive.
//
// Returns an error for any other number of dimensions or a non-positive size.
func NewArray(shape ...int) (*Array, error) {
	if len(shape) != 2 && len(shape) != 3 {
		return nil, fmt.Errorf("array must have 2 or 3 dimensions, got %d", len(shape))
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("array dimension %d must be positive, got %d", i, d)
		}
		n *= d
	}
	return &Array{Pix: make([]uint8, n), shape: append([]int(nil), shape...)}, nil
}

// ArrayFromImage copies img into an Array. Grayscale images become (H, W)
// arrays; everything else becomes (H, W, 3) with alpha dropped.
func ArrayFromImage(img image.Image) *Array {
	b := img.Bounds()
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		a, _ := NewArray(b.Dy(), b.Dx())
		a.fill(img)
		return a
	}
	a, _ := NewArray(b.Dy(), b.Dx(), 3)
	a.fill(img)
	return a
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Ndim returns the number of dimensions, 2 or 3.
func (a *Array) Ndim() int { return len(a.shape) }

// Height returns the number of rows.
func (a *Array) Height() int { return a.shape[0] }

// Width returns the number of columns.
func (a *Array) Width() int { return a.shape[1] }

// Channels returns the number of samples per pixel; 1 for a 2-D array.
func (a *Array) Channels() int {
	if len(a.shape) == 2 {
		return 1
	}
	return a.shape[2]
}

// ColorModel implements image.Image.
func (a *Array) ColorModel() color.Model {
	if a.Channels() < 3 {
		return color.GrayModel
	}
	return color.NRGBAModel
}

// Bounds implements image.Image. Arrays always start at the origin.
func (a *Array) Bounds() image.Rectangle {
	return image.Rect(0, 0, a.Width(), a.Height())
}

// At implements image.Image.
func (a *Array) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(a.Bounds())) {
		return color.Gray{}
	}
	c := a.Channels()
	i := (y*a.Width() + x) * c
	switch {
	case c < 3:
		return color.Gray{Y: a.Pix[i]}
	case c == 3:
		return color.NRGBA{R: a.Pix[i], G: a.Pix[i+1], B: a.Pix[i+2], A: 0xff}
	default:
		return color.NRGBA{R: a.Pix[i], G: a.Pix[i+1], B: a.Pix[i+2], A: a.Pix[i+3]}
	}
}

// Set stores c at (x, y), converting it to the array's channel layout.
func (a *Array) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(a.Bounds())) {
		return
	}
	ch := a.Channels()
	i := (y*a.Width() + x) * ch
	if ch < 3 {
		a.Pix[i] = color.GrayModel.Convert(c).(color.Gray).Y
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	a.Pix[i], a.Pix[i+1], a.Pix[i+2] = n.R, n.G, n.B
	if ch > 3 {
		a.Pix[i+3] = n.A
	}
}

// fill copies img into a, anchoring img's top-left corner at the origin.
func (a *Array) fill(img image.Image) {
	b := img.Bounds()
	for y := 0; y < a.Height() && y < b.Dy(); y++ {
		for x := 0; x < a.Width() && x < b.Dx(); x++ {
			a.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
}
