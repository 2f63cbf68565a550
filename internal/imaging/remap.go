package imaging

import (
	"image"
	"image/color"
	"math"
)

// MapFunc returns the source coordinate sampled for destination pixel (x, y).
type MapFunc func(x, y int) (sx, sy float64)

// Remap builds a new image the size of img where every pixel is bilinearly
// sampled from img at the coordinate returned by fn. Samples falling outside
// img take the fill color.
//
// Pixel centers sit at integer coordinates, so an identity MapFunc reproduces
// img exactly.
func Remap(img image.Image, fn MapFunc, fill color.Color) *image.NRGBA {
	src := ToNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	f := color.NRGBAModel.Convert(fill).(color.NRGBA)
	fillPix := [4]float64{float64(f.R), float64(f.G), float64(f.B), float64(f.A)}

	sample := func(x, y int) [4]float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return fillPix
		}
		i := y*src.Stride + x*4
		p := src.Pix[i : i+4 : i+4]
		return [4]float64{float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := fn(x, y)
			x0, y0 := math.Floor(sx), math.Floor(sy)
			tx, ty := sx-x0, sy-y0
			ix, iy := int(x0), int(y0)

			p00, p10 := sample(ix, iy), sample(ix+1, iy)
			p01, p11 := sample(ix, iy+1), sample(ix+1, iy+1)

			j := y*dst.Stride + x*4
			for c := 0; c < 4; c++ {
				top := p00[c]*(1-tx) + p10[c]*tx
				bottom := p01[c]*(1-tx) + p11[c]*tx
				dst.Pix[j+c] = clampUint8(top*(1-ty) + bottom*ty)
			}
		}
	}
	return dst
}

// Field is a dense 2-D grid of float64 values stored row-major.
type Field struct {
	Width, Height int
	Values        []float64
}

// NewField allocates a zeroed width×height field.
func NewField(width, height int) *Field {
	return &Field{Width: width, Height: height, Values: make([]float64, width*height)}
}

// At returns the value at (x, y), clamping coordinates to the grid.
func (f *Field) At(x, y int) float64 {
	return f.Values[clamp(y, 0, f.Height-1)*f.Width+clamp(x, 0, f.Width-1)]
}

// Bilinear interpolates the field at fractional grid coordinates.
func (f *Field) Bilinear(gx, gy float64) float64 {
	x0, y0 := math.Floor(gx), math.Floor(gy)
	tx, ty := gx-x0, gy-y0
	ix, iy := int(x0), int(y0)
	top := f.At(ix, iy)*(1-tx) + f.At(ix+1, iy)*tx
	bottom := f.At(ix, iy+1)*(1-tx) + f.At(ix+1, iy+1)*tx
	return top*(1-ty) + bottom*ty
}

// MaxAbs returns the largest absolute value in the field.
func (f *Field) MaxAbs() float64 {
	var m float64
	for _, v := range f.Values {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// Scale multiplies every value by k.
func (f *Field) Scale(k float64) {
	for i := range f.Values {
		f.Values[i] *= k
	}
}

// GaussianSmooth returns f convolved with a Gaussian of the given sigma,
// measured in grid cells. Edges are handled by clamping, and sigma <= 0
// returns a copy.
//
// The kernel is separable, so the blur runs as a horizontal pass followed by
// a vertical one with radius ceil(3*sigma).
func GaussianSmooth(f *Field, sigma float64) *Field {
	out := NewField(f.Width, f.Height)
	if sigma <= 0 {
		copy(out.Values, f.Values)
		return out
	}

	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var kernelSum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		kernelSum += v
	}

	tmp := NewField(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += f.At(x+k, y) * kernel[k+radius]
			}
			tmp.Values[y*f.Width+x] = sum / kernelSum
		}
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += tmp.At(x, y+k) * kernel[k+radius]
			}
			out.Values[y*f.Width+x] = sum / kernelSum
		}
	}
	return out
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func clampUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
