package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func TestRemap_Identity(t *testing.T) {
	src := checkerboard(7, 5)
	out := Remap(src, func(x, y int) (float64, float64) { return float64(x), float64(y) }, color.White)
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Error("identity remap changed pixels")
	}
}

func TestRemap_OutsideUsesFill(t *testing.T) {
	src := checkerboard(4, 4)
	fill := color.NRGBA{1, 2, 3, 255}
	out := Remap(src, func(x, y int) (float64, float64) { return float64(x) + 100, float64(y) }, fill)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := out.NRGBAAt(x, y); got != fill {
				t.Fatalf("pixel (%d,%d): got %v, want fill", x, y, got)
			}
		}
	}
}

func TestRemap_HalfPixelBlends(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{0})
	src.SetGray(1, 0, color.Gray{200})
	out := Remap(src, func(x, y int) (float64, float64) { return 0.5, 0 }, color.White)
	if got := out.NRGBAAt(0, 0).R; got != 100 {
		t.Errorf("blended value: got %d, want 100", got)
	}
}

func TestRemap_ArrayInput(t *testing.T) {
	arr, _ := NewArray(3, 3)
	arr.Set(1, 1, color.White)
	out := Remap(arr, func(x, y int) (float64, float64) { return float64(x), float64(y) }, color.Black)
	if got := out.NRGBAAt(1, 1); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("center pixel: got %v", got)
	}
}

func TestGaussianSmooth(t *testing.T) {
	f := NewField(9, 9)
	f.Values[4*9+4] = 1

	same := GaussianSmooth(f, 0)
	if same.Values[4*9+4] != 1 {
		t.Error("sigma 0 should copy the field")
	}

	s := GaussianSmooth(f, 1.5)
	var sum float64
	for _, v := range s.Values {
		sum += v
	}
	if math.Abs(sum-1) > 0.05 {
		t.Errorf("smoothing should roughly preserve mass: got %v", sum)
	}
	if s.Values[4*9+4] >= 1 || s.Values[4*9+4] <= s.Values[4*9+5] {
		t.Error("peak should be lowered but remain the maximum")
	}
	if math.Abs(s.Values[4*9+3]-s.Values[4*9+5]) > 1e-12 {
		t.Error("smoothing should be symmetric")
	}
}

func TestField_BilinearAndMaxAbs(t *testing.T) {
	f := NewField(2, 2)
	f.Values = []float64{0, 1, 2, -3}
	if got := f.Bilinear(0.5, 0); got != 0.5 {
		t.Errorf("Bilinear: got %v, want 0.5", got)
	}
	if got := f.Bilinear(5, 5); got != -3 {
		t.Errorf("Bilinear should clamp: got %v", got)
	}
	if got := f.MaxAbs(); got != 3 {
		t.Errorf("MaxAbs: got %v", got)
	}
	f.Scale(2)
	if f.Values[3] != -6 {
		t.Errorf("Scale: got %v", f.Values[3])
	}
}

func TestEncode(t *testing.T) {
	enc, err := Encode(checkerboard(6, 4))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if enc.Width != 6 || enc.Height != 4 || enc.MimeType != "image/png" {
		t.Errorf("unexpected metadata: %+v", enc)
	}
	data, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 6 {
		t.Errorf("decoded width: got %d", img.Bounds().Dx())
	}
}
