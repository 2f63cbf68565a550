package transforms

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

func whitePage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

// darkPixels counts pixels whose red channel is below 128.
func darkPixels(img image.Image) int {
	n := cimaging.ToNRGBA(img)
	count := 0
	for i := 0; i < len(n.Pix); i += 4 {
		if n.Pix[i] < 128 {
			count++
		}
	}
	return count
}

// neverBrighter reports whether every channel of out is at most in.
func neverBrighter(t *testing.T, in, out image.Image) {
	t.Helper()
	a, b := cimaging.ToNRGBA(in), cimaging.ToNRGBA(out)
	require.Equal(t, len(a.Pix), len(b.Pix))
	for i := range a.Pix {
		if i%4 == 3 {
			continue
		}
		if b.Pix[i] > a.Pix[i] {
			t.Fatalf("sample %d brightened from %d to %d", i, a.Pix[i], b.Pix[i])
		}
	}
}

func TestScale(t *testing.T) {
	s, err := NewScale("scale", DefaultScaleOptions())
	require.NoError(t, err)

	src := page(40, 40)
	out, err := s.Apply(src, augment.Params{"scale": 1.0})
	require.NoError(t, err)
	assert.True(t, out == image.Image(src), "scale 1 must return the input")

	black := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for i := 3; i < len(black.Pix); i += 4 {
		black.Pix[i] = 0xff
	}
	out, err = s.Apply(black, augment.Params{"scale": 0.5})
	require.NoError(t, err)
	n := cimaging.ToNRGBA(out)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, n.NRGBAAt(1, 1), "border must be fill")
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, n.NRGBAAt(20, 20), "content must stay centered")
	assert.Equal(t, 400, darkPixels(out))
}

func TestShear(t *testing.T) {
	s, err := NewShear("shear", DefaultShearOptions())
	require.NoError(t, err)

	params := augment.Params{"phi_x": 10.0, "phi_y": -5.0, "prescale": 0.75}
	out, err := s.Apply(page(60, 50), params)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(60, 50), out.Bounds().Size())
	n := cimaging.ToNRGBA(out)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, n.NRGBAAt(0, 0), "corners must be fill")
	assert.Positive(t, darkPixels(out))

	p := s.SampleParams(newRand(9))
	assert.InDelta(t, math.Tan(p["phi_x"].(float64)*math.Pi/180), p["kx"].(float64), 1e-12)
}

func TestMorphology(t *testing.T) {
	opts := MorphologyOptions{RadiusRange: FloatRange{1, 1}, IterationsRange: IntRange{1, 1}}
	erode, err := NewErosion("erosion", opts)
	require.NoError(t, err)
	dilate, err := NewDilation("dilation", opts)
	require.NoError(t, err)

	dot := whitePage(11, 11)
	dot.SetNRGBA(5, 5, color.NRGBA{0, 0, 0, 255})
	params := augment.Params{"radius": 1.0, "iterations": 1}

	thick, err := erode.Apply(dot, params)
	require.NoError(t, err)
	assert.Equal(t, 9, darkPixels(thick), "erosion spreads a dark dot to its 3x3 neighborhood")

	gone, err := dilate.Apply(dot, params)
	require.NoError(t, err)
	assert.Zero(t, darkPixels(gone), "dilation removes an isolated dark dot")

	twice, err := erode.Apply(dot, augment.Params{"radius": 1.0, "iterations": 2})
	require.NoError(t, err)
	assert.Equal(t, 25, darkPixels(twice))
}

func TestMotionBlur_Kernel(t *testing.T) {
	for _, size := range []int{3, 5, 7} {
		for _, dir := range []float64{-1, 0, 0.5, 1} {
			k := lineKernel(size, 30, dir)
			var sum float64
			for _, v := range k.Matrix {
				assert.GreaterOrEqual(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1, sum, 1e-9)
			assert.Positive(t, k.At(size/2, size/2), "center must carry weight")
		}
	}

	k := lineKernel(5, 0, 0)
	for x := 0; x < 5; x++ {
		assert.InDelta(t, 0.2, k.At(x, 2), 1e-9)
		assert.Zero(t, k.At(x, 0))
	}
}

func TestMotionBlur_OddSizes(t *testing.T) {
	m, err := NewMotionBlur("motion_blur", DefaultMotionBlurOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 7}, m.sizes)

	rng := newRand(1)
	for i := 0; i < 50; i++ {
		assert.Contains(t, m.sizes, m.SampleParams(rng)["kernel_size"])
	}

	_, err = m.Apply(page(8, 8), augment.Params{"kernel_size": 4, "angle": 0.0, "direction": 0.0})
	assert.ErrorContains(t, err, "must be odd")
}

func TestElastic(t *testing.T) {
	e, err := NewElastic("elastic_transform", DefaultElasticOptions())
	require.NoError(t, err)

	src := page(64, 48)
	still, err := e.Apply(src, augment.Params{"alpha": 0.0, "sigma": 40.0, "field_seed": uint64(1)})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, cimaging.ToNRGBA(still).Pix, "zero alpha must not move pixels")

	a, err := e.Apply(src, augment.Params{"alpha": 6.0, "sigma": 8.0, "field_seed": uint64(1)})
	require.NoError(t, err)
	b, err := e.Apply(src, augment.Params{"alpha": 6.0, "sigma": 8.0, "field_seed": uint64(2)})
	require.NoError(t, err)
	assert.NotEqual(t, cimaging.ToNRGBA(a).Pix, cimaging.ToNRGBA(b).Pix, "different seeds must give different fields")
	assert.NotEqual(t, src.Pix, cimaging.ToNRGBA(a).Pix)
}

func TestGridDistortion(t *testing.T) {
	g, err := NewGridDistortion("grid_distortion", DefaultGridDistortionOptions())
	require.NoError(t, err)

	p := g.SampleParams(newRand(4))
	steps := p["num_steps"].(int)
	assert.Len(t, p["x_steps"], steps)
	assert.Len(t, p["y_steps"], steps)
	limit := p["distort_limit"].(float64)
	for _, v := range p["x_steps"].([]float64) {
		assert.InDelta(t, 1, v, limit+1e-12)
	}

	src := page(30, 20)
	flat, err := g.Apply(src, augment.Params{"x_steps": []float64{1, 1, 1}, "y_steps": []float64{1, 1}})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, cimaging.ToNRGBA(flat).Pix, "unit steps must be the identity")

	warped, err := g.Apply(src, augment.Params{"x_steps": []float64{1.3, 0.7, 1}, "y_steps": []float64{0.8, 1.2}})
	require.NoError(t, err)
	assert.NotEqual(t, src.Pix, cimaging.ToNRGBA(warped).Pix)
}

func TestAxisMap(t *testing.T) {
	identity := axisMap(10, []float64{1, 1, 1})
	for i, v := range identity {
		assert.InDelta(t, float64(i), v, 1e-9)
	}

	m := axisMap(10, []float64{2, 1})
	assert.InDelta(t, 0, m[0], 1e-9)
	assert.InDelta(t, 9, m[9], 1e-9)
	for i := 1; i < len(m); i++ {
		assert.Greater(t, m[i], m[i-1], "warp must be monotonic")
	}
	assert.InDelta(t, 16.0/3, m[4], 1e-9, "the first cell is stretched over two thirds of the source")

	assert.Equal(t, []float64{0}, axisMap(1, []float64{1.2, 0.8}))
}

func TestBadPhotoCopy(t *testing.T) {
	b, err := NewBadPhotoCopy("bad_photo_copy", DefaultBadPhotoCopyOptions())
	require.NoError(t, err)

	src := whitePage(64, 64)
	params := augment.Params{
		"noise_type":          NoiseUniform,
		"noise_iteration":     2,
		"noise_size":          2,
		"noise_sparsity":      0.1,
		"noise_concentration": 0.5,
		"noise_seed":          uint64(77),
	}
	out, err := b.Apply(src, params)
	require.NoError(t, err)
	neverBrighter(t, src, out)
	assert.Positive(t, darkPixels(out))

	params["noise_seed"] = uint64(78)
	other, err := b.Apply(src, params)
	require.NoError(t, err)
	assert.NotEqual(t, cimaging.ToNRGBA(out).Pix, cimaging.ToNRGBA(other).Pix)
}

func TestSpeckleProfiles(t *testing.T) {
	assert.Equal(t, 1.0, profile(NoiseUniform, 3, 3, 10, 10))
	assert.Greater(t, profile(NoiseLeft, 0, 5, 10, 10), profile(NoiseLeft, 9, 5, 10, 10))
	assert.Greater(t, profile(NoiseTop, 5, 0, 10, 10), profile(NoiseTop, 5, 9, 10, 10))
	assert.Greater(t, profile(NoiseBorder, 0, 5, 10, 10), profile(NoiseBorder, 5, 5, 10, 10))
}

func TestWatermark(t *testing.T) {
	m, err := NewWatermark("watermark", DefaultWatermarkOptions())
	require.NoError(t, err)

	src := whitePage(120, 60)
	params := augment.Params{
		"word": "DRAFT", "font_size": 20, "font_thickness": 2, "rotation": 0,
		"x": 0.5, "y": 0.5, "color": "#202020",
	}
	out, err := m.Apply(src, params)
	require.NoError(t, err)
	neverBrighter(t, src, out)
	assert.Positive(t, darkPixels(out))

	p := m.SampleParams(newRand(3))
	assert.Contains(t, DefaultWatermarkOptions().Words, p["word"])
	_, err = parseColor(p["color"].(string))
	assert.NoError(t, err)

	params["color"] = "bogus"
	_, err = m.Apply(src, params)
	assert.Error(t, err)
}

func TestWatermark_WordsReplaceDefaults(t *testing.T) {
	tr, err := Default().New(KindWatermark, "", map[string]any{"words": []any{"VOID"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"VOID"}, tr.(*Watermark).opts.Words)
}

func TestScribbles(t *testing.T) {
	s, err := NewScribbles("scribbles", ScribblesOptions{
		SizeRange:        IntRange{30, 40},
		CountRange:       IntRange{2, 2},
		ThicknessRange:   IntRange{3, 3},
		BrightnessValues: []int{32},
		RotationRange:    IntRange{0, 0},
	})
	require.NoError(t, err)

	src := whitePage(80, 80)
	p := s.SampleParams(newRand(12))
	assert.Equal(t, 32, p["brightness"])
	out, err := s.Apply(src, p)
	require.NoError(t, err)
	neverBrighter(t, src, out)
	assert.Positive(t, darkPixels(out))

	_, err = NewScribbles("scribbles", ScribblesOptions{
		SizeRange: IntRange{1, 2}, CountRange: IntRange{1, 1}, ThicknessRange: IntRange{1, 1},
		BrightnessValues: []int{300}, RotationRange: IntRange{0, 0},
	})
	assert.ErrorContains(t, err, "brightness_values")
}
