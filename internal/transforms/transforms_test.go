package transforms

import (
	"encoding/json"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// page returns a white w×h page with a dark block of "text" in the middle.
func page(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if x > w/4 && x < 3*w/4 && y > h/3 && y < 2*h/3 && (x/4)%2 == 0 {
				c = color.NRGBA{20, 20, 20, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func grayPage(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	src := page(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Set(x, y, src.At(x, y))
		}
	}
	return g
}

func rgbaPage(w, h int) *image.RGBA {
	r := image.NewRGBA(image.Rect(0, 0, w, h))
	src := page(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, src.At(x, y))
		}
	}
	return r
}

func arrayPage(w, h int, shape ...int) *cimaging.Array {
	a, err := cimaging.NewArray(shape...)
	if err != nil {
		panic(err)
	}
	src := page(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a.Set(x, y, src.At(x, y))
		}
	}
	return a
}

// small keeps size-dependent leaves quick on tiny test pages.
var small = map[string]map[string]any{
	KindScribbles: {"size_range": []any{20, 30}},
}

func builtins(t *testing.T) []augment.Transformation {
	t.Helper()
	reg := Default()
	var out []augment.Transformation
	for _, kind := range reg.Kinds() {
		tr, err := reg.New(kind, "", small[kind])
		require.NoError(t, err, kind)
		out = append(out, tr)
	}
	return out
}

func TestDefault_Kinds(t *testing.T) {
	assert.ElementsMatch(t, []string{
		KindScale, KindShear, KindErosion, KindDilation, KindMotionBlur,
		KindElastic, KindGridDistortion, KindBadPhotoCopy, KindWatermark, KindScribbles,
	}, Default().Kinds())
}

func TestRegistry_New(t *testing.T) {
	reg := Default()

	tr, err := reg.New(KindScale, "", nil)
	require.NoError(t, err)
	assert.Equal(t, KindScale, tr.Name())

	tr, err = reg.New(KindScale, "shrink", map[string]any{"scale_range": []any{0.5, 0.6}})
	require.NoError(t, err)
	assert.Equal(t, "shrink", tr.Name())

	_, err = reg.New("sepia", "", nil)
	assert.ErrorContains(t, err, `unknown transformation kind "sepia"`)

	_, err = reg.New(KindScale, "", map[string]any{"scale_rnage": []any{0.5, 0.6}})
	assert.ErrorContains(t, err, "scale_rnage")

	_, err = reg.New(KindScale, "", map[string]any{"scale_range": []any{0.9, 0.5}})
	assert.ErrorContains(t, err, "lower bound")

	_, err = reg.New(KindMotionBlur, "", map[string]any{"kernel_size_range": []any{4, 4}})
	assert.ErrorContains(t, err, "no odd size")

	_, err = reg.New(KindWatermark, "", map[string]any{"words": []any{}})
	assert.ErrorContains(t, err, "at least one word")

	_, err = reg.New(KindScale, "", map[string]any{"fill": "not-a-color"})
	assert.ErrorContains(t, err, "invalid color")

	custom := NewRegistry()
	custom.Register("noop", func(name string, _ map[string]any) (augment.Transformation, error) {
		return NewScale(name, ScaleOptions{ScaleRange: FloatRange{1, 1}, Fill: "#000000"})
	})
	assert.Equal(t, []string{"noop"}, custom.Kinds())
}

func TestTransformations_Contract(t *testing.T) {
	for _, tr := range builtins(t) {
		t.Run(tr.Name(), func(t *testing.T) {
			p1 := tr.SampleParams(rand.New(rand.NewPCG(1, 2)))
			p2 := tr.SampleParams(rand.New(rand.NewPCG(1, 2)))
			require.Equal(t, p1, p2, "sampling must be a function of the generator state")

			src := page(48, 40)
			out1, err := tr.Apply(src, p1)
			require.NoError(t, err)
			out2, err := tr.Apply(src, p1)
			require.NoError(t, err)
			assert.Equal(t, src.Bounds().Size(), out1.Bounds().Size())
			assert.Equal(t, cimaging.ToNRGBA(out1).Pix, cimaging.ToNRGBA(out2).Pix, "apply must be deterministic")
			assert.Equal(t, page(48, 40).Pix, src.Pix, "apply must not mutate its input")
		})
	}
}

func TestTransformations_PreserveRepresentation(t *testing.T) {
	inputs := []struct {
		name  string
		img   image.Image
		check func(t *testing.T, out image.Image)
	}{
		{"gray", grayPage(32, 24), func(t *testing.T, out image.Image) {
			assert.IsType(t, &image.Gray{}, out)
		}},
		{"rgba", rgbaPage(32, 24), func(t *testing.T, out image.Image) {
			assert.IsType(t, &image.RGBA{}, out)
		}},
		{"nrgba", page(32, 24), func(t *testing.T, out image.Image) {
			assert.IsType(t, &image.NRGBA{}, out)
		}},
		{"array HxW", arrayPage(32, 24, 24, 32), func(t *testing.T, out image.Image) {
			a, ok := out.(*cimaging.Array)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, []int{24, 32}, a.Shape())
		}},
		{"array HxWx1", arrayPage(32, 24, 24, 32, 1), func(t *testing.T, out image.Image) {
			a, ok := out.(*cimaging.Array)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, []int{24, 32, 1}, a.Shape())
		}},
		{"array HxWx3", arrayPage(32, 24, 24, 32, 3), func(t *testing.T, out image.Image) {
			a, ok := out.(*cimaging.Array)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, []int{24, 32, 3}, a.Shape())
		}},
	}

	for _, tr := range builtins(t) {
		for _, in := range inputs {
			t.Run(tr.Name()+"/"+in.name, func(t *testing.T) {
				params := tr.SampleParams(rand.New(rand.NewPCG(3, 4)))
				if tr.Name() == KindScale {
					params["scale"] = 0.85
				}
				out, err := tr.Apply(in.img, params)
				require.NoError(t, err)
				in.check(t, out)
			})
		}
	}
}

func TestTransformations_RejectUnsupportedImages(t *testing.T) {
	rgba4, err := cimaging.NewArray(8, 8, 4)
	require.NoError(t, err)
	two, err := cimaging.NewArray(8, 8, 2)
	require.NoError(t, err)

	for _, tr := range builtins(t) {
		t.Run(tr.Name(), func(t *testing.T) {
			params := tr.SampleParams(rand.New(rand.NewPCG(5, 6)))
			for _, img := range []image.Image{rgba4, two, image.NewGray(image.Rect(0, 0, 0, 0))} {
				_, err := tr.Apply(img, params)
				require.Error(t, err)
				assert.True(t, errors.Is(err, augment.ErrTransformation))

				var terr *augment.TransformationError
				require.True(t, errors.As(err, &terr))
				assert.Equal(t, tr.Name(), terr.Name)
			}
			_, err := tr.Apply(rgba4, params)
			assert.True(t, errors.Is(err, cimaging.ErrUnsupportedChannels))
		})
	}
}

func TestTransformations_RejectForeignParams(t *testing.T) {
	for _, tr := range builtins(t) {
		t.Run(tr.Name(), func(t *testing.T) {
			_, err := tr.Apply(page(8, 8), augment.Params{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, augment.ErrTransformation))
			assert.Contains(t, err.Error(), "missing parameter")
		})
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestTransformations_ReplayFromJSON(t *testing.T) {
	for _, tr := range builtins(t) {
		t.Run(tr.Name(), func(t *testing.T) {
			src := page(48, 40)
			for i := 0; i < 5; i++ {
				params := tr.SampleParams(augment.NewSource(11, i))
				want, err := tr.Apply(src, params)
				require.NoError(t, err)

				data, err := json.Marshal(augment.Decision{Applied: true, Name: tr.Name(), Params: params})
				require.NoError(t, err)
				var d augment.Decision
				require.NoError(t, json.Unmarshal(data, &d))

				got, err := tr.Apply(src, d.Params)
				require.NoError(t, err, "index %d: %s", i, data)
				assert.Equal(t, cimaging.ToNRGBA(want).Pix, cimaging.ToNRGBA(got).Pix, "index %d", i)
			}
		})
	}
}
