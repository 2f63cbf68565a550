package transforms

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	cimaging "github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// WatermarkOptions configures Watermark. Font sizes are glyph heights in
// pixels.
type WatermarkOptions struct {
	Words              []string   `mapstructure:"words"`
	FontSizeRange      IntRange   `mapstructure:"font_size_range"`
	FontThicknessRange IntRange   `mapstructure:"font_thickness_range"`
	RotationRange      IntRange   `mapstructure:"rotation_range"`
	ValueRange         FloatRange `mapstructure:"value_range"`
}

// DefaultWatermarkOptions stamps one of a few office words.
func DefaultWatermarkOptions() WatermarkOptions {
	return WatermarkOptions{
		Words:              []string{"COPY", "DRAFT", "CONFIDENTIAL", "SAMPLE"},
		FontSizeRange:      IntRange{10, 20},
		FontThicknessRange: IntRange{1, 3},
		RotationRange:      IntRange{0, 360},
		ValueRange:         FloatRange{0.3, 0.7},
	}
}

// Watermark stamps a rotated word onto the page in a random ink.
type Watermark struct {
	base
	opts WatermarkOptions
}

// NewWatermark validates opts and returns a Watermark transformation.
func NewWatermark(name string, opts WatermarkOptions) (*Watermark, error) {
	if len(opts.Words) == 0 {
		return nil, errors.New("words: at least one word is required")
	}
	for i, w := range opts.Words {
		if w == "" {
			return nil, errors.Errorf("words[%d] is empty", i)
		}
	}
	checks := []error{
		opts.FontSizeRange.check("font_size_range", 4, 512),
		opts.FontThicknessRange.check("font_thickness_range", 1, 32),
		opts.RotationRange.check("rotation_range", -360, 360),
		opts.ValueRange.check("value_range", 0, 1),
	}
	for _, err := range checks {
		if err != nil {
			return nil, err
		}
	}
	return &Watermark{base: base{name: name}, opts: opts}, nil
}

func watermarkFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultWatermarkOptions()
	if _, ok := raw["words"]; ok {
		opts.Words = nil
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewWatermark(name, opts)
}

// SampleParams draws the word, its size, stroke thickness, rotation,
// placement as fractions of the free space, and ink color.
func (m *Watermark) SampleParams(rng *rand.Rand) augment.Params {
	return augment.Params{
		"word":           m.opts.Words[rng.IntN(len(m.opts.Words))],
		"font_size":      m.opts.FontSizeRange.sample(rng),
		"font_thickness": m.opts.FontThicknessRange.sample(rng),
		"rotation":       m.opts.RotationRange.sample(rng),
		"x":              rng.Float64(),
		"y":              rng.Float64(),
		"color":          sampleInk(rng, m.opts.ValueRange.sample(rng)),
	}
}

// Apply renders the word and darkens the page with it.
func (m *Watermark) Apply(img image.Image, params augment.Params) (image.Image, error) {
	word, err := params.String("word")
	if err != nil {
		return nil, m.param(err)
	}
	size, err := params.Int("font_size")
	if err != nil {
		return nil, m.param(err)
	}
	thickness, err := params.Int("font_thickness")
	if err != nil {
		return nil, m.param(err)
	}
	rotation, err := params.Int("rotation")
	if err != nil {
		return nil, m.param(err)
	}
	fx, err := params.Float("x")
	if err != nil {
		return nil, m.param(err)
	}
	fy, err := params.Float("y")
	if err != nil {
		return nil, m.param(err)
	}
	hex, err := params.String("color")
	if err != nil {
		return nil, m.param(err)
	}
	ink, err := parseColor(hex)
	if err != nil {
		return nil, m.param(err)
	}
	src, err := m.prepare(img)
	if err != nil {
		return nil, err
	}

	stamp := renderWord(word, max(thickness, 1), ink)
	glyphHeight := basicfont.Face7x13.Metrics().Height.Ceil()
	height := max(1, stamp.Bounds().Dy()*max(size, 1)/glyphHeight)
	stamp = imaging.Resize(stamp, 0, height, imaging.Linear)
	stamp = imaging.Rotate(stamp, float64(rotation), color.Transparent)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	sw, sh := stamp.Bounds().Dx(), stamp.Bounds().Dy()
	pos := image.Pt(int(fx*float64(max(w-sw, 0))), int(fy*float64(max(h-sh, 0))))
	layer := imaging.Overlay(imaging.New(w, h, color.White), stamp, pos, 1.0)
	return cimaging.Conform(img, blend.Darken(src, layer)), nil
}

// renderWord draws word in the 7x13 bitmap face on a transparent canvas,
// repeating the glyphs at small offsets to thicken the strokes.
func renderWord(word string, thickness int, ink color.Color) *image.NRGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, word).Ceil() + thickness
	height := face.Metrics().Height.Ceil() + thickness
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))

	d := &font.Drawer{Dst: canvas, Src: image.NewUniform(ink), Face: face}
	for oy := 0; oy < thickness; oy++ {
		for ox := 0; ox < thickness; ox++ {
			d.Dot = fixed.P(ox, face.Metrics().Ascent.Ceil()+oy)
			d.DrawString(word)
		}
	}
	return canvas
}

// ScribblesOptions configures Scribbles. Size bounds the extent of one
// scribble in pixels; it is capped by the page size.
type ScribblesOptions struct {
	SizeRange        IntRange `mapstructure:"size_range"`
	CountRange       IntRange `mapstructure:"count_range"`
	ThicknessRange   IntRange `mapstructure:"thickness_range"`
	BrightnessValues []int    `mapstructure:"brightness_values"`
	RotationRange    IntRange `mapstructure:"rotation_range"`
}

// DefaultScribblesOptions draws one to six pen scribbles.
func DefaultScribblesOptions() ScribblesOptions {
	return ScribblesOptions{
		SizeRange:        IntRange{400, 600},
		CountRange:       IntRange{1, 6},
		ThicknessRange:   IntRange{1, 3},
		BrightnessValues: []int{32, 64, 128},
		RotationRange:    IntRange{0, 360},
	}
}

// Scribbles draws random pen strokes over the page.
type Scribbles struct {
	base
	opts ScribblesOptions
}

// NewScribbles validates opts and returns a Scribbles transformation.
func NewScribbles(name string, opts ScribblesOptions) (*Scribbles, error) {
	checks := []error{
		opts.SizeRange.check("size_range", 1, 1<<16),
		opts.CountRange.check("count_range", 1, 100),
		opts.ThicknessRange.check("thickness_range", 1, 64),
		opts.RotationRange.check("rotation_range", -360, 360),
	}
	for _, err := range checks {
		if err != nil {
			return nil, err
		}
	}
	if len(opts.BrightnessValues) == 0 {
		return nil, errors.New("brightness_values: at least one value is required")
	}
	for _, v := range opts.BrightnessValues {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("brightness_values: %d is outside [0, 255]", v)
		}
	}
	return &Scribbles{base: base{name: name}, opts: opts}, nil
}

func scribblesFactory(name string, raw map[string]any) (augment.Transformation, error) {
	opts := DefaultScribblesOptions()
	if _, ok := raw["brightness_values"]; ok {
		opts.BrightnessValues = nil
	}
	if err := decodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	return NewScribbles(name, opts)
}

// SampleParams draws the scribble geometry, ink and the seed placing the
// strokes.
func (s *Scribbles) SampleParams(rng *rand.Rand) augment.Params {
	brightness := s.opts.BrightnessValues[rng.IntN(len(s.opts.BrightnessValues))]
	return augment.Params{
		"size":          s.opts.SizeRange.sample(rng),
		"count":         s.opts.CountRange.sample(rng),
		"thickness":     s.opts.ThicknessRange.sample(rng),
		"brightness":    brightness,
		"rotation":      s.opts.RotationRange.sample(rng),
		"color":         sampleInk(rng, float64(brightness)/255),
		"scribble_seed": augment.SampleSeed(rng),
	}
}

// Apply rasterizes the strokes onto a white layer and darkens the page
// with it.
func (s *Scribbles) Apply(img image.Image, params augment.Params) (image.Image, error) {
	size, err := params.Int("size")
	if err != nil {
		return nil, s.param(err)
	}
	count, err := params.Int("count")
	if err != nil {
		return nil, s.param(err)
	}
	thickness, err := params.Int("thickness")
	if err != nil {
		return nil, s.param(err)
	}
	rotation, err := params.Int("rotation")
	if err != nil {
		return nil, s.param(err)
	}
	hex, err := params.String("color")
	if err != nil {
		return nil, s.param(err)
	}
	seed, err := params.Uint64("scribble_seed")
	if err != nil {
		return nil, s.param(err)
	}
	ink, err := parseColor(hex)
	if err != nil {
		return nil, s.param(err)
	}
	src, err := s.prepare(img)
	if err != nil {
		return nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	extent := float64(min(size, w, h))
	theta := float64(rotation) * math.Pi / 180
	sin, cos := math.Sincos(theta)
	rng := rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d))
	r := vector.NewRasterizer(w, h)
	half := float64(max(thickness, 1)) / 2

	for i := 0; i < count; i++ {
		cx, cy := rng.Float64()*float64(w), rng.Float64()*float64(h)
		n := 4 + rng.IntN(5)
		var prevX, prevY float64
		for j := 0; j < n; j++ {
			// Points wander within an extent-sized box, rotated about the center.
			px := (rng.Float64() - 0.5) * extent
			py := (rng.Float64() - 0.5) * extent * 0.5
			x := cx + px*cos - py*sin
			y := cy + px*sin + py*cos
			if j > 0 {
				strokeSegment(r, prevX, prevY, x, y, half)
			}
			prevX, prevY = x, y
		}
	}

	layer := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(layer, layer.Bounds(), image.White, image.Point{}, draw.Src)
	r.Draw(layer, layer.Bounds(), image.NewUniform(ink), image.Point{})
	return cimaging.Conform(img, blend.Darken(src, layer)), nil
}

// strokeSegment adds a quad of the given half-width covering the segment.
func strokeSegment(r *vector.Rasterizer, x0, y0, x1, y1, half float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half
	r.MoveTo(float32(x0+nx), float32(y0+ny))
	r.LineTo(float32(x1+nx), float32(y1+ny))
	r.LineTo(float32(x1-nx), float32(y1-ny))
	r.LineTo(float32(x0-nx), float32(y0-ny))
	r.ClosePath()
}
