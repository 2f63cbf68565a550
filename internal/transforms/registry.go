package transforms

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
)

// Factory builds a transformation called name from raw configuration
// options. Options absent from the map keep their defaults.
type Factory func(name string, options map[string]any) (augment.Transformation, error)

// Registry maps transformation kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New builds a transformation of the given kind. An empty name defaults to
// the kind.
func (r *Registry) New(kind, name string, options map[string]any) (augment.Transformation, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown transformation kind %q (known: %v)", kind, r.Kinds())
	}
	if name == "" {
		name = kind
	}
	t, err := f(name, options)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %q", kind, name)
	}
	return t, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Default returns a registry holding every built-in transformation.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindScale, scaleFactory)
	r.Register(KindShear, shearFactory)
	r.Register(KindErosion, erosionFactory)
	r.Register(KindDilation, dilationFactory)
	r.Register(KindMotionBlur, motionBlurFactory)
	r.Register(KindElastic, elasticFactory)
	r.Register(KindGridDistortion, gridDistortionFactory)
	r.Register(KindBadPhotoCopy, badPhotoCopyFactory)
	r.Register(KindWatermark, watermarkFactory)
	r.Register(KindScribbles, scribblesFactory)
	return r
}

// Built-in transformation kinds.
const (
	KindScale          = "scale"
	KindShear          = "shear"
	KindErosion        = "erosion"
	KindDilation       = "dilation"
	KindMotionBlur     = "motion_blur"
	KindElastic        = "elastic_transform"
	KindGridDistortion = "grid_distortion"
	KindBadPhotoCopy   = "bad_photo_copy"
	KindWatermark      = "watermark"
	KindScribbles      = "scribbles"
)
