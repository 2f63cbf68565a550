package augment

import (
	"maps"
	"math"
	"slices"
	"sort"
)

// Bounds on the raw weight sum accepted by NewConfig.
const (
	MinWeightSum = 0.98
	MaxWeightSum = 1.01
)

// ConfigOptions is the caller-facing input to NewConfig.
type ConfigOptions struct {
	// PAug is the probability in [0,1] that a dispatch applies anything.
	PAug float64

	// Augmentations lists the participating transformations. Their order is
	// the order used for weighted selection and their names must be unique.
	Augmentations []Transformation

	// Weights maps every transformation name to a non-negative weight. When
	// empty, every transformation gets 1/len(Augmentations).
	Weights map[string]float64

	// ReturnParams echoes sampled parameters in applied decisions.
	ReturnParams bool
}

// Config is a validated, immutable pipeline configuration. It is safe for
// concurrent use.
type Config struct {
	pAug         float64
	names        []string
	augs         map[string]Transformation
	weights      map[string]float64
	returnParams bool
}

// NewConfig validates opts and returns a frozen Config. Every problem found
// is reported in a single *ConfigurationError.
func NewConfig(opts ConfigOptions) (*Config, error) {
	verr := &ConfigurationError{}

	if math.IsNaN(opts.PAug) || opts.PAug < 0 || opts.PAug > 1 {
		verr.addf("p_aug must be within [0, 1], got %v", opts.PAug)
	}
	if len(opts.Augmentations) == 0 {
		verr.addf("at least one augmentation is required")
	}

	cfg := &Config{
		pAug:         opts.PAug,
		names:        make([]string, 0, len(opts.Augmentations)),
		augs:         make(map[string]Transformation, len(opts.Augmentations)),
		returnParams: opts.ReturnParams,
	}
	for i, t := range opts.Augmentations {
		if t == nil {
			verr.addf("augmentations[%d] is nil", i)
			continue
		}
		name := t.Name()
		if name == "" {
			verr.addf("augmentations[%d] has an empty name", i)
			continue
		}
		if _, dup := cfg.augs[name]; dup {
			verr.addf("augmentation name %q is used more than once", name)
			continue
		}
		cfg.names = append(cfg.names, name)
		cfg.augs[name] = t
	}

	if len(opts.Weights) == 0 {
		cfg.weights = make(map[string]float64, len(cfg.names))
		for _, name := range cfg.names {
			cfg.weights[name] = 1 / float64(len(cfg.names))
		}
	} else {
		cfg.weights = maps.Clone(opts.Weights)
	}

	for _, name := range cfg.names {
		if _, ok := cfg.weights[name]; !ok {
			verr.addf("augmentation %q has no weight", name)
		}
	}
	var unknown []string
	for name := range cfg.weights {
		if _, ok := cfg.augs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		verr.addf("weight %q does not match any augmentation", name)
	}

	var sum float64
	for _, name := range sortedKeys(cfg.weights) {
		w := cfg.weights[name]
		if math.IsNaN(w) || w < 0 {
			verr.addf("weight %q must be non-negative, got %v", name, w)
			continue
		}
		sum += w
	}
	if len(cfg.weights) > 0 && (sum < MinWeightSum || sum > MaxWeightSum) {
		verr.addf("weights must sum to within [%v, %v], got %v", MinWeightSum, MaxWeightSum, sum)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PAug returns the probability of applying an augmentation.
func (c *Config) PAug() float64 { return c.pAug }

// ReturnParams reports whether applied decisions carry their parameters.
func (c *Config) ReturnParams() bool { return c.returnParams }

// Len returns the number of configured transformations.
func (c *Config) Len() int { return len(c.names) }

// Names returns the transformation names in selection order.
func (c *Config) Names() []string { return slices.Clone(c.names) }

// Transformation returns the transformation registered under name.
func (c *Config) Transformation(name string) (Transformation, bool) {
	t, ok := c.augs[name]
	return t, ok
}

// Weight returns the raw configured weight for name, or 0 if unknown.
func (c *Config) Weight(name string) float64 { return c.weights[name] }

// Weights returns a copy of the raw configured weights.
func (c *Config) Weights() map[string]float64 { return maps.Clone(c.weights) }

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
