package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	"github.com/TimofeyKaliakin/cyrill/internal/transforms"
)

// SchemaVersion is the only pipeline file version understood by Load.
const SchemaVersion = "v1"

// EnvPrefix marks environment variables that override top-level scalar
// settings of the pipeline file: CYRILL_PIPELINE__P_AUG=0.5,
// CYRILL_PIPELINE__SEED=7. The augmentations list cannot be overridden.
const EnvPrefix = "CYRILL_PIPELINE__"

// envKeys are the settings the environment may override.
var envKeys = map[string]bool{"seed": true, "p_aug": true, "return_params": true}

// Entry describes one transformation in the pipeline file.
type Entry struct {
	Name    string         `koanf:"name"`    // unique; defaults to Type
	Type    string         `koanf:"type"`    // registry kind
	Weight  *float64       `koanf:"weight"`  // nil when omitted
	Options map[string]any `koanf:"options"` // kind-specific
}

// File is a decoded pipeline file.
type File struct {
	SchemaVersion string  `koanf:"schema_version"`
	Seed          *int64  `koanf:"seed"`
	PAug          float64 `koanf:"p_aug"`
	ReturnParams  bool    `koanf:"return_params"`
	Augmentations []Entry `koanf:"augmentations"`
}

// Load merges the YAML file at path with CYRILL_PIPELINE__* environment
// overrides.
// p_aug defaults to 1 when neither source sets it.
func Load(path string) (File, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return File{}, errors.Wrapf(err, "reading pipeline file %s", path)
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SchemaVersion {
		return File{}, errors.Errorf("pipeline schema_version %q not supported (want %s)", sv, SchemaVersion)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return File{}, errors.Wrap(err, "reading environment overrides")
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return File{}, errors.Wrapf(err, "decoding pipeline file %s", path)
	}
	if !k.Exists("p_aug") {
		f.PAug = 1
	}
	if f.SchemaVersion == "" {
		f.SchemaVersion = SchemaVersion
	}
	klog.V(2).Infof("config: loaded %s with %d augmentations", path, len(f.Augmentations))
	return f, nil
}

// envKey maps a variable to its setting, or "" to skip it.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if !envKeys[key] {
		klog.Warningf("config: ignoring %s, only %s{SEED,P_AUG,RETURN_PARAMS} are read", s, EnvPrefix)
		return ""
	}
	return key
}

// Build instantiates every entry through reg and validates the result.
// The returned options carry the seed when the file sets one.
func (f File) Build(reg *transforms.Registry) (*augment.Config, []augment.Option, error) {
	augs := make([]augment.Transformation, 0, len(f.Augmentations))
	weights := make(map[string]float64)
	for i, e := range f.Augmentations {
		if e.Type == "" {
			return nil, nil, errors.Errorf("augmentations[%d]: type is required", i)
		}
		t, err := reg.New(e.Type, e.Name, e.Options)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "augmentations[%d]", i)
		}
		augs = append(augs, t)
		if e.Weight != nil {
			weights[t.Name()] = *e.Weight
		}
	}
	if len(weights) == 0 {
		weights = nil
	}

	cfg, err := augment.NewConfig(augment.ConfigOptions{
		PAug:          f.PAug,
		Augmentations: augs,
		Weights:       weights,
		ReturnParams:  f.ReturnParams,
	})
	if err != nil {
		return nil, nil, err
	}

	var opts []augment.Option
	if f.Seed != nil {
		opts = append(opts, augment.WithSeed(*f.Seed))
	}
	return cfg, opts, nil
}

// Pipeline loads path and builds a ready pipeline with reg plus any extra
// options.
func Pipeline(path string, reg *transforms.Registry, extra ...augment.Option) (*augment.Pipeline, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg, opts, err := f.Build(reg)
	if err != nil {
		return nil, err
	}
	return augment.New(cfg, append(opts, extra...)...)
}
