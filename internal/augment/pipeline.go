package augment

import (
	"image"
	"math/rand/v2"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSeed makes every dispatch a pure function of (seed, index). A seeded
// pipeline must be called through DispatchAt.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) {
		p.seeded = true
		p.seed = seed
	}
}

// WithObserver registers fn to receive every successful Decision. fn may be
// called concurrently.
func WithObserver(fn func(Decision)) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, fn)
	}
}

// Pipeline dispatches images through a Config. It never mutates the Config
// and holds no per-call state, so one Pipeline may serve many goroutines.
type Pipeline struct {
	cfg       *Config
	names     []string
	probs     []float64
	cum       []float64
	last      int
	seeded    bool
	seed      int64
	entropy   *entropySource
	observers []func(Decision)
}

// New builds a Pipeline over cfg, normalizing its weights into a
// probability distribution over cfg.Names().
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, &ConfigurationError{Issues: []string{"configuration is nil"}}
	}
	p := &Pipeline{
		cfg:     cfg,
		names:   cfg.Names(),
		entropy: newEntropySource(),
		last:    -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	var total float64
	for _, name := range p.names {
		total += cfg.Weight(name)
	}
	if !(total > 0) {
		return nil, &ConfigurationError{Issues: []string{"weights must have a strictly positive sum"}}
	}
	p.probs = make([]float64, len(p.names))
	p.cum = make([]float64, len(p.names))
	var acc float64
	for i, name := range p.names {
		p.probs[i] = cfg.Weight(name) / total
		acc += p.probs[i]
		p.cum[i] = acc
		if p.probs[i] > 0 {
			p.last = i
		}
	}

	klog.V(2).Infof("augment: pipeline ready with %d transformations, p_aug=%v, seeded=%t",
		len(p.names), cfg.PAug(), p.seeded)
	return p, nil
}

// Config returns the configuration the pipeline was built from.
func (p *Pipeline) Config() *Config { return p.cfg }

// Seeded reports whether the pipeline was built WithSeed.
func (p *Pipeline) Seeded() bool { return p.seeded }

// Seed returns the pipeline seed and whether one was set.
func (p *Pipeline) Seed() (int64, bool) { return p.seed, p.seeded }

// Probabilities returns the normalized selection probability of each name.
func (p *Pipeline) Probabilities() map[string]float64 {
	out := make(map[string]float64, len(p.names))
	for i, name := range p.names {
		out[name] = p.probs[i]
	}
	return out
}

// Dispatch augments img without an index. It fails with an *InvariantError
// on a seeded pipeline.
func (p *Pipeline) Dispatch(img image.Image) (image.Image, Decision, error) {
	if p.seeded {
		return nil, Decision{}, &InvariantError{
			Op:  "dispatch",
			Msg: "a seeded pipeline requires an index; use DispatchAt",
		}
	}
	return p.run(img, p.entropy.next())
}

// DispatchAt augments the image at dataset position index. On a seeded
// pipeline the result depends only on (seed, index, configuration); on an
// unseeded one index is ignored.
func (p *Pipeline) DispatchAt(img image.Image, index int) (image.Image, Decision, error) {
	if !p.seeded {
		return p.run(img, p.entropy.next())
	}
	return p.run(img, NewSource(p.seed, index))
}

func (p *Pipeline) run(img image.Image, rng *rand.Rand) (image.Image, Decision, error) {
	if rng.Float64() >= p.cfg.pAug {
		d := Decision{}
		p.notify(d)
		return img, d, nil
	}

	name := p.choose(rng.Float64())
	t := p.cfg.augs[name]
	out, params, err := Run(t, img, rng)
	if err != nil {
		var terr *TransformationError
		if errors.As(err, &terr) {
			return nil, Decision{}, err
		}
		return nil, Decision{}, NewTransformationError(name, err)
	}

	d := Decision{Applied: true, Name: name}
	if p.cfg.returnParams {
		if params == nil {
			params = Params{}
		}
		d.Params = params
	}
	klog.V(1).Infof("augment: applied %s", name)
	p.notify(d)
	return out, d, nil
}

// choose maps u in [0,1) onto the cumulative distribution in name order.
// Zero-weight names are never selected, and a u beyond a cumulative total
// that fell short of 1 lands on the last positive-weight name.
func (p *Pipeline) choose(u float64) string {
	for i, c := range p.cum {
		if u < c && p.probs[i] > 0 {
			return p.names[i]
		}
	}
	return p.names[p.last]
}

func (p *Pipeline) notify(d Decision) {
	for _, fn := range p.observers {
		fn(d)
	}
}
