package augment

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

// NewSource returns the generator that drives the dispatch for index under
// seed. Equal (seed, index) pairs always yield generators in equal states.
func NewSource(seed int64, index int) *rand.Rand {
	return rand.New(rand.NewPCG(splitmix64(uint64(seed)), splitmix64(uint64(index)^0x6a09e667f3bcc909)))
}

// splitmix64 spreads nearby inputs across the whole PCG state space.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// entropySource hands out independent per-call generators for unseeded
// pipelines. The master generator is guarded so concurrent callers never
// share mutable state.
type entropySource struct {
	mu     sync.Mutex
	master *rand.Rand
}

func newEntropySource() *entropySource {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand only fails on a broken platform; fall back to the
		// runtime-seeded generator.
		for i := range seed {
			seed[i] = byte(rand.Uint32())
		}
	}
	return &entropySource{master: rand.New(rand.NewChaCha8(seed))}
}

func (e *entropySource) next() *rand.Rand {
	e.mu.Lock()
	a, b := e.master.Uint64(), e.master.Uint64()
	e.mu.Unlock()
	return rand.New(rand.NewPCG(a, b))
}
