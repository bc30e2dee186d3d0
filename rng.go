package bmm

import "math/rand"

// Sampler is the opaque uniform-random collaborator consumed by CREATE and
// LINK stages. The engine never reaches for math/rand directly outside of
// the default implementation below, so a caller can substitute a
// reproducible or externally-seeded source without touching engine code.
type Sampler interface {
	// Uniform returns a sample drawn uniformly from [lo, hi).
	Uniform(lo, hi float64) float64
}

// defaultSampler wraps math/rand.Rand. It is the engine's default Sampler
// when none is supplied; it is scoped to a single Engine and never shared
// across goroutines, matching the single-threaded resource model.
type defaultSampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded from seed. A fixed seed is useful for
// scenario tests; production callers should seed from an external entropy
// source.
func NewSampler(seed int64) Sampler {
	return &defaultSampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *defaultSampler) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Float64()*(hi-lo)
}
