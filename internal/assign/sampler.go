package assign

// Source supplies uniform integers in [0, n). *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Sampler draws uniformly random permutations of [0, n).
type Sampler struct {
	rng Source
}

// NewSampler returns a Sampler drawing from rng.
func NewSampler(rng Source) Sampler {
	return Sampler{rng: rng}
}

// Permutation fills perm with a Fisher-Yates shuffle of 0..len(perm)-1.
func (s Sampler) Permutation(perm []int) {
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
}
