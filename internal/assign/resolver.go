package assign

import "fmt"

// DefaultMaxTries bounds RejectionSampler when the caller passes no budget.
const DefaultMaxTries = 100000

// Strategy resolves an assignment for names under matrix m.
type Strategy interface {
	Resolve(names []string, m Matrix, maxTries int) (Assignment, error)
}

// RejectionSampler draws random permutations until one satisfies the matrix
// or the try budget is spent.
//
// Expected tries grow with the share of forbidden pairs, so a feasible but
// tightly constrained matrix can still end in ErrAssignmentNotFound.
type RejectionSampler struct {
	sampler Sampler
}

var _ Strategy = (*RejectionSampler)(nil)

// NewRejectionSampler creates the default strategy drawing from rng.
func NewRejectionSampler(rng Source) *RejectionSampler {
	return &RejectionSampler{sampler: NewSampler(rng)}
}

// Resolve returns a valid assignment, an error from Validate, or
// ErrAssignmentNotFound. A maxTries of zero or less uses DefaultMaxTries.
func (r *RejectionSampler) Resolve(names []string, m Matrix, maxTries int) (Assignment, error) {
	n := len(names)
	if n == 0 {
		return Assignment{}, nil
	}
	if err := Validate(names, m); err != nil {
		return nil, err
	}
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	perm := make([]int, n)
	for try := 0; try < maxTries; try++ {
		r.sampler.Permutation(perm)
		if accepts(m, perm) {
			out := make(Assignment, n)
			for i, j := range perm {
				out[names[i]] = names[j]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w after %d tries", ErrAssignmentNotFound, maxTries)
}

func accepts(m Matrix, perm []int) bool {
	for i, j := range perm {
		if !m[i][j] {
			return false
		}
	}
	return true
}
