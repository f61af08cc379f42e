// Package assign draws gift-exchange assignments.
//
// An assignment maps every participant to exactly one recipient such that the
// compatibility matrix allows each giver/recipient pair. The package provides:
//
//   - Validate: a cheap per-row feasibility check run before any search
//   - Sampler: uniformly random permutations of participant indices
//   - RejectionSampler: the default Strategy, bounded generate-and-test search
//
// Validate only checks that each participant has at least one permissible
// recipient. A matrix can pass it and still admit no valid permutation, in which
// case RejectionSampler reports ErrAssignmentNotFound once its try budget is
// spent. That error does not distinguish an impossible matrix from bad luck.
//
// Custom strategies can be implemented by satisfying the Strategy interface.
package assign
