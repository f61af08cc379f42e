// Package token issues memorable secret passwords built from word lists.
package token

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// DefaultMaxAttempts bounds collision retries before the numeric fallback.
	DefaultMaxAttempts = 100
	// DefaultSeparator joins adjective and noun.
	DefaultSeparator = "_"
)

// ErrEmptyVocabulary is returned when either word list is empty.
var ErrEmptyVocabulary = errors.New("vocabulary needs at least one adjective and one noun")

// Source supplies uniform integers in [0, n). *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// IssuedSet holds tokens already handed out in the current batch.
type IssuedSet map[string]struct{}

// Has reports whether tok was already issued.
func (s IssuedSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Add records tok as issued.
func (s IssuedSet) Add(tok string) {
	s[tok] = struct{}{}
}

// Vocabulary is the pair of word lists tokens are drawn from.
type Vocabulary struct {
	Adjectives []string `yaml:"adjectives" json:"adjectives"`
	Nouns      []string `yaml:"nouns" json:"nouns"`
}

// Combinations is the number of distinct adjective/noun tokens.
func (v Vocabulary) Combinations() int {
	return len(v.Adjectives) * len(v.Nouns)
}

// Generate returns adjective+sep+noun not present in existing, retrying up to
// maxAttempts times (DefaultMaxAttempts when maxAttempts <= 0). When every
// attempt collides it returns a fresh pair with a two-digit suffix in 10..99;
// that fallback is not checked against existing. The caller adds the result
// to existing before asking for the next token.
func Generate(rng Source, existing IssuedSet, adjectives, nouns []string, maxAttempts int, sep string) (string, error) {
	if len(adjectives) == 0 || len(nouns) == 0 {
		return "", ErrEmptyVocabulary
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for i := 0; i < maxAttempts; i++ {
		candidate := pick(rng, adjectives) + sep + pick(rng, nouns)
		if !existing.Has(candidate) {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%s%s%s%s%d", pick(rng, adjectives), sep, pick(rng, nouns), sep, 10+rng.Intn(90)), nil
}

func pick(rng Source, words []string) string {
	return words[rng.Intn(len(words))]
}

// VocabularySource returns the vocabulary to draw from right now.
type VocabularySource interface {
	Vocabulary() Vocabulary
}

// StaticVocabulary is a VocabularySource that never changes.
type StaticVocabulary Vocabulary

func (s StaticVocabulary) Vocabulary() Vocabulary { return Vocabulary(s) }

// Holder is a VocabularySource that can be swapped while in use.
type Holder struct {
	mu    sync.RWMutex
	vocab Vocabulary
}

// NewHolder returns a Holder serving v.
func NewHolder(v Vocabulary) *Holder {
	return &Holder{vocab: v}
}

func (h *Holder) Vocabulary() Vocabulary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.vocab
}

// Store replaces the served vocabulary.
func (h *Holder) Store(v Vocabulary) {
	h.mu.Lock()
	h.vocab = v
	h.mu.Unlock()
}

// Generator issues token batches from a VocabularySource.
type Generator struct {
	Words       VocabularySource
	MaxAttempts int
	Separator   string
}

// Batch returns n tokens, pairwise distinct with high probability. The
// vocabulary is read once so a concurrent reload cannot split a batch.
func (g Generator) Batch(rng Source, n int) ([]string, error) {
	vocab := g.Words.Vocabulary()
	sep := g.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	issued := make(IssuedSet, n)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tok, err := Generate(rng, issued, vocab.Adjectives, vocab.Nouns, g.MaxAttempts, sep)
		if err != nil {
			return nil, err
		}
		issued.Add(tok)
		out = append(out, tok)
	}
	return out, nil
}
