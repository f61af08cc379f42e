package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mistletoe/internal/token"
)

// LoadVocabularyFile reads a standalone vocabulary file:
//
//	adjectives: [joyeux, blanc]
//	nouns: [sapin, renne]
func LoadVocabularyFile(path string) (token.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return token.Vocabulary{}, err
	}
	var v token.Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return token.Vocabulary{}, fmt.Errorf("invalid vocabulary yaml %s: %w", path, err)
	}
	if err := ValidateVocabulary(v); err != nil {
		return token.Vocabulary{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ResolveVocabulary returns the external vocabulary file when configured,
// otherwise the inline lists.
func (c *Config) ResolveVocabulary(workspace string) (token.Vocabulary, error) {
	if path := c.VocabularyPath(workspace); path != "" {
		return LoadVocabularyFile(path)
	}
	return c.Vocabulary, nil
}
