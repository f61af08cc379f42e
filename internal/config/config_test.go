package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mistletoe/internal/assign"
	"mistletoe/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 100000, cfg.MaxTries())
	require.Equal(t, 100, cfg.Tokens.MaxAttempts)
	require.Equal(t, "_", cfg.Tokens.Separator)
	require.Contains(t, cfg.Vocabulary.Adjectives, "joyeux")
	require.Contains(t, cfg.Vocabulary.Nouns, "pere_noel")
	ttl, err := cfg.TokenTTL()
	require.NoError(t, err)
	require.Equal(t, "12h0m0s", ttl.String())
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
draw:
  max_tries: 50
vocabulary:
  adjectives: [calme]
`))
	require.NoError(t, err)
	require.Equal(t, 50, cfg.MaxTries())
	require.Equal(t, []string{"calme"}, cfg.Vocabulary.Adjectives)
	require.Contains(t, cfg.Vocabulary.Nouns, "sapin", "unset lists keep defaults")
	require.Equal(t, "_", cfg.Tokens.Separator)
}

func TestFromYAMLRejects(t *testing.T) {
	cases := map[string]string{
		"negative tries":  "draw:\n  max_tries: -1\n",
		"empty separator": "tokens:\n  separator: \"\"\n",
		"empty nouns":     "vocabulary:\n  nouns: []\n",
		"duplicate word":  "vocabulary:\n  nouns: [sapin, sapin]\n",
		"blank word":      "vocabulary:\n  adjectives: [\" \"]\n",
		"bad ttl":         "admin:\n  token_ttl: soon\n",
		"webhook url":     "webhooks:\n  - events: [draw.completed]\n",
		"syntax":          "draw: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestDisabledWebhookNeedsNoURL(t *testing.T) {
	cfg, err := config.FromYAML([]byte("webhooks:\n  - enabled: false\n"))
	require.NoError(t, err)
	require.False(t, cfg.Webhooks[0].Active())
}

func TestMaxTriesZeroFallsBack(t *testing.T) {
	cfg, err := config.FromYAML([]byte("draw:\n  max_tries: 0\n"))
	require.NoError(t, err)
	require.Equal(t, assign.DefaultMaxTries, cfg.MaxTries())
}

func TestLoadOptionalMissing(t *testing.T) {
	cfg, err := config.LoadOptional(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load(t.TempDir())
	require.ErrorContains(t, err, "not found")
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("tokens:\n  separator: \"-\"\n"), 0o644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, "-", cfg.Tokens.Separator)
}

func TestResolveVocabularyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.yml"), []byte("adjectives: [a, b]\nnouns: [c]\n"), 0o644))
	cfg, err := config.FromYAML([]byte("tokens:\n  vocabulary_file: words.yml\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "words.yml"), cfg.VocabularyPath(dir))
	v, err := cfg.ResolveVocabulary(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, v.Adjectives)
	require.Equal(t, []string{"c"}, v.Nouns)
}

func TestResolveVocabularyInline(t *testing.T) {
	cfg := config.Default()
	v, err := cfg.ResolveVocabulary(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, cfg.Vocabulary, v)
}

func TestLoadVocabularyFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yml")
	require.NoError(t, os.WriteFile(path, []byte("adjectives: [a]\n"), 0o644))
	_, err := config.LoadVocabularyFile(path)
	require.ErrorContains(t, err, "nouns")
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}
