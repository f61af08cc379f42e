package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mistletoe/internal/assign"
	"mistletoe/internal/token"
)

// FileName is the workspace config file.
const FileName = "mistletoe.yml"

// Config models mistletoe.yml.
type Config struct {
	Draw struct {
		MaxTries int   `yaml:"max_tries" json:"max_tries"`
		Seed     int64 `yaml:"seed" json:"seed"`
	} `yaml:"draw" json:"draw"`
	Tokens struct {
		MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts"`
		Separator      string `yaml:"separator" json:"separator"`
		VocabularyFile string `yaml:"vocabulary_file" json:"vocabulary_file,omitempty"`
	} `yaml:"tokens" json:"tokens"`
	Vocabulary token.Vocabulary `yaml:"vocabulary" json:"vocabulary"`
	Admin      struct {
		PasswordHash string `yaml:"password_hash" json:"-"`
		TokenTTL     string `yaml:"token_ttl" json:"token_ttl"`
	} `yaml:"admin" json:"admin"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Secret         string   `yaml:"secret" json:"-"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled" json:"enabled,omitempty"`
}

// Active reports whether the hook should receive deliveries.
func (w WebhookConfig) Active() bool {
	return w.Enabled == nil || *w.Enabled
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Draw.MaxTries < 0 {
		return fmt.Errorf("config.draw.max_tries must not be negative")
	}
	if c.Tokens.MaxAttempts < 0 {
		return fmt.Errorf("config.tokens.max_attempts must not be negative")
	}
	if c.Tokens.Separator == "" {
		return fmt.Errorf("config.tokens.separator is required")
	}
	if c.Tokens.VocabularyFile == "" {
		if err := ValidateVocabulary(c.Vocabulary); err != nil {
			return err
		}
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	for i, hook := range c.Webhooks {
		if hook.Active() && strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// ValidateVocabulary checks word lists are non-empty, blank-free and duplicate-free.
func ValidateVocabulary(v token.Vocabulary) error {
	if err := validateWords("adjectives", v.Adjectives); err != nil {
		return err
	}
	return validateWords("nouns", v.Nouns)
}

func validateWords(kind string, words []string) error {
	if len(words) == 0 {
		return fmt.Errorf("config.vocabulary.%s is required", kind)
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("config.vocabulary.%s contains an empty word", kind)
		}
		if _, ok := seen[w]; ok {
			return fmt.Errorf("config.vocabulary.%s lists %s twice", kind, w)
		}
		seen[w] = struct{}{}
	}
	return nil
}

// MaxTries returns the draw budget, defaulting when unset.
func (c *Config) MaxTries() int {
	if c.Draw.MaxTries <= 0 {
		return assign.DefaultMaxTries
	}
	return c.Draw.MaxTries
}

// TokenTTL parses admin.token_ttl, defaulting to 12h.
func (c *Config) TokenTTL() (time.Duration, error) {
	if c.Admin.TokenTTL == "" {
		return 12 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Admin.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("config.admin.token_ttl: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config.admin.token_ttl must be positive")
	}
	return d, nil
}

// VocabularyPath resolves tokens.vocabulary_file against the workspace.
func (c *Config) VocabularyPath(workspace string) string {
	p := c.Tokens.VocabularyFile
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, p)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with santa config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys absent from
// data keep their default values; lists present in data replace the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `draw:
  max_tries: 100000
  seed: 0

tokens:
  max_attempts: 100
  separator: "_"
  vocabulary_file: ""

vocabulary:
  adjectives:
    - joyeux
    - blanc
    - rouge
    - vert
    - dore
    - argente
    - brillant
    - festif
    - magique
    - hivernal
    - sucre
    - gourmand
    - glace
    - etincelant
    - lumineux
    - merveilleux
    - etonnant
    - petillant
    - enchante
    - radieux
    - epique
    - fantastique
  nouns:
    - sapin
    - renne
    - lutin
    - traineau
    - bonnet
    - cadeau
    - houx
    - flocon
    - pain_depice
    - ours
    - elfe
    - jouet
    - carillon
    - bonhomme
    - ruban
    - pere_noel
    - rudolf

admin:
  password_hash: ""
  token_ttl: 12h
`
