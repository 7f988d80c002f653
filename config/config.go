package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DataDir is the per-project directory holding folio state.
const DataDir = ".folio"

// Config holds all configuration for folio.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig says where the embedded portfolio chunks come from.
type CorpusConfig struct {
	Backend  string        `yaml:"backend" validate:"oneof=file bolt"` // "file" reads JSON directly, "bolt" reads the imported database
	Patterns []string      `yaml:"patterns" validate:"required_if=Backend file,dive,required"`
	BoltPath string        `yaml:"bolt_path"` // relative to the project dir; empty means .folio/corpus.db
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK              int           `yaml:"top_k" validate:"gte=1"`
	MismatchPolicy    string        `yaml:"mismatch_policy" validate:"oneof=skip exclude fail fail-fast"`
	MaxQuestionLength int           `yaml:"max_question_length" validate:"gte=1"`
	CacheSize         int           `yaml:"cache_size" validate:"gte=0"` // 0 disables the query cache
	CacheTTL          time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// EmbeddingConfig holds query embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider" validate:"oneof=openai mock"`
	Model     string        `yaml:"model" validate:"required"`
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	Dimension int           `yaml:"dimension" validate:"gte=1"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Backend:  "file",
			Patterns: []string{"data/embeddings.json"},
			Debounce: 250 * time.Millisecond,
		},
		Retrieve: RetrieveConfig{
			TopK:              3,
			MismatchPolicy:    "skip",
			MaxQuestionLength: 1000,
			CacheSize:         128,
			CacheTTL:          5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			Timeout:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for folio.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "folio.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// LoadEnv reads dir/.env into the process environment. Variables already
// set win; a missing file is fine.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s: failed %q (value %v)", yamlPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// "Config.Retrieve.TopK" -> "retrieve.topk"; close enough to the YAML keys to find the setting
func yamlPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BoltPath returns the path to the imported corpus database.
func (c *Config) BoltPath(dir string) string {
	if c.Corpus.BoltPath == "" {
		return filepath.Join(dir, DataDir, "corpus.db")
	}
	if filepath.IsAbs(c.Corpus.BoltPath) {
		return c.Corpus.BoltPath
	}
	return filepath.Join(dir, c.Corpus.BoltPath)
}

// EnsureDataDir ensures the .folio directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DataDir), 0755)
}
