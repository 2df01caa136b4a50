package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formlayout/pkg/expr"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

// Config describes where an engine finds its inputs. Relative paths are
// resolved against the directory of the config file.
type Config struct {
	// Layouts is a directory of layout pages plus an optional Settings file.
	Layouts string `json:"layouts" yaml:"layouts"`
	// Data is a nested JSON document seeding the data model.
	Data string `json:"data,omitempty" yaml:"data,omitempty"`
	// TextResources is a directory holding resource.<language>.(json|yaml).
	TextResources string `json:"textResources,omitempty" yaml:"textResources,omitempty"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
	// Schema is a JSON Schema or OpenAPI 3 document for the data model.
	Schema          string `json:"schema,omitempty" yaml:"schema,omitempty"`
	SchemaComponent string `json:"schemaComponent,omitempty" yaml:"schemaComponent,omitempty"`

	Instance         expr.Instance                                `json:"instance,omitempty" yaml:"instance,omitempty"`
	FrontendSettings map[string]any                               `json:"frontendSettings,omitempty" yaml:"frontendSettings,omitempty"`
	Validations      map[string][]validation.ExpressionValidation `json:"validations,omitempty" yaml:"validations,omitempty"`

	// Concurrency caps parallel attachment deletions.
	Concurrency int       `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Log         LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	baseDir string
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// LoadConfig parses a JSON or YAML config document.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	jsonErr := json.Unmarshal(data, &cfg)
	if jsonErr == nil {
		return cfg.withDefaults(), nil
	}

	cfg = Config{}
	if yamlErr := yaml.Unmarshal(data, &cfg); yamlErr != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", errors.Join(jsonErr, yamlErr))
	}
	return cfg.withDefaults(), nil
}

// LoadConfigFile reads and parses the config at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("engine: read config: %w", err)
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		return Config{}, err
	}
	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// Path resolves p relative to the config file. Empty paths stay empty.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

func (c Config) withDefaults() Config {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	return c
}
