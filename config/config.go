package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"chunklock/internal/domain"
)

// Config holds all configuration for the chunklock tool.
type Config struct {
	Chunking ChunkingSection `yaml:"chunking"`
	Ingest   IngestSection   `yaml:"ingest"`
	Eval     EvalSection     `yaml:"eval"`
}

// ChunkingSection holds the tuning parameters a locked config freezes.
type ChunkingSection struct {
	EmbedderName        string  `yaml:"embedder_name"`
	ChunkSize           int     `yaml:"chunk_size"`
	OverlapRatio        float64 `yaml:"overlap_ratio"`
	MaxTokens           int     `yaml:"max_tokens"`
	NgramSize           int     `yaml:"ngram_size"`
	JaccardThreshold    float64 `yaml:"jaccard_threshold"`
	UseContextualPrefix bool    `yaml:"use_contextual_prefix"`
	PrefixPolicy        string  `yaml:"prefix_policy"` // "A" or "B"
}

// IngestSection holds document discovery and output settings.
type IngestSection struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Output   string   `yaml:"output"` // JSONL chunk-record handoff path
}

// EvalSection pins the identity an evaluation run must agree with and the
// reproducibility switches it runs under.
type EvalSection struct {
	DisableCache bool   `yaml:"disable_cache"`
	Path         string `yaml:"path"`
	ChunkVersion string `yaml:"chunk_version,omitempty"`
	IngestRunID  string `yaml:"ingest_run_id,omitempty"`
	ConfigHash   string `yaml:"config_hash,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingSection{
			EmbedderName:        "text-embedding-3-small",
			ChunkSize:           450,
			OverlapRatio:        0.15,
			MaxTokens:           600,
			NgramSize:           5,
			JaccardThreshold:    0.85,
			UseContextualPrefix: true,
			PrefixPolicy:        string(domain.PrefixPolicyA),
		},
		Ingest: IngestSection{
			Includes: []string{"**/*.md", "**/*.markdown", "**/*.txt", "**/*.rst", "**/*.html"},
			Excludes: []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**"},
			Output:   "chunks.jsonl",
		},
		Eval: EvalSection{
			DisableCache: true,
		},
	}
}

// ChunkingConfig builds the validated engine config from this section.
func (c *Config) ChunkingConfig() (domain.ChunkingConfig, error) {
	return domain.NewChunkingConfig(domain.ChunkingConfig{
		EmbedderName:        c.Chunking.EmbedderName,
		ChunkSize:           c.Chunking.ChunkSize,
		OverlapRatio:        c.Chunking.OverlapRatio,
		MaxTokens:           c.Chunking.MaxTokens,
		NgramSize:           c.Chunking.NgramSize,
		JaccardThreshold:    c.Chunking.JaccardThreshold,
		UseContextualPrefix: c.Chunking.UseContextualPrefix,
		PrefixPolicy:        domain.PrefixPolicy(c.Chunking.PrefixPolicy),
	})
}

// DeterminismConfig derives the reproducibility switches an evaluation run
// must hold. Seed and temperature stay fixed; only cache-disable is
// configurable.
func (c *Config) DeterminismConfig() domain.DeterminismConfig {
	det := domain.DefaultDeterminismConfig()
	det.DisableCache = c.Eval.DisableCache
	return det
}

// Load loads configuration from a YAML file, applying environment
// overrides last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.applyEnv()
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg.applyEnv()
}

// LoadFromDir loads configuration from a directory (looks for
// chunklock.yaml, then .chunklock/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "chunklock.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".chunklock", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig().applyEnv()
}

// applyEnv is the single place process environment is read. Every component
// downstream receives the resulting explicit config object; nothing else
// touches os.Getenv.
func (c *Config) applyEnv() (*Config, error) {
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHUNK_SIZE %q: %w", v, err)
		}
		c.Chunking.ChunkSize = n
	}
	if v := os.Getenv("OVERLAP_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OVERLAP_RATIO %q: %w", v, err)
		}
		c.Chunking.OverlapRatio = f
	}
	if v := os.Getenv("JACCARD_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid JACCARD_THRESHOLD %q: %w", v, err)
		}
		c.Chunking.JaccardThreshold = f
	}
	if v := os.Getenv("PREFIX_POLICY"); v != "" {
		if v != string(domain.PrefixPolicyA) && v != string(domain.PrefixPolicyB) {
			return nil, fmt.Errorf("invalid PREFIX_POLICY %q: want A or B", v)
		}
		c.Chunking.PrefixPolicy = v
	}
	if v := os.Getenv("CHUNK_VERSION"); v != "" {
		c.Eval.ChunkVersion = v
	}
	if v := os.Getenv("INGEST_RUN_ID"); v != "" {
		c.Eval.IngestRunID = v
	}
	if v := os.Getenv("CONFIG_HASH"); v != "" {
		c.Eval.ConfigHash = v
	}
	if v := os.Getenv("EVAL_PATH"); v != "" {
		c.Eval.Path = v
	}
	if v := os.Getenv("EVAL_DISABLE_CACHE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EVAL_DISABLE_CACHE %q: %w", v, err)
		}
		c.Eval.DisableCache = b
	}
	return c, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigDBPath returns the path to the locked-config database.
func ConfigDBPath(dir string) string {
	return filepath.Join(dir, ".chunklock", "configs.db")
}

// ExportDir returns the directory the JSON config layout is mirrored to.
func ExportDir(dir string) string {
	return filepath.Join(dir, "config")
}

// EnsureWorkDir ensures the .chunklock directory exists.
func EnsureWorkDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".chunklock"), 0755)
}
