// SPDX-License-Identifier: Apache-2.0

// Package config loads run settings. CASREL_* environment variables override
// the config file, which overrides the defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "casrel.yaml"

// EnvPrefix is prepended to every environment variable, e.g. CASREL_MAX_LEN
// or CASREL_SCORER_BASE_URL.
const EnvPrefix = "CASREL"

// Scorer kinds.
const (
	ScorerFixture = "fixture"
	ScorerRemote  = "remote"
)

//go:embed schema.cue
var schemaSource string

type Config struct {
	VocabPath     string       `mapstructure:"vocab_path" json:"vocab_path"`
	RelationsPath string       `mapstructure:"relations_path" json:"relations_path"`
	MaxLen        int          `mapstructure:"max_len" json:"max_len"`
	Cased         bool         `mapstructure:"cased" json:"cased"`
	HeadThreshold float64      `mapstructure:"h_bar" json:"h_bar"`
	TailThreshold float64      `mapstructure:"t_bar" json:"t_bar"`
	ExactMatch    bool         `mapstructure:"exact_match" json:"exact_match"`
	Scorer        ScorerConfig `mapstructure:"scorer" json:"scorer"`
	Log           LogConfig    `mapstructure:"log" json:"log"`
}

// ScorerConfig selects where tagger probabilities come from.
type ScorerConfig struct {
	Kind              string        `mapstructure:"kind" json:"kind"`
	FixturePath       string        `mapstructure:"fixture_path" json:"fixture_path"`
	HeadsPath         string        `mapstructure:"heads_path" json:"heads_path"`
	BaseURL           string        `mapstructure:"base_url" json:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
	Burst             int           `mapstructure:"burst" json:"burst"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	File       string `mapstructure:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vocab_path", "")
	v.SetDefault("relations_path", "")
	v.SetDefault("max_len", 512)
	v.SetDefault("cased", true)
	v.SetDefault("h_bar", 0.5)
	v.SetDefault("t_bar", 0.5)
	v.SetDefault("exact_match", false)

	v.SetDefault("scorer.kind", ScorerFixture)
	v.SetDefault("scorer.fixture_path", "")
	v.SetDefault("scorer.heads_path", "")
	v.SetDefault("scorer.base_url", "")
	v.SetDefault("scorer.timeout", "30s")
	v.SetDefault("scorer.requests_per_second", 10.0)
	v.SetDefault("scorer.burst", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Load builds a Config. When path is empty, DefaultFile is used if it
// exists; otherwise only the environment and defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	v := viper.New()
	setDefaults(v)

	// CASREL_SCORER_BASE_URL maps to scorer.base_url.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field types, ranges and enumerations against the
// embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("invalid config schema: %w", err)
	}
	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireModel checks the settings needed to build an extraction pipeline.
func (c *Config) RequireModel() error {
	var missing []string
	if c.VocabPath == "" {
		missing = append(missing, "vocab_path")
	}
	if c.RelationsPath == "" {
		missing = append(missing, "relations_path")
	}
	switch c.Scorer.Kind {
	case ScorerFixture:
		if c.Scorer.FixturePath == "" {
			missing = append(missing, "scorer.fixture_path")
		}
	case ScorerRemote:
		if c.Scorer.BaseURL == "" {
			missing = append(missing, "scorer.base_url")
		}
		if c.Scorer.HeadsPath == "" {
			missing = append(missing, "scorer.heads_path")
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required settings: " + strings.Join(missing, ", "))
	}
	return nil
}
