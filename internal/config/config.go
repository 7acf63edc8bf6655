// Package config loads phydiff settings from YAML, PHYDIFF_* environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"phydiff/internal/difficulty"
	"phydiff/internal/logging"
	"phydiff/internal/msa"
)

// envPrefix is prepended to every environment override, so "log.level"
// resolves to PHYDIFF_LOG_LEVEL.
const envPrefix = "PHYDIFF"

// AlphabetAuto selects the residue map from each file's own classification.
const AlphabetAuto = "auto"

// ErrInvalid marks configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Tool describes how one reference program is invoked. The alignment path is
// appended after Args. An empty Dir runs in the current directory.
type Tool struct {
	Enabled            bool     `mapstructure:"enabled" yaml:"enabled"`
	Command            string   `mapstructure:"command" yaml:"command"`
	Args               []string `mapstructure:"args" yaml:"args"`
	Dir                string   `mapstructure:"dir" yaml:"dir"`
	RequireEmptyStderr bool     `mapstructure:"require_empty_stderr" yaml:"require_empty_stderr"`
}

// Tools groups the reference programs.
type Tools struct {
	RAxML  Tool `mapstructure:"raxml" yaml:"raxml"`
	PhyML  Tool `mapstructure:"phyml" yaml:"phyml"`
	Pythia Tool `mapstructure:"pythia" yaml:"pythia"`
}

// Config is the resolved run configuration.
type Config struct {
	PredictDifficulty    bool           `mapstructure:"predict_difficulty" yaml:"predict_difficulty"`
	RunReferenceAligners bool           `mapstructure:"run_reference_aligners" yaml:"run_reference_aligners"`
	Replicates           int            `mapstructure:"replicates" yaml:"replicates"`
	Threads              int            `mapstructure:"threads" yaml:"threads"`
	Alphabet             string         `mapstructure:"alphabet" yaml:"alphabet"`
	Format               string         `mapstructure:"format" yaml:"format"`
	Output               string         `mapstructure:"output" yaml:"output"`
	SummaryFile          string         `mapstructure:"summary_file" yaml:"summary_file"`
	MetricsFile          string         `mapstructure:"metrics_file" yaml:"metrics_file"`
	ModelFile            string         `mapstructure:"model_file" yaml:"model_file"`
	Log                  logging.Config `mapstructure:"log" yaml:"log"`
	Tools                Tools          `mapstructure:"tools" yaml:"tools"`
}

// NewViper returns a viper instance with the phydiff env binding and every
// default registered, ready for flags to be bound over it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("predict_difficulty", true)
	v.SetDefault("run_reference_aligners", false)
	v.SetDefault("replicates", difficulty.DefaultReplicates)
	v.SetDefault("threads", 0)
	v.SetDefault("alphabet", AlphabetAuto)
	v.SetDefault("format", string(msa.FormatFASTA))
	v.SetDefault("output", "eval.csv")
	v.SetDefault("summary_file", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("model_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("tools.raxml.enabled", true)
	v.SetDefault("tools.raxml.command", "sh")
	v.SetDefault("tools.raxml.args", []string{"raxml.sh"})
	v.SetDefault("tools.raxml.dir", "")
	v.SetDefault("tools.raxml.require_empty_stderr", true)

	v.SetDefault("tools.phyml.enabled", true)
	v.SetDefault("tools.phyml.command", "sh")
	v.SetDefault("tools.phyml.args", []string{"phyml.sh"})
	v.SetDefault("tools.phyml.dir", "")
	v.SetDefault("tools.phyml.require_empty_stderr", false)

	v.SetDefault("tools.pythia.enabled", true)
	v.SetDefault("tools.pythia.command", "python")
	v.SetDefault("tools.pythia.args", []string{"predictor.py"})
	v.SetDefault("tools.pythia.dir", "")
	v.SetDefault("tools.pythia.require_empty_stderr", false)
}

// Load reads path into v when path is non-empty, unmarshals the merged
// state and validates it.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg, err := Load(NewViper(), "")
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return cfg
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Replicates < 2 {
		return fmt.Errorf("%w: replicates must be at least 2, got %d", ErrInvalid, c.Replicates)
	}
	if c.Threads < 0 {
		return fmt.Errorf("%w: threads must not be negative, got %d", ErrInvalid, c.Threads)
	}
	if _, _, err := c.FixedAlphabet(); err != nil {
		return err
	}
	if _, err := msa.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	}
	if c.RunReferenceAligners {
		for _, t := range c.Tools.list() {
			if t.tool.Enabled && t.tool.Command == "" {
				return fmt.Errorf("%w: tools.%s.command is empty", ErrInvalid, t.name)
			}
		}
	}
	return nil
}

// FixedAlphabet returns the configured alphabet. ok is false for "auto".
func (c *Config) FixedAlphabet() (a msa.Alphabet, ok bool, err error) {
	if c.Alphabet == "" || c.Alphabet == AlphabetAuto {
		return 0, false, nil
	}
	a, err = msa.ParseAlphabet(c.Alphabet)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return a, true, nil
}

// Workers is the effective parallelism; zero threads means every CPU.
func (c *Config) Workers() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

type namedTool struct {
	name string
	tool Tool
}

func (t Tools) list() []namedTool {
	return []namedTool{{"raxml", t.RAxML}, {"phyml", t.PhyML}, {"pythia", t.Pythia}}
}
