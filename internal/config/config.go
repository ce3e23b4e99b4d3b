// Package config loads the YAML settings file used by the lox command.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the user's home directory when no
// explicit path is given.
const DefaultFileName = ".loxrc.yaml"

// Config holds CLI and REPL settings.
type Config struct {
	Prompt             string `yaml:"prompt"`
	ContinuationPrompt string `yaml:"continuation_prompt"`
	HistoryFile        string `yaml:"history_file"`
	Color              bool   `yaml:"color"`
	MaxCallDepth       int    `yaml:"max_call_depth"`
	Trace              bool   `yaml:"trace"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Prompt:             "lox> ",
		ContinuationPrompt: "...   ",
		HistoryFile:        "~/.lox_history",
		Color:              true,
		MaxCallDepth:       1024,
	}
}

// ValidationError lists every invalid setting found in a file.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Load reads the settings file at path. An empty path means
// $HOME/.loxrc.yaml, which may be absent; an explicit path must exist.
// Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return finish(Default())
		}
		path = filepath.Join(home, DefaultFileName)
	}

	file, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return finish(Default())
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads settings from r on top of the defaults. Unknown keys are an
// error. An empty document yields the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.HistoryFile = ExpandHome(cfg.HistoryFile)
	return cfg, nil
}

func (c Config) validate() error {
	var errs ValidationError
	if c.MaxCallDepth < 1 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_call_depth must be positive, got %d", c.MaxCallDepth))
	}
	if c.Prompt == "" {
		errs.Issues = append(errs.Issues, "prompt must not be empty")
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory. The
// path is returned unchanged if the home directory is unknown.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
