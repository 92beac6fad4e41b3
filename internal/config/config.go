// Package config resolves run settings from defaults, a YAML file, MODELSPEC_* environment
// variables and command line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when present and no file is named explicitly
const DefaultFile = "modelspec.yaml"

// DefaultMode generates the OpenAPI document and the JSON Schema bundles
const DefaultMode = "openapi + schema"

const envPrefix = "MODELSPEC_"

// Config holds the settings of one run
type Config struct {
	Model         string   `yaml:"model"`
	Mode          string   `yaml:"mode"`
	OutputDir     string   `yaml:"output_dir"`
	BaseURI       string   `yaml:"base_uri"`
	Title         string   `yaml:"title"`
	Version       string   `yaml:"version"`
	Description   string   `yaml:"description"`
	Schema        string   `yaml:"schema"`
	Tables        []string `yaml:"tables"`
	ExcludeTables []string `yaml:"exclude_tables"`
	Validate      bool     `yaml:"validate"`
	PushGateway   string   `yaml:"push_gateway"`
	Listen        string   `yaml:"listen"`
	Verbose       bool     `yaml:"verbose"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Mode:      DefaultMode,
		OutputDir: ".",
		Listen:    ":8080",
	}
}

// Load resolves the configuration. An empty path reads DefaultFile when it exists;
// an explicit path must exist. Only flags changed on the command line override
// file and environment values. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if flags != nil {
		if err := applyFlags(flags, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(envPrefix + k); ok {
		switch strings.TrimSpace(strings.ToLower(v)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return fallback
}

func getenvList(k string, fallback []string) []string {
	if v := getenv(k, ""); v != "" {
		return SplitList(v)
	}
	return fallback
}

func applyEnv(cfg *Config) {
	cfg.Model = getenv("MODEL", cfg.Model)
	cfg.Mode = getenv("MODE", cfg.Mode)
	cfg.OutputDir = getenv("OUTPUT_DIR", cfg.OutputDir)
	cfg.BaseURI = getenv("BASE_URI", cfg.BaseURI)
	cfg.Title = getenv("TITLE", cfg.Title)
	cfg.Version = getenv("VERSION", cfg.Version)
	cfg.Description = getenv("DESCRIPTION", cfg.Description)
	cfg.Schema = getenv("SCHEMA", cfg.Schema)
	cfg.Tables = getenvList("TABLES", cfg.Tables)
	cfg.ExcludeTables = getenvList("EXCLUDE_TABLES", cfg.ExcludeTables)
	cfg.Validate = getenvBool("VALIDATE", cfg.Validate)
	cfg.PushGateway = getenv("PUSH_GATEWAY", cfg.PushGateway)
	cfg.Listen = getenv("LISTEN", cfg.Listen)
	cfg.Verbose = getenvBool("VERBOSE", cfg.Verbose)
}

func applyFlags(flags *pflag.FlagSet, cfg *Config) error {
	strs := map[string]*string{
		"model":        &cfg.Model,
		"mode":         &cfg.Mode,
		"output-dir":   &cfg.OutputDir,
		"base-uri":     &cfg.BaseURI,
		"title":        &cfg.Title,
		"version":      &cfg.Version,
		"description":  &cfg.Description,
		"schema":       &cfg.Schema,
		"push-gateway": &cfg.PushGateway,
		"listen":       &cfg.Listen,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = strings.TrimSpace(v)
	}

	lists := map[string]*[]string{
		"tables":         &cfg.Tables,
		"exclude-tables": &cfg.ExcludeTables,
	}
	for name, dst := range lists {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = SplitList(v)
	}

	bools := map[string]*bool{
		"validate": &cfg.Validate,
		"verbose":  &cfg.Verbose,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = v
	}
	return nil
}

// SplitList splits a comma separated list, trimming blanks and dropping empty items
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Modes are the outputs selected by a mode string
type Modes struct {
	Schema    bool
	OpenAPI   bool
	Datastore bool
	Render    bool
}

// ParseModes matches the mode keywords anywhere in s, case-insensitively.
// "yaml" is an alias of "openapi". An empty s selects DefaultMode.
func ParseModes(s string) Modes {
	if strings.TrimSpace(s) == "" {
		s = DefaultMode
	}
	lower := strings.ToLower(s)
	return Modes{
		Schema:    strings.Contains(lower, "schema"),
		OpenAPI:   strings.Contains(lower, "openapi") || strings.Contains(lower, "yaml"),
		Datastore: strings.Contains(lower, "datastore"),
		Render:    strings.Contains(lower, "render"),
	}
}

// Any reports whether at least one output is selected
func (m Modes) Any() bool {
	return m.Schema || m.OpenAPI || m.Datastore || m.Render
}
