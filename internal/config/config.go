package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Alias generation modes.
const (
	NamesModeSequential = "sequential" // a, b, ..., z, aa, ab, ...
	NamesModeRandom     = "random"     // random identifiers of a fixed length
)

// DefaultConfigFile is looked up in the working directory when no --config is given.
const DefaultConfigFile = "pymixer.yaml"

// EnvPrefix prefixes environment overrides, e.g. PYMIXER_OBFUSCATION_STRINGS_ENABLED.
const EnvPrefix = "PYMIXER"

// --- Nested Configuration Structs ---

// NamesConfig controls identifier renaming.
type NamesConfig struct {
	Scramble bool   `yaml:"scramble" mapstructure:"scramble"`
	Mode     string `yaml:"mode" mapstructure:"mode"`
	Length   int    `yaml:"length" mapstructure:"length"` // random mode only
}

// StringsConfig controls literal encoding.
type StringsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ExportsConfig controls the re-binding of public names to their aliases.
type ExportsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SlotsConfig controls removal of __slots__ declarations from class bodies.
type SlotsConfig struct {
	Strip bool `yaml:"strip" mapstructure:"strip"`
}

// ObfuscationConfig holds all obfuscation-specific settings
type ObfuscationConfig struct {
	Names   NamesConfig   `yaml:"names" mapstructure:"names"`
	Strings StringsConfig `yaml:"strings" mapstructure:"strings"`
	Exports ExportsConfig `yaml:"exports" mapstructure:"exports"`
	Slots   SlotsConfig   `yaml:"slots" mapstructure:"slots"`
}

// IgnoreConfig lists names that are never renamed.
type IgnoreConfig struct {
	Names    []string `yaml:"names" mapstructure:"names"`
	Prefixes []string `yaml:"prefixes" mapstructure:"prefixes"`
}

// ValidateConfig controls running original and obfuscated files side by side.
type ValidateConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Python         string `yaml:"python" mapstructure:"python"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Config holds all configuration settings for the obfuscator.
// Struct tags control how Viper maps config file keys and environment variables.
type Config struct {
	// General behavior
	Silent       bool `yaml:"silent" mapstructure:"silent"`                 // Suppress informational messages
	DebugMode    bool `yaml:"debug_mode" mapstructure:"debug_mode"`         // Enable verbose debug logging
	AbortOnError bool `yaml:"abort_on_error" mapstructure:"abort_on_error"` // Stop processing on the first error

	// File Handling
	Extensions []string `yaml:"extensions" mapstructure:"extensions"` // File extensions treated as Python sources
	SkipPaths  []string `yaml:"skip" mapstructure:"skip"`             // Glob patterns, relative to the walked root
	Overwrite  bool     `yaml:"overwrite" mapstructure:"overwrite"`   // In-place without a .backup copy
	Recursive  bool     `yaml:"recursive" mapstructure:"recursive"`   // Descend into subdirectories

	Obfuscation ObfuscationConfig `yaml:"obfuscation" mapstructure:"obfuscation"`
	Ignore      IgnoreConfig      `yaml:"ignore" mapstructure:"ignore"`
	Validate    ValidateConfig    `yaml:"validate" mapstructure:"validate"`
}

var (
	// Testing controls whether output is suppressed for testing purposes
	Testing bool
)

// PrintInfo prints an informational line unless running under tests.
func PrintInfo(format string, args ...interface{}) {
	if !Testing {
		fmt.Printf(format, args...)
	}
}

// DefaultConfig returns a configuration with default settings.
func DefaultConfig() *Config {
	return &Config{
		Silent:       false,
		DebugMode:    false,
		AbortOnError: false,
		Extensions:   []string{"py"},
		SkipPaths:    []string{"*.backup.py", "__pycache__/*", ".git/*", ".pymixer/*"},
		Overwrite:    false,
		Recursive:    false,
		Obfuscation: ObfuscationConfig{
			Names: NamesConfig{
				Scramble: true,
				Mode:     NamesModeSequential,
				Length:   6,
			},
			Strings: StringsConfig{Enabled: true},
			Exports: ExportsConfig{Enabled: true},
			Slots:   SlotsConfig{Strip: true},
		},
		Ignore: IgnoreConfig{
			Names:    []string{},
			Prefixes: []string{},
		},
		Validate: ValidateConfig{
			Enabled:        false,
			Python:         "python3",
			TimeoutSeconds: 30,
		},
	}
}

// defaults flattens DefaultConfig into viper keys. Every key needs a default
// so AutomaticEnv can resolve its environment override.
func defaults() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"silent":                      d.Silent,
		"debug_mode":                  d.DebugMode,
		"abort_on_error":              d.AbortOnError,
		"extensions":                  d.Extensions,
		"skip":                        d.SkipPaths,
		"overwrite":                   d.Overwrite,
		"recursive":                   d.Recursive,
		"obfuscation.names.scramble":  d.Obfuscation.Names.Scramble,
		"obfuscation.names.mode":      d.Obfuscation.Names.Mode,
		"obfuscation.names.length":    d.Obfuscation.Names.Length,
		"obfuscation.strings.enabled": d.Obfuscation.Strings.Enabled,
		"obfuscation.exports.enabled": d.Obfuscation.Exports.Enabled,
		"obfuscation.slots.strip":     d.Obfuscation.Slots.Strip,
		"ignore.names":                d.Ignore.Names,
		"ignore.prefixes":             d.Ignore.Prefixes,
		"validate.enabled":            d.Validate.Enabled,
		"validate.python":             d.Validate.Python,
		"validate.timeout_seconds":    d.Validate.TimeoutSeconds,
	}
}

// NewViper returns a viper instance primed with defaults and environment
// bindings. Library callers apply overrides with Set on the same instance.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from file and environment variables and
// returns a filled Config struct. An empty configPath looks for pymixer.yaml
// in the working directory and falls back to defaults when it is missing.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWith(NewViper(), configPath)
}

// LoadConfigWith is LoadConfig on a caller-supplied viper instance, so values
// set on it take precedence over the file and environment.
func LoadConfigWith(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("specified config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("error checking config file %s: %w", configPath, err)
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFile, filepath.Ext(DefaultConfigFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		PrintInfo("Info: Configuration file '%s' not found, using default settings.\n", DefaultConfigFile)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" && !cfg.Silent {
		PrintInfo("Info: Loaded configuration from %s\n", used)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates settings and fills in derived values.
func (c *Config) Normalize() error {
	mode := strings.ToLower(strings.TrimSpace(c.Obfuscation.Names.Mode))
	switch mode {
	case "":
		mode = NamesModeSequential
	case NamesModeSequential, NamesModeRandom:
	default:
		return fmt.Errorf("invalid obfuscation.names.mode %q (want %q or %q)", c.Obfuscation.Names.Mode, NamesModeSequential, NamesModeRandom)
	}
	c.Obfuscation.Names.Mode = mode
	if c.Obfuscation.Names.Length < 2 {
		c.Obfuscation.Names.Length = 2
	}

	exts := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			exts = append(exts, strings.ToLower(ext))
		}
	}
	if len(exts) == 0 {
		exts = []string{"py"}
	}
	c.Extensions = exts

	if c.Validate.Python == "" {
		c.Validate.Python = "python3"
	}
	if c.Validate.TimeoutSeconds <= 0 {
		c.Validate.TimeoutSeconds = 30
	}
	return nil
}

// HasExtension reports whether path carries one of the configured extensions.
func (c *Config) HasExtension(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsSkipped reports whether relPath matches one of the skip patterns. Patterns
// are matched against the full relative path and against its base name.
func (c *Config) IsSkipped(relPath string) (bool, error) {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range c.SkipPaths {
		pattern = filepath.ToSlash(pattern)
		for _, candidate := range []string{relPath, filepath.Base(relPath)} {
			matched, err := filepath.Match(pattern, candidate)
			if err != nil {
				return false, fmt.Errorf("invalid skip pattern %q: %w", pattern, err)
			}
			if matched {
				return true, nil
			}
		}
		if dir := strings.TrimSuffix(pattern, "/*"); dir != pattern && (relPath == dir || strings.HasPrefix(relPath, dir+"/")) {
			return true, nil
		}
	}
	return false, nil
}

// SaveConfig saves the default configuration to a file.
func SaveConfig(configPath string) error {
	return DefaultConfig().Save(configPath)
}

// Save writes the configuration as YAML.
func (c *Config) Save(configPath string) error {
	yamlData, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory for config file %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, yamlData, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}
	PrintInfo("Info: Saved configuration to %s\n", configPath)
	return nil
}
