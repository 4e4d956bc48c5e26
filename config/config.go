// Package config loads autotype settings from YAML files and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"autotype/logging"
	"autotype/typing"
)

// WorkspaceFile is the settings file looked up in the workspace root
const WorkspaceFile = ".auto-type.yaml"

//go:embed schema.json
var schemaJSON []byte

// LoggingConfig mirrors logging.Options
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	Source bool   `yaml:"source"`
}

// Config holds every setting. Delays are in milliseconds.
type Config struct {
	ScriptDir              string        `yaml:"script_dir"`
	BaseCharacterDelay     int           `yaml:"base_character_delay"`
	VariableCharacterDelay int           `yaml:"variable_character_delay"`
	TypingMode             string        `yaml:"typing_mode"`
	ExclusivePlayback      bool          `yaml:"exclusive_playback"`
	Logging                LoggingConfig `yaml:"logging"`

	// Sources lists the files that were merged, in order
	Sources []string `yaml:"-"`
}

// Defaults returns the built-in settings
func Defaults() Config {
	return Config{
		ScriptDir:              ".auto-type",
		BaseCharacterDelay:     typing.DefaultBaseDelay,
		VariableCharacterDelay: typing.DefaultVariableDelay,
		TypingMode:             typing.ModeAwait.String(),
		Logging:                LoggingConfig{Level: "info", Format: "text"},
	}
}

// Env var names used as overrides.
const (
	EnvBaseDelay     = "AUTOTYPE_BASE_DELAY"
	EnvVariableDelay = "AUTOTYPE_VARIABLE_DELAY"
	EnvScriptDir     = "AUTOTYPE_SCRIPT_DIR"
	EnvTypingMode    = "AUTOTYPE_TYPING_MODE"
	EnvExclusive     = "AUTOTYPE_EXCLUSIVE"
)

// UserPath returns the per-user settings file path
func UserPath() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "autotype", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(home, ".config", "autotype", "config.yaml"), nil
}

// Load builds the effective settings: defaults, then the user file (or
// explicit, when given), then the workspace file under root, then the
// environment. Missing files are skipped; malformed ones are an error.
func Load(root, explicit string) (Config, error) {
	cfg := Defaults()

	var paths []string
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", explicit, err)
		}
		paths = append(paths, explicit)
	} else if p, err := UserPath(); err == nil {
		paths = append(paths, p)
	}
	if root != "" {
		paths = append(paths, filepath.Join(root, WorkspaceFile))
	}

	for _, p := range paths {
		ok, err := LoadFile(p, &cfg)
		if err != nil {
			return cfg, err
		}
		if ok {
			cfg.Sources = append(cfg.Sources, p)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// fileConfig uses pointers so that keys present in a file, even with zero
// values, replace earlier settings.
type fileConfig struct {
	ScriptDir              *string `yaml:"script_dir"`
	BaseCharacterDelay     *int    `yaml:"base_character_delay"`
	VariableCharacterDelay *int    `yaml:"variable_character_delay"`
	TypingMode             *string `yaml:"typing_mode"`
	ExclusivePlayback      *bool   `yaml:"exclusive_playback"`
	Logging                struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
		File   *string `yaml:"file"`
		Source *bool   `yaml:"source"`
	} `yaml:"logging"`
}

// LoadFile validates the YAML file at path and merges it into cfg. It
// reports false when the file does not exist.
func LoadFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return false, fmt.Errorf("config %s: %w", path, err)
	}
	return true, nil
}

// Parse validates a YAML document against the settings schema and merges it into cfg
func Parse(data []byte, cfg *Config) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	if err := validateSchema(doc); err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	mergeInto(cfg, &fc)
	return nil
}

func validateSchema(doc map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

func mergeInto(dst *Config, src *fileConfig) {
	if src.ScriptDir != nil {
		dst.ScriptDir = strings.TrimSpace(*src.ScriptDir)
	}
	if src.BaseCharacterDelay != nil {
		dst.BaseCharacterDelay = *src.BaseCharacterDelay
	}
	if src.VariableCharacterDelay != nil {
		dst.VariableCharacterDelay = *src.VariableCharacterDelay
	}
	if src.TypingMode != nil {
		dst.TypingMode = *src.TypingMode
	}
	if src.ExclusivePlayback != nil {
		dst.ExclusivePlayback = *src.ExclusivePlayback
	}
	// logging
	if src.Logging.Level != nil {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(*src.Logging.Level))
	}
	if src.Logging.Format != nil {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(*src.Logging.Format))
	}
	if src.Logging.File != nil {
		dst.Logging.File = strings.TrimSpace(*src.Logging.File)
	}
	if src.Logging.Source != nil {
		dst.Logging.Source = *src.Logging.Source
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvScriptDir)); v != "" {
		cfg.ScriptDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseDelay)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaseDelay, err)
		}
		cfg.BaseCharacterDelay = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvVariableDelay)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvVariableDelay, err)
		}
		cfg.VariableCharacterDelay = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvTypingMode)); v != "" {
		cfg.TypingMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExclusive)); v != "" {
		cfg.ExclusivePlayback = logging.IsTrue(v)
	}
	// logging overrides share the logger's variables
	if v := strings.TrimSpace(os.Getenv(logging.EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(logging.EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(logging.EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(logging.EnvLogSource)); v != "" {
		cfg.Logging.Source = logging.IsTrue(v)
	}
	return nil
}

// Validate checks settings that came from the environment or flags, which
// skip the schema
func (c Config) Validate() error {
	if c.ScriptDir == "" {
		return errors.New("script_dir must not be empty")
	}
	if c.BaseCharacterDelay < 0 || c.VariableCharacterDelay < 0 {
		return errors.New("character delays must not be negative")
	}
	if _, err := typing.ParseMode(c.TypingMode); err != nil {
		return err
	}
	return nil
}

// Mode returns the typing mode setting
func (c Config) Mode() typing.Mode {
	m, _ := typing.ParseMode(c.TypingMode)
	return m
}

// Pacer builds a pacer from the two delay settings
func (c Config) Pacer() *typing.Pacer {
	return typing.NewPacer(c.BaseCharacterDelay, c.VariableCharacterDelay)
}
