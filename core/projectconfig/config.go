package projectconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// FileName is ds's own settings file inside the config directory.
const FileName = "ds.yaml"

type Config struct {
	Logging LoggingDefaults `yaml:"logging"`
	Compile CompileDefaults `yaml:"compile"`
	Consent ConsentDefaults `yaml:"consent"`
}

type LoggingDefaults struct {
	Level       string `yaml:"level"`
	ShowTrace   bool   `yaml:"show_trace"`
	Development bool   `yaml:"development"`
}

type CompileDefaults struct {
	PositionalScriptTypes bool   `yaml:"positional_script_types"`
	RunnerCommand         string `yaml:"runner_command"`
}

type ConsentDefaults struct {
	AssumeYes bool `yaml:"assume_yes"`
}

// Default is the configuration written by `ds repair reset-config`.
func Default() Config {
	return Config{Logging: LoggingDefaults{Level: "info"}}
}

func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, fmt.Errorf("config path is required")
	}

	// #nosec G304 -- config path is derived from the ds root.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Default(), nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	configuration.normalize()
	return configuration, nil
}

// Marshal renders configuration as YAML.
func Marshal(configuration Config) ([]byte, error) {
	encoded, err := yaml.Marshal(configuration)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return encoded, nil
}

func (configuration *Config) normalize() {
	configuration.Logging.Level = strings.ToLower(strings.TrimSpace(configuration.Logging.Level))
	if configuration.Logging.Level == "" {
		configuration.Logging.Level = "info"
	}
	configuration.Compile.RunnerCommand = strings.TrimSpace(configuration.Compile.RunnerCommand)
}
