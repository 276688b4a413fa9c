package projectconfig

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Environment holds the DS_* overrides. Unset booleans stay nil so they do
// not mask values from ds.yaml.
type Environment struct {
	Root                  string `envconfig:"DS_ROOT"`
	LogLevel              string `envconfig:"DS_LOG_LEVEL"`
	ShowTrace             *bool  `envconfig:"DS_SHOW_TRACE"`
	AssumeYes             *bool  `envconfig:"DS_ASSUME_YES"`
	PositionalScriptTypes *bool  `envconfig:"DS_POSITIONAL_SCRIPT_TYPES"`
	RunnerCommand         string `envconfig:"DS_RUNNER_COMMAND"`
}

func LoadEnvironment() (Environment, error) {
	var environment Environment
	if err := envconfig.Process("", &environment); err != nil {
		return Environment{}, fmt.Errorf("read environment: %w", err)
	}
	environment.Root = strings.TrimSpace(environment.Root)
	environment.LogLevel = strings.ToLower(strings.TrimSpace(environment.LogLevel))
	environment.RunnerCommand = strings.TrimSpace(environment.RunnerCommand)
	return environment, nil
}

// Apply returns configuration with every set override applied.
func (environment Environment) Apply(configuration Config) Config {
	if environment.LogLevel != "" {
		configuration.Logging.Level = environment.LogLevel
	}
	if environment.ShowTrace != nil {
		configuration.Logging.ShowTrace = *environment.ShowTrace
	}
	if environment.AssumeYes != nil {
		configuration.Consent.AssumeYes = *environment.AssumeYes
	}
	if environment.PositionalScriptTypes != nil {
		configuration.Compile.PositionalScriptTypes = *environment.PositionalScriptTypes
	}
	if environment.RunnerCommand != "" {
		configuration.Compile.RunnerCommand = environment.RunnerCommand
	}
	return configuration
}
