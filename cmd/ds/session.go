package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/davidahmann/dotscript/core/compiler"
	"github.com/davidahmann/dotscript/core/consent"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/logging"
	"github.com/davidahmann/dotscript/core/projectconfig"
	"github.com/davidahmann/dotscript/core/shim"
	"go.uber.org/zap"
)

// session is the configuration a command runs with, resolved once from the
// environment and ds.yaml and handed to the core packages explicitly.
type session struct {
	layout    layout.Layout
	config    projectconfig.Config
	logger    *zap.Logger
	runner    []string
	confirmer consent.Confirmer
}

func openSession(assumeYes bool) (session, error) {
	environment, err := projectconfig.LoadEnvironment()
	if err != nil {
		return session{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, coreerrors.CodeInvalidInput, "check the DS_* environment variables", false)
	}
	root := environment.Root
	if root == "" {
		root, err = os.UserHomeDir()
		if err != nil {
			return session{}, coreerrors.Wrap(
				fmt.Errorf("resolve home directory: %w", err),
				coreerrors.CategoryInvalidInput,
				coreerrors.CodeInvalidInput,
				"set DS_ROOT to the directory that should hold .scripts",
				false,
			)
		}
	}
	tree, err := layout.New(root)
	if err != nil {
		return session{}, err
	}

	configuration, err := projectconfig.Load(tree.ConfigPath(), true)
	if err != nil {
		return session{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, coreerrors.CodeInvalidInput, fmt.Sprintf("fix or remove %s", tree.ConfigPath()), false)
	}
	configuration = environment.Apply(configuration)

	logger, err := logging.New(logging.Config{
		Level:       configuration.Logging.Level,
		ShowTrace:   configuration.Logging.ShowTrace,
		Development: configuration.Logging.Development,
		Color:       consent.IsTerminal(os.Stderr),
		LogsDir:     tree.LogsDir(),
		Console:     os.Stderr,
	})
	if err != nil {
		return session{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, coreerrors.CodeInvalidInput, "logging.level must be debug, info, warn or error", false)
	}
	logger = logger.With(zap.String("correlation_id", currentCorrelationID()))

	runner, err := resolveRunner(configuration.Compile.RunnerCommand)
	if err != nil {
		return session{}, err
	}

	return session{
		layout:    tree,
		config:    configuration,
		logger:    logger,
		runner:    runner,
		confirmer: consent.ForTerminal(os.Stdin, os.Stderr, assumeYes || configuration.Consent.AssumeYes),
	}, nil
}

func resolveRunner(command string) ([]string, error) {
	if strings.TrimSpace(command) != "" {
		runner, err := shim.ParseRunner(command)
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, coreerrors.CodeInvalidInput, "check compile.runner_command", false)
		}
		return runner, nil
	}
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve ds executable: %w", err)
	}
	return []string{executable}, nil
}

func (s session) close() {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

func (s session) requireInitialized() error {
	if s.layout.Initialized() {
		return nil
	}
	return coreerrors.Wrap(
		fmt.Errorf("ds is not initialized at %s", s.layout.Home()),
		coreerrors.CategoryNotFound,
		coreerrors.CodeNotInitialized,
		"run `ds init` first",
		false,
	)
}

func (s session) compileOptions(positional bool) compiler.Options {
	return compiler.Options{
		Layout:                s.layout,
		Runner:                s.runner,
		PositionalScriptTypes: positional || s.config.Compile.PositionalScriptTypes,
		Logger:                s.logger,
	}
}
