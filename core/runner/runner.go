// Package runner resolves an indexed script, verifies its digest and hands it
// to its interpreter.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/davidahmann/dotscript/core/consent"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/davidahmann/dotscript/core/hashstore"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/logging"
	"github.com/davidahmann/dotscript/core/registry"
	"go.uber.org/zap"
)

// Command is one interpreter invocation.
type Command struct {
	Path   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Executor starts a command, waits for it and returns its exit status. A
// non-zero exit is not an error.
type Executor interface {
	Execute(ctx context.Context, command Command) (int, error)
}

// ProcessExecutor runs commands as child processes.
type ProcessExecutor struct{}

func (ProcessExecutor) Execute(ctx context.Context, command Command) (int, error) {
	// #nosec G204 -- binary is a known interpreter and the script is indexed.
	child := exec.CommandContext(ctx, command.Path, command.Args...)
	child.Stdin = command.Stdin
	child.Stdout = command.Stdout
	child.Stderr = command.Stderr
	if err := child.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("start %s: %w", command.Path, err)
	}
	return 0, nil
}

type Options struct {
	Layout     layout.Layout
	ScriptName string
	Args       []string
	Confirmer  consent.Confirmer
	Executor   Executor
	// LookPath resolves interpreter binaries; nil means exec.LookPath.
	LookPath func(string) (string, error)
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *zap.Logger
}

type Result struct {
	Entry      registry.Entry `json:"entry"`
	Binary     string         `json:"binary"`
	ExitCode   int            `json:"exit_code"`
	Overridden bool           `json:"integrity_overridden,omitempty"`
}

func Run(ctx context.Context, opts Options) (Result, error) {
	logger := logging.OrNop(opts.Logger)
	name := opts.ScriptName
	if strings.TrimSpace(name) == "" {
		return Result{}, coreerrors.New(
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeNoScriptGiven,
			"usage: ds run <script> [args...]",
			"no script given",
		)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Result{}, coreerrors.New(
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeInvalidInput,
			"pass the script's file name as listed by `ds list`",
			"invalid script name %q", name,
		)
	}

	tree := opts.Layout
	if !fsx.Exists(tree.ScriptPath(name)) {
		return Result{}, coreerrors.Wrap(
			fmt.Errorf("script %s not found in %s", name, tree.ScriptsDir()),
			coreerrors.CategoryNotFound,
			coreerrors.CodeScriptFileMissing,
			"install the package that provides it",
			false,
		)
	}
	entries, err := registry.Load(tree.IndexPath())
	if err != nil {
		return Result{}, err
	}
	entry, ok := registry.FindByName(entries, name)
	if !ok {
		return Result{}, registry.NotIndexed(name)
	}
	result := Result{Entry: entry}

	trusted, actual, err := hashstore.VerifyFile(entry.ResolvedPath, entry.Digest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, coreerrors.Wrap(
				fmt.Errorf("indexed path for %s is missing: %s", name, entry.ResolvedPath),
				coreerrors.CategoryNotFound,
				coreerrors.CodeScriptFileMissing,
				"recompile the script index with `ds compile`",
				false,
			)
		}
		return Result{}, err
	}
	if !trusted {
		logger.Warn("script content does not match the index; it may have been tampered with",
			zap.String("script", name),
			zap.String("expected", entry.Digest),
			zap.String("actual", actual),
		)
		approved := false
		if opts.Confirmer != nil {
			approved, err = opts.Confirmer.Confirm("Run anyway?", false)
			if err != nil {
				return Result{}, err
			}
		}
		if !approved {
			return Result{}, coreerrors.Wrap(
				fmt.Errorf("integrity check failed for %s", name),
				coreerrors.CategoryVerification,
				coreerrors.CodeIntegrityMismatch,
				"if the change is yours, run `ds hash rehash`",
				false,
			)
		}
		result.Overridden = true
	}

	binaryName, known := entry.Interpreter.Binary()
	if !known {
		return Result{}, coreerrors.Wrap(
			fmt.Errorf("unknown interpreter %q for %s", string(entry.Interpreter), name),
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeUnknownInterpreter,
			"supported script-types are Python, Shell, Bash, Fish and Zsh",
			false,
		)
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	binary, err := lookPath(binaryName)
	if err != nil {
		return Result{}, coreerrors.Wrap(
			fmt.Errorf("interpreter %s for %s not found: %w", binaryName, name, err),
			coreerrors.CategoryDependencyMissing,
			coreerrors.CodeInterpreterNotFound,
			fmt.Sprintf("install %s and make sure it is on PATH", binaryName),
			false,
		)
	}
	result.Binary = binary

	executor := opts.Executor
	if executor == nil {
		executor = ProcessExecutor{}
	}
	logger.Debug("dispatching script", zap.String("script", name), zap.String("interpreter", binary))
	args := append([]string{entry.ResolvedPath}, opts.Args...)
	exitCode, err := executor.Execute(ctx, Command{
		Path:   binary,
		Args:   args,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	})
	if err != nil {
		return result, err
	}
	result.ExitCode = exitCode
	return result, nil
}
