// Package shim writes the POSIX sh wrappers placed in the bin directory.
package shim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/kballard/go-shellquote"
)

const (
	// EntryPointName is the shim that forwards to the ds binary itself.
	EntryPointName = "ds"
	fileMode       = 0o750
)

// NameFor is the shim name for a script: its file name without extension.
func NameFor(scriptName string) string {
	base := filepath.Base(scriptName)
	trimmed := strings.TrimSuffix(base, filepath.Ext(base))
	if trimmed == "" {
		return base
	}
	return trimmed
}

// ScriptContent renders a shim that runs scriptName through runner. The name
// follows "--" so that a leading dash is never read as a ds flag.
func ScriptContent(runner []string, scriptName string) []byte {
	args := append(append([]string{}, runner...), "run", "--", scriptName)
	return render(args)
}

// EntryPointContent renders the shim that forwards every argument to runner.
func EntryPointContent(runner []string) []byte {
	return render(runner)
}

// WriteScript writes the shim for scriptName into binDir and returns its path.
func WriteScript(binDir string, runner []string, scriptName string) (string, error) {
	if len(runner) == 0 {
		return "", fmt.Errorf("runner command is required")
	}
	path := filepath.Join(binDir, NameFor(scriptName))
	if err := fsx.WriteFileAtomic(path, ScriptContent(runner, scriptName), fileMode); err != nil {
		return "", fmt.Errorf("write shim %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// WriteEntryPoint writes bin/ds.
func WriteEntryPoint(binDir string, runner []string) (string, error) {
	if len(runner) == 0 {
		return "", fmt.Errorf("runner command is required")
	}
	path := filepath.Join(binDir, EntryPointName)
	if err := fsx.WriteFileAtomic(path, EntryPointContent(runner), fileMode); err != nil {
		return "", fmt.Errorf("write entry point shim: %w", err)
	}
	return path, nil
}

// ParseRunner splits a configured runner command line into argv form.
func ParseRunner(command string) ([]string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse runner command: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("runner command is empty")
	}
	return words, nil
}

// ClearDir removes binDir and recreates it empty.
func ClearDir(binDir string) error {
	if err := os.RemoveAll(binDir); err != nil {
		return fmt.Errorf("remove bin dir: %w", err)
	}
	if err := os.MkdirAll(binDir, 0o750); err != nil {
		return fmt.Errorf("mkdir bin dir: %w", err)
	}
	return nil
}

func render(args []string) []byte {
	var builder strings.Builder
	builder.WriteString("#!/bin/sh\n")
	builder.WriteString("exec ")
	builder.WriteString(shellquote.Join(args...))
	builder.WriteString(" \"$@\"\n")
	return []byte(builder.String())
}
