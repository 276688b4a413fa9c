package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/dotscript/core/layout"
)

func RepoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

func BuildDSBinary(t *testing.T, root string) string {
	t.Helper()
	binDir := t.TempDir()
	binName := "ds"
	if runtime.GOOS == "windows" {
		binName = "ds.exe"
	}
	binPath := filepath.Join(binDir, binName)

	// #nosec G204 -- arguments are fixed and used only in test binaries.
	build := exec.Command("go", "build", "-o", binPath, "./cmd/ds")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build ds binary: %v\n%s", err, string(out))
	}
	return binPath
}

func CommandExitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected command exit error, got: %v", err)
	}
	return exitErr.ExitCode()
}

func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path) // #nosec G304 -- test helper for controlled paths.
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

func FormatJSON(raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw)
	}
	encoded, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return string(raw)
	}
	return fmt.Sprintf("%s\n", string(encoded))
}

// NewLayout bootstraps a fresh ds tree under a temp root.
func NewLayout(t *testing.T) layout.Layout {
	t.Helper()
	tree, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	if err := tree.Bootstrap(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("bootstrap layout: %v", err)
	}
	return tree
}

// ManifestJSON renders a package.json document.
func ManifestJSON(name string, version string, scripts []string, scriptTypes []string) []byte {
	encoded, _ := json.Marshal(map[string]any{
		"name":         name,
		"version":      version,
		"scripts":      scripts,
		"script-types": scriptTypes,
	})
	return encoded
}

// WritePackageSource lays out an installable package: package.json plus a
// scripts/ directory holding every script in contents.
func WritePackageSource(t *testing.T, dir string, manifest []byte, contents map[string]string) {
	t.Helper()
	WriteFile(t, filepath.Join(dir, "package.json"), manifest)
	if err := os.MkdirAll(filepath.Join(dir, "scripts"), 0o750); err != nil {
		t.Fatalf("create scripts dir: %v", err)
	}
	for name, content := range contents {
		WriteFile(t, filepath.Join(dir, "scripts", name), []byte(content))
	}
}

// InstallIntoLayout writes a manifest and its scripts straight into tree,
// bypassing the installer.
func InstallIntoLayout(t *testing.T, tree layout.Layout, name string, manifest []byte, contents map[string]string) {
	t.Helper()
	WriteFile(t, tree.PackagePath("package-"+name+".json"), manifest)
	for script, content := range contents {
		WriteFile(t, tree.ScriptPath(script), []byte(content))
	}
}

// StubInterpreter puts an executable named binary first on PATH. It prints
// its name and arguments and exits with exitCode.
func StubInterpreter(t *testing.T, binary string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub interpreters need a posix shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, binary)
	script := fmt.Sprintf("#!/bin/sh\necho %s \"$@\"\nexit %d\n", binary, exitCode)
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		t.Fatalf("write stub interpreter: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}

// SplitLines returns the non-empty lines of output.
func SplitLines(output string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
