package doctor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davidahmann/dotscript/core/compiler"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/internal/testutil"
)

func compiledTree(t *testing.T) layout.Layout {
	t.Helper()
	tree := testutil.NewLayout(t)
	testutil.InstallIntoLayout(t, tree, "demo",
		testutil.ManifestJSON("demo", "1.0", []string{"hello.py", "it's.sh"}, []string{"Python"}),
		map[string]string{"hello.py": "print(\"hi\")\n", "it's.sh": "echo\n"})
	if _, err := compiler.Compile(context.Background(), compiler.Options{Layout: tree, Runner: []string{"/usr/local/bin/ds"}}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return tree
}

func TestRunPassesOnHealthyTree(t *testing.T) {
	tree := compiledTree(t)
	result := Run(Options{Layout: tree, ProducerVersion: "test", Now: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)})

	if result.Status != statusPass {
		t.Fatalf("expected pass status, got: %s (%#v)", result.Status, result.Checks)
	}
	if len(result.Checks) != 7 {
		t.Fatalf("unexpected checks count: %d", len(result.Checks))
	}
	if len(result.FixCommands) != 0 {
		t.Fatalf("expected no fix commands, got %v", result.FixCommands)
	}
	if result.CreatedAt != "2026-06-01T00:00:00Z" {
		t.Fatalf("unexpected created_at: %s", result.CreatedAt)
	}
}

func TestRunRootWithGlobCharacters(t *testing.T) {
	tree, err := layout.New(filepath.Join(t.TempDir(), "home [1] {a,b}"))
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	if err := tree.Bootstrap(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("bootstrap layout: %v", err)
	}
	testutil.InstallIntoLayout(t, tree, "demo",
		testutil.ManifestJSON("demo", "1.0", []string{"hello.py"}, []string{"Python"}),
		map[string]string{"hello.py": "print(\"hi\")\n"})
	if _, err := compiler.Compile(context.Background(), compiler.Options{Layout: tree, Runner: []string{"/usr/local/bin/ds"}}); err != nil {
		t.Fatalf("compile: %v", err)
	}

	result := Run(Options{Layout: tree})
	if result.Status != statusPass {
		t.Fatalf("expected pass status, got: %s (%#v)", result.Status, result.Checks)
	}
	if !checkStatus(result.Checks, "manifests", statusPass) || !checkStatus(result.Checks, "unindexed_scripts", statusPass) {
		t.Fatalf("expected manifests to be found under the root: %#v", result.Checks)
	}
}

func TestRunUninitializedTree(t *testing.T) {
	tree, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	result := Run(Options{Layout: tree})
	if result.Status != statusFail {
		t.Fatalf("expected fail status, got: %s", result.Status)
	}
	if len(result.Checks) != 1 || !checkStatus(result.Checks, "layout", statusFail) {
		t.Fatalf("expected only a failing layout check, got %#v", result.Checks)
	}
	if result.FixCommands[0] != "ds init" {
		t.Fatalf("unexpected fix commands: %v", result.FixCommands)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	tree := testutil.NewLayout(t)
	if err := os.RemoveAll(tree.BinDir()); err != nil {
		t.Fatalf("remove bin: %v", err)
	}
	result := Run(Options{Layout: tree})
	if !checkStatus(result.Checks, "layout", statusFail) {
		t.Fatalf("expected layout fail check")
	}
	if !strings.HasPrefix(result.FixCommands[0], "mkdir -p ") {
		t.Fatalf("unexpected fix command: %v", result.FixCommands)
	}
}

func TestRunReportsMissingIndex(t *testing.T) {
	tree := testutil.NewLayout(t)
	result := Run(Options{Layout: tree})
	if !checkStatus(result.Checks, "registry", statusWarn) {
		t.Fatalf("expected registry warn check: %#v", result.Checks)
	}
	if !checkStatus(result.Checks, "integrity", statusWarn) {
		t.Fatalf("expected integrity to be skipped with a warning")
	}
	if result.Status != statusWarn {
		t.Fatalf("expected warn status, got %s", result.Status)
	}
}

func TestRunDetectsDriftAndOrphans(t *testing.T) {
	tree := compiledTree(t)
	testutil.WriteFile(t, tree.ScriptPath("hello.py"), []byte("print(\"changed\")\n"))
	testutil.WriteFile(t, tree.ScriptPath("stray.sh"), []byte("echo stray\n"))
	testutil.InstallIntoLayout(t, tree, "late",
		testutil.ManifestJSON("late", "1", []string{"late.sh"}, []string{"Shell"}),
		map[string]string{"late.sh": "echo late\n"})
	if err := os.Remove(tree.BinDir() + "/hello"); err != nil {
		t.Fatalf("remove shim: %v", err)
	}

	result := Run(Options{Layout: tree})
	for _, name := range []string{"integrity", "unindexed_scripts", "orphan_scripts", "shims"} {
		if !checkStatus(result.Checks, name, statusWarn) {
			t.Fatalf("expected %s warn check, got %#v", name, result.Checks)
		}
	}
	wantFixes := map[string]bool{"ds compile": false, "ds hash rehash": false, "rm " + tree.ScriptPath("stray.sh"): false}
	for _, fix := range result.FixCommands {
		if _, ok := wantFixes[fix]; ok {
			wantFixes[fix] = true
		}
	}
	for fix, seen := range wantFixes {
		if !seen {
			t.Fatalf("expected fix command %q in %v", fix, result.FixCommands)
		}
	}
}

func TestRunQuotesFixCommands(t *testing.T) {
	tree := compiledTree(t)
	testutil.WriteFile(t, tree.ScriptPath("my stray.sh"), []byte("echo\n"))
	result := Run(Options{Layout: tree})
	found := false
	for _, fix := range result.FixCommands {
		if strings.Contains(fix, "'") && strings.Contains(fix, "my stray.sh") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a quoted rm fix command, got %v", result.FixCommands)
	}
}

func TestRunInvalidManifest(t *testing.T) {
	tree := compiledTree(t)
	testutil.WriteFile(t, tree.PackagePath("package-bad.json"), []byte(`{"name":"bad"}`))
	result := Run(Options{Layout: tree})
	if !checkStatus(result.Checks, "manifests", statusFail) {
		t.Fatalf("expected manifests fail check: %#v", result.Checks)
	}
	if result.Status != statusFail {
		t.Fatalf("expected fail status, got %s", result.Status)
	}
}

func TestRunCorruptIndex(t *testing.T) {
	tree := compiledTree(t)
	testutil.WriteFile(t, tree.IndexPath(), []byte("broken line\n"))
	result := Run(Options{Layout: tree})
	if !checkStatus(result.Checks, "registry", statusFail) {
		t.Fatalf("expected registry fail check: %#v", result.Checks)
	}
}

func checkStatus(checks []Check, name string, status string) bool {
	for _, check := range checks {
		if check.Name == name && check.Status == status {
			return true
		}
	}
	return false
}
