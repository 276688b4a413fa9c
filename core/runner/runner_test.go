package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/davidahmann/dotscript/core/consent"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/hashstore"
	"github.com/davidahmann/dotscript/core/interpreter"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/registry"
	"github.com/davidahmann/dotscript/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	commands []Command
	exitCode int
}

func (r *recordingExecutor) Execute(_ context.Context, command Command) (int, error) {
	r.commands = append(r.commands, command)
	return r.exitCode, nil
}

func fakeLookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func indexedTree(t *testing.T, script string, content string, kind interpreter.Type) layout.Layout {
	t.Helper()
	tree := testutil.NewLayout(t)
	testutil.WriteFile(t, tree.ScriptPath(script), []byte(content))
	require.NoError(t, registry.Save(tree.IndexPath(), []registry.Entry{{
		ScriptName:   script,
		ResolvedPath: tree.ScriptPath(script),
		Digest:       hashstore.Digest([]byte(content)),
		Interpreter:  kind,
	}}))
	return tree
}

func TestRunDispatchesToIndexedInterpreter(t *testing.T) {
	tree := indexedTree(t, "hello.py", "print(\"hi\")\n", interpreter.Python)
	executor := &recordingExecutor{exitCode: 4}

	result, err := Run(context.Background(), Options{
		Layout:     tree,
		ScriptName: "hello.py",
		Args:       []string{"--flag", "value with space"},
		Executor:   executor,
		LookPath:   fakeLookPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.ExitCode)
	assert.Equal(t, "/usr/bin/python3", result.Binary)
	require.Len(t, executor.commands, 1)
	assert.Equal(t, "/usr/bin/python3", executor.commands[0].Path)
	assert.Equal(t, []string{tree.ScriptPath("hello.py"), "--flag", "value with space"}, executor.commands[0].Args)
}

func TestRunTamperedScriptDeclined(t *testing.T) {
	tree := indexedTree(t, "hello.py", "print(\"hi\")\n", interpreter.Python)
	testutil.WriteFile(t, tree.ScriptPath("hello.py"), []byte("print(\"pwned\")\n"))
	executor := &recordingExecutor{}

	_, err := Run(context.Background(), Options{
		Layout:     tree,
		ScriptName: "hello.py",
		Confirmer:  consent.Static(false),
		Executor:   executor,
		LookPath:   fakeLookPath,
	})
	require.Error(t, err)
	assert.Equal(t, coreerrors.CodeIntegrityMismatch, coreerrors.CodeOf(err))
	assert.Empty(t, executor.commands, "no process may start after a declined override")
}

func TestRunTamperedScriptOverride(t *testing.T) {
	tree := indexedTree(t, "a.sh", "echo a\n", interpreter.Shell)
	testutil.WriteFile(t, tree.ScriptPath("a.sh"), []byte("echo b\n"))
	executor := &recordingExecutor{}

	result, err := Run(context.Background(), Options{
		Layout:     tree,
		ScriptName: "a.sh",
		Confirmer:  consent.Static(true),
		Executor:   executor,
		LookPath:   fakeLookPath,
	})
	require.NoError(t, err)
	assert.True(t, result.Overridden)
	assert.Len(t, executor.commands, 1)
}

func TestRunNilConfirmerRefusesTamperedScript(t *testing.T) {
	tree := indexedTree(t, "a.sh", "echo a\n", interpreter.Shell)
	testutil.WriteFile(t, tree.ScriptPath("a.sh"), []byte("echo b\n"))
	_, err := Run(context.Background(), Options{Layout: tree, ScriptName: "a.sh", Executor: &recordingExecutor{}, LookPath: fakeLookPath})
	assert.Equal(t, coreerrors.CodeIntegrityMismatch, coreerrors.CodeOf(err))
}

func TestRunFailures(t *testing.T) {
	tree := indexedTree(t, "a.sh", "echo a\n", interpreter.Shell)
	testutil.WriteFile(t, tree.ScriptPath("orphan.sh"), []byte("echo orphan\n"))

	cases := []struct {
		name   string
		script string
		code   string
	}{
		{name: "empty", script: "", code: coreerrors.CodeNoScriptGiven},
		{name: "path", script: "../a.sh", code: coreerrors.CodeInvalidInput},
		{name: "absent", script: "missing.sh", code: coreerrors.CodeScriptFileMissing},
		{name: "not_indexed", script: "orphan.sh", code: coreerrors.CodeScriptNotIndexed},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			executor := &recordingExecutor{}
			_, err := Run(context.Background(), Options{Layout: tree, ScriptName: testCase.script, Executor: executor, LookPath: fakeLookPath})
			require.Error(t, err)
			assert.Equal(t, testCase.code, coreerrors.CodeOf(err))
			assert.Empty(t, executor.commands)
		})
	}
}

func TestRunNotIndexedHintMentionsCompile(t *testing.T) {
	tree := indexedTree(t, "a.sh", "echo a\n", interpreter.Shell)
	testutil.WriteFile(t, tree.ScriptPath("new.sh"), []byte("echo\n"))
	_, err := Run(context.Background(), Options{Layout: tree, ScriptName: "new.sh", Executor: &recordingExecutor{}})
	assert.Contains(t, coreerrors.HintOf(err), "ds compile")
}

func TestRunRegistryMissing(t *testing.T) {
	tree := testutil.NewLayout(t)
	testutil.WriteFile(t, tree.ScriptPath("a.sh"), []byte("echo a\n"))
	_, err := Run(context.Background(), Options{Layout: tree, ScriptName: "a.sh", Executor: &recordingExecutor{}})
	assert.Equal(t, coreerrors.CodeRegistryMissing, coreerrors.CodeOf(err))
}

func TestRunUnknownInterpreter(t *testing.T) {
	tree := indexedTree(t, "a.rb", "puts 1\n", interpreter.Type("Ruby"))
	executor := &recordingExecutor{}
	_, err := Run(context.Background(), Options{Layout: tree, ScriptName: "a.rb", Executor: executor, LookPath: fakeLookPath})
	assert.Equal(t, coreerrors.CodeUnknownInterpreter, coreerrors.CodeOf(err))
	assert.Empty(t, executor.commands)
}

func TestRunInterpreterNotFound(t *testing.T) {
	tree := indexedTree(t, "a.fish", "echo\n", interpreter.Fish)
	_, err := Run(context.Background(), Options{
		Layout:     tree,
		ScriptName: "a.fish",
		Executor:   &recordingExecutor{},
		LookPath:   func(string) (string, error) { return "", errors.New("not on PATH") },
	})
	assert.Equal(t, coreerrors.CodeInterpreterNotFound, coreerrors.CodeOf(err))
	assert.Equal(t, coreerrors.CategoryDependencyMissing, coreerrors.CategoryOf(err))
}

func TestRunRealShellPropagatesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tree := indexedTree(t, "greet.sh", "echo \"hi $1\"\nexit 3\n", interpreter.Shell)
	var stdout bytes.Buffer

	result, err := Run(context.Background(), Options{
		Layout:     tree,
		ScriptName: "greet.sh",
		Args:       []string{"there"},
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "hi there\n", stdout.String())
}
