package manifest

import (
	"os"
	"path/filepath"
	"testing"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/interpreter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoManifest = `{"name":"demo","version":"1.0","scripts":["hello.py"],"script-types":["Python"]}`

func TestParseDemoManifest(t *testing.T) {
	descriptor, err := Parse([]byte(demoManifest))
	require.NoError(t, err)
	assert.Equal(t, "demo", descriptor.Name)
	assert.Equal(t, "1.0", descriptor.Version)
	assert.Equal(t, []string{"hello.py"}, descriptor.Scripts)
	assert.Equal(t, interpreter.Python, descriptor.TypeFor(0, false))
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"missing_name":    `{"version":"1.0","scripts":["a.sh"],"script-types":["Shell"]}`,
		"empty_version":   `{"name":"demo","version":"","scripts":["a.sh"],"script-types":["Shell"]}`,
		"empty_scripts":   `{"name":"demo","version":"1.0","scripts":[],"script-types":["Shell"]}`,
		"missing_types":   `{"name":"demo","version":"1.0","scripts":["a.sh"]}`,
		"unknown_type":    `{"name":"demo","version":"1.0","scripts":["a.rb"],"script-types":["Ruby"]}`,
		"comma_script":    `{"name":"demo","version":"1.0","scripts":["a,b.sh"],"script-types":["Shell"]}`,
		"nested_script":   `{"name":"demo","version":"1.0","scripts":["../a.sh"],"script-types":["Shell"]}`,
		"slash_package":   `{"name":"de/mo","version":"1.0","scripts":["a.sh"],"script-types":["Shell"]}`,
		"not_json":        `{"name":`,
		"blank_name_only": `{"name":"   ","version":"1.0","scripts":["a.sh"],"script-types":["Shell"]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			assert.Equal(t, coreerrors.CodeInvalidManifest, coreerrors.CodeOf(err))
		})
	}
}

func TestTypeForPolicies(t *testing.T) {
	descriptor := Descriptor{
		Name:        "mixed",
		Version:     "1",
		Scripts:     []string{"a.sh", "b.py", "c.zsh"},
		ScriptTypes: []string{"Shell", "Python"},
	}
	assert.Equal(t, interpreter.Shell, descriptor.TypeFor(1, false))
	assert.Equal(t, interpreter.Python, descriptor.TypeFor(1, true))
	assert.Equal(t, interpreter.Shell, descriptor.TypeFor(2, true))
	assert.Equal(t, interpreter.Type(""), Descriptor{}.TypeFor(0, false))
}

func TestLoadReportsMissingAndInvalidFiles(t *testing.T) {
	workDir := t.TempDir()
	_, _, err := Load(filepath.Join(workDir, "package.json"))
	require.Error(t, err)
	assert.Equal(t, coreerrors.CodeManifestNotFound, coreerrors.CodeOf(err))

	badPath := filepath.Join(workDir, "package-bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"name":"bad"}`), 0o600))
	_, _, err = Load(badPath)
	require.Error(t, err)
	assert.Equal(t, coreerrors.CodeInvalidManifest, coreerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "package-bad.json")
	assert.NotEmpty(t, coreerrors.HintOf(err))

	goodPath := filepath.Join(workDir, "package-demo.json")
	require.NoError(t, os.WriteFile(goodPath, []byte(demoManifest), 0o600))
	descriptor, raw, err := Load(goodPath)
	require.NoError(t, err)
	assert.Equal(t, "demo", descriptor.Name)
	assert.Equal(t, demoManifest, string(raw))
}

func TestFileNameRoundTrip(t *testing.T) {
	assert.Equal(t, "package-demo.json", FileName("demo"))
	name, ok := NameFromFile("/tmp/x/package-demo.json")
	assert.True(t, ok)
	assert.Equal(t, "demo", name)
	_, ok = NameFromFile("demo.json")
	assert.False(t, ok)
	_, ok = NameFromFile("package-.json")
	assert.False(t, ok)
}

func TestDigestIgnoresFormatting(t *testing.T) {
	compact, err := Digest([]byte(demoManifest))
	require.NoError(t, err)
	pretty, err := Digest([]byte("{\n  \"version\": \"1.0\",\n  \"name\": \"demo\",\n  \"script-types\": [\"Python\"],\n  \"scripts\": [\"hello.py\"]\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, compact, pretty)
}

func TestDiscoverSortsAndFiltersManifests(t *testing.T) {
	packagesDir := t.TempDir()
	for _, name := range []string{"package-zeta.json", "package-alpha.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(packagesDir, name), []byte(demoManifest), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(packagesDir, "nested.json"), 0o750))

	paths, err := Discover(packagesDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(packagesDir, "package-alpha.json"),
		filepath.Join(packagesDir, "package-zeta.json"),
	}, paths)

	_, err = Discover(filepath.Join(packagesDir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstalledLoadsDescriptors(t *testing.T) {
	packagesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(packagesDir, "package-demo.json"), []byte(demoManifest), 0o600))
	installed, err := Installed(packagesDir)
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.True(t, installed[0].Descriptor.Lists("hello.py"))
	assert.False(t, installed[0].Descriptor.Lists("other.py"))
}
