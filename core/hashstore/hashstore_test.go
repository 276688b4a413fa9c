package hashstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestKnownVector(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest([]byte("abc")))
}

func TestDigestIsDeterministic(t *testing.T) {
	content := []byte("print(\"hi\")\n")
	first := Digest(content)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Digest(content))
	}
	assert.NotEqual(t, first, Digest([]byte("print(\"bye\")\n")))
}

func TestVerify(t *testing.T) {
	content := []byte("echo hi\n")
	digest := Digest(content)

	assert.True(t, Verify(content, digest))
	assert.True(t, Verify(content, "  "+strings.ToUpper(digest)+"\n"))
	assert.False(t, Verify([]byte("echo bye\n"), digest))
	assert.False(t, Verify(content, ""))
}

func TestDigestFileMatchesDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.py")
	content := []byte("print(\"hi\")\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	digest, err := DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, Digest(content), digest)

	ok, actual, err := VerifyFile(path, digest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, digest, actual)

	require.NoError(t, os.WriteFile(path, []byte("print(\"tampered\")\n"), 0o600))
	ok, actual, err = VerifyFile(path, digest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, digest, actual)
}

func TestDigestFileMissing(t *testing.T) {
	_, err := DigestFile(filepath.Join(t.TempDir(), "missing.sh"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManifestDigestIgnoresFormatting(t *testing.T) {
	compact := []byte(`{"name":"demo","version":"1.0","scripts":["hello.py"],"script-types":["Python"]}`)
	pretty := []byte("{\n  \"script-types\": [\"Python\"],\n  \"version\": \"1.0\",\n  \"scripts\": [\"hello.py\"],\n  \"name\": \"demo\"\n}\n")

	first, err := ManifestDigest(compact)
	require.NoError(t, err)
	second, err := ManifestDigest(pretty)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	_, err = ManifestDigest([]byte(`{not json`))
	assert.Error(t, err)
}
