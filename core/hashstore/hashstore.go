// Package hashstore computes and compares the content digests that guard
// installed scripts against tampering.
package hashstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gowebpki/jcs"
)

// Algorithm names the digest function. Registry digests are bare hex of this hash.
const Algorithm = "sha256"

// Digest returns the hex sha256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether content hashes to expected. Case and surrounding
// whitespace in expected are ignored.
func Verify(content []byte, expected string) bool {
	return Digest(content) == normalize(expected)
}

// DigestFile streams the file at path through the digest.
func DigestFile(path string) (string, error) {
	// #nosec G304 -- path comes from the registry or the scripts directory.
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyFile reports whether the file at path hashes to expected, returning
// the digest it computed.
func VerifyFile(path string, expected string) (bool, string, error) {
	actual, err := DigestFile(path)
	if err != nil {
		return false, "", err
	}
	return actual == normalize(expected), actual, nil
}

// CanonicalizeJSON returns the RFC 8785 (JCS) canonical form of JSON input.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// ManifestDigest canonicalizes a JSON manifest (RFC 8785) and digests it, so
// formatting and key order do not change a package's identity.
func ManifestDigest(raw []byte) (string, error) {
	canonical, err := CanonicalizeJSON(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	return Digest(canonical), nil
}

func normalize(digest string) string {
	return strings.ToLower(strings.TrimSpace(digest))
}
