// Package manifest parses and validates package descriptors (package.json).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/hashstore"
	"github.com/davidahmann/dotscript/core/interpreter"
	schemamanifest "github.com/davidahmann/dotscript/core/schema/v1/manifest"
	"github.com/davidahmann/dotscript/core/schema/validate"
)

const (
	// SourceFile is the manifest name looked up in a package's working directory.
	SourceFile = "package.json"
	filePrefix = "package-"
	fileSuffix = ".json"
)

// Descriptor is a validated package manifest.
type Descriptor struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Scripts     []string `json:"scripts"`
	ScriptTypes []string `json:"script-types"`
}

// Parse validates raw manifest bytes against the package schema and the
// naming rules the registry format depends on. Failures carry the
// invalid_manifest code.
func Parse(raw []byte) (Descriptor, error) {
	if err := validate.ValidateJSON(schemamanifest.PackageSchema, raw); err != nil {
		return Descriptor{}, invalid(err)
	}
	var document schemamanifest.Package
	if err := json.Unmarshal(raw, &document); err != nil {
		return Descriptor{}, invalid(fmt.Errorf("parse manifest: %w", err))
	}
	descriptor := Descriptor{
		Name:        strings.TrimSpace(document.Name),
		Version:     strings.TrimSpace(document.Version),
		Scripts:     document.Scripts,
		ScriptTypes: document.ScriptTypes,
	}
	if err := descriptor.Validate(); err != nil {
		return Descriptor{}, invalid(err)
	}
	return descriptor, nil
}

// Load reads and parses the manifest at path. A missing file is reported as
// manifest_not_found; any other problem names the file in the error.
func Load(path string) (Descriptor, []byte, error) {
	// #nosec G304 -- manifest path is explicit local input.
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, nil, coreerrors.Wrap(
				fmt.Errorf("manifest not found: %s", path),
				coreerrors.CategoryNotFound,
				coreerrors.CodeManifestNotFound,
				"run install from a directory containing package.json",
				false,
			)
		}
		return Descriptor{}, nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	descriptor, err := Parse(raw)
	if err != nil {
		return Descriptor{}, nil, coreerrors.Wrap(
			fmt.Errorf("%s: %w", filepath.Base(path), err),
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeInvalidManifest,
			coreerrors.HintOf(err),
			false,
		)
	}
	return descriptor, raw, nil
}

// Validate enforces the rules the schema cannot express.
func (d Descriptor) Validate() error {
	if d.Name == "" || d.Version == "" {
		return fmt.Errorf("name and version are required")
	}
	if len(d.Scripts) == 0 || len(d.ScriptTypes) == 0 {
		return fmt.Errorf("scripts and script-types must not be empty")
	}
	if err := ValidatePackageName(d.Name); err != nil {
		return err
	}
	for _, script := range d.Scripts {
		if err := ValidateScriptName(script); err != nil {
			return err
		}
	}
	for _, value := range d.ScriptTypes {
		if _, err := interpreter.Parse(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePackageName rejects names that would escape the packages directory
// or break the comma-delimited index.
func ValidatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("package name is required")
	}
	if strings.ContainsAny(name, "/\\,\n\r") || name == "." || name == ".." {
		return fmt.Errorf("invalid package name %q", name)
	}
	return nil
}

// ValidateScriptName requires a plain file name.
func ValidateScriptName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("script name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\,\n\r") {
		return fmt.Errorf("invalid script name %q", name)
	}
	return nil
}

// TypeFor returns the interpreter for the script at index. By default every
// script uses the first declared type; positional pairing uses the type at
// the same index and falls back to the first when the list is shorter.
func (d Descriptor) TypeFor(index int, positional bool) interpreter.Type {
	if len(d.ScriptTypes) == 0 {
		return ""
	}
	if positional && index >= 0 && index < len(d.ScriptTypes) {
		return interpreter.Type(d.ScriptTypes[index])
	}
	return interpreter.Type(d.ScriptTypes[0])
}

// Lists reports whether script is one of the descriptor's scripts.
func (d Descriptor) Lists(script string) bool {
	for _, candidate := range d.Scripts {
		if candidate == script {
			return true
		}
	}
	return false
}

// FileName is the installed manifest file name for a package.
func FileName(packageName string) string {
	return filePrefix + packageName + fileSuffix
}

// NameFromFile recovers the package name from an installed manifest file name.
func NameFromFile(fileName string) (string, bool) {
	base := filepath.Base(fileName)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	return name, name != ""
}

// Digest is the canonical (RFC 8785) digest of raw manifest bytes.
func Digest(raw []byte) (string, error) {
	return hashstore.ManifestDigest(raw)
}

func invalid(err error) error {
	return coreerrors.Wrap(
		err,
		coreerrors.CategoryInvalidInput,
		coreerrors.CodeInvalidManifest,
		"package.json needs non-empty name, version, scripts and script-types (Python, Shell, Bash, Fish, Zsh)",
		false,
	)
}
