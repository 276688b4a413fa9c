package manifest

import _ "embed"

// PackageSchema is the JSON schema every package.json must satisfy.
//
//go:embed package.schema.json
var PackageSchema []byte

// Package is the on-disk shape of a package manifest.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Scripts     []string `json:"scripts"`
	ScriptTypes []string `json:"script-types"`
}
