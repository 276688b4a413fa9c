package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern matches installed manifests inside the packages directory.
const Pattern = "*.json"

// Discover returns the absolute paths of installed manifests in lexical
// order of file name. A missing directory is returned as os.ErrNotExist.
func Discover(packagesDir string) ([]string, error) {
	info, err := os.Stat(packagesDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", packagesDir)
	}
	matches, err := doublestar.Glob(os.DirFS(packagesDir), Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob manifests: %w", err)
	}
	sort.Strings(matches)
	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, filepath.Join(packagesDir, filepath.FromSlash(match)))
	}
	return paths, nil
}

// Installed loads every installed manifest keyed by file path. The first
// invalid manifest stops the scan.
func Installed(packagesDir string) ([]Installation, error) {
	paths, err := Discover(packagesDir)
	if err != nil {
		return nil, err
	}
	installed := make([]Installation, 0, len(paths))
	for _, path := range paths {
		descriptor, _, err := Load(path)
		if err != nil {
			return nil, err
		}
		installed = append(installed, Installation{Path: path, Descriptor: descriptor})
	}
	return installed, nil
}

// Installation pairs an installed manifest with its location.
type Installation struct {
	Path       string
	Descriptor Descriptor
}
