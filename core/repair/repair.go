// Package repair implements the destructive maintenance actions offered by
// `ds init` and `ds repair`.
package repair

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/shim"
)

type BackupResult struct {
	Path  string `json:"path"`
	Files int    `json:"files"`
}

// Backup copies the ds tree to its sibling .scripts.bak. An existing backup
// is never overwritten. Lock files are skipped.
func Backup(tree layout.Layout) (BackupResult, error) {
	source := tree.Home()
	destination := tree.BackupHome()
	if !fsx.IsDir(source) {
		return BackupResult{}, notInitialized(tree)
	}
	if fsx.Exists(destination) {
		return BackupResult{}, coreerrors.New(
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeInvalidInput,
			fmt.Sprintf("remove %s before creating a new backup", destination),
			"a backup already exists at %s", destination,
		)
	}

	var (
		mu    sync.Mutex
		files int
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, source, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, relative)
		switch {
		case entry.IsDir():
			return os.MkdirAll(target, 0o750)
		case entry.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			return os.Symlink(link, target)
		case entry.Type().IsRegular():
			if strings.HasSuffix(entry.Name(), ".lock") {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			if err := fsx.CopyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
			mu.Lock()
			files++
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return BackupResult{}, fmt.Errorf("backup %s: %w", source, err)
	}
	return BackupResult{Path: destination, Files: files}, nil
}

// Reset removes the whole tree and bootstraps it again.
func Reset(tree layout.Layout, now time.Time) error {
	if err := os.RemoveAll(tree.Home()); err != nil {
		return fmt.Errorf("remove %s: %w", tree.Home(), err)
	}
	return tree.Bootstrap(now)
}

// ResetConfig empties the config directory.
func ResetConfig(tree layout.Layout) error {
	if err := os.RemoveAll(tree.ConfigDir()); err != nil {
		return fmt.Errorf("remove config dir: %w", err)
	}
	if err := os.MkdirAll(tree.ConfigDir(), 0o750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	return nil
}

// RebuildBin empties the bin directory and writes the entry point shim.
// Script shims come back with the next compile.
func RebuildBin(tree layout.Layout, runner []string) error {
	if err := shim.ClearDir(tree.BinDir()); err != nil {
		return err
	}
	_, err := shim.WriteEntryPoint(tree.BinDir(), runner)
	return err
}

func notInitialized(tree layout.Layout) error {
	return coreerrors.Wrap(
		fmt.Errorf("ds is not initialized at %s", tree.Home()),
		coreerrors.CategoryNotFound,
		coreerrors.CodeNotInitialized,
		"run `ds init`",
		false,
	)
}
