// Package compiler rebuilds the script index and the bin directory from the
// installed package manifests.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/hashstore"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/logging"
	"github.com/davidahmann/dotscript/core/manifest"
	"github.com/davidahmann/dotscript/core/registry"
	"github.com/davidahmann/dotscript/core/shim"
	"go.uber.org/zap"
)

type Options struct {
	Layout layout.Layout
	// Runner is the command shims exec, normally the absolute path of ds.
	Runner                []string
	PositionalScriptTypes bool
	Logger                *zap.Logger
}

type Result struct {
	IndexPath  string           `json:"index_path"`
	Packages   []string         `json:"packages"`
	Entries    []registry.Entry `json:"entries"`
	Shims      []string         `json:"shims"`
	Duplicates []string         `json:"duplicates,omitempty"`

	// ShimCollisions lists scripts left without a shim because the shim name
	// was taken by an earlier script or by the entry point.
	ShimCollisions []string `json:"shim_collisions,omitempty"`
}

// Compile takes the layout lock and performs a full rebuild.
func Compile(ctx context.Context, opts Options) (Result, error) {
	var result Result
	err := opts.Layout.WithLock(func() error {
		var compileErr error
		result, compileErr = compile(ctx, opts)
		return compileErr
	})
	return result, err
}

func compile(ctx context.Context, opts Options) (Result, error) {
	logger := logging.OrNop(opts.Logger)
	tree := opts.Layout
	if len(opts.Runner) == 0 {
		return Result{}, fmt.Errorf("runner command is required")
	}

	if err := shim.ClearDir(tree.BinDir()); err != nil {
		return Result{}, err
	}
	if err := os.Remove(tree.IndexPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("remove script index: %w", err)
	}

	manifests, err := manifest.Discover(tree.PackagesDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, coreerrors.Wrap(
				fmt.Errorf("package directory not found: %s", tree.PackagesDir()),
				coreerrors.CategoryNotFound,
				coreerrors.CodeNoPackagesFound,
				"install a package with `ds install .`",
				false,
			)
		}
		return Result{}, err
	}

	result := Result{
		IndexPath: tree.IndexPath(),
		Packages:  make([]string, 0, len(manifests)),
		Entries:   make([]registry.Entry, 0),
		Shims:     make([]string, 0),
	}
	shimOwners := map[string]string{shim.EntryPointName: ""}
	for _, manifestPath := range manifests {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		descriptor, _, err := manifest.Load(manifestPath)
		if err != nil {
			return Result{}, err
		}
		logger.Debug("compiling package", zap.String("package", descriptor.Name), zap.String("manifest", filepath.Base(manifestPath)))
		for index, script := range descriptor.Scripts {
			scriptPath := tree.ScriptPath(script)
			digest, err := hashstore.DigestFile(scriptPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return Result{}, coreerrors.Wrap(
						fmt.Errorf("script %s of package %s is missing: %s", script, descriptor.Name, scriptPath),
						coreerrors.CategoryNotFound,
						coreerrors.CodeScriptFileMissing,
						fmt.Sprintf("reinstall package %s", descriptor.Name),
						false,
					)
				}
				return Result{}, err
			}
			if _, exists := registry.FindByName(result.Entries, script); exists {
				logger.Warn("script indexed by more than one package; first entry wins", zap.String("script", script), zap.String("package", descriptor.Name))
			}
			result.Entries = append(result.Entries, registry.Entry{
				ScriptName:   script,
				ResolvedPath: scriptPath,
				Digest:       digest,
				Interpreter:  descriptor.TypeFor(index, opts.PositionalScriptTypes),
			})
			shimName := shim.NameFor(script)
			owner, taken := shimOwners[shimName]
			if taken {
				if owner != script {
					logger.Warn("shim name already taken; script is only reachable through ds run",
						zap.String("script", script),
						zap.String("shim", shimName),
						zap.String("owner", owner),
						zap.String("package", descriptor.Name),
					)
					result.ShimCollisions = append(result.ShimCollisions, script)
				}
				continue
			}
			shimOwners[shimName] = script
			shimPath, err := shim.WriteScript(tree.BinDir(), opts.Runner, script)
			if err != nil {
				return Result{}, err
			}
			result.Shims = append(result.Shims, shimPath)
		}
		result.Packages = append(result.Packages, descriptor.Name)
	}

	if err := registry.Save(tree.IndexPath(), result.Entries); err != nil {
		return Result{}, err
	}
	if _, err := shim.WriteEntryPoint(tree.BinDir(), opts.Runner); err != nil {
		return Result{}, err
	}
	result.Duplicates = registry.Duplicates(result.Entries)
	logger.Info("compiled script index", zap.Int("packages", len(result.Packages)), zap.Int("scripts", len(result.Entries)))
	return result, nil
}
