// Package installer copies packages into the ds tree and removes them again.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidahmann/dotscript/core/compiler"
	"github.com/davidahmann/dotscript/core/consent"
	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/logging"
	"github.com/davidahmann/dotscript/core/manifest"
	"go.uber.org/zap"
)

// CurrentDirectory is the only supported install source.
const CurrentDirectory = "."

type InstallOptions struct {
	Source string
	// WorkDir is the directory "." refers to; empty means the process cwd.
	WorkDir     string
	Layout      layout.Layout
	Confirmer   consent.Confirmer
	SkipCompile bool
	Compile     compiler.Options
	Logger      *zap.Logger
}

type InstallResult struct {
	Package        manifest.Descriptor `json:"package"`
	ManifestPath   string              `json:"manifest_path"`
	ManifestDigest string              `json:"manifest_digest"`
	Scripts        []string            `json:"scripts"`
	Compiled       *compiler.Result    `json:"compiled,omitempty"`
}

type UninstallOptions struct {
	PackageName string
	Layout      layout.Layout
	Confirmer   consent.Confirmer
	SkipCompile bool
	Compile     compiler.Options
	Logger      *zap.Logger
}

type UninstallResult struct {
	Package  manifest.Descriptor `json:"package"`
	Removed  []string            `json:"removed"`
	Retained []string            `json:"retained,omitempty"`
	Compiled *compiler.Result    `json:"compiled,omitempty"`
}

func Install(ctx context.Context, opts InstallOptions) (InstallResult, error) {
	logger := logging.OrNop(opts.Logger)
	if strings.TrimSpace(opts.Source) != CurrentDirectory {
		return InstallResult{}, coreerrors.New(
			coreerrors.CategoryInvalidInput,
			coreerrors.CodeInvalidInput,
			"cd into the package directory and run `ds install .`",
			"only the current directory can be installed, got %q", opts.Source,
		)
	}
	workDir, err := resolveWorkDir(opts.WorkDir)
	if err != nil {
		return InstallResult{}, err
	}

	sourceManifest := filepath.Join(workDir, manifest.SourceFile)
	if !fsx.Exists(sourceManifest) {
		return InstallResult{}, coreerrors.Wrap(
			fmt.Errorf("no %s in %s", manifest.SourceFile, workDir),
			coreerrors.CategoryNotFound,
			coreerrors.CodeManifestNotFound,
			"run install from a directory containing package.json",
			false,
		)
	}
	sourceScripts := filepath.Join(workDir, "scripts")
	if !fsx.IsDir(sourceScripts) {
		return InstallResult{}, coreerrors.Wrap(
			fmt.Errorf("no scripts directory in %s", workDir),
			coreerrors.CategoryNotFound,
			coreerrors.CodeScriptDirNotFound,
			"put the package's scripts in a scripts/ directory next to package.json",
			false,
		)
	}
	descriptor, raw, err := manifest.Load(sourceManifest)
	if err != nil {
		return InstallResult{}, err
	}
	for _, script := range descriptor.Scripts {
		if !fsx.Exists(filepath.Join(sourceScripts, script)) {
			return InstallResult{}, coreerrors.Wrap(
				fmt.Errorf("script %s listed in %s is missing from scripts/", script, manifest.SourceFile),
				coreerrors.CategoryNotFound,
				coreerrors.CodeScriptFileMissing,
				"add the script or remove it from package.json",
				false,
			)
		}
	}
	digest, err := manifest.Digest(raw)
	if err != nil {
		return InstallResult{}, err
	}

	question := fmt.Sprintf("Install package %s v%s (scripts: %s)?", descriptor.Name, descriptor.Version, strings.Join(descriptor.Scripts, ", "))
	approved, err := confirm(opts.Confirmer, question)
	if err != nil {
		return InstallResult{}, err
	}
	if !approved {
		logger.Warn("installation aborted", zap.String("package", descriptor.Name))
		return InstallResult{}, declined("installation of %s declined", descriptor.Name)
	}

	tree := opts.Layout
	result := InstallResult{
		Package:        descriptor,
		ManifestPath:   tree.PackagePath(manifest.FileName(descriptor.Name)),
		ManifestDigest: digest,
		Scripts:        make([]string, 0, len(descriptor.Scripts)),
	}
	err = tree.WithLock(func() error {
		logger.Info("installing package", zap.String("package", descriptor.Name), zap.String("version", descriptor.Version))
		if err := os.MkdirAll(tree.PackagesDir(), 0o750); err != nil {
			return fmt.Errorf("mkdir packages dir: %w", err)
		}
		if err := fsx.WriteFileAtomic(result.ManifestPath, raw, 0o600); err != nil {
			return fmt.Errorf("copy manifest: %w", err)
		}
		if err := os.MkdirAll(tree.ScriptsDir(), 0o750); err != nil {
			return fmt.Errorf("mkdir scripts dir: %w", err)
		}
		for _, script := range descriptor.Scripts {
			destination := tree.ScriptPath(script)
			logger.Debug("copying script", zap.String("script", script))
			if err := fsx.CopyFile(filepath.Join(sourceScripts, script), destination, 0o600); err != nil {
				return fmt.Errorf("copy script %s: %w", script, err)
			}
			result.Scripts = append(result.Scripts, destination)
		}
		return nil
	})
	if err != nil {
		return InstallResult{}, err
	}
	logger.Info("package installed", zap.String("package", descriptor.Name))

	compiled, err := maybeCompile(ctx, opts.SkipCompile, opts.Confirmer, opts.Compile, tree, logger)
	if err != nil {
		return result, err
	}
	result.Compiled = compiled
	return result, nil
}

func Uninstall(ctx context.Context, opts UninstallOptions) (UninstallResult, error) {
	logger := logging.OrNop(opts.Logger)
	name := strings.TrimSpace(opts.PackageName)
	if err := manifest.ValidatePackageName(name); err != nil {
		return UninstallResult{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, coreerrors.CodeInvalidInput, "usage: ds uninstall <package-name>", false)
	}
	tree := opts.Layout
	manifestPath := tree.PackagePath(manifest.FileName(name))
	if !fsx.Exists(manifestPath) {
		return UninstallResult{}, coreerrors.Wrap(
			fmt.Errorf("package %s is not installed", name),
			coreerrors.CategoryNotFound,
			coreerrors.CodePackageNotFound,
			"list installed packages in "+tree.PackagesDir(),
			false,
		)
	}

	var result UninstallResult
	err := tree.WithLock(func() error {
		descriptor, _, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		result.Package = descriptor
		result.Removed = make([]string, 0, len(descriptor.Scripts))
		shared := scriptsListedElsewhere(tree, manifestPath, logger)
		remove := make([]string, 0, len(descriptor.Scripts))
		for _, script := range descriptor.Scripts {
			if _, ok := shared[script]; ok {
				result.Retained = append(result.Retained, script)
				continue
			}
			if !fsx.Exists(tree.ScriptPath(script)) {
				return coreerrors.Wrap(
					fmt.Errorf("script %s of package %s is already missing", script, name),
					coreerrors.CategoryNotFound,
					coreerrors.CodeScriptFileMissing,
					"reinstall the package before uninstalling it",
					false,
				)
			}
			remove = append(remove, script)
		}
		logger.Info("uninstalling package", zap.String("package", descriptor.Name), zap.String("version", descriptor.Version))
		for _, script := range remove {
			if err := os.Remove(tree.ScriptPath(script)); err != nil {
				return fmt.Errorf("remove script %s: %w", script, err)
			}
			result.Removed = append(result.Removed, script)
		}
		for _, script := range result.Retained {
			logger.Warn("script kept; another package lists it", zap.String("script", script))
		}
		if err := os.Remove(manifestPath); err != nil {
			return fmt.Errorf("remove manifest: %w", err)
		}
		return nil
	})
	if err != nil {
		return UninstallResult{}, err
	}
	logger.Info("package uninstalled", zap.String("package", name))

	compiled, err := maybeCompile(ctx, opts.SkipCompile, opts.Confirmer, opts.Compile, tree, logger)
	if err != nil {
		return result, err
	}
	result.Compiled = compiled
	return result, nil
}

// scriptsListedElsewhere collects scripts named by installed manifests other
// than skip. Unreadable manifests are logged and ignored.
func scriptsListedElsewhere(tree layout.Layout, skip string, logger *zap.Logger) map[string]struct{} {
	listed := map[string]struct{}{}
	paths, err := manifest.Discover(tree.PackagesDir())
	if err != nil {
		return listed
	}
	for _, path := range paths {
		if path == skip {
			continue
		}
		descriptor, _, err := manifest.Load(path)
		if err != nil {
			logger.Warn("skipping unreadable manifest", zap.String("manifest", filepath.Base(path)), zap.Error(err))
			continue
		}
		for _, script := range descriptor.Scripts {
			listed[script] = struct{}{}
		}
	}
	return listed
}

func maybeCompile(ctx context.Context, skip bool, confirmer consent.Confirmer, opts compiler.Options, tree layout.Layout, logger *zap.Logger) (*compiler.Result, error) {
	if skip {
		return nil, nil
	}
	approved, err := confirm(confirmer, "Recompile the script index now?")
	if err != nil {
		return nil, err
	}
	if !approved {
		logger.Info("skipped recompilation; run `ds compile` to refresh the index")
		return nil, nil
	}
	opts.Layout = tree
	if opts.Logger == nil {
		opts.Logger = logger
	}
	compiled, err := compiler.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &compiled, nil
}

func confirm(confirmer consent.Confirmer, question string) (bool, error) {
	if confirmer == nil {
		return false, nil
	}
	return confirmer.Confirm(question, false)
}

func declined(format string, args ...any) error {
	return coreerrors.New(coreerrors.CategoryApprovalRequired, coreerrors.CodeDeclined, "rerun and answer yes, or pass --yes", format, args...)
}

func resolveWorkDir(workDir string) (string, error) {
	if strings.TrimSpace(workDir) != "" {
		return filepath.Abs(workDir)
	}
	current, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return current, nil
}
