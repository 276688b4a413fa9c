// Package layout names every path under the ds root and bootstraps the tree.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/fsx"
)

const (
	// DirName is the directory created under the root.
	DirName = ".scripts"
	// BackupDirName is the sibling directory used by repair backups.
	BackupDirName = ".scripts.bak"
	dirMode       = 0o750
)

// Layout is the resolved on-disk tree for one root.
type Layout struct {
	Root string
}

// New resolves the tree below root, which is usually the home directory.
func New(root string) (Layout, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return Layout{}, fmt.Errorf("ds root is required")
	}
	absolute, err := filepath.Abs(trimmed)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve ds root: %w", err)
	}
	return Layout{Root: absolute}, nil
}

func (l Layout) Home() string        { return filepath.Join(l.Root, DirName) }
func (l Layout) BackupHome() string  { return filepath.Join(l.Root, BackupDirName) }
func (l Layout) ScriptsDir() string  { return filepath.Join(l.Home(), "scripts") }
func (l Layout) ConfigDir() string   { return filepath.Join(l.Home(), "config") }
func (l Layout) LogsDir() string     { return filepath.Join(l.Home(), "logs") }
func (l Layout) EtcDir() string      { return filepath.Join(l.Home(), "etc") }
func (l Layout) BinDir() string      { return filepath.Join(l.Home(), "bin") }
func (l Layout) IndexPath() string   { return filepath.Join(l.EtcDir(), "scripts") }
func (l Layout) PackagesDir() string { return filepath.Join(l.EtcDir(), "packages") }
func (l Layout) InitTimePath() string { return filepath.Join(l.EtcDir(), "init_time") }
func (l Layout) LockPath() string     { return filepath.Join(l.EtcDir(), ".ds.lock") }
func (l Layout) ConfigPath() string   { return filepath.Join(l.ConfigDir(), "ds.yaml") }

// ScriptPath is where an installed script named name lives.
func (l Layout) ScriptPath(name string) string {
	return filepath.Join(l.ScriptsDir(), name)
}

// PackagePath joins an installed manifest file name onto the packages dir.
func (l Layout) PackagePath(fileName string) string {
	return filepath.Join(l.PackagesDir(), fileName)
}

// Directories lists every directory Bootstrap creates, parents first.
func (l Layout) Directories() []string {
	return []string{
		l.Home(),
		l.ScriptsDir(),
		l.ConfigDir(),
		l.LogsDir(),
		l.EtcDir(),
		l.PackagesDir(),
		l.BinDir(),
	}
}

// Initialized reports whether init has completed for this root.
func (l Layout) Initialized() bool {
	return fsx.IsDir(l.Home()) && fsx.Exists(l.InitTimePath())
}

// Bootstrap creates the tree and records the initialization time.
func (l Layout) Bootstrap(now time.Time) error {
	for _, dir := range l.Directories() {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	stamp := strconv.FormatInt(now.UTC().Unix(), 10) + "\n"
	if err := fsx.WriteFileAtomic(l.InitTimePath(), []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("write init time: %w", err)
	}
	return nil
}

// InitTime reads the recorded initialization time.
func (l Layout) InitTime() (time.Time, error) {
	// #nosec G304 -- path is derived from the ds root.
	raw, err := os.ReadFile(l.InitTimePath())
	if err != nil {
		return time.Time{}, fmt.Errorf("read init time: %w", err)
	}
	seconds, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse init time: %w", err)
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// WithLock runs fn while holding the advisory layout lock.
func (l Layout) WithLock(fn func() error) error {
	if err := os.MkdirAll(l.EtcDir(), dirMode); err != nil {
		return fmt.Errorf("mkdir etc dir: %w", err)
	}
	err := fsx.WithLock(l.LockPath(), fn)
	if errors.Is(err, fsx.ErrLockTimeout) {
		return coreerrors.Wrap(
			err,
			coreerrors.CategoryStateContention,
			coreerrors.CodeStateContention,
			"another ds command is modifying the tree; retry when it finishes",
			true,
		)
	}
	return err
}
