package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/layout"
	"github.com/davidahmann/dotscript/core/manifest"
	"github.com/davidahmann/dotscript/core/registry"
	"github.com/davidahmann/dotscript/core/shim"
	"github.com/kballard/go-shellquote"
)

const (
	statusPass = "pass"
	statusWarn = "warn"
	statusFail = "fail"
)

type Options struct {
	Layout          layout.Layout
	ProducerVersion string
	Now             time.Time
}

type Result struct {
	CreatedAt       string   `json:"created_at"`
	ProducerVersion string   `json:"producer_version"`
	Root            string   `json:"root"`
	Status          string   `json:"status"`
	NonFixable      bool     `json:"non_fixable"`
	Summary         string   `json:"summary"`
	FixCommands     []string `json:"fix_commands"`
	Checks          []Check  `json:"checks"`
}

type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	FixCommand string `json:"fix_command,omitempty"`
	NonFixable bool   `json:"non_fixable,omitempty"`
}

// state is what the checks share so the index and manifests are read once.
type state struct {
	tree       layout.Layout
	entries    []registry.Entry
	indexErr   error
	installed  []manifest.Installation
	invalid    []string
	listed     map[string]struct{}
	manifestOK bool
}

func Run(opts Options) Result {
	producerVersion := strings.TrimSpace(opts.ProducerVersion)
	if producerVersion == "" {
		producerVersion = "0.0.0-dev"
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	tree := opts.Layout
	checks := []Check{checkLayout(tree)}
	if checks[0].Status != statusFail {
		current := load(tree)
		checks = append(checks,
			checkManifests(current),
			checkRegistry(current),
			checkIntegrity(current),
			checkUnindexedScripts(current),
			checkOrphanScripts(current),
			checkShims(current),
		)
	}

	failed := 0
	warned := 0
	nonFixable := false
	fixCommands := make([]string, 0, len(checks))
	seenFixes := map[string]struct{}{}
	for _, check := range checks {
		switch check.Status {
		case statusFail:
			failed++
		case statusWarn:
			warned++
		}
		if check.NonFixable {
			nonFixable = true
		}
		if check.FixCommand != "" {
			if _, ok := seenFixes[check.FixCommand]; !ok {
				seenFixes[check.FixCommand] = struct{}{}
				fixCommands = append(fixCommands, check.FixCommand)
			}
		}
	}

	status := statusPass
	if failed > 0 {
		status = statusFail
	} else if warned > 0 {
		status = statusWarn
	}

	sort.Strings(fixCommands)
	summary := fmt.Sprintf("doctor: status=%s failed=%d warned=%d non_fixable=%t", status, failed, warned, nonFixable)

	return Result{
		CreatedAt:       now.UTC().Format(time.RFC3339Nano),
		ProducerVersion: producerVersion,
		Root:            tree.Home(),
		Status:          status,
		NonFixable:      nonFixable,
		Summary:         summary,
		FixCommands:     fixCommands,
		Checks:          checks,
	}
}

func load(tree layout.Layout) state {
	current := state{tree: tree, listed: map[string]struct{}{}, manifestOK: true}
	current.entries, current.indexErr = registry.Load(tree.IndexPath())
	paths, err := manifest.Discover(tree.PackagesDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		current.manifestOK = false
		return current
	}
	for _, path := range paths {
		descriptor, _, err := manifest.Load(path)
		if err != nil {
			current.invalid = append(current.invalid, path)
			continue
		}
		current.installed = append(current.installed, manifest.Installation{Path: path, Descriptor: descriptor})
		for _, script := range descriptor.Scripts {
			current.listed[script] = struct{}{}
		}
	}
	return current
}

func checkLayout(tree layout.Layout) Check {
	if info, err := os.Stat(tree.Home()); err != nil || !info.IsDir() {
		return Check{
			Name:       "layout",
			Status:     statusFail,
			Message:    fmt.Sprintf("ds is not initialized at %s", tree.Home()),
			FixCommand: "ds init",
		}
	}
	missing := make([]string, 0)
	for _, dir := range tree.Directories() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return Check{
			Name:       "layout",
			Status:     statusFail,
			Message:    fmt.Sprintf("missing directories: %s", strings.Join(missing, ",")),
			FixCommand: shellquote.Join(append([]string{"mkdir", "-p"}, missing...)...),
		}
	}
	if !tree.Initialized() {
		return Check{
			Name:       "layout",
			Status:     statusWarn,
			Message:    "init_time is missing",
			FixCommand: "ds init",
		}
	}
	return Check{
		Name:    "layout",
		Status:  statusPass,
		Message: "directory tree is complete",
	}
}

func checkManifests(current state) Check {
	if !current.manifestOK {
		return Check{
			Name:       "manifests",
			Status:     statusFail,
			Message:    "package manifests could not be listed",
			NonFixable: true,
		}
	}
	if len(current.invalid) > 0 {
		return Check{
			Name:       "manifests",
			Status:     statusFail,
			Message:    fmt.Sprintf("invalid package manifests: %s", strings.Join(current.invalid, ",")),
			FixCommand: shellquote.Join(append([]string{"rm"}, current.invalid...)...),
		}
	}
	return Check{
		Name:    "manifests",
		Status:  statusPass,
		Message: fmt.Sprintf("%d package manifests are valid", len(current.installed)),
	}
}

func checkRegistry(current state) Check {
	if current.indexErr != nil {
		status := statusFail
		if coreerrors.HasCode(current.indexErr, coreerrors.CodeRegistryMissing) {
			status = statusWarn
		}
		return Check{
			Name:       "registry",
			Status:     status,
			Message:    current.indexErr.Error(),
			FixCommand: "ds compile",
		}
	}
	if duplicates := registry.Duplicates(current.entries); len(duplicates) > 0 {
		return Check{
			Name:       "registry",
			Status:     statusWarn,
			Message:    fmt.Sprintf("script names indexed more than once (first wins): %s", strings.Join(duplicates, ",")),
			NonFixable: true,
		}
	}
	return Check{
		Name:    "registry",
		Status:  statusPass,
		Message: fmt.Sprintf("%d scripts indexed", len(current.entries)),
	}
}

func checkIntegrity(current state) Check {
	if current.indexErr != nil {
		return Check{
			Name:    "integrity",
			Status:  statusWarn,
			Message: "skipped: script index unavailable",
		}
	}
	mismatches, err := registry.CheckHashes(current.tree.IndexPath())
	if err != nil {
		return Check{
			Name:    "integrity",
			Status:  statusFail,
			Message: fmt.Sprintf("hash check failed: %v", err),
		}
	}
	if len(mismatches) > 0 {
		parts := make([]string, 0, len(mismatches))
		for _, mismatch := range mismatches {
			parts = append(parts, mismatch.ScriptName+"="+mismatch.Reason)
		}
		return Check{
			Name:       "integrity",
			Status:     statusWarn,
			Message:    fmt.Sprintf("scripts do not match their digests: %s", strings.Join(parts, ",")),
			FixCommand: "ds hash rehash",
		}
	}
	return Check{
		Name:    "integrity",
		Status:  statusPass,
		Message: "every indexed script matches its digest",
	}
}

func checkUnindexedScripts(current state) Check {
	if current.indexErr != nil {
		return Check{
			Name:    "unindexed_scripts",
			Status:  statusWarn,
			Message: "skipped: script index unavailable",
		}
	}
	indexed := registry.Names(current.entries)
	unindexed := make([]string, 0)
	for script := range current.listed {
		if _, ok := indexed[script]; !ok {
			unindexed = append(unindexed, script)
		}
	}
	sort.Strings(unindexed)
	if len(unindexed) > 0 {
		return Check{
			Name:       "unindexed_scripts",
			Status:     statusWarn,
			Message:    fmt.Sprintf("installed scripts missing from the index: %s", strings.Join(unindexed, ",")),
			FixCommand: "ds compile",
		}
	}
	return Check{
		Name:    "unindexed_scripts",
		Status:  statusPass,
		Message: "every installed script is indexed",
	}
}

func checkOrphanScripts(current state) Check {
	dirEntries, err := os.ReadDir(current.tree.ScriptsDir())
	if err != nil {
		return Check{
			Name:    "orphan_scripts",
			Status:  statusFail,
			Message: fmt.Sprintf("scripts directory not readable: %v", err),
		}
	}
	orphans := make([]string, 0)
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		if _, ok := current.listed[entry.Name()]; !ok {
			orphans = append(orphans, current.tree.ScriptPath(entry.Name()))
		}
	}
	if len(orphans) > 0 {
		return Check{
			Name:       "orphan_scripts",
			Status:     statusWarn,
			Message:    fmt.Sprintf("scripts not owned by any package: %s", strings.Join(orphans, ",")),
			FixCommand: shellquote.Join(append([]string{"rm"}, orphans...)...),
		}
	}
	return Check{
		Name:    "orphan_scripts",
		Status:  statusPass,
		Message: "every script belongs to a package",
	}
}

func checkShims(current state) Check {
	missing := make([]string, 0)
	if _, err := os.Stat(filepath.Join(current.tree.BinDir(), shim.EntryPointName)); err != nil {
		missing = append(missing, shim.EntryPointName)
	}
	if current.indexErr == nil {
		for _, entry := range current.entries {
			name := shim.NameFor(entry.ScriptName)
			if _, err := os.Stat(filepath.Join(current.tree.BinDir(), name)); err != nil {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		return Check{
			Name:       "shims",
			Status:     statusWarn,
			Message:    fmt.Sprintf("missing shims in bin: %s", strings.Join(missing, ",")),
			FixCommand: "ds compile",
		}
	}
	return Check{
		Name:    "shims",
		Status:  statusPass,
		Message: "bin holds a shim for every indexed script",
	}
}
