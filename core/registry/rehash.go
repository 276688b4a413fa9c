package registry

import (
	"errors"
	"fmt"
	"os"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/hashstore"
)

const (
	ReasonModified = "modified"
	ReasonMissing  = "missing"
)

// Mismatch describes an entry whose file no longer matches its digest.
type Mismatch struct {
	ScriptName     string `json:"script_name"`
	ResolvedPath   string `json:"resolved_path"`
	ExpectedDigest string `json:"expected_digest"`
	ActualDigest   string `json:"actual_digest,omitempty"`
	Reason         string `json:"reason"`
}

type RehashResult struct {
	Entries []Entry  `json:"entries"`
	Changed []string `json:"changed"`
}

// Rehash recomputes every digest and writes the index once. A missing
// script aborts before anything is written.
func Rehash(path string) (RehashResult, error) {
	entries, err := Load(path)
	if err != nil {
		return RehashResult{}, err
	}
	updated := make([]Entry, len(entries))
	changed := make([]string, 0)
	for index, entry := range entries {
		digest, err := hashstore.DigestFile(entry.ResolvedPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return RehashResult{}, coreerrors.Wrap(
					fmt.Errorf("script %s is missing: %s", entry.ScriptName, entry.ResolvedPath),
					coreerrors.CategoryNotFound,
					coreerrors.CodeScriptFileMissing,
					"reinstall the owning package or run `ds compile`",
					false,
				)
			}
			return RehashResult{}, err
		}
		if digest != entry.Digest {
			changed = append(changed, entry.ScriptName)
		}
		entry.Digest = digest
		updated[index] = entry
	}
	if err := Save(path, updated); err != nil {
		return RehashResult{}, err
	}
	return RehashResult{Entries: updated, Changed: changed}, nil
}

// CheckHashes reports every entry that is no longer trusted. It never writes.
func CheckHashes(path string) ([]Mismatch, error) {
	entries, err := Load(path)
	if err != nil {
		return nil, err
	}
	return CheckEntries(entries)
}

// CheckEntries checks already loaded entries against the files they point at.
func CheckEntries(entries []Entry) ([]Mismatch, error) {
	mismatches := make([]Mismatch, 0)
	for _, entry := range entries {
		mismatch, ok, err := checkEntry(entry)
		if err != nil {
			return nil, err
		}
		if !ok {
			mismatches = append(mismatches, mismatch)
		}
	}
	return mismatches, nil
}

// CheckScript checks the first entry named name. ok is true when the entry
// is trusted.
func CheckScript(path string, name string) (Mismatch, bool, error) {
	entries, err := Load(path)
	if err != nil {
		return Mismatch{}, false, err
	}
	entry, found := FindByName(entries, name)
	if !found {
		return Mismatch{}, false, NotIndexed(name)
	}
	return checkEntry(entry)
}

func checkEntry(entry Entry) (Mismatch, bool, error) {
	mismatch := Mismatch{
		ScriptName:     entry.ScriptName,
		ResolvedPath:   entry.ResolvedPath,
		ExpectedDigest: entry.Digest,
	}
	ok, actual, err := hashstore.VerifyFile(entry.ResolvedPath, entry.Digest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			mismatch.Reason = ReasonMissing
			return mismatch, false, nil
		}
		return Mismatch{}, false, err
	}
	if ok {
		return Mismatch{}, true, nil
	}
	mismatch.ActualDigest = actual
	mismatch.Reason = ReasonModified
	return mismatch, false, nil
}

// NotIndexed is the error returned when a script has no index entry.
func NotIndexed(name string) error {
	return coreerrors.Wrap(
		fmt.Errorf("script %s is not in the index", name),
		coreerrors.CategoryNotFound,
		coreerrors.CodeScriptNotIndexed,
		"recompile the script index with `ds compile`",
		false,
	)
}

