// Package registry persists the script index: one line per installed script
// recording its name, absolute path, content digest and interpreter type.
package registry

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/davidahmann/dotscript/core/errors"
	"github.com/davidahmann/dotscript/core/fsx"
	"github.com/davidahmann/dotscript/core/interpreter"
)

const (
	fieldSeparator = ","
	fieldCount     = 4
	fileMode       = 0o600
)

// Entry is one indexed script. Interpreter keeps whatever text the index
// held so an unknown type can be reported at run time.
type Entry struct {
	ScriptName   string           `json:"script_name"`
	ResolvedPath string           `json:"resolved_path"`
	Digest       string           `json:"digest"`
	Interpreter  interpreter.Type `json:"interpreter"`
}

// Line renders the entry in index form without the trailing newline.
func (e Entry) Line() string {
	return strings.Join([]string{e.ScriptName, e.ResolvedPath, e.Digest, string(e.Interpreter)}, fieldSeparator)
}

func (e Entry) validate() error {
	fields := map[string]string{
		"script name":   e.ScriptName,
		"resolved path": e.ResolvedPath,
		"digest":        e.Digest,
		"interpreter":   string(e.Interpreter),
	}
	for _, label := range []string{"script name", "resolved path", "digest", "interpreter"} {
		value := fields[label]
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", label)
		}
		if strings.ContainsAny(value, ",\n\r") {
			return fmt.Errorf("%s %q contains a comma or newline", label, value)
		}
	}
	return nil
}

// ParseLine parses a single index line.
func ParseLine(line string) (Entry, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), fieldSeparator)
	if len(fields) != fieldCount {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}
	for index, field := range fields {
		if field == "" {
			return Entry{}, fmt.Errorf("field %d is empty", index+1)
		}
	}
	return Entry{
		ScriptName:   fields[0],
		ResolvedPath: fields[1],
		Digest:       fields[2],
		Interpreter:  interpreter.Type(fields[3]),
	}, nil
}

// Load reads the index at path. Blank lines and a missing trailing newline
// are tolerated.
func Load(path string) ([]Entry, error) {
	// #nosec G304 -- index path is derived from the ds root.
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerrors.Wrap(
				fmt.Errorf("script index not found: %s", path),
				coreerrors.CategoryNotFound,
				coreerrors.CodeRegistryMissing,
				"build the script index with `ds compile`",
				false,
			)
		}
		return nil, fmt.Errorf("read script index: %w", err)
	}
	entries := make([]Entry, 0)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseLine(line)
		if err != nil {
			return nil, coreerrors.Wrap(
				fmt.Errorf("%s line %d: %w", filepath.Base(path), lineNumber, err),
				coreerrors.CategoryVerification,
				coreerrors.CodeRegistryCorrupt,
				"rebuild the script index with `ds compile`",
				false,
			)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan script index: %w", err)
	}
	return entries, nil
}

// Save replaces the whole index with entries through a temp file and rename,
// so readers see either the old or the new index.
func Save(path string, entries []Entry) error {
	content, err := Encode(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir index dir: %w", err)
	}
	if err := fsx.WriteFileAtomic(path, content, fileMode); err != nil {
		return fmt.Errorf("write script index: %w", err)
	}
	return nil
}

// Encode renders entries in index form.
func Encode(entries []Entry) ([]byte, error) {
	var buffer bytes.Buffer
	for index, entry := range entries {
		if err := entry.validate(); err != nil {
			return nil, coreerrors.Wrap(
				fmt.Errorf("entry %d: %w", index+1, err),
				coreerrors.CategoryInvalidInput,
				coreerrors.CodeInvalidInput,
				"script names and paths must not contain commas or newlines",
				false,
			)
		}
		buffer.WriteString(entry.Line())
		buffer.WriteByte('\n')
	}
	return buffer.Bytes(), nil
}
