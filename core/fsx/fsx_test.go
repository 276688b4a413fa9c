package fsx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicCreatesAndOverwrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "state.json")

	if err := WriteFileAtomic(target, []byte("first\n"), 0o600); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read first write: %v", err)
	}
	if string(first) != "first\n" {
		t.Fatalf("unexpected first content: %q", string(first))
	}

	if err := WriteFileAtomic(target, []byte("second\n"), 0o600); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read second write: %v", err)
	}
	if string(second) != "second\n" {
		t.Fatalf("unexpected second content: %q", string(second))
	}
}

func TestWriteFileAtomicMode(t *testing.T) {
	target := filepath.Join(t.TempDir(), "secure.json")

	if err := WriteFileAtomic(target, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600 got %#o", info.Mode().Perm())
	}
}

func TestCopyFileOverwritesDestination(t *testing.T) {
	workDir := t.TempDir()
	source := filepath.Join(workDir, "hello.sh")
	destination := filepath.Join(workDir, "out", "hello.sh")
	if err := os.MkdirAll(filepath.Dir(destination), 0o750); err != nil {
		t.Fatalf("mkdir destination dir: %v", err)
	}
	if err := os.WriteFile(destination, []byte("stale\n"), 0o600); err != nil {
		t.Fatalf("write stale destination: %v", err)
	}
	if err := os.WriteFile(source, []byte("echo hi\n"), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := CopyFile(source, destination, 0o600); err != nil {
		t.Fatalf("copy file: %v", err)
	}
	copied, err := os.ReadFile(destination)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(copied) != "echo hi\n" {
		t.Fatalf("unexpected copied content: %q", string(copied))
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	workDir := t.TempDir()
	if err := CopyFile(filepath.Join(workDir, "absent"), filepath.Join(workDir, "dest"), 0o600); err == nil {
		t.Fatalf("expected missing source error")
	}
	if Exists(filepath.Join(workDir, "dest")) {
		t.Fatalf("destination must not be created for a missing source")
	}
}

func TestExistsAndIsDir(t *testing.T) {
	workDir := t.TempDir()
	filePath := filepath.Join(workDir, "file")
	if err := os.WriteFile(filePath, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !Exists(filePath) || IsDir(filePath) {
		t.Fatalf("expected plain file to exist and not be a directory")
	}
	if !IsDir(workDir) {
		t.Fatalf("expected workdir to be a directory")
	}
	if Exists(filepath.Join(workDir, "missing")) {
		t.Fatalf("expected missing path to not exist")
	}
}
