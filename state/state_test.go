package state

import (
	"path/filepath"
	"testing"
)

func TestWriteProjectionAndMergeAfter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	a := New("/a")
	if err := WriteProjection(path, a); err != nil {
		t.Fatalf("WriteProjection: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.SetWorkingDir("/tmp")
	if err := Save(path, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	MergeAfter(path, a)
	if a.WorkingDir != "/tmp" {
		t.Fatalf("working dir = %q, want /tmp", a.WorkingDir)
	}
}

func TestMergeAfterFocusedFilesReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	a := New("/a")
	a.FocusedFiles = []string{"/old"}
	if err := WriteProjection(path, a); err != nil {
		t.Fatalf("WriteProjection: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.SetFocusedFiles([]string{"/etc/hosts"})
	if err := Save(path, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	MergeAfter(path, a)
	if len(a.FocusedFiles) != 1 || a.FocusedFiles[0] != "/etc/hosts" {
		t.Fatalf("focused files = %v, want [/etc/hosts]", a.FocusedFiles)
	}
}

func TestMergeAfterDoneTakesMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	a := New("/a")
	f := &File{FocusedFiles: []string{}}
	f.SetDone("all finished")
	if err := Save(path, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	MergeAfter(path, a)
	if !a.Done {
		t.Fatal("expected Done == true")
	}
	if a.DoneMessage != "all finished" {
		t.Fatalf("done message = %q", a.DoneMessage)
	}
	if a.Aborted {
		t.Fatal("expected Aborted == false")
	}
}

func TestMergeAfterMissingFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.json")

	a := New("/a")
	a.WorkingDir = "/keep"
	MergeAfter(path, a)
	if a.WorkingDir != "/keep" {
		t.Fatalf("working dir changed despite missing state file: %q", a.WorkingDir)
	}
}

func TestMergeAfterUnparseableFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := Save(path, &File{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := writeRaw(path, "not json"); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}

	a := New("/keep")
	MergeAfter(path, a)
	if a.WorkingDir != "/keep" {
		t.Fatalf("working dir changed despite unparseable state file: %q", a.WorkingDir)
	}
}

func writeRaw(path, content string) error {
	return atomicWrite(path, []byte(content))
}
