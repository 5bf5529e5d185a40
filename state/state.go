// Package state provides the typed view over the on-disk JSON state file
// used to communicate between the parent agent process and child-mode
// agent command invocations.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Agent is the authoritative, in-memory record of one run. It is owned
// exclusively by the iteration controller between iterations.
type Agent struct {
	WorkingDir    string
	FocusedFiles  []string
	PrevIteration string
	Iteration     int
	Done          bool
	Aborted       bool
	DoneMessage   string
	AbortMessage  string
}

// New creates a fresh Agent rooted at workingDir.
func New(workingDir string) *Agent {
	return &Agent{
		WorkingDir:   workingDir,
		FocusedFiles: nil,
	}
}

// File is the on-disk JSON schema. Pointers distinguish "absent" from the
// zero value so a re-read can tell whether the child actually touched a
// field.
type File struct {
	WorkingDir   *string  `json:"working_dir,omitempty"`
	FocusedFiles []string `json:"focused_files"`
	Done         *bool    `json:"done,omitempty"`
	DoneMessage  *string  `json:"done_message,omitempty"`
	Aborted      *bool    `json:"aborted,omitempty"`
	AbortMessage *string  `json:"abort_message,omitempty"`
}

// WriteProjection serializes the parts of Agent visible to a freshly
// spawned child (working_dir, focused_files) to path. It writes via a
// temp file plus rename in the same directory so a racing child process
// can never observe a partially-written file.
func WriteProjection(path string, a *Agent) error {
	wd := a.WorkingDir
	f := File{
		WorkingDir:   &wd,
		FocusedFiles: a.FocusedFiles,
	}
	if f.FocusedFiles == nil {
		f.FocusedFiles = []string{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return atomicWrite(path, data)
}

// MergeAfter re-reads the state file written at path and merges it into a.
// working_dir and focused_files are updated unconditionally when present;
// done/aborted and their message fields are only set when the
// corresponding boolean is true. An unreadable or unparseable file is
// silently ignored: the previous state is retained, since the child may
// have crashed before writing anything back.
func MergeAfter(path string, a *Agent) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	if f.WorkingDir != nil {
		a.WorkingDir = *f.WorkingDir
	}
	if f.FocusedFiles != nil {
		a.FocusedFiles = f.FocusedFiles
	}
	if f.Done != nil && *f.Done {
		a.Done = true
		if f.DoneMessage != nil {
			a.DoneMessage = *f.DoneMessage
		}
	}
	if f.Aborted != nil && *f.Aborted {
		a.Aborted = true
		if f.AbortMessage != nil {
			a.AbortMessage = *f.AbortMessage
		}
	}
}

// Load reads and parses the state file at path for mutation by an agent
// command. Unlike MergeAfter, failures are reported rather than swallowed:
// a command invocation with no readable state file is itself an error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing state JSON: %w", err)
	}
	if f.FocusedFiles == nil {
		f.FocusedFiles = []string{}
	}
	return &f, nil
}

// Save writes f back to path, unformatted, matching the schema the parent
// expects to re-read.
func Save(path string, f *File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// SetFocusedFiles replaces the focused_files list entirely.
func (f *File) SetFocusedFiles(files []string) {
	f.FocusedFiles = files
}

// SetWorkingDir sets working_dir.
func (f *File) SetWorkingDir(dir string) {
	f.WorkingDir = &dir
}

// SetDone marks the run done with an optional message.
func (f *File) SetDone(message string) {
	t := true
	f.Done = &t
	if message != "" {
		f.DoneMessage = &message
	}
}

// SetAborted marks the run aborted with an optional message.
func (f *File) SetAborted(message string) {
	t := true
	f.Aborted = &t
	if message != "" {
		f.AbortMessage = &message
	}
}

func atomicWrite(targetPath string, content []byte) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".minicoder-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
