// Package agentcmd implements the re-entrant agent command mode: the same
// executable, invoked under one of the four reserved names, mutates the
// state file named by MINICODER_STATE_FILE and exits.
package agentcmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrewchambers/minicoder/state"
)

// Names are the reserved argv[0] basenames routed here by the entry
// dispatcher.
const (
	Files = "agent-files"
	CD    = "agent-cd"
	Done  = "agent-done"
	Abort = "agent-abort"
)

// IsReserved reports whether basename names one of the four agent commands.
func IsReserved(basename string) bool {
	switch basename {
	case Files, CD, Done, Abort:
		return true
	default:
		return false
	}
}

// Run executes the named command against argv (excluding argv[0]) and the
// environment, writing user-facing output to stdout/stderr and reading a
// done/abort message from stdin when needed. It returns a process exit
// code: 0 on success, 1 on any error.
func Run(cmd string, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	statePath := os.Getenv("MINICODER_STATE_FILE")
	if statePath == "" {
		fmt.Fprintln(stderr, "Error: MINICODER_STATE_FILE environment variable not set")
		return 1
	}

	f, err := state.Load(statePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading state file: %s\n", err)
		return 1
	}

	switch cmd {
	case Files:
		runFiles(f, argv, stdout)
	case CD:
		if len(argv) < 1 {
			fmt.Fprintln(stderr, "Usage: agent-cd PATH")
			return 1
		}
		abs, err := resolveAbs(argv[0])
		if err != nil {
			fmt.Fprintf(stderr, "Error: Invalid directory path: %s\n", argv[0])
			return 1
		}
		f.SetWorkingDir(abs)
		fmt.Fprintf(stdout, "Changed directory to: %s\n", abs)
	case Done:
		message := readMessage(stdin)
		f.SetDone(message)
	case Abort:
		message := readMessage(stdin)
		f.SetAborted(message)
	default:
		fmt.Fprintf(stderr, "Unknown agent command: %s\n", cmd)
		return 1
	}

	if err := state.Save(statePath, f); err != nil {
		fmt.Fprintf(stderr, "Error writing state file: %s\n", err)
		return 1
	}
	return 0
}

func runFiles(f *state.File, argv []string, stdout io.Writer) {
	if len(argv) == 0 {
		f.SetFocusedFiles([]string{})
		fmt.Fprintln(stdout, "Cleared all focused files")
		return
	}
	resolved := make([]string, 0, len(argv))
	for _, arg := range argv {
		abs, err := resolveAbs(arg)
		if err != nil {
			abs = arg
		}
		resolved = append(resolved, abs)
		fmt.Fprintf(stdout, "Focused on: %s\n", abs)
	}
	f.SetFocusedFiles(resolved)
}

func resolveAbs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// readMessage reads all of stdin and trims exactly one trailing '\n'.
func readMessage(stdin io.Reader) string {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return ""
	}
	msg := string(data)
	msg = strings.TrimSuffix(msg, "\n")
	return msg
}
