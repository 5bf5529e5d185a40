// Package sandbox builds the per-iteration temporary execution environment:
// a scratch directory with self-symlinked agent commands on PATH, a
// generated script file, and a spawned shell whose merged stdout/stderr is
// captured and forwarded live to the parent's own stdout.
package sandbox

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/andrewchambers/minicoder/state"
)

// commands are the reserved agent-command names symlinked into the
// sandbox's bin directory.
var commands = []string{"agent-files", "agent-cd", "agent-done", "agent-abort"}

const stateFileEnv = "MINICODER_STATE_FILE"
const shellEnv = "MINICODER_SHELL"
const defaultShell = "/bin/sh"

// Execute runs script inside a freshly built sandbox rooted at agentState's
// current working directory and focused files, then merges any resulting
// state mutations back into agentState. The returned string is the child's
// merged stdout+stderr, with a trailing "[Script exited with code N]" note
// appended when the child exited non-zero and neither agent-done nor
// agent-abort fired. Setup failures (temp-dir, symlink, state-file, script
// write, chmod, spawn) are reported inline in the returned string rather
// than as a Go error, matching the contract that script failures never
// abort the iteration loop.
func Execute(script string, agentState *state.Agent, out io.Writer) string {
	tempDir, err := os.MkdirTemp("", "minicoder-*")
	if err != nil {
		return "Error: Failed to create temporary directory: " + err.Error()
	}
	defer cleanup(tempDir)

	binDir := filepath.Join(tempDir, "bin")
	if err := os.Mkdir(binDir, 0o755); err != nil {
		return "Error: Failed to create bin directory: " + err.Error()
	}

	exePath, err := os.Executable()
	if err != nil {
		return "Error: Failed to get executable path: " + err.Error()
	}

	for _, name := range commands {
		linkPath := filepath.Join(binDir, name)
		if err := os.Symlink(exePath, linkPath); err != nil {
			return fmt.Sprintf("Error: Failed to create symlink for %s: %s", name, err)
		}
	}

	statePath := filepath.Join(tempDir, "model_state.json")
	if err := state.WriteProjection(statePath, agentState); err != nil {
		return "Error: Failed to write initial state JSON: " + err.Error()
	}

	scriptPath := filepath.Join(tempDir, "script.sh")
	if err := writeScript(scriptPath, statePath, binDir, agentState.WorkingDir, script); err != nil {
		return err.Error()
	}
	if err := os.Chmod(scriptPath, 0o755); err != nil {
		return "Error: Failed to make script executable: " + err.Error()
	}

	output, exitCode, err := run(scriptPath, out)
	if err != nil {
		return "Error: Failed to execute script: " + err.Error()
	}

	state.MergeAfter(statePath, agentState)

	var sb bytes.Buffer
	sb.WriteString(output)
	if exitCode != 0 && !agentState.Done && !agentState.Aborted {
		fmt.Fprintf(&sb, "\n[Script exited with code %d]\n", exitCode)
	}
	return sb.String()
}

func writeScript(scriptPath, statePath, binDir, workingDir, body string) error {
	f, err := os.Create(scriptPath)
	if err != nil {
		return fmt.Errorf("Error: Failed to create script file: %w", err)
	}
	defer f.Close()

	currentPath := os.Getenv("PATH")
	if currentPath == "" {
		currentPath = "/usr/local/bin:/usr/bin:/bin"
	}

	if _, err := fmt.Fprintf(f, "#!/bin/sh\n"); err != nil {
		return fmt.Errorf("Error: Failed to write script header: %w", err)
	}
	if _, err := fmt.Fprintf(f, "export %s=%s\n", stateFileEnv, quote(statePath)); err != nil {
		return fmt.Errorf("Error: Failed to write script header: %w", err)
	}
	if _, err := fmt.Fprintf(f, "export PATH=%s\n", quote(binDir+":"+currentPath)); err != nil {
		return fmt.Errorf("Error: Failed to write script header: %w", err)
	}
	if _, err := fmt.Fprintf(f, "set -ex\n"); err != nil {
		return fmt.Errorf("Error: Failed to write script header: %w", err)
	}
	if workingDir != "" {
		if _, err := fmt.Fprintf(f, "cd %s\n", quote(workingDir)); err != nil {
			return fmt.Errorf("Error: Failed to write working directory change: %w", err)
		}
	}
	if _, err := fmt.Fprintf(f, "%s\n", body); err != nil {
		return fmt.Errorf("Error: Failed to write script body: %w", err)
	}
	return nil
}

// quote wraps s in single quotes, escaping embedded single quotes via the
// standard POSIX idiom: close the quote, emit an escaped quote, reopen.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// run execs shell with scriptPath as its sole positional argument. Stdin is
// the null device; stdout and stderr are merged into a single stream that
// is simultaneously captured and forwarded live to out.
func run(scriptPath string, out io.Writer) (string, int, error) {
	shell := os.Getenv(shellEnv)
	if shell == "" {
		shell = defaultShell
	}

	cmd := exec.Command(shell, scriptPath)

	var buf bytes.Buffer
	var writer io.Writer = &buf
	if out != nil {
		writer = io.MultiWriter(&buf, out)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return buf.String(), -1, runErr
		}
	}
	return buf.String(), exitCode, nil
}

func cleanup(tempDir string) {
	if err := os.RemoveAll(tempDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to clean up temporary directory: %s: %s\n", tempDir, err)
	}
}
