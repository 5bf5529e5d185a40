// Package prompt renders the fixed instructional template sent to the
// model on every iteration, plus the byte-budget truncation helpers the
// iteration controller uses to keep that template within a model's
// context window.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

const template = `You are an AI agent that is part of an outer execution loop.
Your goal is to execute one shell script per iteration in order to accomplish a user task, or answer a user question.

# HOW TO EXECUTE SCRIPTS

Output a single shell script in this format:

exec
` + "```" + `
# Your POSIX shell script here
` + "```" + `

Your script will be run automatically at the end of your turn, and the output will be returned in the next iteration.
Scripts run with -e (exit on error) and -x (debug trace) flags set.
The exec code blocks support markdown delimiters (3+ ` + "`" + ` or ~). Adjust the delimiters if your script contains backticks.

# AGENT COMMANDS

Special commands that control the agent loop are available in your scripts PATH (use them within exec blocks):

- agent-files [FILES...] # Replace currently focused files (shown in every iteration, empty to clear)
- agent-cd PATH          # Change working directory permanently (persists across iterations)
- agent-abort            # Stop with failure (pipe message: echo "reason" | agent-abort)
- agent-done             # Complete successfully (pipe message: echo "summary" | agent-done)

# STATE MANAGEMENT

What persists between iterations:
- Working directory (via agent-cd)
- Focused files list (via agent-files)
- Your own output and the script execution from the previous iteration

What does NOT persist:
- Shell variables
- Current directory from 'cd' command
- Output from older iteration

# PROGRESS TRACKING

Maintain a structured task list with clear status markers:

- [ ] Main task
  - [✓] Completed subtask (verified in previous iteration)
  - [→] Current subtask (what this script will do)
  - [ ] Pending subtask (for future iterations)
  - [✗] Failed subtask (needs retry or different approach)

Only mark tasks [✓] complete AFTER seeing successful output, you shouldn't assume success.

# TASK COMPLETION

- You should only run the ` + "`agent-done`" + ` command when the original user request is satisfied
- Supply a message agent-done to answer the user questions or explain what was achieved
- It is easier for the user to read the agent-done message than any execution output

# ERROR HANDLING

When your exec script fails:
- Examine the -x trace output to identify the failing command
- Check exit codes and error messages
- Consider aborting with agent-abort if the task cannot proceed

# BEST PRACTICES

- State clearly what your script will attempt
- Focus files you'll need to reference in future iterations
- Mention important information for use in the next iteration
- Break complex tasks into smaller, verifiable steps
- Try to accomplish steps each iteration in logical chunks
- Verify outputs before proceeding (verify success in the next iteration)
- Track your own progress via notes (you can only see the output of the last iteration)

`

// TruncatedFocusedFilesNote is the notice the iteration controller passes
// to TruncateText when the rendered focused files exceed their budget.
const TruncatedFocusedFilesNote = "[NOTE: Focused files were truncated to fit context limits. Consider focusing on fewer or smaller files.]"

// BuildArgs are the four variable sections of the prompt plus the optional
// custom-instructions block.
type BuildArgs struct {
	UserRequest       string
	WorkingDir        string
	FocusedFiles      string
	History           string
	ExtraInstructions string
}

// Build renders the complete prompt: the fixed template, an optional
// "CUSTOM INSTRUCTIONS" section when ExtraInstructions is non-empty, and
// the four labeled "CURRENT STATE" sections. The result is deterministic
// given identical args.
func Build(args BuildArgs) string {
	var sb strings.Builder
	sb.WriteString(template)

	if args.ExtraInstructions != "" {
		sb.WriteString("# CUSTOM INSTRUCTIONS\n\n")
		sb.WriteString(args.ExtraInstructions)
		if !strings.HasSuffix(args.ExtraInstructions, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("--- CURRENT STATE ---\n\n")
	fmt.Fprintf(&sb, "User query/request:\n\n%s\n\n", args.UserRequest)
	fmt.Fprintf(&sb, "Working directory:\n\n%s\n\n", args.WorkingDir)
	fmt.Fprintf(&sb, "Focused files:\n\n%s\n\n", args.FocusedFiles)
	fmt.Fprintf(&sb, "Last iteration:\n\n%s", args.History)

	return sb.String()
}

// TruncateText returns text unchanged if it fits within maxBytes. Otherwise
// it cuts at the last newline at or before maxBytes (falling back to a hard
// cut at maxBytes if no newline is found) and appends note after a blank
// line.
func TruncateText(text string, maxBytes int, note string) string {
	if len(text) <= maxBytes {
		return text
	}

	cut := maxBytes
	for cut > 0 && text[cut] != '\n' {
		cut--
	}
	if cut == 0 {
		cut = maxBytes
	}

	return text[:cut] + "\n\n" + note
}

// TruncateHistory keeps the tail of history within maxBytes, matching the
// previous iteration's output as closely as possible. If history already
// fits, it is returned unchanged; an empty history renders as "(none)".
// Otherwise the cut point is advanced forward to the next newline, search
// limited to 1 KiB past the naive cut so truncation never discards nearly
// everything just to land on a line boundary, and a fixed notice is
// prepended.
func TruncateHistory(history string, maxBytes int) string {
	if history == "" {
		return "(none)"
	}
	if len(history) <= maxBytes {
		return history
	}

	start := len(history) - maxBytes
	searchLimit := start + 1024
	if searchLimit > len(history) {
		searchLimit = len(history)
	}

	cut := start
	for cut < searchLimit && history[cut] != '\n' {
		cut++
	}
	if cut >= searchLimit {
		cut = start
	} else {
		cut++ // skip past the newline itself
	}

	return "[... previous iteration truncated to fit context limits ...]\n\n" + history[cut:]
}

// FocusedFilesContent renders the "--- path ---" delimited content of each
// focused file: binary files are summarized by size, unreadable files
// inline their read error, everything else is included verbatim.
func FocusedFilesContent(paths []string) string {
	var sb strings.Builder
	for i, path := range paths {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- %s ---\n", path)

		info, statErr := os.Stat(path)
		data, readErr := os.ReadFile(path)
		switch {
		case readErr != nil:
			fmt.Fprintf(&sb, "[Error reading file: %s]", readErr)
		case isBinary(data):
			if statErr == nil {
				fmt.Fprintf(&sb, "[Binary data (%d bytes)]", info.Size())
			} else {
				sb.WriteString("[Binary data]")
			}
		default:
			sb.Write(data)
		}
	}
	return sb.String()
}

// isBinary applies the same heuristic as most text-vs-binary sniffers: a
// NUL byte anywhere in the first chunk marks the file as binary.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
